package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/repository"
	"github.com/iliyamo/product-sales-api/internal/utils"
)

const tracerName = "github.com/iliyamo/product-sales-api/internal/service"

// UserSummary is the public part of a user returned with every bundle.
type UserSummary struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// AuthBundle is returned by register, login and refresh.
type AuthBundle struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn"`
	User         UserSummary `json:"user"`
}

// AuthService registers users, logs them in and rotates refresh tokens.
//
// A refresh token is Active until it is revoked (by rotation or logout) or
// its expiry passes. Revocation happens exactly once; expiry is checked when
// the token is presented. Login never revokes tokens issued earlier, so a
// user may hold any number of live sessions.
type AuthService struct {
	uow    repository.UnitOfWork
	tokens *utils.TokenIssuer
	now    func() time.Time
	log    *zap.Logger
	tracer trace.Tracer
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithAuthClock overrides the time source used for refresh token expiry.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(uow repository.UnitOfWork, tokens *utils.TokenIssuer, log *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		uow:    uow,
		tokens: tokens,
		now:    time.Now,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthBundle, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, endSpan(span, err)
	}
	email := NormalizeEmail(in.Email)
	s.log.Info("registering user", zap.String("email", email))

	var bundle *AuthBundle
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrDuplicateEmail
		case !errors.Is(err, repository.ErrNotFound):
			return internal("lookup user", err)
		}

		u := &model.User{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Email:        email,
			PasswordHash: utils.HashPassword(in.Password),
		}
		if err := repos.Users.Insert(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateEmail
			}
			return internal("insert user", err)
		}
		bundle, err = s.issueBundle(ctx, repos, *u)
		return err
	})
	if err != nil {
		if KindOf(err) == KindDuplicateEmail {
			s.log.Info("registration rejected: email already registered", zap.String("email", email))
		}
		return nil, endSpan(span, asServiceError("register", err))
	}
	span.SetAttributes(attribute.Int64("user.id", int64(bundle.User.ID)))
	s.log.Info("user registered", zap.Uint64("user_id", bundle.User.ID))
	return bundle, endSpan(span, nil)
}

// Login checks credentials and issues a fresh token pair. An unknown email
// and a wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthBundle, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, endSpan(span, err)
	}
	email := NormalizeEmail(in.Email)

	var bundle *AuthBundle
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		u, err := repos.Users.FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("login failed: unknown email", zap.String("email", email))
			return ErrInvalidCredentials
		}
		if err != nil {
			return internal("lookup user", err)
		}
		if !utils.VerifyPassword(u.PasswordHash, in.Password) {
			s.log.Info("login failed: password mismatch", zap.Uint64("user_id", u.ID))
			return ErrInvalidCredentials
		}
		bundle, err = s.issueBundle(ctx, repos, *u)
		return err
	})
	if err != nil {
		return nil, endSpan(span, asServiceError("login", err))
	}
	s.log.Info("user logged in", zap.Uint64("user_id", bundle.User.ID))
	return bundle, endSpan(span, nil)
}

// Refresh exchanges an active refresh token for a new pair. The presented
// token is revoked and the replacement inserted in the same transaction;
// presenting it again fails with ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthBundle, error) {
	ctx, span := s.tracer.Start(ctx, "auth.refresh")
	defer span.End()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		var v ValidationError
		v.Add("refreshToken", "is required")
		return nil, endSpan(span, v.Err())
	}

	var bundle *AuthBundle
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		tok, err := s.lockActive(ctx, repos, refreshToken)
		if err != nil {
			return err
		}
		if !tok.Usable(s.now().UTC()) {
			s.log.Info("refresh rejected: token expired", zap.Uint64("token_id", tok.ID))
			return ErrInvalidToken
		}
		if err := repos.Tokens.Revoke(ctx, tok.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return internal("revoke refresh token", err)
		}
		u, err := repos.Users.FindByID(ctx, tok.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return internal("load user", err)
		}
		bundle, err = s.issueBundle(ctx, repos, *u)
		return err
	})
	if err != nil {
		return nil, endSpan(span, asServiceError("refresh", err))
	}
	s.log.Info("refresh token rotated", zap.Uint64("user_id", bundle.User.ID))
	return bundle, endSpan(span, nil)
}

// Logout revokes one refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "auth.logout")
	defer span.End()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		var v ValidationError
		v.Add("refreshToken", "is required")
		return endSpan(span, v.Err())
	}
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		tok, err := s.lockActive(ctx, repos, refreshToken)
		if err != nil {
			return err
		}
		if err := repos.Tokens.Revoke(ctx, tok.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return internal("revoke refresh token", err)
		}
		return nil
	})
	return endSpan(span, asServiceError("logout", err))
}

// LogoutAll revokes every active refresh token of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "auth.logout_all")
	defer span.End()

	var n int64
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		n, err = repos.Tokens.RevokeAllForUser(ctx, userID)
		if err != nil {
			return internal("revoke refresh tokens", err)
		}
		return nil
	})
	if err != nil {
		return 0, endSpan(span, asServiceError("logout all", err))
	}
	s.log.Info("user logged out everywhere", zap.Uint64("user_id", userID), zap.Int64("revoked", n))
	return n, endSpan(span, nil)
}

// Authenticate verifies an identity token; nil means unauthenticated.
func (s *AuthService) Authenticate(raw string) *utils.Principal {
	return s.tokens.VerifyIdentityToken(raw)
}

func (s *AuthService) lockActive(ctx context.Context, repos repository.Repositories, raw string) (*model.RefreshToken, error) {
	tok, err := repos.Tokens.FindActiveForUpdate(ctx, raw)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("refresh token rejected: unknown or revoked")
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, internal("lookup refresh token", err)
	}
	return tok, nil
}

// issueBundle signs an identity token for u and stores a new refresh token
// through repos, so it commits with whatever else the caller wrote.
func (s *AuthService) issueBundle(ctx context.Context, repos repository.Repositories, u model.User) (*AuthBundle, error) {
	identity, _, err := s.tokens.IssueIdentityToken(u)
	if err != nil {
		return nil, internal("sign identity token", err)
	}
	raw, err := utils.NewRefreshTokenString()
	if err != nil {
		return nil, internal("generate refresh token", err)
	}
	created := s.now().UTC().Truncate(time.Second)
	rt := &model.RefreshToken{
		UserID:  u.ID,
		Token:   raw,
		Created: created,
		Expires: created.Add(utils.RefreshTokenTTL),
	}
	if err := repos.Tokens.Insert(ctx, rt); err != nil {
		return nil, internal("store refresh token", err)
	}
	return &AuthBundle{
		Token:        identity,
		RefreshToken: raw,
		ExpiresIn:    int(utils.IdentityTokenTTL / time.Second),
		User: UserSummary{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
		},
	}, nil
}

// asServiceError passes service errors through and wraps anything else
// (commit failures, context cancellation) as internal.
func asServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return internal(op, err)
}

// endSpan records the outcome of err on span and returns err unchanged.
func endSpan(span trace.Span, err error) error {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	kind := KindOf(err)
	span.SetAttributes(attribute.String("error.kind", string(kind)))
	if kind == KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
