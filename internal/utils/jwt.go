package utils // package utils provides token issuing and hashing helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
)

const (
	// IdentityTokenTTL is the fixed validity of an identity token.
	IdentityTokenTTL = 2 * time.Hour
	// RefreshTokenTTL is the validity of a refresh token from issuance.
	RefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 32
)

// TokenConfig carries the process-wide signing parameters. It is built once
// at startup and never mutated afterwards.
type TokenConfig struct {
	Secret   string // HMAC key for HS256
	Issuer   string // expected "iss"
	Audience string // expected "aud"
}

// IdentityClaims is the payload of an identity token.
type IdentityClaims struct {
	UserID    uint64 `json:"uid"`
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	jwt.RegisteredClaims
}

// Principal is the verified identity extracted from a token.
type Principal struct {
	UserID    uint64    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// TokenIssuer signs and verifies identity tokens and mints refresh token
// strings. It is safe for concurrent use.
type TokenIssuer struct {
	cfg    TokenConfig
	now    func() time.Time
	logger *zap.Logger
}

// TokenIssuerOption customizes a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithClock overrides the time source used for issuance and verification.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) { t.now = now }
}

// WithLogger sets the logger that records verification failures.
func WithLogger(l *zap.Logger) TokenIssuerOption {
	return func(t *TokenIssuer) { t.logger = l }
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token issuer: empty signing secret")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token issuer: issuer and audience are required")
	}
	t := &TokenIssuer{cfg: cfg, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueIdentityToken signs a 2-hour HS256 token for u and returns it with
// its expiry.
func (t *TokenIssuer) IssueIdentityToken(u model.User) (string, time.Time, error) {
	issued := t.now().UTC().Truncate(time.Second)
	exp := issued.Add(IdentityTokenTTL)
	claims := IdentityClaims{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyIdentityToken returns the principal of a valid token, or nil. A bad
// signature, a foreign algorithm, an expired token (no leeway), or a wrong
// issuer or audience all yield nil; the cause is only logged.
func (t *TokenIssuer) VerifyIdentityToken(raw string) *Principal {
	if raw == "" {
		return nil
	}
	claims := &IdentityClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(t.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tok.Valid {
		t.logger.Debug("identity token rejected", zap.Error(err))
		return nil
	}
	if claims.UserID == 0 {
		t.logger.Debug("identity token rejected", zap.String("reason", "missing uid claim"))
		return nil
	}
	return &Principal{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// NewRefreshTokenString returns 32 random bytes encoded as standard base64.
func NewRefreshTokenString() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashRefreshToken returns the SHA-256 hex digest under which a refresh
// token string is stored.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
