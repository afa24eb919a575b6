package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/middleware"
	"github.com/iliyamo/product-sales-api/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthService is the part of service.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthBundle, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthBundle, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthBundle, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uint64) (int64, error)
}

// AuthHandler serves /v1/auth and /v1/me.
type AuthHandler struct {
	svc AuthService
	log *zap.Logger
}

func NewAuthHandler(svc AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// Register creates an account and returns its first token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bundle, err := h.svc.Register(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, bundle)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bundle, err := h.svc.Login(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

// Refresh rotates the refresh token in the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bundle, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

// Logout revokes the refresh token in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Logout(ctx, req.RefreshToken); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "code": "UNAUTHORIZED"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.svc.LogoutAll(ctx, p.UserID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity carried by the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "code": "UNAUTHORIZED"})
	}
	return c.JSON(http.StatusOK, service.UserSummary{
		ID:        p.UserID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	})
}
