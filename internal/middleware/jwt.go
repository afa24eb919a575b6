package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-sales-api/internal/utils"
)

// Authenticator verifies a raw identity token. A nil principal means the
// token is missing, malformed, forged or expired.
type Authenticator interface {
	Authenticate(raw string) *utils.Principal
}

// JWTAuth rejects requests without a valid Bearer identity token. On
// success the principal is available through CurrentPrincipal and the
// user id under "user_id".
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			p := auth.Authenticate(raw)
			if p == nil {
				return unauthorized(c, "invalid token")
			}
			c.Set(userIDKey, p.UserID)
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "UNAUTHORIZED"})
}
