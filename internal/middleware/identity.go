package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-sales-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	userIDKey    = "user_id"
	principalKey = "principal"
)

// CurrentPrincipal returns the principal stored by JWTAuth, or nil on
// routes that are not authenticated.
func CurrentPrincipal(c echo.Context) *utils.Principal {
	p, _ := c.Get(principalKey).(*utils.Principal)
	return p
}

// currentUserID returns the authenticated user id, or "anon".
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
