// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/handler"
	"github.com/iliyamo/product-sales-api/internal/middleware"
)

// Deps is everything the routes need. Limiter and Cache may be built
// without a Redis client, in which case they pass requests through.
type Deps struct {
	Auth          *handler.AuthHandler
	Products      *handler.ProductHandler
	Sales         *handler.SaleHandler
	Health        *handler.HealthHandler
	Authenticator middleware.Authenticator
	Limiter       *middleware.RateLimiter
	Cache         *middleware.ResponseCache
	CORSOrigins   []string
	Log           *zap.Logger
}

// New returns an Echo instance with global middleware and every route
// registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d.Auth, d.Authenticator, d.Limiter)
	RegisterProducts(e, d.Products, d.Authenticator, d.Cache)
	RegisterSales(e, d.Sales, d.Authenticator, d.Cache)
	return e
}

// RegisterRoutes registers the health checks.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
}

// RegisterAuth registers /v1/auth behind the rate limiter, plus the
// endpoints that act on the signed-in user.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator, limiter *middleware.RateLimiter) {
	g := e.Group("/v1/auth", limiter.Middleware())
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/logout-all", a.LogoutAll, middleware.JWTAuth(authn))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(authn))
}

// RegisterProducts exposes the catalog. Reads are public and cached;
// writes need a bearer token and invalidate the cache.
func RegisterProducts(e *echo.Echo, p *handler.ProductHandler, authn middleware.Authenticator, cache *middleware.ResponseCache) {
	e.GET("/v1/products", p.List, cache.Middleware())
	e.GET("/v1/products/:id", p.Get, cache.Middleware())

	write := []echo.MiddlewareFunc{middleware.JWTAuth(authn), cache.InvalidateOnSuccess()}
	e.POST("/v1/products", p.Create, write...)
	e.PUT("/v1/products/:id", p.Update, write...)
	e.DELETE("/v1/products/:id", p.Delete, write...)
}

// RegisterSales registers sale recording and reporting. A recorded sale
// changes stock, so it invalidates cached catalog reads.
func RegisterSales(e *echo.Echo, s *handler.SaleHandler, authn middleware.Authenticator, cache *middleware.ResponseCache) {
	g := e.Group("/v1/sales", middleware.JWTAuth(authn))
	g.POST("", s.Create, cache.InvalidateOnSuccess())
	g.GET("/report", s.Report)
}
