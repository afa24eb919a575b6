package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/config"
	"github.com/iliyamo/product-sales-api/internal/handler"
	"github.com/iliyamo/product-sales-api/internal/middleware"
	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/service"
	"github.com/iliyamo/product-sales-api/internal/utils"
)

type nobody struct{}

func (nobody) Authenticate(string) *utils.Principal { return nil }

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type emptyCatalog struct{}

func (emptyCatalog) List(context.Context) ([]model.Product, error) { return []model.Product{}, nil }
func (emptyCatalog) Get(context.Context, uint64) (*model.Product, error) {
	return nil, service.ErrNotFound
}
func (emptyCatalog) Create(context.Context, service.ProductInput) (*model.Product, error) {
	return nil, service.ErrNotFound
}
func (emptyCatalog) Update(context.Context, uint64, service.ProductInput) (*model.Product, error) {
	return nil, service.ErrNotFound
}
func (emptyCatalog) Delete(context.Context, uint64) error { return service.ErrNotFound }

func newTestServer() http.Handler {
	log := zap.NewNop()
	return New(Deps{
		Auth:          handler.NewAuthHandler(nil, log),
		Products:      handler.NewProductHandler(emptyCatalog{}, log),
		Sales:         handler.NewSaleHandler(nil, nil, log),
		Health:        handler.NewHealthHandler(okPinger{}, nil, log),
		Authenticator: nobody{},
		Limiter:       middleware.NewRateLimiter(config.RateLimitConfig{}, nil, log),
		Cache:         middleware.NewResponseCache(config.CacheConfig{}, nil, log),
		CORSOrigins:   []string{"http://localhost:5173"},
		Log:           log,
	})
}

func TestRoutes(t *testing.T) {
	srv := newTestServer()
	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/v1/products", http.StatusOK},
		{http.MethodGet, "/v1/products/1", http.StatusNotFound},
		{http.MethodPost, "/v1/products", http.StatusUnauthorized},
		{http.MethodPut, "/v1/products/1", http.StatusUnauthorized},
		{http.MethodDelete, "/v1/products/1", http.StatusUnauthorized},
		{http.MethodPost, "/v1/sales", http.StatusUnauthorized},
		{http.MethodGet, "/v1/sales/report", http.StatusUnauthorized},
		{http.MethodGet, "/v1/me", http.StatusUnauthorized},
		{http.MethodPost, "/v1/auth/logout-all", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/v1/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
