package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/service"
)

// CatalogService is the part of service.CatalogService the handlers use.
type CatalogService interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id uint64) (*model.Product, error)
	Create(ctx context.Context, in service.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint64, in service.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uint64) error
}

// ProductHandler serves /v1/products.
type ProductHandler struct {
	svc CatalogService
	log *zap.Logger
}

func NewProductHandler(svc CatalogService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ps, err := h.svc.List(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidField(c, "id", "must be a positive integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.svc.Create(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update replaces every field of a product.
func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidField(c, "id", "must be a positive integer")
	}
	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.svc.Update(ctx, id, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidField(c, "id", "must be a positive integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
