package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/service"
)

// SaleRegistrar records a sale.
type SaleRegistrar interface {
	Register(ctx context.Context, in service.RegisterSaleInput) (*model.Sale, error)
}

// SalesReporter lists sales in an inclusive date range.
type SalesReporter interface {
	Query(ctx context.Context, start, end model.Date) ([]model.Sale, error)
}

// SaleHandler serves /v1/sales.
type SaleHandler struct {
	registrar SaleRegistrar
	report    SalesReporter
	log       *zap.Logger
}

func NewSaleHandler(registrar SaleRegistrar, report SalesReporter, log *zap.Logger) *SaleHandler {
	return &SaleHandler{registrar: registrar, report: report, log: log}
}

// Create registers a sale and returns it with generated ids.
func (h *SaleHandler) Create(c echo.Context) error {
	var req service.RegisterSaleInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sale, err := h.registrar.Register(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, sale)
}

// Report handles GET /v1/sales/report?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *SaleHandler) Report(c echo.Context) error {
	start, ok := queryDate(c, "start")
	if !ok {
		return invalidField(c, "start", "must be a date (YYYY-MM-DD)")
	}
	end, ok := queryDate(c, "end")
	if !ok {
		return invalidField(c, "end", "must be a date (YYYY-MM-DD)")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sales, err := h.report.Query(ctx, start, end)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, sales)
}

func queryDate(c echo.Context, name string) (model.Date, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return model.Date{}, false
	}
	d, err := model.ParseDate(raw)
	return d, err == nil
}
