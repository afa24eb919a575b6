package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/service"
)

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindInvalidReference:
		return http.StatusBadRequest
	case service.KindInvalidCredentials, service.KindInvalidToken:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindDuplicateEmail, service.KindInsufficientStock, service.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "code", "fields"?, "product"?}.
// Internal failures are logged in full and reach the client only as a
// generic message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindInternal {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal server error",
			"code":  string(service.KindInternal),
		})
	}
	body := echo.Map{"error": se.Message, "code": string(se.Kind)}
	if len(se.Fields) > 0 {
		body["fields"] = se.Fields
	}
	if se.Product != "" {
		body["product"] = se.Product
	}
	return c.JSON(statusFor(se.Kind), body)
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error": "invalid request body",
		"code":  string(service.KindValidation),
	})
}

func invalidField(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  "Validation failed: " + field + " " + msg,
		"code":   string(service.KindValidation),
		"fields": map[string]string{field: msg},
	})
}
