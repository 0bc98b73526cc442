package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	"github.com/Skotchmaster/blog_platform/internal/service"
)

// httpError maps service errors onto HTTP statuses. Anything unrecognised is a 500
// whose cause stays in the logs.
func httpError(ctx context.Context, op string, err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "Email already exists")
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	default:
		logging.FromContext(ctx).Error(op+"_failed", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
	}
}
