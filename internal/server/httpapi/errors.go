package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/homedash/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a service error onto an HTTP status with a deliberately
// generic message. Validation errors are the exception: their message states
// which input was rejected.
func (s *HTTPServer) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorEmailTaken):
		return c.JSON(http.StatusConflict, errorResponse{Error: "email already in use"})
	case errors.Is(err, common.ErrorInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, common.ErrSessionInvalid):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid or revoked refresh token"})
	case errors.Is(err, common.ErrorUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, common.ErrorRateLimited):
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
	case errors.Is(err, common.ErrorStoreUnavailable):
		s.logger.Error(c.Request().Context(), "store unavailable", "error", err.Error())
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
	default:
		s.logger.Error(c.Request().Context(), "request failed", "error", err.Error())
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
