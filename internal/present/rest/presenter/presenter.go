package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff/internal/domain"
)

// ErrorResponse is the XRPC error envelope. Error carries the stable kind a
// client switches on; Message is human-readable detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// BadRequest reports a malformed request that never reached a usecase.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidRequest.Code, Message: msg})
}

// Error maps a failure to its envelope: taxonomy errors keep their kind and
// status; anything else is a node fault surfaced as a generic 500 so no
// internal detail leaks.
func Error(c echo.Context, err error) error {
	var appErr domain.AppError
	if !errors.As(err, &appErr) {
		slog.Error(
			"request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
			slog.String("module", "rest"),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "InternalServerError", Message: "something went wrong"})
	}
	return c.JSON(statusOf(appErr), ErrorResponse{Error: appErr.Code, Message: appErr.Message})
}

func statusOf(err domain.AppError) int {
	switch err.Code {
	case domain.ErrAuthenticationFailed.Code,
		domain.ErrAuthRequired.Code,
		domain.ErrInvalidToken.Code,
		domain.ErrExpiredToken.Code:
		return http.StatusUnauthorized
	case domain.ErrRateLimitExceeded.Code:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
