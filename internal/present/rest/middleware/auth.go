package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/internal/present/rest/presenter"
	"github.com/driftsocial/skiff/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth   *service.AuthService
	config domain.Config
}

func NewAuthMiddleware(
	auth *service.AuthService,
	config domain.Config,
) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		config: config,
	}
}

// IdentifyRequester parses an optional Bearer access token and stashes the
// requester DID in the request context. A missing or rejected token leaves
// the request anonymous; routes that need a caller add RequireAuth on top.
func (m *AuthMiddleware) IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyRequester")
		defer span.End()

		if token, ok := BearerToken(c); ok {
			result, err := m.auth.AuthToken(ctx, token)
			if err != nil {
				span.RecordError(err)
			} else {
				ctx = context.WithValue(ctx, domain.RequesterDidCtxKey, result.Did)
				span.SetAttributes(attribute.String("RequesterDid", result.Did))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireAuth rejects requests that did not authenticate as an account.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if RequesterDid(c) == "" {
			return presenter.Error(c, domain.ErrAuthRequired)
		}
		return next(c)
	}
}

// BearerToken extracts the Bearer credential from the Authorization header.
func BearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// RequesterDid returns the authenticated DID, or "" for anonymous requests.
func RequesterDid(c echo.Context) string {
	did, _ := c.Request().Context().Value(domain.RequesterDidCtxKey).(string)
	return did
}
