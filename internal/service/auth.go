package service

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/driftsocial/skiff/internal/domain"
)

var tracer = otel.Tracer("service")

// AuthService validates presented access tokens for the request middleware.
type AuthService struct {
	config   domain.Config
	sessions *SessionService
}

func NewAuthService(
	config domain.Config,
	sessions *SessionService,
) *AuthService {
	return &AuthService{
		config:   config,
		sessions: sessions,
	}
}

type AuthResult struct {
	Did string
}

func (s *AuthService) AuthToken(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthToken")
	defer span.End()

	did, err := s.sessions.VerifyAccessToken(token)
	if err != nil {
		span.RecordError(errors.Wrap(err, "token validation failed"))
		return nil, err
	}

	return &AuthResult{Did: did}, nil
}
