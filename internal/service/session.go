package service

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/lexicons"
)

// sessionClaims carries the token scope next to the registered set. The
// scope keeps access and refresh tokens from standing in for each other.
type sessionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// SessionService mints and verifies the HS256 session token pair. Access
// tokens are stateless; each refresh token is bound to a stored jti so
// rotation can consume it exactly once.
type SessionService struct {
	secret     []byte
	serviceDid string
	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func NewSessionService(secret []byte, serviceDid string, accessTTL, refreshTTL time.Duration) *SessionService {
	return &SessionService{
		secret:     secret,
		serviceDid: serviceDid,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *SessionService) CreateAccessToken(did string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   did,
			Audience:  jwt.ClaimStrings{s.serviceDid},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Scope: lexicons.ScopeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign access token")
	}
	return token, nil
}

func (s *SessionService) CreateRefreshToken(did string) (string, domain.RefreshToken, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", domain.RefreshToken{}, errors.Wrap(err, "generate jti")
	}
	now := s.now()
	expires := now.Add(s.refreshTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   did,
			Audience:  jwt.ClaimStrings{s.serviceDid},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Scope: lexicons.ScopeRefresh,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.RefreshToken{}, errors.Wrap(err, "sign refresh token")
	}
	record := domain.RefreshToken{
		ID:        jti.String(),
		Did:       did,
		ExpiresAt: expires,
		CreatedAt: now,
	}
	return token, record, nil
}

// VerifyAccessToken returns the DID an access token was minted for.
func (s *SessionService) VerifyAccessToken(token string) (string, error) {
	claims, err := s.verify(token, lexicons.ScopeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshToken returns the DID and jti of a refresh token. The caller
// still has to check the jti against the store; a verified token may already
// be consumed.
func (s *SessionService) VerifyRefreshToken(token string) (string, string, error) {
	claims, err := s.verify(token, lexicons.ScopeRefresh)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.ID, nil
}

func (s *SessionService) verify(token, scope string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithAudience(s.serviceDid), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	if claims.Scope != scope {
		return nil, domain.ErrInvalidToken.WithMessage("token scope %s cannot be used here", claims.Scope)
	}
	return claims, nil
}
