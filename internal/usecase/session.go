package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
)

// SessionUsecase owns the session lifecycle around the issuer: login,
// rotation, revocation, and introspection.
type SessionUsecase struct {
	store  Store
	hasher Hasher
	issuer SessionIssuer

	now func() time.Time
}

func NewSessionUsecase(store Store, hasher Hasher, issuer SessionIssuer) *SessionUsecase {
	return &SessionUsecase{store: store, hasher: hasher, issuer: issuer, now: time.Now}
}

// Create authenticates an identifier (handle or email) and password.
// Unknown identifier, wrong password, and soft-deleted account all fail the
// same way so a caller learns nothing about which part was wrong.
func (u *SessionUsecase) Create(ctx context.Context, identifier, password string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Create")
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.Session{}, domain.ErrAuthenticationFailed
	}

	var account *domain.Account
	var err error
	if strings.Contains(identifier, "@") {
		account, err = u.store.GetAccountByEmail(ctx, identifier)
	} else {
		account, err = u.store.GetAccountByHandle(ctx, skiff.NormalizeHandle(identifier), false)
	}
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, errors.Wrap(err, "lookup account")
	}
	if account == nil || !u.hasher.CheckPasswordHash(password, account.CredentialHash) {
		return domain.Session{}, domain.ErrAuthenticationFailed
	}

	return u.mint(ctx, u.store, account)
}

// Refresh rotates a refresh token: the presented token's jti row is
// consumed and exactly one replacement pair is granted, atomically. A
// second refresh with the same token finds no row and fails.
func (u *SessionUsecase) Refresh(ctx context.Context, refreshJwt string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Refresh")
	defer span.End()

	did, jti, err := u.issuer.VerifyRefreshToken(refreshJwt)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	var session domain.Session
	err = u.store.WithTransaction(ctx, func(tx Store) error {
		record, err := tx.GetRefreshToken(ctx, jti)
		if err != nil {
			return errors.Wrap(err, "lookup refresh token")
		}
		if record == nil || record.Did != did || u.now().After(record.ExpiresAt) {
			return domain.ErrInvalidToken.WithMessage("refresh token is revoked")
		}
		if err := tx.RevokeRefreshToken(ctx, jti); err != nil {
			return errors.Wrap(err, "consume refresh token")
		}

		account, err := tx.GetAccountByDid(ctx, did)
		if err != nil {
			return errors.Wrap(err, "lookup account")
		}
		if account == nil {
			return domain.ErrInvalidToken.WithMessage("account no longer exists")
		}

		minted, err := u.mint(ctx, tx, account)
		if err != nil {
			return err
		}
		session = minted
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}
	return session, nil
}

// Delete revokes the presented refresh token.
func (u *SessionUsecase) Delete(ctx context.Context, refreshJwt string) error {
	_, jti, err := u.issuer.VerifyRefreshToken(refreshJwt)
	if err != nil {
		return err
	}
	return u.store.RevokeRefreshToken(ctx, jti)
}

// Get returns the account behind an authenticated DID.
func (u *SessionUsecase) Get(ctx context.Context, did string) (*domain.Account, error) {
	account, err := u.store.GetAccountByDid(ctx, did)
	if err != nil {
		return nil, errors.Wrap(err, "lookup account")
	}
	if account == nil {
		return nil, domain.ErrInvalidToken.WithMessage("account no longer exists")
	}
	return account, nil
}

func (u *SessionUsecase) mint(ctx context.Context, store TokenStore, account *domain.Account) (domain.Session, error) {
	access, err := u.issuer.CreateAccessToken(account.Did)
	if err != nil {
		return domain.Session{}, errors.Wrap(err, "mint access token")
	}
	refresh, record, err := u.issuer.CreateRefreshToken(account.Did)
	if err != nil {
		return domain.Session{}, errors.Wrap(err, "mint refresh token")
	}
	if err := store.GrantRefreshToken(ctx, record); err != nil {
		return domain.Session{}, errors.Wrap(err, "grant refresh token")
	}
	return domain.Session{
		Did:        account.Did,
		Handle:     account.Handle,
		AccessJwt:  access,
		RefreshJwt: refresh,
	}, nil
}
