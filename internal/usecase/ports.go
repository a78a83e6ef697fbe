package usecase

import (
	"context"
	"time"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/plc"
	"github.com/driftsocial/skiff/repo"
)

// AccountStore persists accounts. Lookups return nil without error when no
// row matches.
type AccountStore interface {
	// RegisterAccount returns ErrAccountAlreadyExists (undifferentiated) on
	// a handle or email uniqueness violation.
	RegisterAccount(ctx context.Context, account domain.Account) error
	GetAccountByHandle(ctx context.Context, handle string, includeSoftDeleted bool) (*domain.Account, error)
	GetAccountByDid(ctx context.Context, did string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// InviteStore reads and appends invite state.
type InviteStore interface {
	// GetInviteCode with lockForUpdate holds the code row for the enclosing
	// transaction; a row locked by a concurrent holder returns nil as if
	// absent.
	GetInviteCode(ctx context.Context, code string, lockForUpdate bool) (*domain.InviteCode, error)
	CountInviteCodeUses(ctx context.Context, code string) (int64, error)
	RecordInviteCodeUse(ctx context.Context, use domain.InviteCodeUse) error
	CreateInviteCode(ctx context.Context, invite domain.InviteCode) error
}

// RepoStore persists repository heads and their blocks.
type RepoStore interface {
	SaveRepoRoot(ctx context.Context, root domain.RepoRoot, blocks map[string][]byte) error
	GetRepoRoot(ctx context.Context, did string) (*domain.RepoRoot, error)
}

// TokenStore records issued refresh tokens by jti.
type TokenStore interface {
	GrantRefreshToken(ctx context.Context, token domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, id string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}

// Store bundles all persistence behind one transaction boundary. Writes made
// through the Store passed to fn commit or roll back as one unit.
type Store interface {
	AccountStore
	InviteStore
	RepoStore
	TokenStore
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

// Registry submits operations to the identity registry.
type Registry interface {
	SendOperation(ctx context.Context, did string, op plc.Operation) error
}

// Resolver resolves the current document of a DID.
type Resolver interface {
	ResolveAtprotoData(ctx context.Context, did string) (skiff.AtprotoData, error)
}

// HandleResolver resolves an externally hosted handle to a DID; "" without
// error means the handle resolves to nothing.
type HandleResolver interface {
	ResolveExternalHandle(ctx context.Context, scheme, handle string) (string, error)
}

// Hasher derives and verifies credential hashes.
type Hasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}

// SessionIssuer mints and verifies the session token pair.
type SessionIssuer interface {
	CreateAccessToken(did string) (string, error)
	CreateRefreshToken(did string) (token string, record domain.RefreshToken, err error)
	VerifyRefreshToken(token string) (did string, jti string, err error)
}

// RepoSeeder seeds the content-addressed repository for a new DID.
type RepoSeeder interface {
	CreateRepo(did string, now time.Time) (repo.CommitData, error)
}

// Sequencer appends events to the firehose stream after commit. Appends are
// best-effort; failures are logged, never surfaced to the caller.
type Sequencer interface {
	SequenceIdentity(ctx context.Context, did, handle string) error
	SequenceAccount(ctx context.Context, did string, active bool) error
	SequenceCommit(ctx context.Context, data repo.CommitData) error
}
