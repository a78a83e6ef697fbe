package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff/internal/domain"
)

// InviteAdmissionController decides whether an invite code still admits a
// registration. It is consulted twice per registration: once unlocked before
// any expensive work, once locked inside the registration transaction.
type InviteAdmissionController struct {
	store InviteStore
}

func NewInviteAdmissionController(store InviteStore) *InviteAdmissionController {
	return &InviteAdmissionController{store: store}
}

// CheckAvailable is the unlocked pre-check. It tolerates races; the locked
// check inside the transaction is authoritative.
func (c *InviteAdmissionController) CheckAvailable(ctx context.Context, code string) error {
	return c.check(ctx, c.store, code, false)
}

// CheckAvailableForUpdate is the authoritative check. It runs against tx,
// the store of the enclosing transaction, and holds the code row until that
// transaction ends. A row locked by a concurrent registration counts as
// unavailable rather than being waited on.
func (c *InviteAdmissionController) CheckAvailableForUpdate(ctx context.Context, tx InviteStore, code string) error {
	return c.check(ctx, tx, code, true)
}

func (c *InviteAdmissionController) check(ctx context.Context, store InviteStore, code string, lockForUpdate bool) error {
	if code == "" {
		return domain.ErrInvalidInviteCode
	}
	invite, err := store.GetInviteCode(ctx, code, lockForUpdate)
	if err != nil {
		return errors.Wrap(err, "lookup invite code")
	}
	if invite == nil || invite.Disabled {
		return domain.ErrInvalidInviteCode
	}
	uses, err := store.CountInviteCodeUses(ctx, code)
	if err != nil {
		return errors.Wrap(err, "count invite uses")
	}
	if uses >= int64(invite.AvailableUses) {
		return domain.ErrInvalidInviteCode
	}
	return nil
}
