package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
)

// IdentityUsecase answers identity lookups: local accounts first for
// handles, the shared resolution cache for DID documents.
type IdentityUsecase struct {
	store   AccountStore
	handles HandleResolver
	dids    Resolver
}

func NewIdentityUsecase(store AccountStore, handles HandleResolver, dids Resolver) *IdentityUsecase {
	return &IdentityUsecase{store: store, handles: handles, dids: dids}
}

func (u *IdentityUsecase) ResolveHandle(ctx context.Context, rawHandle string) (string, error) {
	handle := skiff.NormalizeHandle(rawHandle)
	if !skiff.IsValidHandle(handle) {
		return "", domain.ErrInvalidHandle
	}

	account, err := u.store.GetAccountByHandle(ctx, handle, false)
	if err != nil {
		return "", errors.Wrap(err, "lookup account")
	}
	if account != nil {
		return account.Did, nil
	}

	did, err := u.handles.ResolveExternalHandle(ctx, "https", handle)
	if err != nil {
		return "", errors.Wrap(err, "resolve external handle")
	}
	if did == "" {
		return "", domain.ErrInvalidRequest.WithMessage("unable to resolve handle %s", handle)
	}
	return did, nil
}

func (u *IdentityUsecase) ResolveDid(ctx context.Context, did string) (skiff.AtprotoData, error) {
	if !skiff.IsDid(did) {
		return skiff.AtprotoData{}, domain.ErrInvalidRequest.WithMessage("%s is not a did", did)
	}
	data, err := u.dids.ResolveAtprotoData(ctx, did)
	if err != nil {
		return skiff.AtprotoData{}, domain.ErrUnresolvableDid.WithMessage("could not resolve %s", did)
	}
	return data, nil
}
