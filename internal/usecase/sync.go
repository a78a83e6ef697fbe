package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff/internal/domain"
)

// SyncUsecase exposes the repository heads the orchestrator seeded.
type SyncUsecase struct {
	store RepoStore
}

func NewSyncUsecase(store RepoStore) *SyncUsecase {
	return &SyncUsecase{store: store}
}

func (u *SyncUsecase) LatestCommit(ctx context.Context, did string) (domain.RepoRoot, error) {
	root, err := u.store.GetRepoRoot(ctx, did)
	if err != nil {
		return domain.RepoRoot{}, errors.Wrap(err, "lookup repo root")
	}
	if root == nil {
		return domain.RepoRoot{}, domain.ErrRepoNotFound
	}
	return *root, nil
}
