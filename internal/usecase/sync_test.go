package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/driftsocial/skiff/internal/domain"
)

func TestLatestCommit(t *testing.T) {
	store := newMockStore()
	store.roots["did:plc:kq3c5l7y2mzidj44fmdmxiqa"] = domain.RepoRoot{
		Did: "did:plc:kq3c5l7y2mzidj44fmdmxiqa",
		Cid: "bafyreib2rxk3rybk3aobmv5cjuql3bm2twh4jo5uxgyv6rxmcqjyhvnj2e",
		Rev: "3jzfcijpj2z2a",
	}
	u := NewSyncUsecase(store)

	root, err := u.LatestCommit(context.Background(), "did:plc:kq3c5l7y2mzidj44fmdmxiqa")
	if err != nil {
		t.Fatal(err)
	}
	if root.Rev != "3jzfcijpj2z2a" {
		t.Errorf("root = %+v", root)
	}

	if _, err := u.LatestCommit(context.Background(), "did:plc:aaaa5l7y2mzidj44fmdmxi2b"); !errors.Is(err, domain.ErrRepoNotFound) {
		t.Fatalf("err = %v, want %v", err, domain.ErrRepoNotFound)
	}
}
