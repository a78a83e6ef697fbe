package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/internal/infrastructure/database/models"
	"github.com/driftsocial/skiff/internal/usecase"
)

// Store backs every persistence port with one postgres handle. Lookups
// return nil without error when no row matches; WithTransaction hands the
// callback a Store bound to the transaction connection.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) RegisterAccount(ctx context.Context, account domain.Account) error {
	row := models.Account{
		Did:            account.Did,
		Handle:         account.Handle,
		Email:          account.Email,
		CredentialHash: account.CredentialHash,
		RecoveryKey:    account.RecoveryKey,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountAlreadyExists
	}
	if err != nil {
		return errors.Wrap(err, "create account")
	}
	return nil
}

func (s *Store) GetAccountByHandle(ctx context.Context, handle string, includeSoftDeleted bool) (*domain.Account, error) {
	query := s.db.WithContext(ctx)
	if includeSoftDeleted {
		query = query.Unscoped()
	}
	var row models.Account
	err := query.Where("handle = ?", handle).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup account by handle")
	}
	account := accountToDomain(row)
	return &account, nil
}

func (s *Store) GetAccountByDid(ctx context.Context, did string) (*domain.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("did = ?", did).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup account by did")
	}
	account := accountToDomain(row)
	return &account, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup account by email")
	}
	account := accountToDomain(row)
	return &account, nil
}

func (s *Store) GetInviteCode(ctx context.Context, code string, lockForUpdate bool) (*domain.InviteCode, error) {
	query := s.db.WithContext(ctx)
	if lockForUpdate {
		// a row held by a concurrent registration reads as absent instead of
		// blocking the transaction on it
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var row models.InviteCode
	err := query.Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup invite code")
	}
	invite := domain.InviteCode{
		Code:          row.Code,
		AvailableUses: row.AvailableUses,
		Disabled:      row.Disabled,
		CreatedBy:     row.CreatedBy,
		CreatedAt:     row.CreatedAt,
	}
	return &invite, nil
}

func (s *Store) CountInviteCodeUses(ctx context.Context, code string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.InviteCodeUse{}).Where("code = ?", code).Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "count invite uses")
	}
	return n, nil
}

func (s *Store) RecordInviteCodeUse(ctx context.Context, use domain.InviteCodeUse) error {
	row := models.InviteCodeUse{
		Code:   use.Code,
		UsedBy: use.UsedBy,
		UsedAt: use.UsedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "record invite use")
	}
	return nil
}

func (s *Store) CreateInviteCode(ctx context.Context, invite domain.InviteCode) error {
	row := models.InviteCode{
		Code:          invite.Code,
		AvailableUses: invite.AvailableUses,
		Disabled:      invite.Disabled,
		CreatedBy:     invite.CreatedBy,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Errorf("invite code %s already exists", invite.Code)
	}
	if err != nil {
		return errors.Wrap(err, "create invite code")
	}
	return nil
}

func (s *Store) SaveRepoRoot(ctx context.Context, root domain.RepoRoot, blocks map[string][]byte) error {
	row := models.RepoRoot{Did: root.Did, Cid: root.Cid, Rev: root.Rev}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "did"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "save repo root")
	}

	rows := make([]models.RepoBlock, 0, len(blocks))
	for cid, data := range blocks {
		rows = append(rows, models.RepoBlock{Did: root.Did, Cid: cid, Data: data})
	}
	if len(rows) == 0 {
		return nil
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return errors.Wrap(err, "save repo blocks")
	}
	return nil
}

func (s *Store) GetRepoRoot(ctx context.Context, did string) (*domain.RepoRoot, error) {
	var row models.RepoRoot
	err := s.db.WithContext(ctx).Where("did = ?", did).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup repo root")
	}
	return &domain.RepoRoot{Did: row.Did, Cid: row.Cid, Rev: row.Rev}, nil
}

func (s *Store) GrantRefreshToken(ctx context.Context, token domain.RefreshToken) error {
	row := models.RefreshToken{
		ID:        token.ID,
		Did:       token.Did,
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "grant refresh token")
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var row models.RefreshToken
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup refresh token")
	}
	return &domain.RefreshToken{
		ID:        row.ID,
		Did:       row.Did,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.RefreshToken{}, "id = ?", id).Error; err != nil {
		return errors.Wrap(err, "revoke refresh token")
	}
	return nil
}

func accountToDomain(row models.Account) domain.Account {
	account := domain.Account{
		Did:            row.Did,
		Handle:         row.Handle,
		Email:          row.Email,
		CredentialHash: row.CredentialHash,
		RecoveryKey:    row.RecoveryKey,
		CreatedAt:      row.CreatedAt,
	}
	if row.DeletedAt.Valid {
		deleted := row.DeletedAt.Time
		account.DeletedAt = &deleted
	}
	return account
}

var _ usecase.Store = (*Store)(nil)
