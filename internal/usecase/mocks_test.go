package usecase

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"testing"
	"time"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/plc"
	"github.com/driftsocial/skiff/repo"
)

const (
	signingKeyHex  = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	rotationKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	recoveryKeyHex = "c87509a1c067bbde78beb793e6fa76530b6382a4c0241e5e4a9ec0a0f44dc0d3"
)

func mustKey(t *testing.T, hexkey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := skiff.ParsePrivateKey(hexkey)
	if err != nil {
		t.Fatalf("parse test key: %v", err)
	}
	return key
}

func didKeyOf(t *testing.T, hexkey string) string {
	t.Helper()
	return skiff.DidKeyFromPublic(&mustKey(t, hexkey).PublicKey)
}

func testConfig(t *testing.T) domain.Config {
	t.Helper()
	return domain.Config{
		Hostname:        "skiff.example",
		PublicURL:       "https://skiff.example",
		ServiceDid:      "did:web:skiff.example",
		HandleDomains:   []string{".skiff.example"},
		ReservedHandles: []string{"admin", "support"},
		InviteRequired:  true,
		SigningDidKey:   didKeyOf(t, signingKeyHex),
		RotationDidKey:  didKeyOf(t, rotationKeyHex),
		AccessTTL:       2 * time.Hour,
		RefreshTTL:      2160 * time.Hour,
	}
}

// mockStore keeps state in maps and gives WithTransaction snapshot
// semantics: fn runs against a copy, and only a nil return publishes the
// copy back. That makes rollback observable to atomicity tests.
type mockStore struct {
	accounts      map[string]domain.Account
	invites       map[string]domain.InviteCode
	uses          []domain.InviteCodeUse
	roots         map[string]domain.RepoRoot
	blocks        map[string]map[string][]byte
	refreshTokens map[string]domain.RefreshToken

	lockedCodes map[string]bool

	failRegister error
	failUse      error
	failSaveRoot error
	failGrant    error

	registerCalls int
	inviteLookups []bool // lockForUpdate flag per lookup, in order
}

func newMockStore() *mockStore {
	return &mockStore{
		accounts:      map[string]domain.Account{},
		invites:       map[string]domain.InviteCode{},
		roots:         map[string]domain.RepoRoot{},
		blocks:        map[string]map[string][]byte{},
		refreshTokens: map[string]domain.RefreshToken{},
		lockedCodes:   map[string]bool{},
	}
}

func (m *mockStore) clone() *mockStore {
	c := newMockStore()
	for k, v := range m.accounts {
		c.accounts[k] = v
	}
	for k, v := range m.invites {
		c.invites[k] = v
	}
	c.uses = append([]domain.InviteCodeUse(nil), m.uses...)
	for k, v := range m.roots {
		c.roots[k] = v
	}
	for did, bl := range m.blocks {
		inner := map[string][]byte{}
		for cid, b := range bl {
			inner[cid] = b
		}
		c.blocks[did] = inner
	}
	for k, v := range m.refreshTokens {
		c.refreshTokens[k] = v
	}
	c.lockedCodes = m.lockedCodes
	c.failRegister = m.failRegister
	c.failUse = m.failUse
	c.failSaveRoot = m.failSaveRoot
	c.failGrant = m.failGrant
	return c
}

func (m *mockStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	tx := m.clone()
	if err := fn(tx); err != nil {
		return err
	}
	m.accounts = tx.accounts
	m.invites = tx.invites
	m.uses = tx.uses
	m.roots = tx.roots
	m.blocks = tx.blocks
	m.refreshTokens = tx.refreshTokens
	m.registerCalls += tx.registerCalls
	m.inviteLookups = append(m.inviteLookups, tx.inviteLookups...)
	return nil
}

func (m *mockStore) RegisterAccount(ctx context.Context, account domain.Account) error {
	m.registerCalls++
	if m.failRegister != nil {
		return m.failRegister
	}
	for _, a := range m.accounts {
		if a.Handle == account.Handle || a.Email == account.Email {
			return domain.ErrAccountAlreadyExists
		}
	}
	account.CreatedAt = time.Now()
	m.accounts[account.Did] = account
	return nil
}

func (m *mockStore) GetAccountByHandle(ctx context.Context, handle string, includeSoftDeleted bool) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Handle != handle {
			continue
		}
		if a.DeletedAt != nil && !includeSoftDeleted {
			continue
		}
		out := a
		return &out, nil
	}
	return nil, nil
}

func (m *mockStore) GetAccountByDid(ctx context.Context, did string) (*domain.Account, error) {
	a, ok := m.accounts[did]
	if !ok || a.DeletedAt != nil {
		return nil, nil
	}
	out := a
	return &out, nil
}

func (m *mockStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email && a.DeletedAt == nil {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetInviteCode(ctx context.Context, code string, lockForUpdate bool) (*domain.InviteCode, error) {
	m.inviteLookups = append(m.inviteLookups, lockForUpdate)
	if lockForUpdate && m.lockedCodes[code] {
		return nil, nil
	}
	invite, ok := m.invites[code]
	if !ok {
		return nil, nil
	}
	out := invite
	return &out, nil
}

func (m *mockStore) CountInviteCodeUses(ctx context.Context, code string) (int64, error) {
	var n int64
	for _, u := range m.uses {
		if u.Code == code {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) RecordInviteCodeUse(ctx context.Context, use domain.InviteCodeUse) error {
	if m.failUse != nil {
		return m.failUse
	}
	m.uses = append(m.uses, use)
	return nil
}

func (m *mockStore) CreateInviteCode(ctx context.Context, invite domain.InviteCode) error {
	invite.CreatedAt = time.Now()
	m.invites[invite.Code] = invite
	return nil
}

func (m *mockStore) SaveRepoRoot(ctx context.Context, root domain.RepoRoot, blocks map[string][]byte) error {
	if m.failSaveRoot != nil {
		return m.failSaveRoot
	}
	m.roots[root.Did] = root
	m.blocks[root.Did] = blocks
	return nil
}

func (m *mockStore) GetRepoRoot(ctx context.Context, did string) (*domain.RepoRoot, error) {
	root, ok := m.roots[did]
	if !ok {
		return nil, nil
	}
	out := root
	return &out, nil
}

func (m *mockStore) GrantRefreshToken(ctx context.Context, token domain.RefreshToken) error {
	if m.failGrant != nil {
		return m.failGrant
	}
	m.refreshTokens[token.ID] = token
	return nil
}

func (m *mockStore) GetRefreshToken(ctx context.Context, id string) (*domain.RefreshToken, error) {
	token, ok := m.refreshTokens[id]
	if !ok {
		return nil, nil
	}
	out := token
	return &out, nil
}

func (m *mockStore) RevokeRefreshToken(ctx context.Context, id string) error {
	delete(m.refreshTokens, id)
	return nil
}

type mockRegistry struct {
	dids []string
	ops  []plc.Operation
	err  error
}

func (m *mockRegistry) SendOperation(ctx context.Context, did string, op plc.Operation) error {
	if m.err != nil {
		return m.err
	}
	m.dids = append(m.dids, did)
	m.ops = append(m.ops, op)
	return nil
}

type mockResolver struct {
	data  skiff.AtprotoData
	err   error
	calls int
}

func (m *mockResolver) ResolveAtprotoData(ctx context.Context, did string) (skiff.AtprotoData, error) {
	m.calls++
	if m.err != nil {
		return skiff.AtprotoData{}, m.err
	}
	return m.data, nil
}

type mockHandleResolver struct {
	did   string
	err   error
	calls int
}

func (m *mockHandleResolver) ResolveExternalHandle(ctx context.Context, scheme, handle string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.did, nil
}

type mockHasher struct{}

func (mockHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (mockHasher) CheckPasswordHash(password, hash string) bool {
	return hash == "hashed:"+password
}

type mockIssuer struct {
	counter int
	tokens  map[string][2]string // refresh token -> {did, jti}
}

func (m *mockIssuer) CreateAccessToken(did string) (string, error) {
	return "access-" + did, nil
}

func (m *mockIssuer) CreateRefreshToken(did string) (string, domain.RefreshToken, error) {
	m.counter++
	jti := fmt.Sprintf("jti-%d", m.counter)
	token := "refresh-" + jti
	if m.tokens == nil {
		m.tokens = map[string][2]string{}
	}
	m.tokens[token] = [2]string{did, jti}
	record := domain.RefreshToken{
		ID:        jti,
		Did:       did,
		ExpiresAt: time.Now().Add(2160 * time.Hour),
		CreatedAt: time.Now(),
	}
	return token, record, nil
}

func (m *mockIssuer) VerifyRefreshToken(token string) (string, string, error) {
	v, ok := m.tokens[token]
	if !ok {
		return "", "", domain.ErrInvalidToken
	}
	return v[0], v[1], nil
}

type mockSeeder struct {
	real *repo.Repo
	err  error
}

func newMockSeeder(t *testing.T) *mockSeeder {
	t.Helper()
	return &mockSeeder{real: repo.New(mustKey(t, signingKeyHex), repo.NewTidClock(0))}
}

func (m *mockSeeder) CreateRepo(did string, now time.Time) (repo.CommitData, error) {
	if m.err != nil {
		return repo.CommitData{}, m.err
	}
	return m.real.CreateRepo(did, now)
}

type sequencedEvent struct {
	kind   string
	did    string
	handle string
}

type mockSequencer struct {
	events []sequencedEvent
	err    error
}

func (m *mockSequencer) SequenceIdentity(ctx context.Context, did, handle string) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, sequencedEvent{kind: domain.EventIdentity, did: did, handle: handle})
	return nil
}

func (m *mockSequencer) SequenceAccount(ctx context.Context, did string, active bool) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, sequencedEvent{kind: domain.EventAccount, did: did})
	return nil
}

func (m *mockSequencer) SequenceCommit(ctx context.Context, data repo.CommitData) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, sequencedEvent{kind: domain.EventCommit, did: data.Did})
	return nil
}
