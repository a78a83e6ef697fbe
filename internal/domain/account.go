package domain

import "time"

// Account is a provisioned identity on this node.
type Account struct {
	Did            string     `json:"did"`
	Handle         string     `json:"handle"`
	Email          string     `json:"email"`
	CredentialHash string     `json:"-"`
	RecoveryKey    *string    `json:"recoveryKey,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	DeletedAt      *time.Time `json:"-"`
}

// InviteCode gates registration with a capped number of uses. Codes are
// minted out of band and never deleted by the provisioning flow.
type InviteCode struct {
	Code          string    `json:"code"`
	AvailableUses int       `json:"availableUses"`
	Disabled      bool      `json:"disabled"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// InviteCodeUse is the append-only record of one redemption.
type InviteCodeUse struct {
	Code   string    `json:"code"`
	UsedBy string    `json:"usedBy"`
	UsedAt time.Time `json:"usedAt"`
}

// RefreshToken is the durable face of an issued refresh JWT, keyed by jti.
type RefreshToken struct {
	ID        string
	Did       string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RepoRoot is the persisted head of an account repository.
type RepoRoot struct {
	Did string `json:"did"`
	Cid string `json:"cid"`
	Rev string `json:"rev"`
}

// Session is the token pair handed to a caller.
type Session struct {
	Did        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}
