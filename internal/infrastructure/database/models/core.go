package models

import (
	"time"

	"gorm.io/gorm"
)

// The unique indexes on handle, email, and did span soft-deleted rows, so a
// tombstoned account keeps its identifiers reserved.
type Account struct {
	Did            string         `json:"did" gorm:"primaryKey;type:text"`
	Handle         string         `json:"handle" gorm:"type:text;uniqueIndex"`
	Email          string         `json:"-" gorm:"type:text;uniqueIndex"`
	CredentialHash string         `json:"-" gorm:"type:text;not null"`
	RecoveryKey    *string        `json:"recoveryKey,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

type InviteCode struct {
	Code          string    `json:"code" gorm:"primaryKey;type:text"`
	AvailableUses int       `json:"availableUses" gorm:"type:integer;not null;default:1"`
	Disabled      bool      `json:"disabled" gorm:"type:boolean;not null;default:false"`
	CreatedBy     string    `json:"createdBy" gorm:"type:text"`
	CreatedAt     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type InviteCodeUse struct {
	ID     int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	Code   string     `json:"code" gorm:"type:text;index"`
	Invite InviteCode `json:"-" gorm:"foreignKey:Code;references:Code;constraint:OnDelete:CASCADE;"`
	UsedBy string     `json:"usedBy" gorm:"type:text;index"`
	UsedAt time.Time  `json:"usedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// RefreshToken rows are keyed by jti. Rotation deletes the presented row and
// inserts the replacement in the same transaction.
type RefreshToken struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Did       string    `json:"did" gorm:"type:text;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"type:timestamp with time zone;not null"`
	CreatedAt time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
