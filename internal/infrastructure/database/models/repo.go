package models

import (
	"time"

	"github.com/lib/pq"
)

type RepoRoot struct {
	Did       string    `json:"did" gorm:"primaryKey;type:text"`
	Cid       string    `json:"cid" gorm:"type:text;not null"`
	Rev       string    `json:"rev" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}

type RepoBlock struct {
	Did  string `json:"did" gorm:"primaryKey;type:text"`
	Cid  string `json:"cid" gorm:"primaryKey;type:text"`
	Data []byte `json:"-" gorm:"type:bytea;not null"`
}

// DidCache is the durable layer of the resolution cache; memcached sits in
// front of it. Staleness is judged against UpdatedAt on read.
type DidCache struct {
	Did          string         `json:"did" gorm:"primaryKey;type:text"`
	SigningKey   string         `json:"signingKey" gorm:"type:text"`
	RotationKeys pq.StringArray `json:"rotationKeys" gorm:"type:text[]"`
	Handle       string         `json:"handle" gorm:"type:text;index"`
	Pds          string         `json:"pds" gorm:"type:text"`
	UpdatedAt    time.Time      `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}
