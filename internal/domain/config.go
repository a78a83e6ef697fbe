package domain

import "time"

// Config is the node-identity section of the configuration. The derived
// fields are filled by config.Load from the hostname and key material.
type Config struct {
	Hostname        string   `yaml:"hostname"`
	HandleDomains   []string `yaml:"handleDomains"`
	ReservedHandles []string `yaml:"reservedHandles"`
	InviteRequired  bool     `yaml:"inviteRequired"`
	RecoveryDidKey  string   `yaml:"recoveryDidKey"`
	AccessTokenTTL  string   `yaml:"accessTokenTTL"`
	RefreshTokenTTL string   `yaml:"refreshTokenTTL"`

	ServiceDid     string        `yaml:"-"`
	PublicURL      string        `yaml:"-"`
	SigningDidKey  string        `yaml:"-"`
	RotationDidKey string        `yaml:"-"`
	AccessTTL      time.Duration `yaml:"-"`
	RefreshTTL     time.Duration `yaml:"-"`
}
