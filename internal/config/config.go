package config

import (
	"crypto/ecdsa"
	"os"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
)

type Config struct {
	Pds    domain.Config `yaml:"pds"`
	Keys   Keys          `yaml:"keys"`
	Plc    Plc           `yaml:"plc"`
	Server Server        `yaml:"server"`
}

type Keys struct {
	RepoSigningKey string `yaml:"repoSigningKey"` // hex secp256k1
	PlcRotationKey string `yaml:"plcRotationKey"` // hex secp256k1
	JwtSecret      string `yaml:"jwtSecret"`

	// ---
	RepoSigning *ecdsa.PrivateKey `yaml:"-"`
	PlcRotation *ecdsa.PrivateKey `yaml:"-"`
}

type Plc struct {
	Directory string `yaml:"directory"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

var defaultReservedHandles = []string{
	"admin", "administrator", "root", "support", "help", "abuse",
	"security", "moderation", "mod", "info", "mail", "www", "api",
	"blog", "about", "skiff",
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if config.Pds.Hostname == "" {
		return Config{}, errors.New("pds.hostname is required")
	}

	config.Keys.RepoSigning, err = skiff.ParsePrivateKey(config.Keys.RepoSigningKey)
	if err != nil {
		return Config{}, errors.Wrap(err, "keys.repoSigningKey")
	}
	config.Keys.PlcRotation, err = skiff.ParsePrivateKey(config.Keys.PlcRotationKey)
	if err != nil {
		return Config{}, errors.Wrap(err, "keys.plcRotationKey")
	}
	if config.Keys.JwtSecret == "" {
		return Config{}, errors.New("keys.jwtSecret is required")
	}
	if config.Pds.RecoveryDidKey != "" {
		if _, err := skiff.PublicFromDidKey(config.Pds.RecoveryDidKey); err != nil {
			return Config{}, errors.Wrap(err, "pds.recoveryDidKey")
		}
	}

	config.Pds.ServiceDid = "did:web:" + config.Pds.Hostname
	config.Pds.PublicURL = "https://" + config.Pds.Hostname
	config.Pds.SigningDidKey = skiff.DidKeyFromPublic(&config.Keys.RepoSigning.PublicKey)
	config.Pds.RotationDidKey = skiff.DidKeyFromPublic(&config.Keys.PlcRotation.PublicKey)

	if len(config.Pds.HandleDomains) == 0 {
		config.Pds.HandleDomains = []string{"." + config.Pds.Hostname}
	}
	for i, d := range config.Pds.HandleDomains {
		if !strings.HasPrefix(d, ".") {
			config.Pds.HandleDomains[i] = "." + d
		}
	}
	if len(config.Pds.ReservedHandles) == 0 {
		config.Pds.ReservedHandles = defaultReservedHandles
	}

	config.Pds.AccessTTL = parseTTL(config.Pds.AccessTokenTTL, 2*time.Hour)
	config.Pds.RefreshTTL = parseTTL(config.Pds.RefreshTokenTTL, 2160*time.Hour)

	if config.Plc.Directory == "" {
		config.Plc.Directory = "https://plc.directory"
	}

	return config, nil
}

func parseTTL(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
