package providers

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/driftsocial/skiff/identity"
	"github.com/driftsocial/skiff/internal/config"
	"github.com/driftsocial/skiff/internal/infrastructure/database"
	"github.com/driftsocial/skiff/internal/infrastructure/gateway"
	"github.com/driftsocial/skiff/plc"
)

// NewDatabase opens a Postgres connection using the configured DSN.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.NewPostgres(conf.PostgresDsn)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.MigratePostgres(db)
}

// NewRedis creates the redis client backing the sequencer.
func NewRedis(conf config.Server) *redis.Client {
	return database.NewRedis(conf.RedisAddr, conf.RedisDB)
}

// NewMemcache creates a memcache client, or nil when no server is
// configured; the identity gateway treats a nil client as cache-off.
func NewMemcache(conf config.Server) *memcache.Client {
	if conf.MemcachedAddr == "" {
		return nil
	}
	return database.NewMemcached(conf.MemcachedAddr)
}

// NewPlcClient constructs the HTTP client used to talk to the PLC directory.
func NewPlcClient(conf config.Plc) *plc.Client {
	return plc.NewClient(conf.Directory)
}

// NewDirectory constructs the live DID and handle resolver.
func NewDirectory(cl *plc.Client) *identity.Directory {
	return identity.NewDirectory(cl)
}

// NewIdentityGateway layers the shared caches over the live resolver.
func NewIdentityGateway(dir *identity.Directory, mc *memcache.Client, db *gorm.DB) *gateway.IdentityGateway {
	return gateway.NewIdentityGateway(dir, mc, db)
}
