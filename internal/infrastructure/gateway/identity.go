package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/lib/pq"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/identity"
	"github.com/driftsocial/skiff/internal/infrastructure/database/models"
	"github.com/driftsocial/skiff/internal/usecase"
)

const (
	handleTTL   = 5 * time.Minute
	documentTTL = 15 * time.Minute
)

// IdentityGateway fronts the live resolver with two shared layers: memcached
// for hot lookups and a did_cache table that survives restarts. Callers that
// must observe live registry state (DID adoption) hold the Directory itself
// and never come through here.
type IdentityGateway struct {
	directory *identity.Directory
	mc        *memcache.Client
	db        *gorm.DB
}

func NewIdentityGateway(directory *identity.Directory, mc *memcache.Client, db *gorm.DB) *IdentityGateway {
	return &IdentityGateway{
		directory: directory,
		mc:        mc,
		db:        db,
	}
}

// memcached keys are capped at 250 bytes and reject whitespace; hashing
// makes any handle or DID safe to use.
func cacheKey(kind, name string) string {
	sum := xxh3.HashString128(name)
	return fmt.Sprintf("skiff:%s:%016x%016x", kind, sum.Hi, sum.Lo)
}

func (g *IdentityGateway) ResolveExternalHandle(ctx context.Context, scheme, handle string) (string, error) {
	key := cacheKey("hdl", handle)
	if g.mc != nil {
		if item, err := g.mc.Get(key); err == nil {
			return string(item.Value), nil
		}
	}

	did, err := g.directory.ResolveExternalHandle(ctx, scheme, handle)
	if err != nil {
		return "", err
	}
	if did != "" && g.mc != nil {
		// best effort; a failed cache write costs one more resolution
		g.mc.Set(&memcache.Item{Key: key, Value: []byte(did), Expiration: int32(handleTTL.Seconds())})
	}
	return did, nil
}

func (g *IdentityGateway) ResolveAtprotoData(ctx context.Context, did string) (skiff.AtprotoData, error) {
	key := cacheKey("did", did)
	if g.mc != nil {
		if item, err := g.mc.Get(key); err == nil {
			var data skiff.AtprotoData
			if err := json.Unmarshal(item.Value, &data); err == nil {
				return data, nil
			}
		}
	}

	if data, ok := g.lookupStored(ctx, did); ok {
		g.fill(key, data)
		return data, nil
	}

	data, err := g.directory.ResolveAtprotoData(ctx, did)
	if err != nil {
		return skiff.AtprotoData{}, err
	}
	g.persist(ctx, data)
	g.fill(key, data)
	return data, nil
}

func (g *IdentityGateway) lookupStored(ctx context.Context, did string) (skiff.AtprotoData, bool) {
	if g.db == nil {
		return skiff.AtprotoData{}, false
	}
	var row models.DidCache
	err := g.db.WithContext(ctx).Where("did = ?", did).Take(&row).Error
	if err != nil {
		return skiff.AtprotoData{}, false
	}
	if time.Since(row.UpdatedAt) > documentTTL {
		return skiff.AtprotoData{}, false
	}
	return skiff.AtprotoData{
		Did:          row.Did,
		SigningKey:   row.SigningKey,
		RotationKeys: row.RotationKeys,
		Handle:       row.Handle,
		Pds:          row.Pds,
	}, true
}

func (g *IdentityGateway) persist(ctx context.Context, data skiff.AtprotoData) {
	if g.db == nil {
		return
	}
	row := models.DidCache{
		Did:          data.Did,
		SigningKey:   data.SigningKey,
		RotationKeys: pq.StringArray(data.RotationKeys),
		Handle:       data.Handle,
		Pds:          data.Pds,
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "did"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		slog.Error(
			"did cache write failed",
			slog.String("did", data.Did),
			slog.String("error", err.Error()),
			slog.String("module", "gateway"),
		)
	}
}

func (g *IdentityGateway) fill(key string, data skiff.AtprotoData) {
	if g.mc == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	g.mc.Set(&memcache.Item{Key: key, Value: payload, Expiration: int32(documentTTL.Seconds())})
}

var (
	_ usecase.Resolver       = (*IdentityGateway)(nil)
	_ usecase.HandleResolver = (*IdentityGateway)(nil)
)
