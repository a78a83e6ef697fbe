package identity

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
)

// ResolveExternalHandle resolves a handle hosted outside this node to its
// DID: a DNS TXT record on _atproto.<handle> first, then the well-known
// fallback over the given scheme. A handle that resolves to nothing returns
// "" without error. Successful lookups are memoized briefly.
func (d *Directory) ResolveExternalHandle(ctx context.Context, scheme, handle string) (string, error) {
	cacheKey := "handle:" + handle
	if x, found := d.cache.Get(cacheKey); found {
		return x.(string), nil
	}

	if did := d.resolveDNS(ctx, handle); did != "" {
		d.cache.Set(cacheKey, did, cache.DefaultExpiration)
		return did, nil
	}

	did, err := d.resolveWellKnown(ctx, scheme, handle)
	if err != nil {
		return "", err
	}
	if did != "" {
		d.cache.Set(cacheKey, did, cache.DefaultExpiration)
	}
	return did, nil
}

func (d *Directory) resolveDNS(ctx context.Context, handle string) string {
	records, err := d.lookupTXT(ctx, "_atproto."+handle)
	if err != nil {
		// no record and no resolver both end up at the well-known fallback
		return ""
	}
	for _, r := range records {
		if v, ok := strings.CutPrefix(r, "did="); ok && skiff.IsDid(v) {
			return v
		}
	}
	return ""
}

func (d *Directory) resolveWellKnown(ctx context.Context, scheme, handle string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+handle+"/.well-known/atproto-did", nil)
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "well-known fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", errors.Wrap(err, "read well-known body")
	}
	did := strings.TrimSpace(string(b))
	if !skiff.IsDid(did) {
		return "", nil
	}
	return did, nil
}
