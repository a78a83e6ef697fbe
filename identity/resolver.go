package identity

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/plc"
)

const defaultTimeout = 5 * time.Second

// Directory resolves DIDs and externally hosted handles. Document reads are
// always live so that validation never trusts a stale document; only handle
// lookups are memoized.
type Directory struct {
	plc       *plc.Client
	client    *http.Client
	cache     *cache.Cache
	userAgent string

	lookupTXT func(ctx context.Context, name string) ([]string, error)
}

func NewDirectory(plcClient *plc.Client) *Directory {
	return &Directory{
		plc:       plcClient,
		client:    &http.Client{Timeout: defaultTimeout},
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		userAgent: "skiff/" + skiff.Version,
		lookupTXT: net.DefaultResolver.LookupTXT,
	}
}

// ResolveAtprotoData resolves the current document of a did:plc or did:web
// into its provisioning extract.
func (d *Directory) ResolveAtprotoData(ctx context.Context, did string) (skiff.AtprotoData, error) {
	switch skiff.DidMethod(did) {
	case "plc":
		return d.plc.GetDocumentData(ctx, did)
	case "web":
		return d.resolveWeb(ctx, did)
	default:
		return skiff.AtprotoData{}, errors.Errorf("unsupported did method: %s", did)
	}
}

func (d *Directory) resolveWeb(ctx context.Context, did string) (skiff.AtprotoData, error) {
	host := strings.TrimPrefix(did, "did:web:")
	// only the bare-hostname form is served
	if host == "" || strings.ContainsAny(host, ":/") {
		return skiff.AtprotoData{}, errors.Errorf("unsupported did:web form: %s", did)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host+"/.well-known/did.json", nil)
	if err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "fetch did document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return skiff.AtprotoData{}, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var doc didDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "decode did document")
	}
	return doc.atprotoData(did)
}

type didDocument struct {
	ID                 string   `json:"id"`
	AlsoKnownAs        []string `json:"alsoKnownAs"`
	VerificationMethod []struct {
		ID                 string `json:"id"`
		Type               string `json:"type"`
		PublicKeyMultibase string `json:"publicKeyMultibase"`
	} `json:"verificationMethod"`
	Service []struct {
		ID              string `json:"id"`
		Type            string `json:"type"`
		ServiceEndpoint string `json:"serviceEndpoint"`
	} `json:"service"`
}

func (doc didDocument) atprotoData(did string) (skiff.AtprotoData, error) {
	out := skiff.AtprotoData{Did: did}
	if doc.ID != "" && doc.ID != did {
		return out, errors.Errorf("document id %s does not match %s", doc.ID, did)
	}
	for _, aka := range doc.AlsoKnownAs {
		if v, ok := strings.CutPrefix(aka, "at://"); ok {
			out.Handle = v
			break
		}
	}
	for _, vm := range doc.VerificationMethod {
		if strings.HasSuffix(vm.ID, "#atproto") && vm.PublicKeyMultibase != "" {
			out.SigningKey = "did:key:" + vm.PublicKeyMultibase
			break
		}
	}
	for _, svc := range doc.Service {
		if strings.HasSuffix(svc.ID, "#"+plc.ServiceIDPds) && svc.Type == plc.ServiceTypePds {
			out.Pds = svc.ServiceEndpoint
			break
		}
	}
	if out.SigningKey == "" {
		return out, errors.New("document has no atproto signing key")
	}
	return out, nil
}
