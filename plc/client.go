package plc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
)

const defaultTimeout = 5 * time.Second

// Client talks to a PLC directory over HTTP.
type Client struct {
	client    *http.Client
	directory string
	userAgent string
}

func NewClient(directory string) *Client {
	return &Client{
		client:    &http.Client{Timeout: defaultTimeout},
		directory: strings.TrimSuffix(directory, "/"),
		userAgent: "skiff/" + skiff.Version,
	}
}

// SendOperation submits a signed operation for did. The registry either
// accepts the operation or the call fails; there is no partial acceptance.
func (c *Client) SendOperation(ctx context.Context, did string, op Operation) error {
	body, err := json.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "encode operation")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.directory+"/"+url.PathEscape(did), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send operation")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("registry rejected operation: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// GetDocumentData fetches the provisioning extract of a DID document. Reads
// are always live; callers layer their own caches.
func (c *Client) GetDocumentData(ctx context.Context, did string) (skiff.AtprotoData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.directory+"/"+url.PathEscape(did)+"/data", nil)
	if err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "fetch document data")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return skiff.AtprotoData{}, errors.Errorf("did %s not found in registry", did)
	}
	if resp.StatusCode != http.StatusOK {
		return skiff.AtprotoData{}, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data documentData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return skiff.AtprotoData{}, errors.Wrap(err, "decode document data")
	}
	return data.atprotoData(did), nil
}

type documentData struct {
	Did                 string             `json:"did"`
	VerificationMethods map[string]string  `json:"verificationMethods"`
	RotationKeys        []string           `json:"rotationKeys"`
	AlsoKnownAs         []string           `json:"alsoKnownAs"`
	Services            map[string]Service `json:"services"`
}

func (d documentData) atprotoData(did string) skiff.AtprotoData {
	out := skiff.AtprotoData{
		Did:          did,
		SigningKey:   d.VerificationMethods["atproto"],
		RotationKeys: d.RotationKeys,
	}
	if d.Did != "" {
		out.Did = d.Did
	}
	if len(d.AlsoKnownAs) > 0 {
		out.Handle = strings.TrimPrefix(d.AlsoKnownAs[0], "at://")
	}
	if svc, ok := d.Services[ServiceIDPds]; ok {
		out.Pds = svc.Endpoint
	}
	return out
}
