package plc

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
)

const (
	OperationType  string = "plc_operation"
	ServiceIDPds   string = "atproto_pds"
	ServiceTypePds string = "AtprotoPersonalDataServer"
)

// Service is one service declaration inside a DID document.
type Service struct {
	Type     string `json:"type" cbor:"type"`
	Endpoint string `json:"endpoint" cbor:"endpoint"`
}

// Operation is a registry mutation. Until Sign is called it is the unsigned
// form; Prev stays null for a genesis operation.
type Operation struct {
	Type                string             `json:"type" cbor:"type"`
	RotationKeys        []string           `json:"rotationKeys" cbor:"rotationKeys"`
	VerificationMethods map[string]string  `json:"verificationMethods" cbor:"verificationMethods"`
	AlsoKnownAs         []string           `json:"alsoKnownAs" cbor:"alsoKnownAs"`
	Services            map[string]Service `json:"services" cbor:"services"`
	Prev                *string            `json:"prev" cbor:"prev"`
	Sig                 *string            `json:"sig,omitempty" cbor:"sig,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// NewGenesisOp assembles the unsigned creation operation for a fresh DID.
// Rotation keys keep their given order; it decides key precedence at the
// registry.
func NewGenesisOp(signingKey string, rotationKeys []string, handle, pdsEndpoint string) Operation {
	return Operation{
		Type:         OperationType,
		RotationKeys: rotationKeys,
		VerificationMethods: map[string]string{
			"atproto": signingKey,
		},
		AlsoKnownAs: []string{"at://" + handle},
		Services: map[string]Service{
			ServiceIDPds: {Type: ServiceTypePds, Endpoint: pdsEndpoint},
		},
		Prev: nil,
	}
}

// Sign attaches a base64url compact secp256k1 signature over the sha256 of
// the unsigned operation's canonical CBOR.
func (op *Operation) Sign(key *ecdsa.PrivateKey) error {
	unsigned := *op
	unsigned.Sig = nil
	b, err := encMode.Marshal(unsigned)
	if err != nil {
		return errors.Wrap(err, "encode unsigned operation")
	}
	digest := sha256.Sum256(b)
	sig, err := skiff.SignDigest(digest[:], key)
	if err != nil {
		return errors.Wrap(err, "sign operation")
	}
	s := base64.RawURLEncoding.EncodeToString(sig)
	op.Sig = &s
	return nil
}

// Verify checks the operation's signature against a did:key.
func (op Operation) Verify(didKey string) error {
	if op.Sig == nil {
		return errors.New("operation is unsigned")
	}
	pub, err := skiff.PublicFromDidKey(didKey)
	if err != nil {
		return err
	}
	sig, err := base64.RawURLEncoding.DecodeString(*op.Sig)
	if err != nil {
		return errors.Wrap(err, "invalid signature encoding")
	}
	unsigned := op
	unsigned.Sig = nil
	b, err := encMode.Marshal(unsigned)
	if err != nil {
		return errors.Wrap(err, "encode unsigned operation")
	}
	digest := sha256.Sum256(b)
	if !skiff.VerifyDigest(pub, digest[:], sig) {
		return errors.New("signature does not verify")
	}
	return nil
}

// Did derives the registry identifier from a signed genesis operation: the
// first 24 characters of the lowercase base32 sha256 of its canonical CBOR.
func (op Operation) Did() (string, error) {
	if op.Sig == nil {
		return "", errors.New("operation is unsigned")
	}
	b, err := encMode.Marshal(op)
	if err != nil {
		return "", errors.Wrap(err, "encode operation")
	}
	sum := sha256.Sum256(b)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return "did:plc:" + strings.ToLower(enc)[:24], nil
}
