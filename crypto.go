package skiff

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const didKeyPrefix = "did:key:z"

// multicodec secp256k1-pub (0xe7) as a varint
var secp256k1PubCodec = []byte{0xe7, 0x01}

// ParsePrivateKey decodes a hex-encoded secp256k1 private key, with or
// without a 0x prefix.
func ParsePrivateKey(hexkey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexkey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid secp256k1 private key")
	}
	return key, nil
}

// DidKeyFromPublic encodes a secp256k1 public key as a did:key string:
// base58btc over the multicodec prefix plus the 33-byte compressed point.
func DidKeyFromPublic(pub *ecdsa.PublicKey) string {
	compressed := crypto.CompressPubkey(pub)
	b := make([]byte, 0, len(secp256k1PubCodec)+len(compressed))
	b = append(b, secp256k1PubCodec...)
	b = append(b, compressed...)
	return didKeyPrefix + base58.Encode(b)
}

// PublicFromDidKey decodes a did:key string back to the public key. Only
// base58btc multibase and the secp256k1 multicodec are accepted.
func PublicFromDidKey(didKey string) (*ecdsa.PublicKey, error) {
	if !strings.HasPrefix(didKey, didKeyPrefix) {
		return nil, errors.New("not a base58btc did:key")
	}
	b, err := base58.Decode(didKey[len(didKeyPrefix):])
	if err != nil {
		return nil, errors.Wrap(err, "invalid did:key encoding")
	}
	if len(b) < len(secp256k1PubCodec) || b[0] != secp256k1PubCodec[0] || b[1] != secp256k1PubCodec[1] {
		return nil, errors.New("did:key is not secp256k1")
	}
	pub, err := crypto.DecompressPubkey(b[len(secp256k1PubCodec):])
	if err != nil {
		return nil, errors.Wrap(err, "invalid secp256k1 point")
	}
	return pub, nil
}

// SignDigest signs a 32-byte digest and returns the 64-byte compact
// signature (the recovery byte is dropped). Nonces are deterministic, so
// equal input yields equal output for a given key.
func SignDigest(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, errors.Wrap(err, "secp256k1 sign")
	}
	return sig[:64], nil
}

// VerifyDigest reports whether a 64-byte compact signature is valid for
// digest under pub.
func VerifyDigest(pub *ecdsa.PublicKey, digest, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	return crypto.VerifySignature(crypto.CompressPubkey(pub), digest, sig)
}
