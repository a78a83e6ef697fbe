package repo

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
)

// CommitData is the durable outcome of a repository mutation: the head
// commit, its revision, and every new block keyed by CID.
type CommitData struct {
	Did    string
	Cid    string
	Rev    string
	Blocks map[string][]byte
}

// Repo seeds and signs repository commits for this node's accounts.
type Repo struct {
	key   *ecdsa.PrivateKey
	clock *TidClock
}

func New(signingKey *ecdsa.PrivateKey, clock *TidClock) *Repo {
	return &Repo{key: signingKey, clock: clock}
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// cidLink encodes a CID the DAG-CBOR way: tag 42 over the identity-prefixed
// binary form.
type cidLink struct {
	cid.Cid
}

func (l cidLink) MarshalCBOR() ([]byte, error) {
	raw := l.Bytes()
	b := make([]byte, 0, len(raw)+1)
	b = append(b, 0)
	b = append(b, raw...)
	return cbor.Marshal(cbor.Tag{Number: 42, Content: b})
}

func (l *cidLink) UnmarshalCBOR(b []byte) error {
	var tag cbor.Tag
	if err := cbor.Unmarshal(b, &tag); err != nil {
		return err
	}
	if tag.Number != 42 {
		return errors.New("not a cid link")
	}
	raw, ok := tag.Content.([]byte)
	if !ok || len(raw) < 2 || raw[0] != 0 {
		return errors.New("invalid cid link")
	}
	c, err := cid.Cast(raw[1:])
	if err != nil {
		return errors.Wrap(err, "invalid cid")
	}
	l.Cid = c
	return nil
}

type mstEntry struct {
	P int64    `cbor:"p"`
	K []byte   `cbor:"k"`
	V cidLink  `cbor:"v"`
	T *cidLink `cbor:"t"`
}

type mstNode struct {
	E []mstEntry `cbor:"e"`
	L *cidLink   `cbor:"l"`
}

type commit struct {
	Did     string   `cbor:"did"`
	Version int64    `cbor:"version"`
	Data    cidLink  `cbor:"data"`
	Rev     string   `cbor:"rev"`
	Prev    *cidLink `cbor:"prev"`
	Sig     []byte   `cbor:"sig,omitempty"`
}

// CreateRepo seeds the empty repository for a DID: an empty tree node and a
// signed v3 genesis commit over it. The returned blocks are what the store
// persists; the head CID and revision are what readers observe.
func (r *Repo) CreateRepo(did string, now time.Time) (CommitData, error) {
	rootBytes, err := encMode.Marshal(mstNode{E: []mstEntry{}, L: nil})
	if err != nil {
		return CommitData{}, errors.Wrap(err, "encode tree root")
	}
	rootCid, err := computeCid(rootBytes)
	if err != nil {
		return CommitData{}, err
	}

	c := commit{
		Did:     did,
		Version: 3,
		Data:    cidLink{rootCid},
		Rev:     r.clock.Next(now),
		Prev:    nil,
	}
	unsigned, err := encMode.Marshal(c)
	if err != nil {
		return CommitData{}, errors.Wrap(err, "encode unsigned commit")
	}
	digest := sha256.Sum256(unsigned)
	c.Sig, err = skiff.SignDigest(digest[:], r.key)
	if err != nil {
		return CommitData{}, errors.Wrap(err, "sign commit")
	}

	signed, err := encMode.Marshal(c)
	if err != nil {
		return CommitData{}, errors.Wrap(err, "encode commit")
	}
	commitCid, err := computeCid(signed)
	if err != nil {
		return CommitData{}, err
	}

	return CommitData{
		Did: did,
		Cid: commitCid.String(),
		Rev: c.Rev,
		Blocks: map[string][]byte{
			rootCid.String():   rootBytes,
			commitCid.String(): signed,
		},
	}, nil
}

// VerifyCommitSig checks a commit block's signature against a did:key.
func VerifyCommitSig(block []byte, didKey string) error {
	var c commit
	if err := cbor.Unmarshal(block, &c); err != nil {
		return errors.Wrap(err, "decode commit")
	}
	if len(c.Sig) == 0 {
		return errors.New("commit is unsigned")
	}
	sig := c.Sig
	c.Sig = nil
	unsigned, err := encMode.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode unsigned commit")
	}
	digest := sha256.Sum256(unsigned)
	pub, err := skiff.PublicFromDidKey(didKey)
	if err != nil {
		return err
	}
	if !skiff.VerifyDigest(pub, digest[:], sig) {
		return errors.New("commit signature does not verify")
	}
	return nil
}

func computeCid(block []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(block, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "hash block")
	}
	return cid.NewCidV1(cid.DagCBOR, mh), nil
}
