package skiff

import "time"

const (
	// Version is reported by the health endpoint.
	Version string = "0.1.0"
)

// AtprotoData is the provisioning-relevant extract of a resolved DID
// document: the atproto signing key, the rotation keys in document order,
// the claimed handle, and the claimed PDS endpoint.
type AtprotoData struct {
	Did          string   `json:"did"`
	SigningKey   string   `json:"signingKey"`
	RotationKeys []string `json:"rotationKeys,omitempty"`
	Handle       string   `json:"handle"`
	Pds          string   `json:"pds"`
}

// ServerDescription is the public self-description of a node.
type ServerDescription struct {
	Did                  string   `json:"did"`
	AvailableUserDomains []string `json:"availableUserDomains"`
	InviteCodeRequired   bool     `json:"inviteCodeRequired"`
}

// CommitInfo is the observable face of a repository head.
type CommitInfo struct {
	Cid string `json:"cid"`
	Rev string `json:"rev"`
}

// Event is one firehose frame. Seq is a total order over all frames this
// node has emitted; consumers resume from the last Seq they saw.
type Event struct {
	Kind   string      `json:"kind"`
	Seq    int64       `json:"seq"`
	Did    string      `json:"did"`
	Time   time.Time   `json:"time"`
	Handle string      `json:"handle,omitempty"`
	Active *bool       `json:"active,omitempty"`
	Commit *CommitInfo `json:"commit,omitempty"`
}
