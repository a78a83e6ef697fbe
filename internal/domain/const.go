package domain

const (
	RequesterDidCtxKey = "skiff-requesterDid"
)

// Bounds on the user-owned label of a handle under a served domain.
const (
	MinHandleLabel = 3
	MaxHandleLabel = 18
)

// Event kinds appended to the firehose stream.
const (
	EventCommit   = "commit"
	EventIdentity = "identity"
	EventAccount  = "account"
)
