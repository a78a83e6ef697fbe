package skiff

import (
	"strings"
)

const (
	maxHandleLength = 253
	maxLabelLength  = 63
)

// NormalizeHandle case-folds and trims a requested handle. Validation
// operates on the normalized form.
func NormalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsValidHandle reports whether a normalized handle satisfies the hostname
// form: two or more dot-separated labels of [a-z0-9-], no label starting or
// ending with a hyphen, and a final label that contains a letter and does
// not start with a digit.
func IsValidHandle(handle string) bool {
	if len(handle) == 0 || len(handle) > maxHandleLength {
		return false
	}
	labels := strings.Split(handle, ".")
	if len(labels) < 2 {
		return false
	}
	for i, label := range labels {
		if !isValidLabel(label) {
			return false
		}
		if i == len(labels)-1 && !isValidTLD(label) {
			return false
		}
	}
	return true
}

func isValidLabel(label string) bool {
	if len(label) == 0 || len(label) > maxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

func isValidTLD(label string) bool {
	if label[0] >= '0' && label[0] <= '9' {
		return false
	}
	for i := 0; i < len(label); i++ {
		if label[i] >= 'a' && label[i] <= 'z' {
			return true
		}
	}
	return false
}

// IsDid reports whether s has the did:<method>:<identifier> shape.
func IsDid(s string) bool {
	parts := strings.SplitN(s, ":", 3)
	return len(parts) == 3 && parts[0] == "did" && parts[1] != "" && parts[2] != ""
}

// DidMethod returns the method segment of a DID, or "" if s is not a DID.
func DidMethod(s string) string {
	if !IsDid(s) {
		return ""
	}
	return strings.SplitN(s, ":", 3)[1]
}

// IsDidPlc reports whether s is a registry-backed DID: a did:plc prefix
// followed by exactly 24 characters of lowercase base32.
func IsDidPlc(s string) bool {
	const prefix = "did:plc:"
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	id := s[len(prefix):]
	if len(id) != 24 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '2' || c > '7') {
			return false
		}
	}
	return true
}

// IsDidWeb reports whether s is a did:web with a plausible hostname part.
func IsDidWeb(s string) bool {
	const prefix = "did:web:"
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	host := s[len(prefix):]
	return host != "" && !strings.Contains(host, "/")
}
