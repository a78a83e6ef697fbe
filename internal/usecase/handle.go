package usecase

import (
	"context"
	"strings"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
)

// HandleValidator normalizes a requested handle and checks it against
// syntax, the node's domain policy, and delegated ownership resolution for
// externally hosted handles.
type HandleValidator struct {
	config   domain.Config
	resolver HandleResolver
}

func NewHandleValidator(config domain.Config, resolver HandleResolver) *HandleValidator {
	return &HandleValidator{config: config, resolver: resolver}
}

// Validate returns the normalized handle. callerDid is required for handles
// outside the served domains; ownership is proven by the handle resolving
// back to that DID. The only side effect is the delegated resolution call.
func (v *HandleValidator) Validate(ctx context.Context, rawHandle, callerDid string) (string, error) {
	handle := skiff.NormalizeHandle(rawHandle)
	if !skiff.IsValidHandle(handle) {
		return "", domain.ErrInvalidHandle
	}

	suffix, served := v.servedSuffix(handle)
	if !served {
		if callerDid == "" {
			return "", domain.ErrUnsupportedDomain
		}
		resolved, err := v.resolver.ResolveExternalHandle(ctx, "https", handle)
		if err != nil {
			return "", domain.ErrHandleMismatch.WithMessage("handle %s could not be resolved", handle)
		}
		if resolved == "" {
			return "", domain.ErrHandleMismatch.WithMessage("handle %s does not resolve to any did", handle)
		}
		if resolved != callerDid {
			return "", domain.ErrHandleMismatch
		}
		return handle, nil
	}

	label := strings.TrimSuffix(handle, suffix)
	if strings.Contains(label, ".") {
		return "", domain.ErrInvalidHandle.WithMessage("handle must be a single label under %s", suffix)
	}
	if len(label) < domain.MinHandleLabel || len(label) > domain.MaxHandleLabel {
		return "", domain.ErrInvalidHandle.WithMessage("handle label must be %d to %d characters", domain.MinHandleLabel, domain.MaxHandleLabel)
	}
	for _, reserved := range v.config.ReservedHandles {
		if label == reserved {
			return "", domain.ErrHandleUnavailable
		}
	}
	return handle, nil
}

func (v *HandleValidator) servedSuffix(handle string) (string, bool) {
	for _, d := range v.config.HandleDomains {
		if strings.HasSuffix(handle, d) {
			return d, true
		}
	}
	return "", false
}
