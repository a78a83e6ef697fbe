package usecase

import (
	"context"
	"crypto/ecdsa"
	"slices"

	"github.com/pkg/errors"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/plc"
)

// DidProvisioner acquires the DID for a registration: minting a fresh
// did:plc when the caller supplies none, or validating a caller-supplied DID
// for adoption. All validation happens before any submission or persistence.
type DidProvisioner struct {
	config      domain.Config
	rotationKey *ecdsa.PrivateKey
	resolver    Resolver
}

func NewDidProvisioner(config domain.Config, rotationKey *ecdsa.PrivateKey, resolver Resolver) *DidProvisioner {
	return &DidProvisioner{config: config, rotationKey: rotationKey, resolver: resolver}
}

// ProvisionResult carries the DID and, on the mint path, the signed but not
// yet submitted genesis operation.
type ProvisionResult struct {
	Did       string
	PendingOp *plc.Operation
}

func (p *DidProvisioner) Provision(ctx context.Context, handle, callerDid, recoveryKey string) (ProvisionResult, error) {
	if callerDid == "" {
		return p.mint(handle, recoveryKey)
	}
	return p.adopt(ctx, handle, callerDid)
}

func (p *DidProvisioner) mint(handle, recoveryKey string) (ProvisionResult, error) {
	rotationKeys := make([]string, 0, 3)
	if recoveryKey != "" {
		if _, err := skiff.PublicFromDidKey(recoveryKey); err != nil {
			return ProvisionResult{}, domain.ErrInvalidRequest.WithMessage("recovery key is not a valid did:key")
		}
		rotationKeys = append(rotationKeys, recoveryKey)
	}
	if p.config.RecoveryDidKey != "" {
		rotationKeys = append(rotationKeys, p.config.RecoveryDidKey)
	}
	rotationKeys = append(rotationKeys, p.config.RotationDidKey)

	op := plc.NewGenesisOp(p.config.SigningDidKey, rotationKeys, handle, p.config.PublicURL)
	if err := op.Sign(p.rotationKey); err != nil {
		return ProvisionResult{}, errors.Wrap(err, "sign genesis operation")
	}
	did, err := op.Did()
	if err != nil {
		return ProvisionResult{}, errors.Wrap(err, "derive did")
	}
	return ProvisionResult{Did: did, PendingOp: &op}, nil
}

func (p *DidProvisioner) adopt(ctx context.Context, handle, callerDid string) (ProvisionResult, error) {
	method := skiff.DidMethod(callerDid)
	if method != "plc" && method != "web" {
		return ProvisionResult{}, domain.ErrIncompatibleDidDoc.WithMessage("unsupported did method: %s", callerDid)
	}

	data, err := p.resolver.ResolveAtprotoData(ctx, callerDid)
	if err != nil {
		return ProvisionResult{}, domain.ErrUnresolvableDid.WithMessage("could not resolve %s", callerDid)
	}

	if data.Handle != handle {
		return ProvisionResult{}, domain.ErrIncompatibleDidDoc.WithMessage("document claims handle %q, not %q", data.Handle, handle)
	}
	if data.Pds != p.config.PublicURL {
		return ProvisionResult{}, domain.ErrIncompatibleDidDoc.WithMessage("document names pds %q, not this node", data.Pds)
	}
	if data.SigningKey != p.config.SigningDidKey {
		return ProvisionResult{}, domain.ErrIncompatibleDidDoc.WithMessage("document signing key does not match this node")
	}
	// did:web has no mutable rotation keys; the authorization proof applies
	// to registry-backed methods only.
	if method == "plc" && !slices.Contains(data.RotationKeys, p.config.RotationDidKey) {
		return ProvisionResult{}, domain.ErrIncompatibleDidDoc.WithMessage("document does not authorize this node's rotation key")
	}

	return ProvisionResult{Did: callerDid}, nil
}
