package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
)

func newTestProvisioner(t *testing.T, config domain.Config, resolver Resolver) *DidProvisioner {
	t.Helper()
	return NewDidProvisioner(config, mustKey(t, rotationKeyHex), resolver)
}

func TestProvisionMint(t *testing.T) {
	config := testConfig(t)
	p := newTestProvisioner(t, config, &mockResolver{})

	result, err := p.Provision(context.Background(), "alice.skiff.example", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !skiff.IsDidPlc(result.Did) {
		t.Fatalf("minted did %q is not a registry did", result.Did)
	}
	if result.PendingOp == nil {
		t.Fatal("mint must leave the genesis operation pending submission")
	}

	op := result.PendingOp
	if !slices.Equal(op.RotationKeys, []string{config.RotationDidKey}) {
		t.Errorf("rotation keys = %v, want node key only", op.RotationKeys)
	}
	if op.VerificationMethods["atproto"] != config.SigningDidKey {
		t.Errorf("signing key = %q", op.VerificationMethods["atproto"])
	}
	if !slices.Equal(op.AlsoKnownAs, []string{"at://alice.skiff.example"}) {
		t.Errorf("alsoKnownAs = %v", op.AlsoKnownAs)
	}
	if svc := op.Services["atproto_pds"]; svc.Endpoint != config.PublicURL {
		t.Errorf("pds endpoint = %q, want %q", svc.Endpoint, config.PublicURL)
	}
	if err := op.Verify(config.RotationDidKey); err != nil {
		t.Errorf("genesis operation does not verify against the rotation key: %v", err)
	}
}

func TestProvisionMintRotationKeyOrder(t *testing.T) {
	callerRecovery := didKeyOf(t, recoveryKeyHex)

	config := testConfig(t)
	config.RecoveryDidKey = didKeyOf(t, signingKeyHex)

	p := newTestProvisioner(t, config, &mockResolver{})
	result, err := p.Provision(context.Background(), "alice.skiff.example", "", callerRecovery)
	if err != nil {
		t.Fatal(err)
	}

	// highest authority first: the caller's key outranks the node's
	want := []string{callerRecovery, config.RecoveryDidKey, config.RotationDidKey}
	if !slices.Equal(result.PendingOp.RotationKeys, want) {
		t.Errorf("rotation keys = %v, want %v", result.PendingOp.RotationKeys, want)
	}
}

func TestProvisionMintRejectsBadRecoveryKey(t *testing.T) {
	p := newTestProvisioner(t, testConfig(t), &mockResolver{})
	_, err := p.Provision(context.Background(), "alice.skiff.example", "", "did:key:zNotARealKey")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidRequest)
	}
}

func TestProvisionMintIsDeterministic(t *testing.T) {
	p := newTestProvisioner(t, testConfig(t), &mockResolver{})

	first, err := p.Provision(context.Background(), "alice.skiff.example", "", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Provision(context.Background(), "alice.skiff.example", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Did != second.Did {
		t.Errorf("same inputs minted %q and %q", first.Did, second.Did)
	}

	other, err := p.Provision(context.Background(), "bob.skiff.example", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if other.Did == first.Did {
		t.Error("different handles minted the same did")
	}
}

func TestProvisionAdopt(t *testing.T) {
	const callerDid = "did:plc:kq3c5l7y2mzidj44fmdmxiqa"
	config := testConfig(t)

	goodData := func() skiff.AtprotoData {
		return skiff.AtprotoData{
			Did:          callerDid,
			SigningKey:   config.SigningDidKey,
			RotationKeys: []string{didKeyOf(t, recoveryKeyHex), config.RotationDidKey},
			Handle:       "alice.skiff.example",
			Pds:          config.PublicURL,
		}
	}

	cases := []struct {
		name    string
		did     string
		mutate  func(*skiff.AtprotoData)
		resolve error
		wantErr error
	}{
		{name: "registry did adopted", did: callerDid},
		{
			name: "web did adopted without rotation keys",
			did:  "did:web:alice.example.com",
			mutate: func(d *skiff.AtprotoData) {
				d.Did = "did:web:alice.example.com"
				d.RotationKeys = nil
			},
		},
		{name: "unsupported method", did: "did:key:z6MkHaXU2RSRqTAJ", wantErr: domain.ErrIncompatibleDidDoc},
		{name: "unresolvable", did: callerDid, resolve: errors.New("registry unreachable"), wantErr: domain.ErrUnresolvableDid},
		{
			name:    "handle not claimed",
			did:     callerDid,
			mutate:  func(d *skiff.AtprotoData) { d.Handle = "somebody.else.example" },
			wantErr: domain.ErrIncompatibleDidDoc,
		},
		{
			name:    "points at another pds",
			did:     callerDid,
			mutate:  func(d *skiff.AtprotoData) { d.Pds = "https://other.example" },
			wantErr: domain.ErrIncompatibleDidDoc,
		},
		{
			name:    "foreign signing key",
			did:     callerDid,
			mutate:  func(d *skiff.AtprotoData) { d.SigningKey = didKeyOf(t, recoveryKeyHex) },
			wantErr: domain.ErrIncompatibleDidDoc,
		},
		{
			name:    "node rotation key not authorized",
			did:     callerDid,
			mutate:  func(d *skiff.AtprotoData) { d.RotationKeys = []string{didKeyOf(t, recoveryKeyHex)} },
			wantErr: domain.ErrIncompatibleDidDoc,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := goodData()
			if tc.mutate != nil {
				tc.mutate(&data)
			}
			resolver := &mockResolver{data: data, err: tc.resolve}
			p := newTestProvisioner(t, config, resolver)

			result, err := p.Provision(context.Background(), "alice.skiff.example", tc.did, "")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if result.Did != tc.did {
				t.Errorf("did = %q, want %q", result.Did, tc.did)
			}
			if result.PendingOp != nil {
				t.Error("adoption must not stage a registry operation")
			}
		})
	}
}
