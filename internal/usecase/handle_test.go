package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/driftsocial/skiff/internal/domain"
)

func TestValidateServedHandle(t *testing.T) {
	cases := []struct {
		name    string
		handle  string
		want    string
		wantErr error
	}{
		{name: "ok", handle: "alice.skiff.example", want: "alice.skiff.example"},
		{name: "normalized", handle: "  Alice.Skiff.Example ", want: "alice.skiff.example"},
		{name: "max label", handle: "abcdefghijklmnopqr.skiff.example", want: "abcdefghijklmnopqr.skiff.example"},
		{name: "bad syntax", handle: "al_ice.skiff.example", wantErr: domain.ErrInvalidHandle},
		{name: "no dot", handle: "alice", wantErr: domain.ErrInvalidHandle},
		{name: "label too short", handle: "al.skiff.example", wantErr: domain.ErrInvalidHandle},
		{name: "label too long", handle: "abcdefghijklmnopqrs.skiff.example", wantErr: domain.ErrInvalidHandle},
		{name: "nested label", handle: "deep.alice.skiff.example", wantErr: domain.ErrInvalidHandle},
		{name: "reserved", handle: "admin.skiff.example", wantErr: domain.ErrHandleUnavailable},
		{name: "reserved second entry", handle: "support.skiff.example", wantErr: domain.ErrHandleUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &mockHandleResolver{}
			v := NewHandleValidator(testConfig(t), resolver)
			got, err := v.Validate(context.Background(), tc.handle, "")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Validate(%q) err = %v, want %v", tc.handle, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q): %v", tc.handle, err)
			}
			if got != tc.want {
				t.Errorf("Validate(%q) = %q, want %q", tc.handle, got, tc.want)
			}
			if resolver.calls != 0 {
				t.Errorf("served handle triggered %d external resolutions", resolver.calls)
			}
		})
	}
}

func TestValidateExternalHandle(t *testing.T) {
	const did = "did:plc:kq3c5l7y2mzidj44fmdmxiqa"

	cases := []struct {
		name      string
		callerDid string
		resolver  mockHandleResolver
		wantErr   error
	}{
		{name: "ownership proven", callerDid: did, resolver: mockHandleResolver{did: did}},
		{name: "no did supplied", callerDid: "", wantErr: domain.ErrUnsupportedDomain},
		{name: "resolution fails", callerDid: did, resolver: mockHandleResolver{err: errors.New("dns timeout")}, wantErr: domain.ErrHandleMismatch},
		{name: "resolves to nothing", callerDid: did, resolver: mockHandleResolver{did: ""}, wantErr: domain.ErrHandleMismatch},
		{name: "resolves to other did", callerDid: did, resolver: mockHandleResolver{did: "did:plc:aaaa5l7y2mzidj44fmdmxi2b"}, wantErr: domain.ErrHandleMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := tc.resolver
			v := NewHandleValidator(testConfig(t), &resolver)
			got, err := v.Validate(context.Background(), "alice.example.com", tc.callerDid)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != "alice.example.com" {
				t.Errorf("handle = %q", got)
			}
			if resolver.calls != 1 {
				t.Errorf("resolver calls = %d, want 1", resolver.calls)
			}
		})
	}
}

func TestValidateExternalHandleEscapesLabelPolicy(t *testing.T) {
	// label length and reservations apply to served domains only
	resolver := &mockHandleResolver{did: "did:plc:kq3c5l7y2mzidj44fmdmxiqa"}
	v := NewHandleValidator(testConfig(t), resolver)
	got, err := v.Validate(context.Background(), "ab.example.com", "did:plc:kq3c5l7y2mzidj44fmdmxiqa")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ab.example.com" {
		t.Errorf("handle = %q", got)
	}
}
