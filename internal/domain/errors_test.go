package domain

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestAppErrorIs(t *testing.T) {
	err := ErrIncompatibleDidDoc.WithMessage("service endpoint %q is not this node", "https://other.example")
	if !errors.Is(err, ErrIncompatibleDidDoc) {
		t.Error("detailed copy does not match its sentinel")
	}
	if errors.Is(err, ErrInvalidHandle) {
		t.Error("matched a foreign sentinel")
	}
}

func TestAppErrorIsThroughWrap(t *testing.T) {
	err := pkgerrors.Wrap(ErrInvalidInviteCode, "locked admission check")
	if !errors.Is(err, ErrInvalidInviteCode) {
		t.Error("wrap broke sentinel matching")
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := ErrAccountAlreadyExists.WithMessage("handle %s is taken", "alice.skiff.example")
	want := "AccountAlreadyExists: handle alice.skiff.example is taken"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
	if (AppError{Code: "X"}).Error() != "X" {
		t.Error("bare code message mangled")
	}
}
