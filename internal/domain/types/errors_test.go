package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStaleRideMessage(t *testing.T) {
	if !errors.Is(ErrStaleRide, ErrConflictLost) {
		t.Fatal("stale ride is not a conflict")
	}
	if got := KindOf(fmt.Errorf("cancel: %w", ErrStaleRide)); got != KindConflict {
		t.Fatalf("KindOf = %q, want %q", got, KindConflict)
	}
	if msg := ErrStaleRide.Error(); strings.Contains(msg, ErrConflictLost.Error()) {
		t.Fatalf("stale ride reads like a lost accept: %q", msg)
	}
	if errors.Is(ErrStaleRide, ErrRideTaken) {
		t.Fatal("stale ride matches ride taken")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidPrice, KindValidation},
		{FieldErrors{"phone": "is required"}, KindValidation},
		{ErrNotYourRide, KindGuard},
		{ErrRideNotFound, KindNotFound},
		{ErrDatabaseFailed, KindTransient},
		{ErrRideTaken, KindConflict},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
