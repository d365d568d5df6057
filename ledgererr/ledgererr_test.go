package ledgererr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := New(InvalidSignature, "bad sig for %s", "acct1")
	wrapped := fmt.Errorf("verify: %w", err)
	if !errors.Is(wrapped, Sentinel(InvalidSignature)) {
		t.Error("errors.Is should match on Kind through wrapping")
	}
	if errors.Is(wrapped, Sentinel(StaleDate)) {
		t.Error("errors.Is should not match a different Kind")
	}
}

func TestOfExtractsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(SigNumInUse, errors.New("cause"), "num %d", 7))
	kind, ok := Of(err)
	if !ok || kind != SigNumInUse {
		t.Fatalf("Of() = %v, %v; want SigNumInUse, true", kind, ok)
	}
}

func TestOfFalseForPlainError(t *testing.T) {
	if _, ok := Of(errors.New("plain")); ok {
		t.Error("Of should return false for a non-ledgererr error")
	}
}
