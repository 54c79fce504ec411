package model

import (
	"context"
	"errors"
	"testing"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := Wrap(ErrChainUnavailable, "eth_blockNumber", context.DeadlineExceeded)
	if !errors.Is(err, ErrChainUnavailable) {
		t.Fatalf("kind lost: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost: %v", err)
	}
	if KindOf(err) != ErrChainUnavailable {
		t.Fatalf("kind of mismatch")
	}
}

func TestWrapDoesNotDoubleTag(t *testing.T) {
	inner := Wrap(ErrSnapshotUnavailable, "totalAssets", errors.New("execution reverted"))
	outer := Wrap(ErrSnapshotUnavailable, "snapshot", inner)
	if outer != inner {
		t.Fatalf("expected same error back")
	}
	if Wrap(ErrSnapshotUnavailable, "noop", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestKindOfPrefersSnapshotOverChain(t *testing.T) {
	err := Wrap(ErrSnapshotUnavailable, "snapshot", Wrap(ErrChainUnavailable, "eth_call", errors.New("boom")))
	if KindOf(err) != ErrSnapshotUnavailable {
		t.Fatalf("unexpected kind: %v", KindOf(err))
	}
}
