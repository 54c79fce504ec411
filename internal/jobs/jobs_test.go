package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(s string) string { return s }

func TestRunEachRunsAll(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	err := RunEach(context.Background(), 2, []string{"a", "b", "c"}, id, func(_ context.Context, s string) error {
		mu.Lock()
		seen[s] = true
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestRunEachBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	err := RunEach(context.Background(), 2, []string{"a", "b", "c", "d", "e"}, id, func(context.Context, string) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunEachJoinsFailures(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32
	err := RunEach(context.Background(), 1, []string{"a", "b", "c"}, id, func(_ context.Context, s string) error {
		ran.Add(1)
		if s == "b" {
			return boom
		}
		return nil
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b: boom")
	assert.Equal(t, int32(3), ran.Load(), "a failure must not stop the other items")
}

func TestRunEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	err := RunEach(ctx, 1, []string{"a", "b"}, id, func(context.Context, string) error {
		ran.Add(1)
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestRunEachEmpty(t *testing.T) {
	assert.NoError(t, RunEach(context.Background(), 4, nil, id, func(context.Context, string) error { return nil }, nil))
}
