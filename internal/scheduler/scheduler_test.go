package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 1, 14, 9, 20, 0, 0, time.UTC)

	if got := s.nextTick(now); !got.Equal(time.Date(2024, 1, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("next tick = %v", got)
	}
	exact := time.Date(2024, 1, 14, 10, 0, 0, 0, time.UTC)
	if got := s.nextTick(exact); !got.Equal(exact.Add(time.Hour)) {
		t.Fatalf("tick on a boundary must move forward, got %v", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket start = %v", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: 15 * time.Minute}, zerolog.Nop())
	now := time.Date(2024, 1, 14, 9, 20, 0, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("next tick = %v", got)
	}
	if got := s.bucketStart(now); !got.Equal(now) {
		t.Fatalf("bucket start = %v", got)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}

func TestRunOnStartAndCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true, RunOnStart: true}, zerolog.Nop())
	fixed := time.Date(2024, 1, 14, 9, 20, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu      sync.Mutex
		buckets []time.Time
	)
	err := s.Run(ctx, func(_ context.Context, bucket time.Time) error {
		mu.Lock()
		buckets = append(buckets, bucket)
		mu.Unlock()
		cancel()
		return errors.New("tick errors are logged, not returned")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(buckets) != 1 || !buckets[0].Equal(time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected buckets: %v", buckets)
	}
}
