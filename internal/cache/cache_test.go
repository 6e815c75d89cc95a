package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestMemoryCooldown(t *testing.T) {
	now := time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := m.Acquire(ctx, "a", time.Hour); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := m.Acquire(ctx, "a", time.Hour); ok {
		t.Fatal("second acquire inside the cooldown should fail")
	}
	if ok, _ := m.Acquire(ctx, "b", time.Hour); !ok {
		t.Fatal("cooldowns are per id")
	}

	now = now.Add(time.Hour)
	if ok, _ := m.Acquire(ctx, "a", time.Hour); !ok {
		t.Fatal("acquire after expiry should succeed")
	}

	if ok, _ := m.Acquire(ctx, "c", 0); !ok {
		t.Fatal("zero ttl never blocks")
	}
	if ok, _ := m.Acquire(ctx, "c", 0); !ok {
		t.Fatal("zero ttl never blocks")
	}
}

func TestMemoryResolvedSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Resolve(ctx, "x", "y")
	_ = m.Reopen(ctx, "y")

	resolved, err := m.Resolved(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !resolved["x"] || resolved["y"] || len(resolved) != 1 {
		t.Fatalf("unexpected resolved set: %v", resolved)
	}

	resolved["z"] = true
	again, _ := m.Resolved(ctx)
	if again["z"] {
		t.Fatal("Resolved must return a copy")
	}
}

func TestRedisKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	r := NewRedisWithClient(client, "", zerolog.Nop())
	if got := r.cooldownKey("no_spend_C1_Google Ads"); got != "campaignwatch:cooldown:no_spend_C1_Google Ads" {
		t.Fatalf("unexpected cooldown key %q", got)
	}
	if got := r.resolvedKey(); got != "campaignwatch:resolved" {
		t.Fatalf("unexpected resolved key %q", got)
	}
	if ok, err := r.Acquire(context.Background(), "id", 0); !ok || err != nil {
		t.Fatal("zero ttl should not touch redis")
	}
	if err := r.Resolve(context.Background()); err != nil {
		t.Fatal("empty resolve should not touch redis")
	}
}
