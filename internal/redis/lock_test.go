package redisclient

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDayLockKey(t *testing.T) {
	id := uuid.MustParse("6f1a2b3c-0000-4000-8000-000000000001")
	date := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

	got := DayLockKey(id, date)
	want := "lock:agenda:6f1a2b3c-0000-4000-8000-000000000001:2026-10-19"
	if got != want {
		t.Fatalf("DayLockKey = %q, want %q", got, want)
	}
}

func TestClientOptions(t *testing.T) {
	got := clientOptions(Options{Addr: "cache:6379"})
	if got.PoolSize != 20 || got.ReadTimeout != 2*time.Second || got.MinIdleConns != 2 {
		t.Fatalf("unexpected defaults %+v", got)
	}

	got = clientOptions(Options{Addr: "cache:6379", PoolSize: 1, Timeout: 500 * time.Millisecond})
	if got.PoolSize != 1 || got.MinIdleConns != 1 || got.WriteTimeout != 500*time.Millisecond || got.DialTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected overrides %+v", got)
	}
}
