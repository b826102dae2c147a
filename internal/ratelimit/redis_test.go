package ratelimit_test

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-tutor/internal/platform/cache"
	"github.com/p-n-ai/pai-tutor/internal/ratelimit"
)

func newRedisURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}

	url, err := ctr.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	return url
}

func TestNewRedisLimiter_NilClient(t *testing.T) {
	if _, err := ratelimit.NewRedisLimiter(nil, 1, time.Minute); err == nil {
		t.Fatal("NewRedisLimiter(nil) should return error")
	}
}

func TestRedisLimiter_Window(t *testing.T) {
	c, err := cache.New(t.Context(), newRedisURL(t))
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })

	l, err := ratelimit.NewRedisLimiter(c.Client, 3, 2*time.Second)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	ctx := t.Context()

	for i, want := range []bool{true, true, true, false} {
		ok, err := l.Allow(ctx, "user:1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if ok != want {
			t.Errorf("call %d: Allow() = %v, want %v", i+1, ok, want)
		}
	}

	time.Sleep(2500 * time.Millisecond)
	if ok, err := l.Allow(ctx, "user:1"); err != nil || !ok {
		t.Errorf("Allow() after expiry = %v, %v; want true", ok, err)
	}
}
