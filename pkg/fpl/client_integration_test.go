//go:build integration

package fpl

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/KasraH/fpl-combos/internal/testutil"
	"github.com/KasraH/fpl-combos/pkg/cache"
	"github.com/KasraH/fpl-combos/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		client.Close()
		_ = container.Terminate(context.Background())
	})
	return client
}

// Two clients sharing one Redis stand in for the CLI and the server.
func TestIntegration_ClientsShareResponseCache(t *testing.T) {
	rdb := setupRedisContainer(t)
	mock := testutil.NewMockFPL()
	defer mock.Close()
	mock.SetResponse("/bootstrap-static/", testutil.NewHealthyResponse(`{"events":[{"id":4,"is_current":true}]}`))

	newClient := func() *Client {
		c, err := New(Config{BaseURL: mock.URL(), Cache: cache.NewManager(rdb)}, zerolog.Nop())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return c
	}

	ctx := context.Background()
	for i, c := range []*Client{newClient(), newClient()} {
		b, err := c.Bootstrap(ctx)
		if err != nil {
			t.Fatalf("client %d: Bootstrap failed: %v", i, err)
		}
		if got := b.CurrentEvent(); got != 4 {
			t.Errorf("client %d: CurrentEvent = %d, want 4", i, got)
		}
	}

	if got := mock.PathCount("/bootstrap-static/"); got != 1 {
		t.Errorf("Expected 1 upstream request, got %d", got)
	}
}

func TestIntegration_ClientsShareErrorBudget(t *testing.T) {
	rdb := setupRedisContainer(t)
	mock := testutil.NewMockFPL()
	defer mock.Close()
	mock.SetResponse("/bootstrap-static/", testutil.NewServerErrorResponse())

	limiterCfg := ratelimit.Config{
		Thresholds: ratelimit.Thresholds{Warning: 1, Critical: 2},
		Window:     time.Minute,
	}
	newClient := func() *Client {
		c, err := New(Config{
			BaseURL: mock.URL(),
			Limiter: ratelimit.NewTracker(rdb, limiterCfg, zerolog.Nop()),
		}, zerolog.Nop())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return c
	}
	a, b := newClient(), newClient()

	ctx := context.Background()
	for _, c := range []*Client{a, b} {
		var apiErr *APIError
		if _, err := c.Bootstrap(ctx); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
			t.Fatalf("Expected a 500 APIError, got %v", err)
		}
	}

	_, err := a.Bootstrap(ctx)
	if !errors.Is(err, ErrRequestBlocked) {
		t.Fatalf("Expected ErrRequestBlocked once the shared budget is spent, got %v", err)
	}
	if got := mock.PathCount("/bootstrap-static/"); got != 2 {
		t.Errorf("Expected 2 upstream requests, got %d", got)
	}
}
