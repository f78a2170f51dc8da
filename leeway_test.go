package jwtpair

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/jwtpair/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func leewayConfig(leeway time.Duration) Config {
	cfg := DefaultConfig()
	cfg.JWT.Issuer = "issuer"
	cfg.JWT.SigningMethod = string(jwt.MethodHS256)
	cfg.JWT.PrivateKey = []byte("secret")
	cfg.JWT.Leeway = leeway
	return cfg
}

func TestRefreshRejectsRenewalPastExpiryWithinLeeway(t *testing.T) {
	tests := []struct {
		name   string
		leeway time.Duration
	}{
		{name: "default leeway", leeway: DefaultConfig().JWT.Leeway},
		{name: "30s leeway", leeway: 30 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spy := newSpyStore()
			current := time.Now().Truncate(time.Second)
			auth, err := New[int64]().
				WithConfig(leewayConfig(tc.leeway)).
				WithStore(spy).
				WithLogger(discardLogger()).
				WithClock(func() time.Time { return current }).
				Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer auth.Close()
			ctx := context.Background()

			pair, err := auth.CreateTokenPair(ctx, 42)
			if err != nil {
				t.Fatalf("create pair: %v", err)
			}
			claims, err := auth.Decode(pair.Renewal)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			current = claims.ExpiryTime().Add(10 * time.Second)
			spy.reset()

			if _, err := auth.Decode(pair.Renewal); (err == nil) != (tc.leeway > 10*time.Second) {
				t.Fatalf("decode at exp+10s with leeway %s: %v", tc.leeway, err)
			}
			if _, err := auth.Refresh(ctx, pair.Renewal); !errors.Is(err, ErrExpired) {
				t.Fatalf("expected ErrExpired, got %v", err)
			}
			if status, blacklist, insert := spy.calls(); status+blacklist+insert != 0 {
				t.Fatalf("expired renewal token reached the store: %d/%d/%d", status, blacklist, insert)
			}

			current = claims.ExpiryTime()
			if _, err := auth.Refresh(ctx, pair.Renewal); !errors.Is(err, ErrExpired) {
				t.Fatalf("expected ErrExpired exactly at exp, got %v", err)
			}
		})
	}
}

func TestRedisRecordOutlivesRefreshWindowWithLeeway(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := TestConfig()
	cfg.JWT.Leeway = 30 * time.Second

	// The authenticator clock runs a day behind Redis.
	current := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	advance := func(d time.Duration) {
		current = current.Add(d)
		mr.FastForward(d)
	}

	auth, err := New[int64]().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(discardLogger()).
		WithClock(func() time.Time { return current }).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer auth.Close()
	ctx := context.Background()

	first, err := auth.CreateTokenPair(ctx, 42)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	second, err := auth.CreateTokenPair(ctx, 42)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	advance(24*time.Hour - 10*time.Second)
	if _, err := auth.Refresh(ctx, first.Renewal); err != nil {
		t.Fatalf("refresh before exp must succeed: %v", err)
	}
	if _, err := auth.Refresh(ctx, first.Renewal); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed on replay, got %v", err)
	}

	advance(20 * time.Second)
	if _, err := auth.Decode(second.Renewal); err != nil {
		t.Fatalf("decode inside leeway: %v", err)
	}
	if _, err := auth.Refresh(ctx, second.Renewal); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past exp, got %v", err)
	}
	if _, err := auth.Refresh(ctx, first.Renewal); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for consumed token past exp, got %v", err)
	}
}
