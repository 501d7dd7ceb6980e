package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/marketplace"
	sfnats "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/nats"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/natskv"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/redis"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/ristretto"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/tiered"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/config"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/resilience"
)

// cacheStack is the tiered cache plus whatever connections back it.
type cacheStack struct {
	cache.Cache
	bus     *sfnats.Bus // nil unless NATS is configured
	closers []func()
}

func (s *cacheStack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newCacheStack builds the ristretto L1 and the configured L2 backend.
// The NATS connection is opened whenever a URL is set, since it also
// carries the tenant reload fan-out.
func newCacheStack(ctx context.Context, cfg *config.Config) (*cacheStack, error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	s := &cacheStack{closers: []func(){l1.Close}}

	if cfg.NATS.URL != "" {
		bus, err := sfnats.Connect(ctx, cfg.NATS.URL)
		switch {
		case err == nil:
			s.bus = bus
			s.closers = append(s.closers, func() { _ = bus.Close() })
		case cfg.Cache.L2Backend == "nats":
			s.Close()
			return nil, fmt.Errorf("nats: %w", err)
		default:
			slog.Warn("nats unavailable, tenant reload fan-out disabled", "error", err)
		}
	}

	var l2 cache.Cache
	switch cfg.Cache.L2Backend {
	case "nats":
		kv, err := natskv.Open(ctx, s.bus.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("nats kv: %w", err)
		}
		l2 = kv
	case "redis":
		client, err := redis.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		l2 = redis.New(client, cfg.Cache.L2Bucket+":", cfg.Cache.L2TTL)
	}

	s.Cache = tiered.New(l1, l2, cfg.Cache.L1Expire)
	slog.Info("cache ready", "l2_backend", cfg.Cache.L2Backend)
	return s, nil
}

// newAPIClient builds the marketplace client behind a circuit breaker.
func newAPIClient(cfg *config.Config, transport http.RoundTripper) *marketplace.Client {
	api := marketplace.NewClient(cfg.API.BaseURL, &http.Client{
		Transport: transport,
		Timeout:   cfg.API.Timeout,
	})
	api.SetBreaker(resilience.NewBreaker("marketplace", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	return api
}
