package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/checkout"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
)

// PendingStore parks checkout state per session so it survives a login
// redirect. Entries older than their window are discarded on read.
type PendingStore struct {
	store       cache.Cache
	checkoutTTL time.Duration
	purchaseTTL time.Duration
	now         func() time.Time
}

// NewPendingStore creates a PendingStore with the given staleness windows.
func NewPendingStore(store cache.Cache, checkoutTTL, purchaseTTL time.Duration) *PendingStore {
	return &PendingStore{
		store:       store,
		checkoutTTL: checkoutTTL,
		purchaseTTL: purchaseTTL,
		now:         time.Now,
	}
}

func checkoutKey(sessionID string) string { return "pending_checkout_" + sessionID }
func purchaseKey(sessionID string) string { return "pending_purchase_" + sessionID }

// SaveCheckout validates p, stamps it and stores it for sessionID.
func (s *PendingStore) SaveCheckout(ctx context.Context, sessionID string, p *checkout.PendingCheckout) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.SavedAt = s.now()
	return s.put(ctx, checkoutKey(sessionID), p, s.checkoutTTL)
}

// RestoreCheckout returns the parked checkout, or domain.ErrNotFound when
// there is none or it is stale.
func (s *PendingStore) RestoreCheckout(ctx context.Context, sessionID string) (*checkout.PendingCheckout, error) {
	var p checkout.PendingCheckout
	if err := s.take(ctx, checkoutKey(sessionID), &p, func() time.Time { return p.SavedAt }, s.checkoutTTL); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePurchase validates p, stamps it and stores it for sessionID.
func (s *PendingStore) SavePurchase(ctx context.Context, sessionID string, p *checkout.PendingPurchase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.SavedAt = s.now()
	return s.put(ctx, purchaseKey(sessionID), p, s.purchaseTTL)
}

// RestorePurchase returns the parked purchase intent, or domain.ErrNotFound
// when there is none or it is stale.
func (s *PendingStore) RestorePurchase(ctx context.Context, sessionID string) (*checkout.PendingPurchase, error) {
	var p checkout.PendingPurchase
	if err := s.take(ctx, purchaseKey(sessionID), &p, func() time.Time { return p.SavedAt }, s.purchaseTTL); err != nil {
		return nil, err
	}
	return &p, nil
}

// ClearCheckout drops the parked checkout for sessionID.
func (s *PendingStore) ClearCheckout(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, checkoutKey(sessionID))
}

// ClearPurchase drops the parked purchase intent for sessionID.
func (s *PendingStore) ClearPurchase(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, purchaseKey(sessionID))
}

func (s *PendingStore) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	// The backend TTL only reclaims space; freshness is decided on read.
	if err := s.store.Set(ctx, key, data, 2*ttl); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *PendingStore) take(ctx context.Context, key string, dst any, savedAt func() time.Time, ttl time.Duration) error {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("discarding unreadable pending entry", "key", key, "error", err)
		_ = s.store.Delete(ctx, key)
		return domain.ErrNotFound
	}
	if !checkout.Fresh(savedAt(), s.now(), ttl) {
		slog.Debug("discarding stale pending entry", "key", key, "saved_at", savedAt())
		_ = s.store.Delete(ctx, key)
		return domain.ErrNotFound
	}
	return nil
}
