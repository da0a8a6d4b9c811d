// Package quotes records the last valid bid/ask seen during market hours
// and serves it with provenance after hours. The cache is a convenience,
// not a source of truth: a missing quote is a legitimate "unavailable"
// outcome, never an error to paper over.
package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/logger"
	"github.com/hward/premia/pkg/redis"
)

// readThroughTTL bounds how long an after-hours lookup may be served from
// Redis before going back to the store.
const readThroughTTL = 10 * time.Minute

// Cache serves sell-side (bid) and buy-side (ask) quotes with provenance.
type Cache struct {
	store  contracts.QuoteStore
	clock  contracts.SessionClock
	rcache *redis.Cache // optional read-through for the after-hours path
	logger *logger.Logger
}

// NewCache creates a quote cache. rcache may be nil.
func NewCache(store contracts.QuoteStore, clock contracts.SessionClock, rcache *redis.Cache, log *logger.Logger) *Cache {
	return &Cache{
		store:  store,
		clock:  clock,
		rcache: rcache,
		logger: log.WithField("module", "quote_cache"),
	}
}

// RecordIfLive stores a quote only while the session is LIVE and at least
// one side is strictly positive. Anything else is a silent no-op: the
// caller learns via the return value, not an error.
func (c *Cache) RecordIfLive(ctx context.Context, entry *contracts.QuoteCacheEntry) (bool, error) {
	if c.clock.Mode(time.Now()) != contracts.ModeLive {
		return false, nil
	}
	if entry.Bid <= 0 && entry.Ask <= 0 {
		return false, nil
	}

	if entry.QuoteTimestamp.IsZero() {
		entry.QuoteTimestamp = time.Now()
	}
	if entry.Source == "" {
		entry.Source = contracts.QuoteSourceLive
	}

	if err := c.store.Put(ctx, entry); err != nil {
		return false, fmt.Errorf("record quote for %s: %w", entry.ContractSymbol, err)
	}

	if c.rcache != nil {
		_ = c.rcache.Delete(ctx, entry.ContractSymbol)
	}

	return true, nil
}

// GetSellQuote returns the price a seller can expect for a contract: the
// live bid when LIVE and positive, otherwise the cached bid relabelled
// LAST_MARKET_SESSION, otherwise ErrNoValidQuote.
func (c *Cache) GetSellQuote(ctx context.Context, contractSymbol string, liveBid float64) (contracts.Quote, error) {
	return c.quote(ctx, contractSymbol, liveBid, func(e *contracts.QuoteCacheEntry) float64 { return e.Bid })
}

// GetBuyQuote is symmetric to GetSellQuote over the ask.
func (c *Cache) GetBuyQuote(ctx context.Context, contractSymbol string, liveAsk float64) (contracts.Quote, error) {
	return c.quote(ctx, contractSymbol, liveAsk, func(e *contracts.QuoteCacheEntry) float64 { return e.Ask })
}

func (c *Cache) quote(ctx context.Context, contractSymbol string, livePrice float64, side func(*contracts.QuoteCacheEntry) float64) (contracts.Quote, error) {
	if c.clock.Mode(time.Now()) == contracts.ModeLive && livePrice > 0 {
		return contracts.Quote{
			Price:     livePrice,
			Source:    contracts.QuoteSourceLive,
			Timestamp: time.Now(),
		}, nil
	}

	entry, err := c.lookup(ctx, contractSymbol)
	if err != nil {
		return contracts.Quote{}, err
	}
	if entry == nil || side(entry) <= 0 {
		return contracts.Quote{}, fmt.Errorf("%s: %w", contractSymbol, contracts.ErrNoValidQuote)
	}

	// The stored row keeps its original source; only this view is
	// relabelled as last-session.
	return contracts.Quote{
		Price:     side(entry),
		Source:    contracts.QuoteSourceLastSession,
		Timestamp: entry.QuoteTimestamp,
	}, nil
}

// cachedQuote wraps a store result for the Redis round-trip so a store
// miss (nil entry) caches and restores as nil instead of a zero entry.
type cachedQuote struct {
	Entry *contracts.QuoteCacheEntry `json:"entry"`
}

// lookup reads through Redis when available, falling back to the store.
// A nil entry with nil error means "not cached". Negative results are
// cached too; RecordIfLive invalidates the key on write, so a fresh
// quote is visible immediately.
func (c *Cache) lookup(ctx context.Context, contractSymbol string) (*contracts.QuoteCacheEntry, error) {
	if c.rcache == nil {
		entry, err := c.store.Get(ctx, contractSymbol)
		if err != nil {
			return nil, fmt.Errorf("quote lookup for %s: %w", contractSymbol, err)
		}
		return entry, nil
	}

	var cached cachedQuote
	err := c.rcache.GetOrSet(ctx, contractSymbol, &cached, readThroughTTL, func() (interface{}, error) {
		entry, err := c.store.Get(ctx, contractSymbol)
		if err != nil {
			return nil, err
		}
		return cachedQuote{Entry: entry}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("quote lookup for %s: %w", contractSymbol, err)
	}

	return cached.Entry, nil
}

// Prune deletes cache rows older than maxAge. Storage hygiene only; the
// absence of a quote after pruning is handled by ErrNoValidQuote.
func (c *Cache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune quote cache: %w", err)
	}

	if deleted > 0 {
		c.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"max_age": maxAge,
		}).Info("Pruned quote cache")
	}

	return deleted, nil
}
