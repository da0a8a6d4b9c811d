package quotes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/logger"
)

// fakeClock pins the session mode for tests.
type fakeClock struct {
	mode contracts.SessionMode
}

func (f *fakeClock) Mode(time.Time) contracts.SessionMode { return f.mode }
func (f *fakeClock) IsTradingDay(time.Time) bool          { return true }
func (f *fakeClock) LockTimestamp(d time.Time) time.Time  { return d }
func (f *fakeClock) Session(now time.Time) contracts.TradingSession {
	return contracts.TradingSession{CurrentMode: f.mode}
}
func (f *fakeClock) EnforceLive(op string) error {
	if f.mode != contracts.ModeLive {
		return contracts.ErrLiveModeViolation
	}
	return nil
}

// fakeQuoteStore is an in-memory contracts.QuoteStore.
type fakeQuoteStore struct {
	entries map[string]contracts.QuoteCacheEntry
	puts    int
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{entries: make(map[string]contracts.QuoteCacheEntry)}
}

func (f *fakeQuoteStore) Put(_ context.Context, e *contracts.QuoteCacheEntry) error {
	f.puts++
	f.entries[e.ContractSymbol] = *e
	return nil
}

func (f *fakeQuoteStore) Get(_ context.Context, contractSymbol string) (*contracts.QuoteCacheEntry, error) {
	e, ok := f.entries[contractSymbol]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeQuoteStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for sym, e := range f.entries {
		if e.QuoteTimestamp.Before(cutoff) {
			delete(f.entries, sym)
			deleted++
		}
	}
	return deleted, nil
}

func TestRecordIfLive(t *testing.T) {
	ctx := context.Background()

	t.Run("writes during live session", func(t *testing.T) {
		store := newFakeQuoteStore()
		cache := NewCache(store, &fakeClock{mode: contracts.ModeLive}, nil, logger.NewNop())

		ok, err := cache.RecordIfLive(ctx, &contracts.QuoteCacheEntry{
			ContractSymbol: "AAPL260320C00200000",
			Symbol:         "AAPL",
			Bid:            2.50,
			Ask:            2.60,
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, store.puts)
	})

	t.Run("no-op when locked", func(t *testing.T) {
		store := newFakeQuoteStore()
		cache := NewCache(store, &fakeClock{mode: contracts.ModeEODLocked}, nil, logger.NewNop())

		ok, err := cache.RecordIfLive(ctx, &contracts.QuoteCacheEntry{
			ContractSymbol: "AAPL260320C00200000",
			Bid:            2.50,
		})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, store.puts)
	})

	t.Run("no-op for non-positive quote", func(t *testing.T) {
		store := newFakeQuoteStore()
		cache := NewCache(store, &fakeClock{mode: contracts.ModeLive}, nil, logger.NewNop())

		ok, err := cache.RecordIfLive(ctx, &contracts.QuoteCacheEntry{
			ContractSymbol: "AAPL260320C00200000",
			Bid:            0,
			Ask:            0,
		})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, store.puts)
	})
}

func TestGetSellQuote_LiveBid(t *testing.T) {
	store := newFakeQuoteStore()
	cache := NewCache(store, &fakeClock{mode: contracts.ModeLive}, nil, logger.NewNop())

	q, err := cache.GetSellQuote(context.Background(), "AAPL260320C00200000", 3.10)
	require.NoError(t, err)
	assert.Equal(t, 3.10, q.Price)
	assert.Equal(t, contracts.QuoteSourceLive, q.Source)
}

func TestGetSellQuote_FallbackLabelling(t *testing.T) {
	store := newFakeQuoteStore()
	cachedAt := time.Date(2026, 1, 23, 15, 58, 0, 0, time.UTC)
	store.entries["AAPL260320C00200000"] = contracts.QuoteCacheEntry{
		ContractSymbol: "AAPL260320C00200000",
		Bid:            2.50,
		Ask:            2.60,
		QuoteTimestamp: cachedAt,
		Source:         contracts.QuoteSourceLive,
	}

	cache := NewCache(store, &fakeClock{mode: contracts.ModeEODLocked}, nil, logger.NewNop())

	q, err := cache.GetSellQuote(context.Background(), "AAPL260320C00200000", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.50, q.Price)
	assert.Equal(t, contracts.QuoteSourceLastSession, q.Source)
	assert.Equal(t, cachedAt, q.Timestamp)

	// The stored row keeps its original source label.
	assert.Equal(t, contracts.QuoteSourceLive, store.entries["AAPL260320C00200000"].Source)
}

func TestGetSellQuote_NoValidBid(t *testing.T) {
	store := newFakeQuoteStore()
	cache := NewCache(store, &fakeClock{mode: contracts.ModeEODLocked}, nil, logger.NewNop())

	_, err := cache.GetSellQuote(context.Background(), "MISSING", 0)
	assert.ErrorIs(t, err, contracts.ErrNoValidQuote)

	// Cached row with a zero bid is equally invalid for the sell side.
	store.entries["ZEROBID"] = contracts.QuoteCacheEntry{
		ContractSymbol: "ZEROBID",
		Bid:            0,
		Ask:            1.20,
		QuoteTimestamp: time.Now(),
	}
	_, err = cache.GetSellQuote(context.Background(), "ZEROBID", 0)
	assert.ErrorIs(t, err, contracts.ErrNoValidQuote)
}

func TestGetBuyQuote_SymmetricOverAsk(t *testing.T) {
	store := newFakeQuoteStore()
	store.entries["ZEROBID"] = contracts.QuoteCacheEntry{
		ContractSymbol: "ZEROBID",
		Bid:            0,
		Ask:            1.20,
		QuoteTimestamp: time.Now(),
	}

	cache := NewCache(store, &fakeClock{mode: contracts.ModeEODLocked}, nil, logger.NewNop())

	q, err := cache.GetBuyQuote(context.Background(), "ZEROBID", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.20, q.Price)
	assert.Equal(t, contracts.QuoteSourceLastSession, q.Source)
}

func TestPrune(t *testing.T) {
	store := newFakeQuoteStore()
	now := time.Now()
	store.entries["OLD"] = contracts.QuoteCacheEntry{ContractSymbol: "OLD", Bid: 1, QuoteTimestamp: now.Add(-100 * time.Hour)}
	store.entries["FRESH"] = contracts.QuoteCacheEntry{ContractSymbol: "FRESH", Bid: 1, QuoteTimestamp: now.Add(-1 * time.Hour)}

	cache := NewCache(store, &fakeClock{mode: contracts.ModeEODLocked}, nil, logger.NewNop())

	deleted, err := cache.Prune(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NotContains(t, store.entries, "OLD")
	assert.Contains(t, store.entries, "FRESH")
}
