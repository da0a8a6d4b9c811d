package eod

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/logger"
)

// fakeProvider serves canned closes and chains, failing on request.
type fakeProvider struct {
	mu          sync.Mutex
	closes      map[string]float64
	chains      map[string][]contracts.OptionContract
	failClose   map[string]bool
	failChain   map[string]bool
	closeCalls  int
	chainCalls  int
	maxInFlight int
	inFlight    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		closes:    make(map[string]float64),
		chains:    make(map[string][]contracts.OptionContract),
		failClose: make(map[string]bool),
		failChain: make(map[string]bool),
	}
}

func (p *fakeProvider) enter() {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	p.mu.Unlock()
}

func (p *fakeProvider) leave() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}

func (p *fakeProvider) FetchClose(_ context.Context, symbol string, _ time.Time) (float64, error) {
	p.enter()
	defer p.leave()
	time.Sleep(time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	if p.failClose[symbol] {
		return 0, errors.New("provider unavailable")
	}
	price, ok := p.closes[symbol]
	if !ok {
		return 0, errors.New("unknown symbol")
	}
	return price, nil
}

func (p *fakeProvider) FetchOptionChain(_ context.Context, symbol string, _ int) ([]contracts.OptionContract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainCalls++
	if p.failChain[symbol] {
		return nil, errors.New("provider unavailable")
	}
	return p.chains[symbol], nil
}

func newTestIngestor(store *fakeStore, provider *fakeProvider, workers int) *Ingestor {
	clock := &stubClock{mode: contracts.ModeLive}
	contract := NewContract(store, clock, "test-feed", logger.NewNop())
	return NewIngestor(contract, provider, clock, nil, IngestorConfig{Workers: workers}, logger.NewNop())
}

func seedProvider(p *fakeProvider, symbols ...string) {
	for _, sym := range symbols {
		p.closes[sym] = 100.0
		p.chains[sym] = []contracts.OptionContract{
			{ContractSymbol: sym + "260320C00105000", Strike: 105, Bid: 1.2, Ask: 1.3, DTE: 56, Valid: true},
			{ContractSymbol: sym + "260320P00095000", Strike: 95, Bid: 1.0, Ask: 1.1, DTE: 56, Valid: true},
		}
	}
}

func TestIngestorRun_AllSucceed(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL", "MSFT", "NVDA")

	in := newTestIngestor(store, provider, 2)
	report, err := in.Run(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, tradeDate)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.AlreadyFinal)

	// Both closes and chains landed.
	assert.Len(t, store.stocks, 3)
	assert.Len(t, store.chains, 3)
}

func TestIngestorRun_SymbolFailureIsCountedNotFatal(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL", "MSFT", "NVDA")
	provider.failClose["MSFT"] = true
	provider.failChain["NVDA"] = true

	in := newTestIngestor(store, provider, 2)
	report, err := in.Run(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, tradeDate)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed)

	// NVDA's close still landed even though its chain failed.
	_, err = store.GetStock(context.Background(), "NVDA", tradeDate)
	assert.NoError(t, err)
	_, err = store.GetChain(context.Background(), "NVDA", tradeDate)
	assert.ErrorIs(t, err, contracts.ErrEODNotFound)
}

func TestIngestorRun_RerunCountsAlreadyFinal(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL", "MSFT")

	in := newTestIngestor(store, provider, 2)
	ctx := context.Background()

	_, err := in.Run(ctx, []string{"AAPL", "MSFT"}, tradeDate)
	require.NoError(t, err)
	stockWrites := store.stockPuts

	report, err := in.Run(ctx, []string{"AAPL", "MSFT"}, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 2, report.AlreadyFinal)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, stockWrites, store.stockPuts, "re-run must not rewrite final closes")
}

func TestIngestorRun_RerunSkipsChainFetchAndRewrite(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL")

	in := newTestIngestor(store, provider, 1)
	ctx := context.Background()

	_, err := in.Run(ctx, []string{"AAPL"}, tradeDate)
	require.NoError(t, err)
	chainFetches := provider.chainCalls
	chainWrites := store.chainPuts
	firstRunID := store.chains[key("AAPL", tradeDate)].IngestionRunID

	// Second run with mutated provider data, as a guard re-trigger in the
	// grace window would see.
	provider.chains["AAPL"][0].Bid = 9.9
	report, err := in.Run(ctx, []string{"AAPL"}, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyFinal)

	assert.Equal(t, chainFetches, provider.chainCalls, "final chain must not be re-fetched")
	assert.Equal(t, chainWrites, store.chainPuts, "final chain must not be rewritten")

	stored := store.chains[key("AAPL", tradeDate)]
	assert.Equal(t, firstRunID, stored.IngestionRunID)
	assert.Equal(t, 1.2, stored.Calls[0].Bid)
}

func TestIngestorRun_RerunBackfillsMissingChain(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL")
	provider.failChain["AAPL"] = true

	in := newTestIngestor(store, provider, 1)
	ctx := context.Background()

	// First run: close lands, chain fetch fails.
	report, err := in.Run(ctx, []string{"AAPL"}, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	// The guard re-run fills in the missing chain under the final close.
	provider.failChain["AAPL"] = false
	report, err = in.Run(ctx, []string{"AAPL"}, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyFinal)

	chain, err := store.GetChain(ctx, "AAPL", tradeDate)
	require.NoError(t, err)
	assert.True(t, chain.IsFinal)
}

func TestIngestorRun_NonTradingDayFails(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL")

	in := newTestIngestor(store, provider, 1)
	saturday := time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC)

	_, err := in.Run(context.Background(), []string{"AAPL"}, saturday)
	assert.Error(t, err)
	assert.Equal(t, 0, provider.closeCalls, "no provider calls on a non-trading day")
}

func TestIngestorRun_ConcurrencyBounded(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()

	syms := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	seedProvider(provider, syms...)

	in := newTestIngestor(store, provider, 3)
	_, err := in.Run(context.Background(), syms, tradeDate)
	require.NoError(t, err)

	assert.LessOrEqual(t, provider.maxInFlight, 3)
}

func TestIngestorRun_CancelledContext(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	seedProvider(provider, "AAPL", "MSFT")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := newTestIngestor(store, provider, 1)
	report, err := in.Run(ctx, []string{"AAPL", "MSFT"}, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
}

func TestSplitChain(t *testing.T) {
	chain := []contracts.OptionContract{
		{ContractSymbol: "AAPL260320C00210000"},
		{ContractSymbol: "AAPL260320P00190000"},
		{ContractSymbol: "BRK.B260320C00450000"},
	}

	calls, puts := splitChain(chain)
	require.Len(t, calls, 2)
	require.Len(t, puts, 1)
	assert.Equal(t, "AAPL260320P00190000", puts[0].ContractSymbol)
}

func TestIsPut(t *testing.T) {
	assert.False(t, isPut("AAPL260320C00210000"))
	assert.True(t, isPut("AAPL260320P00190000"))
	assert.False(t, isPut("short"))
}
