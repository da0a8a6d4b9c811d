package scan

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/greeks"
	"github.com/hward/premia/internal/ivrank"
	"github.com/hward/premia/pkg/logger"
)

var scanDate = time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)

// fakeReader is an in-memory contracts.EODReader.
type fakeReader struct {
	closes map[string]float64
	calls  map[string][]contracts.OptionContract
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		closes: make(map[string]float64),
		calls:  make(map[string][]contracts.OptionContract),
	}
}

func (f *fakeReader) GetMarketClosePrice(_ context.Context, symbol string, _ time.Time) (float64, error) {
	price, ok := f.closes[symbol]
	if !ok {
		return 0, contracts.ErrEODNotFound
	}
	return price, nil
}

func (f *fakeReader) GetOptionsChain(_ context.Context, symbol string, date time.Time) (*contracts.EODOptionsChainRecord, error) {
	if _, ok := f.closes[symbol]; !ok {
		return nil, contracts.ErrEODNotFound
	}
	return &contracts.EODOptionsChainRecord{
		Symbol:    symbol,
		TradeDate: date,
		Calls:     f.calls[symbol],
		IsFinal:   true,
	}, nil
}

func (f *fakeReader) GetValidCallsForScan(_ context.Context, symbol string, _ time.Time, _ contracts.ScanFilter) ([]contracts.OptionContract, error) {
	if _, ok := f.closes[symbol]; !ok {
		return nil, contracts.ErrEODNotFound
	}
	return f.calls[symbol], nil
}

func (f *fakeReader) SnapshotCount(_ context.Context, _ time.Time) (int, error) {
	return len(f.closes), nil
}

// fakeSink records writes.
type fakeSink struct {
	mu      sync.Mutex
	writes  int
	written []contracts.ScanCandidate
	fail    bool
}

func (f *fakeSink) WriteCandidates(_ context.Context, _ time.Time, candidates []contracts.ScanCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("sink unavailable")
	}
	f.writes++
	f.written = append(f.written, candidates...)
	return nil
}

// fakeIVHistory is an in-memory contracts.IVHistoryStore.
type fakeIVHistory struct {
	mu      sync.Mutex
	samples map[string][]contracts.IVHistorySample
}

func newFakeIVHistory() *fakeIVHistory {
	return &fakeIVHistory{samples: make(map[string][]contracts.IVHistorySample)}
}

func (f *fakeIVHistory) Samples(_ context.Context, symbol string, before time.Time) ([]contracts.IVHistorySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contracts.IVHistorySample
	for _, s := range f.samples[symbol] {
		if s.TradingDate.Before(before) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradingDate.Before(out[j].TradingDate) })
	return out, nil
}

func (f *fakeIVHistory) Append(_ context.Context, sample *contracts.IVHistorySample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.samples[sample.Symbol] {
		if s.TradingDate.Equal(sample.TradingDate) {
			return nil
		}
	}
	f.samples[sample.Symbol] = append(f.samples[sample.Symbol], *sample)
	return nil
}

func (f *fakeIVHistory) TrimOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestOrchestrator(reader *fakeReader, sink *fakeSink, history *fakeIVHistory) *Orchestrator {
	log := logger.NewNop()
	return NewOrchestrator(
		reader,
		greeks.NewEngine(0.05),
		ivrank.NewEngine(history, log),
		sink,
		Config{Concurrency: 2},
		log,
	)
}

func seedSymbol(reader *fakeReader, sym string, spot float64, calls ...contracts.OptionContract) {
	reader.closes[sym] = spot
	reader.calls[sym] = calls
}

func atmCall(sym string, strike, iv float64) contracts.OptionContract {
	return contracts.OptionContract{
		ContractSymbol: sym,
		Strike:         strike,
		Bid:            1.5,
		Ask:            1.6,
		DTE:            35,
		ImpliedVol:     iv,
		Valid:          true,
	}
}

func TestRun_AbortsOnZeroSnapshots(t *testing.T) {
	reader := newFakeReader()
	sink := &fakeSink{}

	o := newTestOrchestrator(reader, sink, newFakeIVHistory())
	summary, err := o.Run(context.Background(), []string{"AAPL"}, scanDate)

	assert.ErrorIs(t, err, contracts.ErrScanAborted)
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 0, sink.writes, "an aborted scan must perform zero writes")
}

func TestRun_EnrichesCandidates(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "AAPL", 200,
		atmCall("AAPL_C205", 205, 0.32),
		atmCall("AAPL_C210", 210, 0),
	)
	sink := &fakeSink{}

	o := newTestOrchestrator(reader, sink, newFakeIVHistory())
	summary, err := o.Run(context.Background(), []string{"AAPL"}, scanDate)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 2, summary.Candidates)
	require.Len(t, sink.written, 2)

	byContract := map[string]contracts.ScanCandidate{}
	for _, c := range sink.written {
		byContract[c.Contract.ContractSymbol] = c
	}

	withIV := byContract["AAPL_C205"]
	assert.Equal(t, contracts.DeltaSourceExact, withIV.Greeks.DeltaSource)
	assert.Greater(t, withIV.Greeks.Delta, 0.0)
	assert.Less(t, withIV.Greeks.Delta, 1.0)
	assert.Equal(t, 200.0, withIV.SpotClose)

	withoutIV := byContract["AAPL_C210"]
	assert.Equal(t, contracts.DeltaSourceProxy, withoutIV.Greeks.DeltaSource)
}

func TestRun_FirstScanRanksBeforeRecording(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "AAPL", 200, atmCall("AAPL_C205", 205, 0.32))
	sink := &fakeSink{}
	history := newFakeIVHistory()

	o := newTestOrchestrator(reader, sink, history)
	_, err := o.Run(context.Background(), []string{"AAPL"}, scanDate)
	require.NoError(t, err)

	// No prior history: the rank is the neutral insufficient-history result,
	// today's own reading excluded.
	require.Len(t, sink.written, 1)
	rank := sink.written[0].IVRank
	assert.Equal(t, 50.0, rank.IVRank)
	assert.Equal(t, contracts.ConfidenceLow, rank.Confidence)
	assert.Equal(t, 0, rank.SampleCount)

	// The sample was still recorded for future scans.
	samples, err := history.Samples(context.Background(), "AAPL", scanDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 0.32, samples[0].RepresentativeIV)
}

func TestRun_RescanIgnoresOwnRecordedSample(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "AAPL", 200, atmCall("AAPL_C205", 205, 0.32))
	history := newFakeIVHistory()

	// A first attempt recorded today's sample, then the sink failed.
	o := newTestOrchestrator(reader, &fakeSink{fail: true}, history)
	_, err := o.Run(context.Background(), []string{"AAPL"}, scanDate)
	require.Error(t, err)

	// The retry ranks against history before the scan date only, so the
	// result matches a clean first run.
	sink := &fakeSink{}
	o = newTestOrchestrator(reader, sink, history)
	_, err = o.Run(context.Background(), []string{"AAPL"}, scanDate)
	require.NoError(t, err)

	require.Len(t, sink.written, 1)
	rank := sink.written[0].IVRank
	assert.Equal(t, 0, rank.SampleCount)
	assert.Equal(t, 50.0, rank.IVRank)
	assert.Equal(t, contracts.ConfidenceLow, rank.Confidence)

	// Still exactly one sample for the date.
	samples, err := history.Samples(context.Background(), "AAPL", scanDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, samples, 1)
}

func TestRun_MissingSymbolIsSkipped(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "AAPL", 200, atmCall("AAPL_C205", 205, 0.32))
	sink := &fakeSink{}

	o := newTestOrchestrator(reader, sink, newFakeIVHistory())
	summary, err := o.Run(context.Background(), []string{"AAPL", "DELISTED"}, scanDate)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Candidates)
}

func TestRun_OutputIsDeterministicallyOrdered(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "MSFT", 400, atmCall("MSFT_C410", 410, 0.25))
	seedSymbol(reader, "AAPL", 200, atmCall("AAPL_C210", 210, 0.30), atmCall("AAPL_C205", 205, 0.30))
	sink := &fakeSink{}

	o := newTestOrchestrator(reader, sink, newFakeIVHistory())
	_, err := o.Run(context.Background(), []string{"MSFT", "AAPL"}, scanDate)
	require.NoError(t, err)

	require.Len(t, sink.written, 3)
	assert.Equal(t, "AAPL_C205", sink.written[0].Contract.ContractSymbol)
	assert.Equal(t, "AAPL_C210", sink.written[1].Contract.ContractSymbol)
	assert.Equal(t, "MSFT_C410", sink.written[2].Contract.ContractSymbol)
}

func TestRun_SinkFailurePropagates(t *testing.T) {
	reader := newFakeReader()
	seedSymbol(reader, "AAPL", 200, atmCall("AAPL_C205", 205, 0.32))
	sink := &fakeSink{fail: true}

	o := newTestOrchestrator(reader, sink, newFakeIVHistory())
	_, err := o.Run(context.Background(), []string{"AAPL"}, scanDate)
	assert.Error(t, err)
}

func TestRepresentativeIV(t *testing.T) {
	calls := []contracts.OptionContract{
		{ContractSymbol: "FAR", Strike: 250, DTE: 30, ImpliedVol: 0.50},
		{ContractSymbol: "ATM", Strike: 201, DTE: 35, ImpliedVol: 0.30},
		{ContractSymbol: "NO_IV", Strike: 200, DTE: 30, ImpliedVol: 0},
	}

	assert.Equal(t, 0.30, representativeIV(calls, 200))
	assert.Equal(t, 0.0, representativeIV(nil, 200))
	assert.Equal(t, 0.0, representativeIV([]contracts.OptionContract{{ImpliedVol: 0}}, 200))
}

func TestRepresentativeIV_DTETiebreak(t *testing.T) {
	calls := []contracts.OptionContract{
		{ContractSymbol: "LEAP", Strike: 205, DTE: 400, ImpliedVol: 0.40},
		{ContractSymbol: "MONTHLY", Strike: 205, DTE: 32, ImpliedVol: 0.28},
	}

	assert.Equal(t, 0.28, representativeIV(calls, 200))
}
