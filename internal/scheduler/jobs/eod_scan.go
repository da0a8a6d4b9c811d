package jobs

import (
	"context"
	"fmt"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/marketcal"
	"github.com/hward/premia/internal/scan"
	"github.com/hward/premia/pkg/logger"
)

// EODScanJob runs the analytics scan over finalized snapshots, after the
// ingestion and guard slots.
type EODScanJob struct {
	orchestrator *scan.Orchestrator
	universe     contracts.UniverseStore
	clock        *marketcal.Clock
	logger       *logger.Logger
}

// NewEODScanJob creates the daily scan job
func NewEODScanJob(orchestrator *scan.Orchestrator, universe contracts.UniverseStore, clock *marketcal.Clock, log *logger.Logger) *EODScanJob {
	return &EODScanJob{
		orchestrator: orchestrator,
		universe:     universe,
		clock:        clock,
		logger:       log,
	}
}

// Name returns the job name
func (j *EODScanJob) Name() string {
	return "eod_scan"
}

// Schedule returns the cron schedule: 16:40 market time on weekdays.
func (j *EODScanJob) Schedule() string {
	return "0 40 16 * * MON-FRI"
}

// Run executes the scan for today's session. A scan abort propagates as an
// error so the failure is loud in the job history.
func (j *EODScanJob) Run(ctx context.Context) error {
	date := sessionDate(j.clock.Location())

	if !j.clock.IsTradingDay(date) {
		j.logger.WithField("date", date.Format("2006-01-02")).
			Info("Not a trading day, skipping scan")
		return nil
	}

	version, err := j.universe.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	_, err = j.orchestrator.Run(ctx, version.Symbols, date)
	return err
}
