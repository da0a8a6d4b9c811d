package jobs

import (
	"context"
	"fmt"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/eod"
	"github.com/hward/premia/internal/marketcal"
	"github.com/hward/premia/pkg/logger"
)

// coverageThreshold is the fraction of the universe that must have a
// finalized snapshot before the scan window opens.
const coverageThreshold = 0.90

// IngestionGuardJob verifies snapshot coverage between the ingestion and
// scan slots and re-triggers ingestion once when coverage is short. The
// re-run is safe: finalized symbols no-op as ALREADY_FINAL.
type IngestionGuardJob struct {
	reader   contracts.EODReader
	ingestor *eod.Ingestor
	universe contracts.UniverseStore
	clock    *marketcal.Clock
	logger   *logger.Logger
}

// NewIngestionGuardJob creates the coverage guard job
func NewIngestionGuardJob(reader contracts.EODReader, ingestor *eod.Ingestor, universe contracts.UniverseStore, clock *marketcal.Clock, log *logger.Logger) *IngestionGuardJob {
	return &IngestionGuardJob{
		reader:   reader,
		ingestor: ingestor,
		universe: universe,
		clock:    clock,
		logger:   log,
	}
}

// Name returns the job name
func (j *IngestionGuardJob) Name() string {
	return "ingestion_guard"
}

// Schedule returns the cron schedule: 16:25 market time on weekdays,
// between the ingestion and scan slots.
func (j *IngestionGuardJob) Schedule() string {
	return "0 25 16 * * MON-FRI"
}

// Run checks coverage and re-runs ingestion for the gap if needed.
func (j *IngestionGuardJob) Run(ctx context.Context) error {
	date := sessionDate(j.clock.Location())

	if !j.clock.IsTradingDay(date) {
		return nil
	}

	version, err := j.universe.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	count, err := j.reader.SnapshotCount(ctx, date)
	if err != nil {
		return fmt.Errorf("snapshot count: %w", err)
	}

	expected := len(version.Symbols)
	if expected == 0 {
		return contracts.ErrUniverseEmpty
	}

	coverage := float64(count) / float64(expected)
	if coverage >= coverageThreshold {
		j.logger.WithFields(map[string]interface{}{
			"date":     date.Format("2006-01-02"),
			"coverage": coverage,
		}).Info("Snapshot coverage sufficient")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"snapshots": count,
		"expected":  expected,
	}).Warn("Snapshot coverage short, re-triggering ingestion")

	report, err := j.ingestor.Run(ctx, version.Symbols, date)
	if err != nil {
		return err
	}

	recount, err := j.reader.SnapshotCount(ctx, date)
	if err != nil {
		return fmt.Errorf("snapshot recount: %w", err)
	}
	if recount == 0 {
		return fmt.Errorf("ingestion re-run for %s left zero snapshots (%d failed)", date.Format("2006-01-02"), report.Failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"snapshots": recount,
		"recovered": recount - count,
	}).Info("Ingestion re-run completed")

	return nil
}
