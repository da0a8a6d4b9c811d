// Package jobs holds the scheduled pipeline jobs. Every job is idempotent:
// the scheduler's retry loop and the guard job both re-run them freely.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/eod"
	"github.com/hward/premia/internal/marketcal"
	"github.com/hward/premia/internal/universe"
	"github.com/hward/premia/pkg/logger"
)

// EODIngestionJob snapshots closes and chains for the whole universe,
// five minutes after the session lock.
type EODIngestionJob struct {
	ingestor *eod.Ingestor
	builder  *universe.Builder
	clock    *marketcal.Clock
	logger   *logger.Logger
}

// NewEODIngestionJob creates the daily ingestion job
func NewEODIngestionJob(ingestor *eod.Ingestor, builder *universe.Builder, clock *marketcal.Clock, log *logger.Logger) *EODIngestionJob {
	return &EODIngestionJob{
		ingestor: ingestor,
		builder:  builder,
		clock:    clock,
		logger:   log,
	}
}

// Name returns the job name
func (j *EODIngestionJob) Name() string {
	return "eod_ingestion"
}

// Schedule returns the cron schedule: 16:10 market time on weekdays.
func (j *EODIngestionJob) Schedule() string {
	return "0 10 16 * * MON-FRI"
}

// Run executes the ingestion for today's session. A missing universe is
// bootstrapped in place so a fresh deployment's first run still ingests.
func (j *EODIngestionJob) Run(ctx context.Context) error {
	date := sessionDate(j.clock.Location())

	if !j.clock.IsTradingDay(date) {
		j.logger.WithField("date", date.Format("2006-01-02")).
			Info("Not a trading day, skipping ingestion")
		return nil
	}

	version, err := j.builder.Latest(ctx)
	if errors.Is(err, contracts.ErrUniverseEmpty) {
		j.logger.Warn("No universe version found, building one")
		version, err = j.builder.Build(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap universe: %w", err)
		}
		if _, err := j.builder.Persist(ctx, version); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	report, err := j.ingestor.Run(ctx, version.Symbols, date)
	if err != nil {
		return err
	}

	// A run where nothing landed is a failure even though individual
	// symbol errors are tolerated.
	if report.Succeeded == 0 && report.AlreadyFinal == 0 {
		return fmt.Errorf("ingestion for %s: all %d symbols failed", date.Format("2006-01-02"), report.Failed)
	}

	return nil
}

// sessionDate maps the wall clock to the trading date key: midnight UTC of
// the current calendar day in the market timezone.
func sessionDate(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
