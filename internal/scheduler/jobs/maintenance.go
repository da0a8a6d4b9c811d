package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hward/premia/internal/ivrank"
	"github.com/hward/premia/internal/quotes"
	"github.com/hward/premia/pkg/logger"
)

// quoteMaxAge is how long a cached after-hours quote stays useful. Three
// days covers a weekend plus one holiday.
const quoteMaxAge = 72 * time.Hour

// MaintenanceJob prunes the quote cache and trims IV history past its
// retention window. Storage hygiene only; no market semantics.
type MaintenanceJob struct {
	quoteCache *quotes.Cache
	ivEngine   *ivrank.Engine
	logger     *logger.Logger
}

// NewMaintenanceJob creates the nightly maintenance job
func NewMaintenanceJob(quoteCache *quotes.Cache, ivEngine *ivrank.Engine, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		quoteCache: quoteCache,
		ivEngine:   ivEngine,
		logger:     log,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule returns the cron schedule: 03:00 market time daily.
func (j *MaintenanceJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the maintenance pass.
func (j *MaintenanceJob) Run(ctx context.Context) error {
	prunedQuotes, err := j.quoteCache.Prune(ctx, quoteMaxAge)
	if err != nil {
		return fmt.Errorf("prune quote cache: %w", err)
	}

	trimmedIV, err := j.ivEngine.TrimHistory(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("trim iv history: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"pruned_quotes": prunedQuotes,
		"trimmed_iv":    trimmedIV,
	}).Info("Maintenance completed")

	return nil
}
