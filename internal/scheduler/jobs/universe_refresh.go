package jobs

import (
	"context"
	"fmt"

	"github.com/hward/premia/internal/universe"
	"github.com/hward/premia/pkg/logger"
)

// UniverseRefreshJob rebuilds the symbol universe weekly, outside market
// hours. Each refresh appends a new version; daily jobs always read the
// latest one.
type UniverseRefreshJob struct {
	builder *universe.Builder
	logger  *logger.Logger
}

// NewUniverseRefreshJob creates the weekly universe refresh job
func NewUniverseRefreshJob(builder *universe.Builder, log *logger.Logger) *UniverseRefreshJob {
	return &UniverseRefreshJob{
		builder: builder,
		logger:  log,
	}
}

// Name returns the job name
func (j *UniverseRefreshJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule: Sunday 18:00 market time.
func (j *UniverseRefreshJob) Schedule() string {
	return "0 0 18 * * SUN"
}

// Run rebuilds and persists a new universe version.
func (j *UniverseRefreshJob) Run(ctx context.Context) error {
	version, err := j.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	if _, err := j.builder.Persist(ctx, version); err != nil {
		return err
	}

	return nil
}
