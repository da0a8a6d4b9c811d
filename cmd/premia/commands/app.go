package commands

import (
	"fmt"

	"github.com/hward/premia/internal/eod"
	"github.com/hward/premia/internal/greeks"
	"github.com/hward/premia/internal/ivrank"
	"github.com/hward/premia/internal/marketcal"
	"github.com/hward/premia/internal/provider"
	"github.com/hward/premia/internal/quotes"
	"github.com/hward/premia/internal/scan"
	"github.com/hward/premia/internal/scheduler"
	"github.com/hward/premia/internal/scheduler/jobs"
	"github.com/hward/premia/internal/universe"
	"github.com/hward/premia/pkg/config"
	"github.com/hward/premia/pkg/database"
	"github.com/hward/premia/pkg/httputil"
	"github.com/hward/premia/pkg/logger"
	"github.com/hward/premia/pkg/redis"
)

// app holds the wired dependency graph. Every command builds exactly one
// and closes it when done.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	clock      *marketcal.Clock
	contract   *eod.Contract
	ingestor   *eod.Ingestor
	quoteCache *quotes.Cache
	builder    *universe.Builder
	ivEngine   *ivrank.Engine
	scanner    *scan.Orchestrator
	scheduler  *scheduler.Scheduler
}

// initApp wires the full dependency graph. Construction order follows the
// data flow: infrastructure, clock, provider, stores, engines, jobs.
func initApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	calendar := marketcal.NewUSCalendar()
	clock, err := marketcal.NewClock(cfg, calendar, log)
	if err != nil {
		return nil, fmt.Errorf("create session clock: %w", err)
	}

	httpClient := httputil.NewWithTimeout(log, cfg.Provider.Timeout)
	if redisClient.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(redisClient, "premia"), redis.ProviderRateLimit)
	} else {
		httpClient.WithLocalRateLimit(cfg.Provider.RateLimit)
	}

	feed := provider.NewClient(cfg.Provider, httpClient, clock, log)

	eodRepo := eod.NewRepository(db.Pool)
	contract := eod.NewContract(eodRepo, clock, cfg.Provider.BaseURL, log)

	var quoteRedis *redis.Cache
	if redisClient.Enabled() {
		quoteRedis = redis.NewCache(redisClient, "quotes")
	}
	quoteCache := quotes.NewCache(quotes.NewRepository(db.Pool), clock, quoteRedis, log)

	ingestor := eod.NewIngestor(contract, feed, clock, quoteCache, eod.IngestorConfig{
		Workers:       cfg.Provider.FetchWorkers,
		SymbolTimeout: cfg.Provider.Timeout * 2,
	}, log)

	universeRepo := universe.NewRepository(db.Pool)
	builder := universe.NewBuilder(universe.NewLiquidityRepository(db.Pool), universeRepo, cfg.Universe, log)

	ivEngine := ivrank.NewEngine(ivrank.NewRepository(db.Pool), log)
	greeksEngine := greeks.NewEngine(cfg.RiskFreeRate)

	scanner := scan.NewOrchestrator(contract, greeksEngine, ivEngine, scan.NewRepository(db.Pool), scan.Config{
		Concurrency: cfg.Provider.FetchWorkers,
	}, log)

	sched := scheduler.New(clock.Location(), log)
	schedJobs := []scheduler.Job{
		jobs.NewEODIngestionJob(ingestor, builder, clock, log),
		jobs.NewIngestionGuardJob(contract, ingestor, universeRepo, clock, log),
		jobs.NewEODScanJob(scanner, universeRepo, clock, log),
		jobs.NewUniverseRefreshJob(builder, log),
		jobs.NewMaintenanceJob(quoteCache, ivEngine, log),
	}
	for _, job := range schedJobs {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register job: %w", err)
		}
	}

	return &app{
		cfg:        cfg,
		logger:     log,
		db:         db,
		redis:      redisClient,
		clock:      clock,
		contract:   contract,
		ingestor:   ingestor,
		quoteCache: quoteCache,
		builder:    builder,
		ivEngine:   ivEngine,
		scanner:    scanner,
		scheduler:  sched,
	}, nil
}

// Close releases infrastructure connections.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
