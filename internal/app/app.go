// Package app wires configuration, storage and the rollup engine for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gaushala/internal/config"
	corelock "gaushala/internal/core/lock"
	"gaushala/internal/core/site"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/http/v1/handlers"
	"gaushala/internal/infrastructure/lock"
	"gaushala/internal/infrastructure/storage/postgres"
	"gaushala/internal/infrastructure/storage/postgres/catalog_repo"
	"gaushala/internal/infrastructure/storage/postgres/register_repo"
	"gaushala/internal/infrastructure/storage/postgres/rollup_repo"
	"gaushala/pkg/logger"
)

// App holds the process-wide dependencies.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Pool  *postgres.Pool
	TxM   *postgres.TxManager
	Redis redis.UniversalClient

	Sites     *site.PostgresRegistry
	Movements *register_repo.StockRepo
	Inventory *rollup_repo.InventoryRepo
	Sales     *rollup_repo.SalesRepo
	Summary   *rollup_repo.SummaryRepo
	Journal   *postgres.RunJournal

	Orchestrator *rollup.Orchestrator
}

// New connects to the database (and Redis when configured) and builds the engine.
// name is reported as the Postgres application_name.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, name string) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.Pool(name))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    log,
		Pool:   pool,
		TxM:    postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout),
	}

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rule, err := rollup.NewExpenseRule(cfg.Rollup.ExpenseRule)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("compile expense rule: %w", err)
	}

	journal, err := postgres.NewRunJournal(a.TxM, cfg.Rollup.JournalCompressAt)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create run journal: %w", err)
	}

	a.Sites = site.NewPostgresRegistry(pool)
	a.Movements = register_repo.NewStockRepo(a.TxM)
	a.Inventory = rollup_repo.NewInventoryRepo(a.TxM)
	a.Sales = rollup_repo.NewSalesRepo(a.TxM)
	a.Summary = rollup_repo.NewSummaryRepo(a.TxM)
	a.Journal = journal

	engine := cfg.RollupEngine()
	a.Orchestrator = rollup.NewOrchestrator(
		a.Sites,
		a.Movements,
		a.Summary,
		locker,
		a.Journal,
		rollup.NewInventoryRollup(a.TxM, catalog_repo.NewItemRepo(a.TxM), a.Movements, a.Inventory, engine),
		rollup.NewSalesRollup(a.TxM, register_repo.NewSalesRepo(a.TxM), a.Sales, engine),
		rollup.NewSummaryRollup(a.TxM, a.Inventory, a.Sales, register_repo.NewLivestockRepo(a.TxM), a.Summary, rule, engine),
		cfg.Orchestrator(),
	)

	return a, nil
}

// newLocker picks Redis when an address is configured, otherwise an in-process lock
// that only excludes runs of this process.
func (a *App) newLocker(ctx context.Context) (corelock.Locker, error) {
	if a.Config.Redis.Addr == "" {
		a.Log.Warnw("redis not configured, using in-process site locks")
		return lock.NewLocalLocker(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.Redis = rdb
	return lock.NewRedisLocker(rdb), nil
}

// Probes returns readiness checks for the configured dependencies.
func (a *App) Probes() map[string]handlers.Probe {
	probes := map[string]handlers.Probe{"database": a.Pool.Health}
	if a.Redis != nil {
		probes["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return probes
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warnw("close redis", "error", err)
		}
	}
	a.Pool.Close()
}
