// Package main registers a site and loads its stock movement export.
//
//	seed -site <id> -slug <slug> [-name "Display"] [-opening 2023-04] [-movements movements.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gaushala/internal/config"
	"gaushala/internal/core/period"
	"gaushala/internal/core/site"
	"gaushala/internal/infrastructure/importer"
	"gaushala/internal/infrastructure/storage/postgres"
	"gaushala/internal/infrastructure/storage/postgres/register_repo"
	"gaushala/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	siteID := flag.String("site", "", "site id")
	slug := flag.String("slug", "", "site slug")
	name := flag.String("name", "", "site display name")
	opening := flag.String("opening", "", "first month with data, YYYY-MM")
	movementsPath := flag.String("movements", "", "stock movements CSV to load")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *siteID == "" || *slug == "" {
		log.Fatal("-site and -slug are required")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, cfg.Pool("gaushala-seed"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	s := &site.Site{
		ID:          *siteID,
		Slug:        *slug,
		DisplayName: *name,
		Status:      site.StatusActive,
	}
	if s.DisplayName == "" {
		s.DisplayName = s.Slug
	}
	if *opening != "" {
		m, err := period.Parse(*opening)
		if err != nil {
			log.Fatalw("invalid -opening", "error", err)
		}
		start := m.Start()
		s.OpeningDate = &start
	}

	created, err := site.NewPostgresRegistry(pool).Register(ctx, s)
	if err != nil {
		log.Fatalw("failed to register site", "error", err)
	}
	log.Infow("site ready", "site_id", s.ID, "created", created)

	if *movementsPath == "" {
		return
	}
	if err := loadMovements(ctx, postgres.NewTxManager(pool), s.ID, *movementsPath, log); err != nil {
		log.Fatalw("failed to load movements", "error", err)
	}
}

func loadMovements(ctx context.Context, txm *postgres.TxManager, siteID, path string, log *logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	movements, skipped, err := importer.ReadMovements(f, siteID)
	if err != nil {
		return err
	}
	for _, rowErr := range skipped {
		log.Warnw("skipped movement row", "line", rowErr.Line, "error", rowErr.Err)
	}

	repo := register_repo.NewStockRepo(txm)
	var copied int64
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		copied, err = repo.CopyMovements(ctx, movements)
		return err
	})
	if err != nil {
		return err
	}

	log.Infow("movements loaded", "site_id", siteID, "rows", copied, "skipped", len(skipped))
	return nil
}
