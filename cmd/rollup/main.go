// Package main runs rollups once from the command line.
//
//	rollup -site <id> [-from 2024-01] [-item <item id>]
//	rollup -all
//	rollup -issue-token ops@example -roles admin [-sites a,b]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gaushala/internal/app"
	"gaushala/internal/config"
	appctx "gaushala/internal/core/context"
	"gaushala/internal/core/period"
	"gaushala/internal/domain/auth"
	"gaushala/internal/domain/rollup"
	"gaushala/pkg/logger"
)

type options struct {
	envFile    string
	siteID     string
	all        bool
	from       string
	item       string
	issueToken string
	roles      string
	sites      string
}

func main() {
	var opts options
	flag.StringVar(&opts.envFile, "env", ".env", "optional .env file")
	flag.StringVar(&opts.siteID, "site", "", "site to roll up")
	flag.BoolVar(&opts.all, "all", false, "roll up every active site")
	flag.StringVar(&opts.from, "from", "", "first month to recompute, YYYY-MM")
	flag.StringVar(&opts.item, "item", "", "restrict the inventory rollup to one item")
	flag.StringVar(&opts.issueToken, "issue-token", "", "print an ops API token for this subject and exit")
	flag.StringVar(&opts.roles, "roles", auth.RoleAdmin, "comma separated token roles")
	flag.StringVar(&opts.sites, "sites", "", "comma separated sites the token is limited to")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "rollup: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if opts.issueToken != "" {
		return issueToken(cfg, opts)
	}

	runOpts, err := opts.runOptions()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	a, err := app.New(ctx, cfg, log, "gaushala-rollup")
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.all {
		report, err := a.Orchestrator.RunAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(report)
	}

	report, runErr := a.Orchestrator.RunSite(ctx, opts.siteID, runOpts)
	if report.Status != "" {
		if err := printJSON(report); err != nil {
			return err
		}
	}
	return runErr
}

func (o options) runOptions() (rollup.RunOptions, error) {
	if o.all == (o.siteID != "") {
		return rollup.RunOptions{}, fmt.Errorf("exactly one of -site or -all is required")
	}
	if o.all && (o.from != "" || o.item != "") {
		return rollup.RunOptions{}, fmt.Errorf("-from and -item need -site")
	}

	runOpts := rollup.RunOptions{ItemFilter: o.item}
	if o.from != "" {
		from, err := period.Parse(o.from)
		if err != nil {
			return rollup.RunOptions{}, fmt.Errorf("-from: %w", err)
		}
		runOpts.From = &from
	}
	return runOpts, nil
}

func issueToken(cfg *config.Config, opts options) error {
	svc, err := auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	token, expiresAt, err := svc.GenerateAccessToken(opts.issueToken, splitList(opts.roles), splitList(opts.sites))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
