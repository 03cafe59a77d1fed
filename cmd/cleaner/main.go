package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	server "app_reviews/internal/adapters/http_server"
	"app_reviews/internal/adapters/observability"
	"app_reviews/internal/app"
	"app_reviews/internal/domain"
	"app_reviews/internal/shared"
	mysqlrepo "app_reviews/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logFile, err := observability.OpenLogFile(cfg.LogDir, "cleaner.log")
	if err != nil {
		log.Warn().Err(err).Msg("log file unavailable, logging to stdout only")
	}
	if logFile != nil {
		defer logFile.Close()
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, logFile)
	} else {
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, nil)
	}

	runID := uuid.NewString()
	l := log.With().Str("run_id", runID).Logger()
	l.Info().
		Str("raw_dir", cfg.RawDir).
		Str("processed_dir", cfg.ProcessedDir).
		Int("workers", cfg.CleanWorkers).
		Msg("cleaner starting")
	start := time.Now()

	report := app.NewReport(runID, "clean")
	if cfg.MetricsAddr != "" {
		srv := server.New(l)
		reg := observability.InitRegistry()
		srv.Mount("/metrics", observability.MetricsHandler(reg))
		srv.MountHandlers(&server.Handlers{Report: report})
		srv.Serve(cfg.MetricsAddr, l)
	}

	var sink domain.CleanedRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			l.Warn().Err(err).Msg("sql.Open failed, cleaned rows go to csv only")
		} else if err := db.PingContext(ctx); err != nil {
			l.Warn().Err(err).Msg("db.Ping failed, cleaned rows go to csv only")
			db.Close()
		} else {
			defer db.Close()
			sink = mysqlrepo.New(db)
			l.Info().Msg("db ping ok")
		}
	}
	cleaner := app.NewCleaner(l, sink)

	inputs, err := app.ResolveInputs(cfg.RawDir, l)
	if err != nil {
		l.Warn().Err(err).Msg("input discovery incomplete")
	}

	sem := semaphore.NewWeighted(int64(cfg.CleanWorkers))
	var wg sync.WaitGroup
	for _, p := range domain.Platforms {
		in := inputs[p]
		if !in.Found {
			report.Add(app.UnitReport{Unit: app.GenericNames[p], Platform: string(p), Outcome: app.OutcomeSkipped, Error: "input not found"})
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			l.Error().Err(err).Msg("semaphore acquire failed")
			break
		}
		wg.Add(1)
		go func(p domain.Platform, in app.Resolution) {
			defer wg.Done()
			defer sem.Release(1)

			stem := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
			out := filepath.Join(cfg.ProcessedDir, stem+"_clean.csv")
			rep, err := cleaner.Clean(ctx, in.Path, out)
			u := app.UnitReport{
				Unit:     filepath.Base(in.Path),
				Platform: string(p),
				Outcome:  rep.Outcome,
				Rows:     rep.Written,
				Elapsed:  rep.Elapsed,
			}
			if err != nil {
				u.Error = err.Error()
			}
			report.Add(u)
		}(p, in)
	}
	wg.Wait()

	if err := report.Render(os.Stdout); err != nil {
		l.Warn().Err(err).Msg("report render failed")
	}
	c := report.Counts()
	l.Info().
		Int("ok", c[app.OutcomeOK]).
		Int("skipped", c[app.OutcomeSkipped]).
		Int("failed", c[app.OutcomeFailed]).
		Dur("elapsed", time.Since(start)).
		Msg("cleaning completed")
}
