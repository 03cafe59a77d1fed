package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"app_reviews/internal/adapters/appstore"
	server "app_reviews/internal/adapters/http_server"
	"app_reviews/internal/adapters/httpclient"
	"app_reviews/internal/adapters/observability"
	"app_reviews/internal/adapters/playstore"
	redisad "app_reviews/internal/adapters/redis"
	"app_reviews/internal/app"
	"app_reviews/internal/dataset"
	"app_reviews/internal/domain"
	"app_reviews/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logFile, err := observability.OpenLogFile(cfg.LogDir, "scraper.log")
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

	apps, err := shared.LoadApps(cfg.AppsFile)
	if err != nil {
		l.Fatal().Err(err).Msg("apps file load failed")
	}

	l.Info().
		Int("apps", len(apps)).
		Int("reviews", cfg.ReviewCount).
		Str("country", cfg.Country).
		Str("raw_dir", cfg.RawDir).
		Msg("scraper starting")
	start := time.Now()

	report := app.NewReport(runID, "scrape")
	if cfg.MetricsAddr != "" {
		srv := server.New(l)
		reg := observability.InitRegistry()
		srv.Mount("/metrics", observability.MetricsHandler(reg))
		srv.MountHandlers(&server.Handlers{Report: report})
		srv.Serve(cfg.MetricsAddr, l)
	}

	var cacheOpts []httpclient.Option
	if cfg.RedisAddr != "" {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			l.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, upstream cache disabled")
		} else {
			cacheOpts = append(cacheOpts, httpclient.WithCache(cache, cfg.CacheTTL))
			l.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("upstream cache enabled")
		}
	}

	upstreamOpts := append([]httpclient.Option{httpclient.WithAttempts(cfg.UpstreamAttempts)}, cacheOpts...)
	play := app.NewPlayFetcher(
		playstore.New("", httpclient.New("google_play", cfg.UpstreamTimeout, cfg.UpstreamRPS, upstreamOpts...)),
		l,
	)
	apple := app.NewAppStoreFetcher(
		appstore.New("", "", httpclient.New("app_store", cfg.UpstreamTimeout, cfg.UpstreamRPS, upstreamOpts...)),
		appstore.NewFeed("", httpclient.New("app_store_feed", cfg.FeedTimeout, cfg.UpstreamRPS, httpclient.WithAttempts(1))),
		l,
	)

	if err := os.MkdirAll(cfg.RawDir, 0o755); err != nil {
		l.Error().Err(err).Str("dir", cfg.RawDir).Msg("raw dir not writable")
	}

	for _, a := range apps {
		if a.GoogleID != "" {
			res, err := play.Fetch(ctx, a.GoogleID, cfg.ReviewCount, cfg.Lang, cfg.Country)
			report.Add(save(l, cfg.RawDir, a, res, err))
		}
		if a.AppleID != 0 {
			res, err := apple.Fetch(ctx, a.AppleName, a.AppleID, cfg.Country, cfg.ReviewCount)
			report.Add(save(l, cfg.RawDir, a, res, err))
		}
	}

	if err := report.Render(os.Stdout); err != nil {
		l.Warn().Err(err).Msg("report render failed")
	}
	c := report.Counts()
	l.Info().
		Int("ok", c[app.OutcomeOK]).
		Int("failed", c[app.OutcomeFailed]).
		Dur("elapsed", time.Since(start)).
		Msg("scraper completed")
}

// save writes one platform's reviews to the raw directory and returns the
// unit's report line. Fetch failures are reported, not fatal.
func save(l zerolog.Logger, dir string, a shared.App, res app.FetchResult, err error) app.UnitReport {
	u := app.UnitReport{
		Unit:     a.Name,
		Platform: string(res.Platform),
		Tier:     res.Tier,
		Elapsed:  res.Elapsed,
		Outcome:  app.OutcomeFailed,
	}
	if err != nil {
		u.Error = err.Error()
		return u
	}

	path := filepath.Join(dir, a.RawFile(domain.Platform(u.Platform)))
	if err := dataset.WriteCSV(path, res.Frame); err != nil {
		l.Error().Err(err).Str("path", path).Msg("writing raw reviews failed")
		u.Error = err.Error()
		return u
	}
	l.Info().Str("path", path).Int("rows", res.Frame.Len()).Str("platform", u.Platform).Msg("raw reviews saved")
	u.Outcome = app.OutcomeOK
	u.Rows = res.Frame.Len()
	return u
}
