package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"app_reviews/internal/adapters/observability"
	"app_reviews/internal/dataset"
	"app_reviews/internal/domain"
)

// AppStoreRequest identifies the app and how many reviews to acquire.
type AppStoreRequest struct {
	AppName string
	AppID   int64
	Country string
	Count   int
}

// tier is one acquisition strategy. A tier fails with an error (including
// ErrNoReviews for an empty result); the next tier only runs after that.
type tier struct {
	name    string
	acquire func(ctx context.Context, req AppStoreRequest) (*dataset.Frame, error)
}

// AppStoreFetcher acquires App Store reviews through an ordered tier chain:
// the structured client first, the public feed when the client fails.
type AppStoreFetcher struct {
	client domain.AppStoreClient
	feed   domain.ReviewFeed
	log    zerolog.Logger
}

func NewAppStoreFetcher(c domain.AppStoreClient, feed domain.ReviewFeed, l zerolog.Logger) *AppStoreFetcher {
	return &AppStoreFetcher{client: c, feed: feed, log: l.With().Str("platform", string(domain.AppStore)).Logger()}
}

func (f *AppStoreFetcher) tiers() []tier {
	return []tier{
		{name: TierClient, acquire: f.fromClient},
		{name: TierFeed, acquire: f.fromFeed},
	}
}

func (f *AppStoreFetcher) Fetch(ctx context.Context, appName string, appID int64, country string, count int) (res FetchResult, err error) {
	l := f.log.With().Str("app_name", appName).Int64("app_id", appID).Logger()
	defer recoverUnit(l, "app store fetch", &err)

	start := time.Now()
	req := AppStoreRequest{AppName: appName, AppID: appID, Country: country, Count: count}
	res = FetchResult{Platform: domain.AppStore}
	l.Info().Int("count", count).Str("country", country).Msg("app store fetch starting")

	var errs []error
	for _, t := range f.tiers() {
		raw, terr := runTier(ctx, t, req)
		if terr != nil {
			observability.ObserveFetch(string(domain.AppStore), t.name, "failed")
			l.Warn().Str("tier", t.name).Err(terr).Msg("app store tier failed")
			errs = append(errs, fmt.Errorf("%s tier: %w", t.name, terr))
			continue
		}
		l.Info().Str("tier", t.name).Int("raw_reviews", raw.Len()).Strs("columns", raw.Columns).Msg("app store tier returned reviews")

		res.Tier = t.name
		frame, perr := raw.Project(AppStoreColumns)
		if perr != nil {
			res.Elapsed = time.Since(start)
			observability.ObserveFetch(string(domain.AppStore), t.name, "failed")
			l.Error().Str("tier", t.name).Strs("available", raw.Columns).Msg("no expected columns in app store result")
			return res, fmt.Errorf("app store reviews for %s: %w", appName, perr)
		}

		res.Frame = frame
		res.Elapsed = time.Since(start)
		observability.ObserveFetch(string(domain.AppStore), t.name, "ok")
		l.Info().
			Str("tier", t.name).
			Int("reviews", frame.Len()).
			Dur("elapsed", res.Elapsed).
			Msg("app store fetch completed")
		return res, nil
	}

	res.Elapsed = time.Since(start)
	l.Error().Dur("elapsed", res.Elapsed).Msg("app store fetch failed on every tier")
	return res, fmt.Errorf("app store reviews for %s: %w", appName, errors.Join(errs...))
}

// runTier shields the chain from a panicking tier so the next one still runs.
func runTier(ctx context.Context, t tier, req AppStoreRequest) (frame *dataset.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, err = nil, fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
	}()
	return t.acquire(ctx, req)
}

func (f *AppStoreFetcher) fromClient(ctx context.Context, req AppStoreRequest) (*dataset.Frame, error) {
	recs, err := f.client.Reviews(ctx, req.Country, req.AppName, req.AppID, req.Count)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoReviews
	}
	return dataset.FromRecords(recs), nil
}

func (f *AppStoreFetcher) fromFeed(ctx context.Context, req AppStoreRequest) (*dataset.Frame, error) {
	entries, err := f.feed.Entries(ctx, req.Country, req.AppID)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Count {
		entries = entries[:req.Count]
	}

	recs := make([]map[string]any, 0, len(entries))
	for i, e := range entries {
		rec, err := extractFeedEntry(e, len(recs))
		if err != nil {
			f.log.Debug().Int("entry", i).Err(err).Msg("skipping feed entry")
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, ErrNoReviews
	}
	return dataset.FromRecords(recs), nil
}
