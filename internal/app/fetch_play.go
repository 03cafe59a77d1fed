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

const (
	TierAPI    = "api"
	TierClient = "client"
	TierFeed   = "feed"
)

var ErrNoReviews = errors.New("no reviews returned")

// FetchResult is one platform's acquired record set and how it was obtained.
type FetchResult struct {
	Platform domain.Platform
	Tier     string
	Frame    *dataset.Frame
	Elapsed  time.Duration
}

type PlayFetcher struct {
	client domain.PlayClient
	log    zerolog.Logger
}

func NewPlayFetcher(c domain.PlayClient, l zerolog.Logger) *PlayFetcher {
	return &PlayFetcher{client: c, log: l.With().Str("platform", string(domain.GooglePlay)).Logger()}
}

// Fetch retrieves up to count newest reviews for appID. Every failure,
// including an empty result, comes back as an error; nothing panics out.
func (f *PlayFetcher) Fetch(ctx context.Context, appID string, count int, lang, country string) (res FetchResult, err error) {
	l := f.log.With().Str("app_id", appID).Logger()
	defer recoverUnit(l, "google play fetch", &err)

	start := time.Now()
	res = FetchResult{Platform: domain.GooglePlay, Tier: TierAPI}
	l.Info().Int("count", count).Str("lang", lang).Str("country", country).Msg("google play fetch starting")

	fail := func(err error) (FetchResult, error) {
		res.Elapsed = time.Since(start)
		observability.ObserveFetch(string(domain.GooglePlay), TierAPI, "failed")
		l.Error().Err(err).Dur("elapsed", res.Elapsed).Msg("google play fetch failed")
		return res, fmt.Errorf("google play reviews for %s: %w", appID, err)
	}

	recs, err := f.client.Reviews(ctx, appID, lang, country, count)
	if err != nil {
		return fail(err)
	}
	if len(recs) == 0 {
		return fail(ErrNoReviews)
	}

	raw := dataset.FromRecords(recs)
	frame, err := raw.Project(PlayColumns)
	if err != nil {
		l.Error().Strs("available", raw.Columns).Msg("no expected columns in google play result")
		return fail(err)
	}

	res.Frame = frame
	res.Elapsed = time.Since(start)
	observability.ObserveFetch(string(domain.GooglePlay), TierAPI, "ok")
	l.Info().
		Str("tier", TierAPI).
		Int("reviews", frame.Len()).
		Dur("elapsed", res.Elapsed).
		Msg("google play fetch completed")
	return res, nil
}
