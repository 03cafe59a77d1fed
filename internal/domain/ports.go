package domain

import "context"

// PlayClient lists Google Play reviews newest-first. Each record carries the
// store's native field names (reviewId, userName, content, score, at, ...).
type PlayClient interface {
	Reviews(ctx context.Context, appID, lang, country string, count int) ([]map[string]any, error)
}

// AppStoreClient is the structured App Store review client.
type AppStoreClient interface {
	Reviews(ctx context.Context, country, appName string, appID int64, count int) ([]map[string]any, error)
}

// ReviewFeed returns the raw entries of the public customer-reviews feed.
// Entries are left undecoded; callers decide how tolerant to be.
type ReviewFeed interface {
	Entries(ctx context.Context, country string, appID int64) ([]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// CleanedRepository receives cleaned rows after the CSV has been written.
type CleanedRepository interface {
	UpsertCleaned(ctx context.Context, rs []CleanedReview) error
}
