package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app_reviews/internal/adapters/httpclient"
)

const DefaultFeedBase = "https://itunes.apple.com"

var ErrNoEntries = errors.New("appstore: feed has no entries")

// Feed reads the public customer-reviews JSON feed, most recent first.
type Feed struct {
	base string
	hc   *httpclient.Client
}

func NewFeed(base string, hc *httpclient.Client) *Feed {
	if base == "" {
		base = DefaultFeedBase
	}
	return &Feed{base: base, hc: hc}
}

func (f *Feed) URL(country string, appID int64) string {
	return fmt.Sprintf("%s/%s/rss/customerreviews/id=%d/sortBy=mostRecent/json", f.base, country, appID)
}

// Entries returns feed.entry as raw values. A document without that path is
// ErrNoEntries; a single entry object is returned as a one-element slice.
func (f *Feed) Entries(ctx context.Context, country string, appID int64) ([]any, error) {
	body, err := f.hc.Get(ctx, f.URL(country, appID), nil)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	feed, ok := doc["feed"].(map[string]any)
	if !ok {
		return nil, ErrNoEntries
	}
	switch e := feed["entry"].(type) {
	case []any:
		if len(e) == 0 {
			return nil, ErrNoEntries
		}
		return e, nil
	case map[string]any:
		return []any{e}, nil
	default:
		return nil, ErrNoEntries
	}
}
