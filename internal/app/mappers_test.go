package app

import (
	"encoding/json"
	"testing"
	"time"

	"app_reviews/internal/dataset"
)

func decodeEntry(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestExtractFeedEntry_Full(t *testing.T) {
	e := decodeEntry(t, `{
		"id": {"label": "9001"},
		"author": {"name": {"label": "ann"}, "uri": {"label": "x"}},
		"content": {"label": "Love it", "attributes": {"type": "text"}},
		"im:rating": {"label": "5"},
		"updated": {"label": "2024-05-01T10:00:00-07:00"},
		"link": {"attributes": {"rel": "related", "href": "https://apps.apple.com/r/9001"}}
	}`)
	rec, err := extractFeedEntry(e, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[string]any{
		"id": "9001", "userName": "ann", "review": "Love it", "rating": 5,
		"date": "2024-05-01T10:00:00-07:00", "link": "https://apps.apple.com/r/9001",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s: got %v want %v", k, rec[k], v)
		}
	}
}

func TestExtractFeedEntry_Defaults(t *testing.T) {
	rec, err := extractFeedEntry(decodeEntry(t, `{"content": {"label": "ok"}}`), 7)
	if err != nil {
		t.Fatalf("missing fields must not fail extraction: %v", err)
	}
	if rec["rating"] != 3 {
		t.Fatalf("rating default: %v", rec["rating"])
	}
	if rec["id"] != "apple_7" {
		t.Fatalf("synthetic id: %v", rec["id"])
	}
	if rec["userName"] != "Unknown" || rec["date"] != "" || rec["link"] != "" {
		t.Fatalf("string defaults: %+v", rec)
	}
}

func TestExtractFeedEntry_LinkArray(t *testing.T) {
	rec, err := extractFeedEntry(decodeEntry(t, `{
		"content": {"label": "x"},
		"link": [{"rel": "self"}, {"attributes": {"href": "https://first"}}, {"attributes": {"href": "https://second"}}]
	}`), 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec["link"] != "https://first" {
		t.Fatalf("link: %v", rec["link"])
	}
}

func TestExtractFeedEntry_Failures(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"unconvertible rating", `{"im:rating": {"label": "five"}}`},
		{"rating out of range", `{"im:rating": {"label": "9"}}`},
		{"author is a string", `{"author": "ann"}`},
		{"label is an object", `{"content": {"label": {"nested": true}}}`},
		{"entry is not an object", `"just text"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := extractFeedEntry(decodeEntry(t, tc.entry), 0); err == nil {
				t.Fatalf("expected extraction error")
			}
		})
	}
}

func TestMapCleaned(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f := dataset.New("reviewId", "userName", "content", "score", "at", "clean_review", "source")
	f.Rows = []dataset.Row{
		{"reviewId": "g1", "userName": "ann", "content": "Nice!", "score": "4", "at": at, "clean_review": "nice", "source": "google_play"},
		{"reviewId": nil, "userName": nil, "content": "Bad", "score": nil, "at": at, "clean_review": "bad", "source": "google_play"},
	}
	out := mapCleaned(f, Schema{Text: "content", Date: "at"})
	if len(out) != 2 {
		t.Fatalf("rows: %d", len(out))
	}
	first := out[0]
	if first.SourceID != "g1" || first.Author == nil || *first.Author != "ann" || first.Rating == nil || *first.Rating != 4 {
		t.Fatalf("unexpected first: %+v", first)
	}
	if first.ReviewedAt == nil || !first.ReviewedAt.Equal(at) || first.CleanText != "nice" || first.Text != "Nice!" {
		t.Fatalf("unexpected first: %+v", first)
	}
	if out[1].SourceID == "" || out[1].SourceID == out[0].SourceID || out[1].Author != nil {
		t.Fatalf("expected synthesized id and nil author: %+v", out[1])
	}
	var raw map[string]string
	if err := json.Unmarshal(first.RawJSON, &raw); err != nil || raw["at"] != "2024-05-01T00:00:00Z" {
		t.Fatalf("raw json: %s (%v)", first.RawJSON, err)
	}
}
