package app_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"app_reviews/internal/app"
)

func TestReport_CountsAndRender(t *testing.T) {
	r := app.NewReport("run-1", "scrape")
	var wg sync.WaitGroup
	for _, u := range []app.UnitReport{
		{Unit: "whatsapp", Platform: "google_play", Outcome: app.OutcomeOK, Rows: 200, Tier: app.TierAPI, Elapsed: 1500 * time.Millisecond},
		{Unit: "whatsapp", Platform: "apple_store", Outcome: app.OutcomeFailed, Tier: "", Error: strings.Repeat("x", 80)},
		{Unit: "日本語.csv", Platform: "apple_store", Outcome: app.OutcomeSkipped},
	} {
		wg.Add(1)
		go func(u app.UnitReport) {
			defer wg.Done()
			r.Add(u)
		}(u)
	}
	wg.Wait()

	c := r.Counts()
	if c[app.OutcomeOK] != 1 || c[app.OutcomeFailed] != 1 || c[app.OutcomeSkipped] != 1 {
		t.Fatalf("counts: %v", c)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: %q", lines)
	}
	if !strings.HasPrefix(lines[0], "UNIT") {
		t.Fatalf("header: %q", lines[0])
	}
	// PLATFORM column starts at the same display offset on every row.
	col := strings.Index(lines[0], "PLATFORM")
	for _, ln := range lines[1:] {
		if strings.HasPrefix(ln, "日本語") {
			// three wide runes occupy six columns but nine bytes
			if strings.Index(ln, "apple_store") != col+3 {
				t.Fatalf("wide row misaligned: %q", ln)
			}
			continue
		}
		if !strings.Contains(ln[col:], "_") || ln[col-1] != ' ' {
			t.Fatalf("row misaligned: %q", ln)
		}
	}
	if strings.Contains(buf.String(), strings.Repeat("x", 61)) || !strings.Contains(buf.String(), "...") {
		t.Fatalf("long error not truncated: %s", buf.String())
	}
}
