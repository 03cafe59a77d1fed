package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"app_reviews/internal/app"
	"app_reviews/internal/dataset"
	"app_reviews/internal/domain"
)

type fakeSink struct {
	got []domain.CleanedReview
	err error
}

func (s *fakeSink) UpsertCleaned(ctx context.Context, rs []domain.CleanedReview) error {
	s.got = append(s.got, rs...)
	return s.err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClean_DedupeAndDropEmpty(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "whatsapp_google_play_reviews.csv")
	out := filepath.Join(dir, "processed", "whatsapp_google_play_reviews_clean.csv")
	writeFile(t, in, "reviewId,content\nr1,Good\nr2,Good\nr3,\nr4,😊!!\n")

	l, buf := bufLogger()
	rep, err := app.NewCleaner(l, nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Outcome != app.OutcomeOK || rep.Loaded != 4 || rep.Written != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	f, err := dataset.ReadCSV(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(f.Columns, ",") != "reviewId,content,clean_review,source" {
		t.Fatalf("columns: %v", f.Columns)
	}
	if f.Len() != 1 || f.Rows[0]["reviewId"] != "r1" || f.Rows[0]["clean_review"] != "good" {
		t.Fatalf("rows: %+v", f.Rows)
	}
	if f.Rows[0]["source"] != "google_play" {
		t.Fatalf("source: %v", f.Rows[0]["source"])
	}

	logs := buf.String()
	for _, st := range []string{"dedupe", "normalize", "drop_empty", "dates", "source"} {
		if !strings.Contains(logs, `"stage":"`+st+`"`) {
			t.Fatalf("stage %s not logged: %s", st, logs)
		}
	}
}

func TestClean_MissingInputIsSkipped(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	l, _ := bufLogger()
	rep, err := app.NewCleaner(l, nil).Clean(context.Background(), filepath.Join(dir, "nope.csv"), out)
	if err != nil {
		t.Fatalf("missing input must not error: %v", err)
	}
	if rep.Outcome != app.OutcomeSkipped {
		t.Fatalf("outcome: %s", rep.Outcome)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no output expected, stat err=%v", err)
	}
}

func TestClean_NoTextColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "apple.csv")
	out := filepath.Join(dir, "out.csv")
	writeFile(t, in, "id,rating\n1,5\n")
	l, _ := bufLogger()
	rep, err := app.NewCleaner(l, nil).Clean(context.Background(), in, out)
	if !errors.Is(err, app.ErrNoTextColumn) {
		t.Fatalf("want ErrNoTextColumn, got %v", err)
	}
	if rep.Outcome != app.OutcomeFailed {
		t.Fatalf("outcome: %s", rep.Outcome)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no output expected")
	}
}

func TestClean_DatesCoercedAndUnparseableDropped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "whatsapp_apple_store_reviews.csv")
	out := filepath.Join(dir, "out.csv")
	writeFile(t, in, strings.Join([]string{
		"id,review,date",
		"1,Fast and simple,2024-05-01T10:00:00-07:00",
		"2,Crashes a lot,not a date",
		"3,Love the calls,2024-05-02",
		"4,No date at all,",
	}, "\n")+"\n")

	l, _ := bufLogger()
	rep, err := app.NewCleaner(l, nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Written != 2 {
		t.Fatalf("written: %d", rep.Written)
	}
	f, err := dataset.ReadCSV(out)
	if err != nil {
		t.Fatal(err)
	}
	if f.Rows[0]["date"] != "2024-05-01T17:00:00Z" || f.Rows[1]["date"] != "2024-05-02T00:00:00Z" {
		t.Fatalf("dates: %v / %v", f.Rows[0]["date"], f.Rows[1]["date"])
	}
	if f.Rows[0]["source"] != "apple_store" {
		t.Fatalf("source: %v", f.Rows[0]["source"])
	}
}

func TestClean_SourceTagging(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"unclassified name uses base name", "misc.csv", "review\nNice one\n", "misc.csv"},
		{"ambiguous name uses base name", "google_apple.csv", "review\nNice one\n", "google_apple.csv"},
		{"existing source kept", "whatsapp_google_play.csv", "review,source\nNice one,manual\n", "manual"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, tc.file)
			out := filepath.Join(dir, "out.csv")
			writeFile(t, in, tc.body)
			l, _ := bufLogger()
			if _, err := app.NewCleaner(l, nil).Clean(context.Background(), in, out); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			f, err := dataset.ReadCSV(out)
			if err != nil {
				t.Fatal(err)
			}
			if f.Rows[0]["source"] != tc.want {
				t.Fatalf("source: got %v want %s", f.Rows[0]["source"], tc.want)
			}
		})
	}
}

func TestClean_Sink(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "whatsapp_google_play_reviews.csv")
	out := filepath.Join(dir, "out.csv")
	writeFile(t, in, "reviewId,userName,content,score,at\nr1,ann,<b>Great!</b>,5,2024-05-01 08:30:00\n")

	l, _ := bufLogger()
	sink := &fakeSink{}
	if _, err := app.NewCleaner(l, sink).Clean(context.Background(), in, out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink rows: %d", len(sink.got))
	}
	r := sink.got[0]
	if r.Source != "google_play" || r.SourceID != "r1" || r.CleanText != "great" || r.Text != "<b>Great!</b>" {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.Rating == nil || *r.Rating != 5 || r.ReviewedAt == nil || r.ReviewedAt.Hour() != 8 {
		t.Fatalf("typed fields: %+v", r)
	}
}

func TestClean_SinkFailureFailsUnitButKeepsFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "whatsapp_google_play_reviews.csv")
	out := filepath.Join(dir, "out.csv")
	writeFile(t, in, "reviewId,content\nr1,Good\n")

	l, _ := bufLogger()
	rep, err := app.NewCleaner(l, &fakeSink{err: errors.New("db down")}).Clean(context.Background(), in, out)
	if err == nil || rep.Outcome != app.OutcomeFailed {
		t.Fatalf("expected failure, got %v / %s", err, rep.Outcome)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("csv should already be written: %v", err)
	}
}
