package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"app_reviews/internal/adapters/observability"
	"app_reviews/internal/dataset"
	"app_reviews/internal/domain"
)

const (
	cleanColumn  = "clean_review"
	sourceColumn = "source"
)

var ErrNoTextColumn = errors.New("no review text column")

// Outcome of one unit of work.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Schema is the column layout a file was resolved to. Every stage after
// detection reads column names from here.
type Schema struct {
	Text      string
	Date      string // empty when the file has no date column
	HasSource bool
}

// ResolveSchema picks the text column (review, then content) and the date
// column (date, then at). Only a missing text column is an error.
func ResolveSchema(f *dataset.Frame) (Schema, error) {
	text, ok := f.FirstPresent(textColumns...)
	if !ok {
		return Schema{}, fmt.Errorf("%w: want one of %v, have %v", ErrNoTextColumn, textColumns, f.Columns)
	}
	date, _ := f.FirstPresent(dateColumns...)
	return Schema{Text: text, Date: date, HasSource: f.Has(sourceColumn)}, nil
}

// CleanReport summarises one file's cleaning run.
type CleanReport struct {
	Input   string
	Output  string
	Outcome Outcome
	Loaded  int
	Written int
	Elapsed time.Duration
}

type Cleaner struct {
	log  zerolog.Logger
	sink domain.CleanedRepository
}

// NewCleaner returns a cleaner; sink may be nil.
func NewCleaner(l zerolog.Logger, sink domain.CleanedRepository) *Cleaner {
	return &Cleaner{log: l, sink: sink}
}

type stage struct {
	name string
	run  func(*dataset.Frame) *dataset.Frame
}

// Clean runs the staged pipeline over one raw file and writes the result to
// outputPath. A missing input is skipped without error and without output.
// Any other failure is returned for this file alone.
func (c *Cleaner) Clean(ctx context.Context, inputPath, outputPath string) (rep CleanReport, err error) {
	l := c.log.With().Str("input", inputPath).Logger()
	start := time.Now()
	rep = CleanReport{Input: inputPath, Output: outputPath, Outcome: OutcomeFailed}
	defer func() {
		rep.Elapsed = time.Since(start)
		if err != nil {
			rep.Outcome = OutcomeFailed
			l.Error().Err(err).Dur("elapsed", rep.Elapsed).Msg("cleaning failed")
		}
	}()
	defer recoverUnit(l, "clean "+inputPath, &err)

	frame, err := dataset.ReadCSV(inputPath)
	if errors.Is(err, fs.ErrNotExist) {
		l.Warn().Msg("input file not found, skipping")
		rep.Outcome = OutcomeSkipped
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("load %s: %w", inputPath, err)
	}
	rep.Loaded = frame.Len()
	l.Info().Int("rows", frame.Len()).Strs("columns", frame.Columns).Msg("cleaning file")

	schema, err := ResolveSchema(frame)
	if err != nil {
		return rep, err
	}
	l.Info().Str("text_column", schema.Text).Str("date_column", schema.Date).Msg("schema resolved")

	for _, st := range c.stages(schema, inputPath) {
		before := frame.Len()
		frame = st.run(frame)
		observability.ObserveCleanDrop(st.name, before-frame.Len())
		l.Info().
			Str("stage", st.name).
			Int("before", before).
			Int("after", frame.Len()).
			Int("removed", before-frame.Len()).
			Msg("stage done")
	}

	if err := dataset.WriteCSV(outputPath, frame); err != nil {
		return rep, fmt.Errorf("write %s: %w", outputPath, err)
	}
	rep.Written = frame.Len()
	l.Info().Str("output", outputPath).Int("rows", frame.Len()).Msg("cleaned file saved")

	if c.sink != nil && frame.Len() > 0 {
		if err := c.sink.UpsertCleaned(ctx, mapCleaned(frame, schema)); err != nil {
			return rep, fmt.Errorf("sink %s: %w", inputPath, err)
		}
		l.Info().Int("rows", frame.Len()).Msg("cleaned rows stored")
	}
	rep.Outcome = OutcomeOK
	return rep, nil
}

func (c *Cleaner) stages(s Schema, inputPath string) []stage {
	return []stage{
		{name: "dedupe", run: func(f *dataset.Frame) *dataset.Frame { return dedupe(f, s.Text) }},
		{name: "normalize", run: func(f *dataset.Frame) *dataset.Frame {
			f.Apply(cleanColumn, func(r dataset.Row) any { return NormalizeText(r[s.Text]) })
			return f
		}},
		{name: "drop_empty", run: func(f *dataset.Frame) *dataset.Frame {
			return f.Filter(func(r dataset.Row) bool { return r[cleanColumn] != "" })
		}},
		{name: "dates", run: func(f *dataset.Frame) *dataset.Frame {
			if s.Date == "" {
				return f
			}
			f.Apply(s.Date, func(r dataset.Row) any { return parseDate(r[s.Date]) })
			return f.Filter(func(r dataset.Row) bool { return r[s.Date] != nil })
		}},
		{name: "source", run: func(f *dataset.Frame) *dataset.Frame {
			if s.HasSource {
				return f
			}
			label := SourceLabel(inputPath)
			f.Apply(sourceColumn, func(dataset.Row) any { return label })
			return f
		}},
	}
}

// dedupe drops rows repeating an earlier row's text, then rows with no text.
func dedupe(f *dataset.Frame, col string) *dataset.Frame {
	seen := make(map[string]struct{}, f.Len())
	return f.Filter(func(r dataset.Row) bool {
		v := r[col]
		if v == nil {
			return false
		}
		key := dataset.FormatCell(v)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDate coerces a cell to a UTC time, or nil when it does not parse.
func parseDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) >= 9 {
			return time.Unix(secs, 0).UTC()
		}
	}
	return nil
}
