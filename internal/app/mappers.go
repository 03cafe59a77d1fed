package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"app_reviews/internal/dataset"
	"app_reviews/internal/domain"
)

/********** column priority lists (single source of truth) **********/

// PlayColumns is the Google Play projection, in output order.
var PlayColumns = []string{"reviewId", "userName", "content", "score", "at", "replyContent"}

// AppStoreColumns is the App Store projection for both acquisition tiers.
var AppStoreColumns = []string{"id", "userName", "review", "rating", "date", "link"}

var (
	textColumns = []string{"review", "content"}
	dateColumns = []string{"date", "at"}
)

// cleanedAliases maps the sink's typed fields onto whichever column names a
// cleaned file carries.
var cleanedAliases = map[string][]string{
	"source_id": {"id", "reviewId"},
	"author":    {"userName", "author"},
	"rating":    {"rating", "score"},
}

/********** tolerant feed-entry decoding **********/

var errMalformed = errors.New("malformed entry")

// decoder turns the value found at a field's path into a cell. present is
// false when the path does not exist; seen is the number of entries already
// extracted in this batch.
type decoder func(v any, present bool, seen int) (any, error)

type feedField struct {
	column string
	path   string
	decode decoder
}

// feedFields is the defaulting policy for feed entries, one line per column.
var feedFields = []feedField{
	{column: "id", path: "id.label", decode: textOr(func(seen int) string { return fmt.Sprintf("apple_%d", seen) })},
	{column: "userName", path: "author.name.label", decode: textOr(fixed("Unknown"))},
	{column: "review", path: "content.label", decode: textOr(fixed(""))},
	{column: "rating", path: "im:rating.label", decode: ratingOr(3)},
	{column: "date", path: "updated.label", decode: textOr(fixed(""))},
	{column: "link", path: "link.attributes.href", decode: textOr(fixed(""))},
}

// extractFeedEntry decodes one feed entry into an App Store record. Missing
// fields take their defaults; malformed nesting or an unusable rating is an
// error for this entry only.
func extractFeedEntry(raw any, seen int) (map[string]any, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: entry is %T", errMalformed, raw)
	}
	rec := make(map[string]any, len(feedFields))
	for _, f := range feedFields {
		v, present, err := lookupPath(entry, f.path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.column, err)
		}
		cell, err := f.decode(v, present, seen)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.column, err)
		}
		rec[f.column] = cell
	}
	return rec, nil
}

func fixed(s string) func(int) string { return func(int) string { return s } }

func textOr(def func(seen int) string) decoder {
	return func(v any, present bool, seen int) (any, error) {
		if !present {
			return def(seen), nil
		}
		switch t := v.(type) {
		case string:
			return t, nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		default:
			return nil, fmt.Errorf("%w: label is %T", errMalformed, v)
		}
	}
}

func ratingOr(def int) decoder {
	return func(v any, present bool, _ int) (any, error) {
		if !present {
			return def, nil
		}
		var n int
		switch t := v.(type) {
		case string:
			x, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("rating %q: %w", t, err)
			}
			n = x
		case float64:
			if t != math.Trunc(t) {
				return nil, fmt.Errorf("rating %v is not an integer", t)
			}
			n = int(t)
		default:
			return nil, fmt.Errorf("%w: rating is %T", errMalformed, v)
		}
		if n < 1 || n > 5 {
			return nil, fmt.Errorf("rating %d out of range", n)
		}
		return n, nil
	}
}

// lookupPath is a dot-path lookup over decoded JSON. A missing key or null
// node is "not present"; a scalar where an object is expected is malformed.
// Arrays are searched for the first object carrying the next key, which is
// how the feed encodes repeated nodes such as link.
func lookupPath(m map[string]any, path string) (any, bool, error) {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		if arr, ok := cur.([]any); ok {
			cur = nil
			for _, it := range arr {
				if obj, ok := it.(map[string]any); ok {
					if _, has := obj[part]; has {
						cur = obj
						break
					}
				}
			}
			if cur == nil {
				return nil, false, nil
			}
		}
		switch obj := cur.(type) {
		case nil:
			return nil, false, nil
		case map[string]any:
			v, ok := obj[part]
			if !ok || v == nil {
				return nil, false, nil
			}
			cur = v
		default:
			return nil, false, fmt.Errorf("%w: %q reached a %T", errMalformed, part, cur)
		}
	}
	return cur, true, nil
}

/********** cleaned rows -> sink records **********/

// lookupCell returns the first non-missing cell among the alias columns.
func lookupCell(r dataset.Row, aliases []string) (any, bool) {
	for _, c := range aliases {
		if v, ok := r[c]; ok && v != nil && dataset.FormatCell(v) != "" {
			return v, true
		}
	}
	return nil, false
}

func mapCleaned(f *dataset.Frame, schema Schema) []domain.CleanedReview {
	out := make([]domain.CleanedReview, 0, f.Len())
	for _, r := range f.Rows {
		var cr domain.CleanedReview
		cr.Source = dataset.FormatCell(r[sourceColumn])
		cr.Text = dataset.FormatCell(r[schema.Text])
		cr.CleanText = dataset.FormatCell(r[cleanColumn])

		if v, ok := lookupCell(r, cleanedAliases["author"]); ok {
			s := dataset.FormatCell(v)
			cr.Author = &s
		}
		if v, ok := lookupCell(r, cleanedAliases["rating"]); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(dataset.FormatCell(v))); err == nil {
				cr.Rating = &n
			}
		}
		if schema.Date != "" {
			if t, ok := r[schema.Date].(time.Time); ok {
				cr.ReviewedAt = &t
			}
		}

		// no id column: hash source and text so re-cleaning keeps the key
		if v, ok := lookupCell(r, cleanedAliases["source_id"]); ok {
			cr.SourceID = dataset.FormatCell(v)
		} else {
			sum := sha1.Sum([]byte(cr.Source + "|" + cr.Text))
			cr.SourceID = hex.EncodeToString(sum[:])
		}

		raw := make(map[string]string, len(f.Columns))
		for _, c := range f.Columns {
			raw[c] = dataset.FormatCell(r[c])
		}
		if b, err := json.Marshal(raw); err == nil {
			cr.RawJSON = b
		} else {
			log.Error().Err(err).Str("context", "mapCleaned").Msg("marshal row failed")
		}
		out = append(out, cr)
	}
	return out
}
