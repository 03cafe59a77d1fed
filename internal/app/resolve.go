package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"app_reviews/internal/domain"
)

var (
	ErrUnclassified = errors.New("file name matches no platform keywords")
	ErrAmbiguous    = errors.New("file name matches more than one platform")
	ErrNoInputs     = errors.New("no csv files in directory")
)

// Rule is one ranked (predicate, result) pair of the file-name classifier.
type Rule struct {
	Name     string
	Platform domain.Platform
	Match    func(lowerName string) bool
}

// FileRules are evaluated in order against the lowercased base name.
var FileRules = []Rule{
	{Name: "google keywords", Platform: domain.GooglePlay, Match: containsAny("google", "play")},
	{Name: "apple keywords", Platform: domain.AppStore, Match: containsAny("apple", "store")},
}

// GenericNames is the fixed fallback file per platform.
var GenericNames = map[domain.Platform]string{
	domain.GooglePlay: "google_play_reviews.csv",
	domain.AppStore:   "apple_store_reviews.csv",
}

func containsAny(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
}

// Classify maps a file name to a platform. Every rule is evaluated; a name
// matched by rules for different platforms is ErrAmbiguous rather than a
// guess.
func Classify(name string) (domain.Platform, error) {
	lower := strings.ToLower(filepath.Base(name))
	var hits []Rule
	for _, r := range FileRules {
		if r.Match(lower) {
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return "", ErrUnclassified
	}
	for _, h := range hits[1:] {
		if h.Platform != hits[0].Platform {
			return "", fmt.Errorf("%w: %s and %s", ErrAmbiguous, hits[0].Name, h.Name)
		}
	}
	return hits[0].Platform, nil
}

// SourceLabel is the source tag for a file: its platform when the name
// classifies cleanly, else the base name itself.
func SourceLabel(path string) string {
	if p, err := Classify(path); err == nil {
		return string(p)
	}
	return filepath.Base(path)
}

// Resolution is where one platform's raw input was found.
type Resolution struct {
	Path  string
	Found bool
	Via   string // keyword|generic
}

// ResolveInputs picks one raw file per platform in dir: the first csv whose
// name classifies to the platform (directory order), else the platform's
// generic file name, else not found.
func ResolveInputs(dir string, l zerolog.Logger) (map[domain.Platform]Resolution, error) {
	out := make(map[domain.Platform]Resolution, len(domain.Platforms))
	for _, p := range domain.Platforms {
		out[p] = Resolution{}
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return out, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return out, fmt.Errorf("%w: %s", ErrNoInputs, dir)
	}
	l.Info().Str("dir", dir).Strs("files", files).Msg("input files found")

	classified := make(map[string]domain.Platform, len(files))
	for _, name := range files {
		p, err := Classify(name)
		switch {
		case errors.Is(err, ErrAmbiguous):
			l.Warn().Str("file", name).Err(err).Msg("skipping ambiguous file name")
		case err == nil:
			classified[name] = p
		}
	}

	for _, p := range domain.Platforms {
		for _, name := range files {
			if classified[name] == p {
				out[p] = Resolution{Path: filepath.Join(dir, name), Found: true, Via: "keyword"}
				break
			}
		}
		if out[p].Found {
			continue
		}
		generic := filepath.Join(dir, GenericNames[p])
		if _, err := os.Stat(generic); err == nil {
			out[p] = Resolution{Path: generic, Found: true, Via: "generic"}
			continue
		}
		l.Warn().Str("platform", string(p)).Msg("no input file for platform")
	}
	return out, nil
}
