package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// UnitReport is the outcome of one fetch or one cleaned file.
type UnitReport struct {
	Unit     string        `json:"unit"`
	Platform string        `json:"platform"`
	Outcome  Outcome       `json:"outcome"`
	Rows     int           `json:"rows"`
	Tier     string        `json:"tier,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Error    string        `json:"error,omitempty"`
}

// Report collects unit outcomes for a run. Safe for concurrent use.
type Report struct {
	RunID string
	Kind  string

	mu    sync.Mutex
	units []UnitReport
}

func NewReport(runID, kind string) *Report {
	return &Report{RunID: runID, Kind: kind}
}

func (r *Report) Add(u UnitReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, u)
}

func (r *Report) Units() []UnitReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]UnitReport(nil), r.units...)
}

// Counts returns how many units ended in each outcome.
func (r *Report) Counts() map[Outcome]int {
	out := map[Outcome]int{}
	for _, u := range r.Units() {
		out[u.Outcome]++
	}
	return out
}

var reportHeader = []string{"UNIT", "PLATFORM", "OUTCOME", "ROWS", "TIER", "ELAPSED", "ERROR"}

// Render writes the report as an aligned table. Widths are display widths so
// file names with wide characters stay aligned.
func (r *Report) Render(w io.Writer) error {
	table := [][]string{reportHeader}
	for _, u := range r.Units() {
		table = append(table, []string{
			u.Unit, u.Platform, string(u.Outcome), fmt.Sprint(u.Rows), u.Tier,
			u.Elapsed.Round(time.Millisecond).String(), truncate(u.Error, 60),
		})
	}

	widths := make([]int, len(reportHeader))
	for _, row := range table {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range table {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
