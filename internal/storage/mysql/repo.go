package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"app_reviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Repo stores cleaned reviews keyed by (source, source_id).
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertCleaned(ctx context.Context, rs []domain.CleanedReview) error {
	for start := 0; start < len(rs); start += batchSize {
		end := min(start+batchSize, len(rs))
		if err := r.upsertBatch(ctx, rs[start:end]); err != nil {
			return fmt.Errorf("upsert cleaned rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (r *Repo) upsertBatch(ctx context.Context, rs []domain.CleanedReview) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*8)
	for _, cr := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?)")
		args = append(args,
			cr.Source,
			cr.SourceID,
			valStr(cr.Author),
			valInt(cr.Rating),
			cr.Text,
			cr.CleanText,
			valTime(cr.ReviewedAt),
			valJSON(cr.RawJSON),
		)
	}
	sqlStr := insertCleanedPrefix + strings.Join(values, ",") + insertCleanedOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) CountBySource(ctx context.Context, source string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countBySourceSQL, source).Scan(&n)
	return n, err
}
