package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_failures
  (run_id, model, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(f.RunID), stringOrDash(f.Model), stringOrDash(string(f.Phase)),
		stringOrDash(f.Message), detailsJSON(f.DetailsJSON), created,
	).Scan(&f.ID)
}

func (r *FailureRepository) List(ctx context.Context, runID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
SELECT id, run_id, model, phase, message, details_json, created_at
FROM analysis_failures`
	args := []any{}
	if runID != "" {
		args = append(args, runID)
		q += fmt.Sprintf("\nWHERE run_id = $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf("\nORDER BY created_at DESC, id DESC\nLIMIT $%d;", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.RunID, &f.Model, &f.Phase, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
