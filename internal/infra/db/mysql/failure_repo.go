package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_failures
  (run_id, model, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?)`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.RunID), stringOrDash(f.Model), stringOrDash(string(f.Phase)),
		stringOrDash(f.Message), detailsJSON(f.DetailsJSON), created.UTC(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
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
		q += "\nWHERE run_id = ?"
		args = append(args, runID)
	}
	q += "\nORDER BY created_at DESC, id DESC\nLIMIT ?;"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var created time.Time
		if err := rows.Scan(&f.ID, &f.RunID, &f.Model, &f.Phase, &f.Message, &f.DetailsJSON, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}

// detailsJSON guarantees a valid JSON document; invalid input is wrapped as {"raw": ...}.
func detailsJSON(details string) string {
	if strings.TrimSpace(details) == "" {
		return "{}"
	}
	if !json.Valid([]byte(details)) {
		b, _ := json.Marshal(map[string]string{"raw": details})
		return string(b)
	}
	return details
}
