package failures

import "context"

// Repository defines persistence for analysis failures
type Repository interface {
	Save(ctx context.Context, f *Failure) error
	// List returns newest first; an empty runID lists every run.
	List(ctx context.Context, runID string, limit int) ([]*Failure, error)
}

// RawArchive keeps raw model output for later diagnosis and returns its URL.
type RawArchive interface {
	PutRaw(ctx context.Context, key, content string) (string, error)
}
