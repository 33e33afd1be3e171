package requirements

import (
	"context"
	"errors"
)

// ErrInvalidRecord is returned when the store rejects a row (constraint or data error).
var ErrInvalidRecord = errors.New("record rejected by store")

// Repository port (persistence of generated trees)
type Repository interface {
	// SaveTree writes the tree parent-before-child in one transaction and
	// returns it with generated identifiers.
	SaveTree(ctx context.Context, processes []Process) ([]Process, error)
	// Get returns one process with its nested tree; sql.ErrNoRows when absent.
	Get(ctx context.Context, id int64) (*Process, error)
	Paginate(ctx context.Context, page, pageSize int) ([]*Process, error)
}
