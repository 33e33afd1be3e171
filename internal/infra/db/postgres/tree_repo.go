package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	domain "github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
)

type TreeRepository struct{ db *sql.DB }

func NewTreeRepository(db *sql.DB) *TreeRepository { return &TreeRepository{db: db} }

const (
	insertProcessQ = `
INSERT INTO proceso (nombre, descripcion)
VALUES ($1,$2)
RETURNING id_proceso;`
	insertSubprocessQ = `
INSERT INTO subproceso (id_proceso, nombre, descripcion)
VALUES ($1,$2,$3)
RETURNING id_subproceso;`
	insertUseCaseQ = `
INSERT INTO caso_uso
  (id_subproceso, nombre, descripcion, actor_principal, tipo_caso_uso,
   precondiciones, postcondiciones, criterios_de_aceptacion)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id_caso_uso;`
)

// SaveTree inserts the tree parent-before-child in one transaction.
func (r *TreeRepository) SaveTree(ctx context.Context, processes []domain.Process) ([]domain.Process, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	out := make([]domain.Process, 0, len(processes))
	for _, p := range processes {
		saved := domain.Process{
			Name:         stringOrDash(p.Name),
			Description:  p.Description,
			Subprocesses: make([]domain.Subprocess, 0, len(p.Subprocesses)),
		}
		if err := tx.QueryRowContext(ctx, insertProcessQ, saved.Name, saved.Description).Scan(&saved.ID); err != nil {
			return nil, insertError("proceso", err)
		}

		for _, s := range p.Subprocesses {
			sub := domain.Subprocess{
				ProcessID:   saved.ID,
				Name:        stringOrDash(s.Name),
				Description: s.Description,
				UseCases:    make([]domain.UseCase, 0, len(s.UseCases)),
			}
			if err := tx.QueryRowContext(ctx, insertSubprocessQ, sub.ProcessID, sub.Name, sub.Description).Scan(&sub.ID); err != nil {
				return nil, insertError("subproceso", err)
			}

			for _, u := range s.UseCases {
				uc := u
				uc.SubprocessID = sub.ID
				uc.Name = stringOrDash(u.Name)
				uc.Kind = u.Kind.Stored()
				if err := tx.QueryRowContext(ctx, insertUseCaseQ,
					uc.SubprocessID, uc.Name, uc.Description, uc.Actor, int(uc.Kind),
					uc.Preconditions, uc.Postconditions, uc.AcceptanceCriteria,
				).Scan(&uc.ID); err != nil {
					return nil, insertError("caso_uso", err)
				}
				sub.UseCases = append(sub.UseCases, uc)
			}
			saved.Subprocesses = append(saved.Subprocesses, sub)
		}
		out = append(out, saved)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

// Get returns one process with its nested tree
func (r *TreeRepository) Get(ctx context.Context, id int64) (*domain.Process, error) {
	const q = `
SELECT id_proceso, nombre, descripcion
FROM proceso
WHERE id_proceso=$1
LIMIT 1;`
	var p domain.Process
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Description); err != nil {
		return nil, err
	}

	const qSub = `
SELECT id_subproceso, id_proceso, nombre, descripcion
FROM subproceso
WHERE id_proceso=$1
ORDER BY id_subproceso;`
	rows, err := r.db.QueryContext(ctx, qSub, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p.Subprocesses = []domain.Subprocess{}
	index := map[int64]int{}
	for rows.Next() {
		s := domain.Subprocess{UseCases: []domain.UseCase{}}
		if err := rows.Scan(&s.ID, &s.ProcessID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		index[s.ID] = len(p.Subprocesses)
		p.Subprocesses = append(p.Subprocesses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qUC = `
SELECT c.id_caso_uso, c.id_subproceso, c.nombre, c.descripcion, c.actor_principal,
       c.tipo_caso_uso, c.precondiciones, c.postcondiciones, c.criterios_de_aceptacion
FROM caso_uso c
JOIN subproceso s ON s.id_subproceso = c.id_subproceso
WHERE s.id_proceso=$1
ORDER BY c.id_caso_uso;`
	ucRows, err := r.db.QueryContext(ctx, qUC, id)
	if err != nil {
		return nil, err
	}
	defer ucRows.Close()
	for ucRows.Next() {
		var u domain.UseCase
		var kind int
		if err := ucRows.Scan(&u.ID, &u.SubprocessID, &u.Name, &u.Description, &u.Actor,
			&kind, &u.Preconditions, &u.Postconditions, &u.AcceptanceCriteria); err != nil {
			return nil, err
		}
		u.Kind = domain.UseCaseKind(kind)
		if i, ok := index[u.SubprocessID]; ok {
			p.Subprocesses[i].UseCases = append(p.Subprocesses[i].UseCases, u)
		}
	}
	return &p, ucRows.Err()
}

// Paginate returns a page of processes (without children), newest first
func (r *TreeRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Process, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	// a page past the addressable offsets is empty
	if page-1 > math.MaxInt/pageSize {
		return []*domain.Process{}, nil
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id_proceso, nombre, descripcion
FROM proceso
ORDER BY id_proceso DESC
LIMIT $1 OFFSET $2;`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("querying processes: %w", err)
	}
	defer rows.Close()

	out := []*domain.Process{}
	for rows.Next() {
		var p domain.Process
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
