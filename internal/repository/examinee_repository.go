package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// ExamineeRepository handles examinee data access.
type ExamineeRepository struct {
	pool *pgxpool.Pool
}

// NewExamineeRepository creates a new ExamineeRepository.
func NewExamineeRepository(pool *pgxpool.Pool) *ExamineeRepository {
	return &ExamineeRepository{pool: pool}
}

// GetByID retrieves an examinee by id.
func (r *ExamineeRepository) GetByID(ctx context.Context, id int) (*model.Examinee, error) {
	e := &model.Examinee{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, batch FROM examinees WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Batch)
	if err != nil {
		return nil, err
	}
	return e, nil
}
