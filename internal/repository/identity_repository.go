package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// IdentityRepository maps authenticated users to their student and instructor records.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs an IdentityRepository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// StudentIDByUser returns the student record of userID or sql.ErrNoRows.
func (r *IdentityRepository) StudentIDByUser(ctx context.Context, userID string) (string, error) {
	const query = `SELECT id FROM students WHERE user_id = $1 LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, userID); err != nil {
		return "", err
	}
	return id, nil
}

// InstructorIDByUser returns the instructor record of userID or sql.ErrNoRows.
func (r *IdentityRepository) InstructorIDByUser(ctx context.Context, userID string) (string, error) {
	const query = `SELECT id FROM instructors WHERE user_id = $1 LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, userID); err != nil {
		return "", err
	}
	return id, nil
}
