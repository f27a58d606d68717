package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-agenda-api/internal/models"
)

const (
	sessionFrom   = ` FROM personal_sessions s JOIN personal_pairings p ON p.id = s.pairing_id`
	sessionSelect = `SELECT s.id, s.organization_id, s.pairing_id, p.student_id, p.instructor_id, s.location_id, s.starts_at, s.ends_at, s.status, s.attendance_confirmed` + sessionFrom
)

// PersonalSessionRepository reads one-on-one sessions joined with their pairing.
type PersonalSessionRepository struct {
	db *sqlx.DB
}

// NewPersonalSessionRepository constructs a PersonalSessionRepository.
func NewPersonalSessionRepository(db *sqlx.DB) *PersonalSessionRepository {
	return &PersonalSessionRepository{db: db}
}

func sessionConditions(filter models.PersonalSessionFilter) conditions {
	var cond conditions
	cond.add("s.organization_id = $%d", filter.OrganizationID)
	cond.add("s.starts_at >= $%d", filter.From)
	cond.add("s.starts_at < $%d", filter.To)
	cond.addIf(filter.InstructorID != "", "p.instructor_id = $%d", filter.InstructorID)
	cond.addIf(filter.StudentID != "", "p.student_id = $%d", filter.StudentID)
	cond.addIf(filter.Status != "", "s.status = $%d", filter.Status)
	return cond
}

// List returns sessions starting inside [From, To).
func (r *PersonalSessionRepository) List(ctx context.Context, filter models.PersonalSessionFilter) ([]models.PersonalSession, error) {
	cond := sessionConditions(filter)
	query := sessionSelect + cond.where() + " ORDER BY s.starts_at, s.id"
	var sessions []models.PersonalSession
	if err := r.db.SelectContext(ctx, &sessions, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list personal sessions: %w", err)
	}
	return sessions, nil
}

// CountByInstructor aggregates sessions per instructor and status.
func (r *PersonalSessionRepository) CountByInstructor(ctx context.Context, filter models.PersonalSessionFilter) ([]models.InstructorCount, error) {
	cond := sessionConditions(filter)
	query := "SELECT p.instructor_id, s.status, COUNT(*) AS total" + sessionFrom + cond.where() + " GROUP BY p.instructor_id, s.status"
	var counts []models.InstructorCount
	if err := r.db.SelectContext(ctx, &counts, query, cond.args...); err != nil {
		return nil, fmt.Errorf("count personal sessions: %w", err)
	}
	return counts, nil
}

// FindByID fetches a session by ID.
func (r *PersonalSessionRepository) FindByID(ctx context.Context, id string) (*models.PersonalSession, error) {
	query := sessionSelect + " WHERE s.id = $1"
	var session models.PersonalSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}
