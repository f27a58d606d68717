package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-agenda-api/internal/models"
)

const classSelect = `SELECT c.id, c.organization_id, c.course_id, c.instructor_id, c.location_id, c.title, c.starts_at, c.ends_at, c.status, c.capacity,
(SELECT COUNT(*) FROM class_attendance a WHERE a.class_id = c.id AND a.present) AS attendee_count
FROM classes c`

// ClassRepository reads ad-hoc classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func classConditions(filter models.ClassFilter) conditions {
	var cond conditions
	cond.add("c.organization_id = $%d", filter.OrganizationID)
	cond.add("c.starts_at >= $%d", filter.From)
	cond.add("c.starts_at < $%d", filter.To)
	cond.addIf(filter.InstructorID != "", "c.instructor_id = $%d", filter.InstructorID)
	cond.addIf(filter.CourseID != "", "c.course_id = $%d", filter.CourseID)
	cond.addIf(filter.Status != "", "c.status = $%d", filter.Status)
	return cond
}

// List returns ad-hoc classes starting inside [From, To).
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.AdHocClass, error) {
	cond := classConditions(filter)
	query := classSelect + cond.where() + " ORDER BY c.starts_at, c.id"
	var classes []models.AdHocClass
	if err := r.db.SelectContext(ctx, &classes, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// CountByInstructor aggregates ad-hoc classes per instructor and status.
func (r *ClassRepository) CountByInstructor(ctx context.Context, filter models.ClassFilter) ([]models.InstructorCount, error) {
	cond := classConditions(filter)
	query := "SELECT c.instructor_id, c.status, COUNT(*) AS total FROM classes c" + cond.where() + " GROUP BY c.instructor_id, c.status"
	var counts []models.InstructorCount
	if err := r.db.SelectContext(ctx, &counts, query, cond.args...); err != nil {
		return nil, fmt.Errorf("count classes: %w", err)
	}
	return counts, nil
}

// FindByID fetches an ad-hoc class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.AdHocClass, error) {
	query := classSelect + " WHERE c.id = $1"
	var class models.AdHocClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListAttendance returns the roster of an ad-hoc class.
func (r *ClassRepository) ListAttendance(ctx context.Context, classID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT student_id, present FROM class_attendance WHERE class_id = $1 ORDER BY student_id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID); err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	return records, nil
}
