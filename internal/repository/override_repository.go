package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

const overrideSelect = `SELECT o.id, o.template_id, o.occurrence_date, o.sequence, o.status, o.lesson_content_id, o.notes,
(SELECT COUNT(*) FROM class_occurrence_attendance a WHERE a.occurrence_id = o.id AND a.present) AS attendee_count
FROM class_occurrences o`

const overrideJoin = " JOIN class_templates t ON t.id = o.template_id"

// OverrideRepository reads persisted template occurrences.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs an OverrideRepository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

func overrideConditions(filter models.OverrideFilter) conditions {
	var cond conditions
	cond.add("t.organization_id = $%d", filter.OrganizationID)
	cond.clauses = append(cond.clauses, "t.active = TRUE")
	cond.add("o.occurrence_date >= $%d", filter.Window.Start)
	cond.add("o.occurrence_date <= $%d", filter.Window.End)
	cond.addIf(filter.InstructorID != "", "t.instructor_id = $%d", filter.InstructorID)
	cond.addIf(filter.CourseID != "", "t.course_id = $%d", filter.CourseID)
	return cond
}

// List returns the overrides of the organization's active templates dated inside
// the window. It does not depend on a prior template read.
func (r *OverrideRepository) List(ctx context.Context, filter models.OverrideFilter) ([]models.OccurrenceOverride, error) {
	if !filter.Window.Valid() {
		return nil, nil
	}
	cond := overrideConditions(filter)
	query := overrideSelect + overrideJoin + cond.where() + " ORDER BY o.occurrence_date, o.template_id"
	var overrides []models.OccurrenceOverride
	if err := r.db.SelectContext(ctx, &overrides, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list class occurrences: %w", err)
	}
	return overrides, nil
}

// ListKeys returns only the (template, date, status) triples, enough for counting.
func (r *OverrideRepository) ListKeys(ctx context.Context, filter models.OverrideFilter) ([]models.OverrideKey, error) {
	if !filter.Window.Valid() {
		return nil, nil
	}
	cond := overrideConditions(filter)
	query := "SELECT o.template_id, o.occurrence_date, o.status FROM class_occurrences o" + overrideJoin + cond.where()
	var keys []models.OverrideKey
	if err := r.db.SelectContext(ctx, &keys, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list class occurrence keys: %w", err)
	}
	return keys, nil
}

// FindByID fetches an override by ID.
func (r *OverrideRepository) FindByID(ctx context.Context, id string) (*models.OccurrenceOverride, error) {
	query := overrideSelect + ` WHERE o.id = $1`
	var override models.OccurrenceOverride
	if err := r.db.GetContext(ctx, &override, query, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// FindByTemplateDate fetches the override of templateID on date, returning
// sql.ErrNoRows when the occurrence is still virtual.
func (r *OverrideRepository) FindByTemplateDate(ctx context.Context, templateID string, date localdate.Date) (*models.OccurrenceOverride, error) {
	query := overrideSelect + ` WHERE o.template_id = $1 AND o.occurrence_date = $2`
	var override models.OccurrenceOverride
	if err := r.db.GetContext(ctx, &override, query, templateID, date); err != nil {
		return nil, err
	}
	return &override, nil
}

// ListAttendance returns the roster of one override.
func (r *OverrideRepository) ListAttendance(ctx context.Context, occurrenceID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT student_id, present FROM class_occurrence_attendance WHERE occurrence_id = $1 ORDER BY student_id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, occurrenceID); err != nil {
		return nil, fmt.Errorf("list occurrence attendance: %w", err)
	}
	return records, nil
}
