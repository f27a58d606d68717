package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gym-agenda-api/internal/models"
)

const templateColumns = "id, organization_id, course_id, instructor_id, location_id, name, weekdays, start_time, duration_minutes, valid_from, valid_until, capacity, active"

// TemplateRepository reads recurring class templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs a TemplateRepository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListActive returns the active templates of an organization. A valid filter window
// drops templates whose validity cannot overlap it.
func (r *TemplateRepository) ListActive(ctx context.Context, filter models.TemplateFilter) ([]models.RecurrenceTemplate, error) {
	var cond conditions
	cond.add("organization_id = $%d", filter.OrganizationID)
	cond.clauses = append(cond.clauses, "active = TRUE")
	cond.addIf(filter.InstructorID != "", "instructor_id = $%d", filter.InstructorID)
	cond.addIf(filter.CourseID != "", "course_id = $%d", filter.CourseID)
	if filter.Window.Valid() {
		cond.add("valid_from <= $%d", filter.Window.End)
		cond.add("(valid_until IS NULL OR valid_until >= $%d)", filter.Window.Start)
	}

	query := "SELECT " + templateColumns + " FROM class_templates" + cond.where() + " ORDER BY start_time, id"
	var templates []models.RecurrenceTemplate
	if err := r.db.SelectContext(ctx, &templates, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list class templates: %w", err)
	}
	return templates, nil
}

// FindByID fetches a template regardless of its active flag.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.RecurrenceTemplate, error) {
	query := "SELECT " + templateColumns + " FROM class_templates WHERE id = $1"
	var tpl models.RecurrenceTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListOrganizationIDs returns organizations owning at least one active template.
func (r *TemplateRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT organization_id FROM class_templates WHERE active = TRUE ORDER BY organization_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list template organizations: %w", err)
	}
	return ids, nil
}

// SetActive toggles the active flag of the given templates within one organization
// and reports how many rows changed.
func (r *TemplateRepository) SetActive(ctx context.Context, organizationID string, ids []string, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE class_templates SET active = $1 WHERE organization_id = $2 AND id = ANY($3) AND active <> $1`
	res, err := r.db.ExecContext(ctx, query, active, organizationID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update class templates: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update class templates: %w", err)
	}
	return affected, nil
}
