package dto

import (
	"time"

	"github.com/noah-isme/gym-agenda-api/internal/agenda"
	"github.com/noah-isme/gym-agenda-api/internal/models"
)

// AgendaQuery captures the filters of an agenda listing.
type AgendaQuery struct {
	Start          string `form:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End            string `form:"end" json:"end" validate:"required,datetime=2006-01-02"`
	InstructorID   string `form:"instructor" json:"instructor,omitempty" validate:"omitempty,max=64"`
	CourseID       string `form:"course" json:"course,omitempty" validate:"omitempty,max=64"`
	Status         string `form:"status" json:"status,omitempty" validate:"omitempty,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
	Kind           string `form:"kind" json:"kind,omitempty" validate:"omitempty,oneof=CLASS PERSONAL TEMPLATE"`
	OrganizationID string `form:"org" json:"org,omitempty" validate:"omitempty,max=64"`
}

// ExportQuery extends AgendaQuery with the output format.
type ExportQuery struct {
	AgendaQuery
	Format string `form:"format" json:"format" validate:"required,oneof=csv pdf ics"`
}

// StatsQuery selects the organization of a stats request.
type StatsQuery struct {
	OrganizationID string `form:"org" json:"org,omitempty" validate:"omitempty,max=64"`
}

// AgendaWindow echoes the resolved window of a response.
type AgendaWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AgendaListResponse is the payload of GET /agenda/occurrences.
type AgendaListResponse struct {
	OrganizationID   string                     `json:"organization_id"`
	Timezone         string                     `json:"timezone"`
	Window           AgendaWindow               `json:"window"`
	Occurrences      []models.UnifiedOccurrence `json:"occurrences"`
	Total            int                        `json:"total"`
	SkippedTemplates []string                   `json:"skipped_templates,omitempty"`
}

// TodayStatsResponse is the payload of GET /agenda/stats/today.
type TodayStatsResponse struct {
	OrganizationID string       `json:"organization_id"`
	Timezone       string       `json:"timezone"`
	Date           string       `json:"date"`
	Counts         agenda.Tally `json:"counts"`
}

// WeekStatsResponse is the payload of GET /agenda/stats/week.
type WeekStatsResponse struct {
	OrganizationID string              `json:"organization_id"`
	Timezone       string              `json:"timezone"`
	Window         AgendaWindow        `json:"window"`
	Total          int                 `json:"total"`
	Cancelled      int                 `json:"cancelled"`
	Instructors    int                 `json:"instructors"`
	Days           []agenda.DayBucket  `json:"days"`
	Slots          []agenda.SlotBucket `json:"slots"`
}

// BulkTemplateRequest toggles the active flag of several templates.
type BulkTemplateRequest struct {
	OrganizationID string   `json:"organization_id" validate:"omitempty,max=64"`
	TemplateIDs    []string `json:"template_ids" validate:"required,min=1,max=200,dive,required,max=64"`
	Active         *bool    `json:"active" validate:"required"`
}

// BulkTemplateResponse reports how many templates changed state.
type BulkTemplateResponse struct {
	OrganizationID string `json:"organization_id"`
	Requested      int    `json:"requested"`
	Updated        int64  `json:"updated"`
	Active         bool   `json:"active"`
}

// FeedRequest selects the organization of a subscription feed.
type FeedRequest struct {
	OrganizationID string `json:"organization_id" validate:"omitempty,max=64"`
}

// FeedResponse carries a signed subscription token.
type FeedResponse struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
