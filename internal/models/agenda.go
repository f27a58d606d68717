package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// OccurrenceKind identifies the source an agenda entry was projected from.
type OccurrenceKind string

const (
	KindTemplateVirtual      OccurrenceKind = "TEMPLATE_VIRTUAL"
	KindTemplateMaterialized OccurrenceKind = "TEMPLATE_MATERIALIZED"
	KindAdHocClass           OccurrenceKind = "CLASS"
	KindPersonalSession      OccurrenceKind = "PERSONAL"
)

// AgendaSource scopes a query to one family of sources.
type AgendaSource string

const (
	SourceAll      AgendaSource = ""
	SourceClass    AgendaSource = "CLASS"
	SourcePersonal AgendaSource = "PERSONAL"
	SourceTemplate AgendaSource = "TEMPLATE"
)

// Includes reports whether the source family s should be loaded for query scope q.
func (q AgendaSource) Includes(s AgendaSource) bool {
	return q == SourceAll || q == s
}

// OccurrenceStatus is the lifecycle state shared by every occurrence kind.
type OccurrenceStatus string

const (
	StatusScheduled  OccurrenceStatus = "SCHEDULED"
	StatusInProgress OccurrenceStatus = "IN_PROGRESS"
	StatusCompleted  OccurrenceStatus = "COMPLETED"
	StatusCancelled  OccurrenceStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s OccurrenceStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Organization is the tenant owning classes and sessions; its time zone defines
// the local calendar frame of the agenda.
type Organization struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Timezone string `db:"timezone" json:"timezone"`
}

// RecurrenceTemplate ("turma") is a weekly class definition.
type RecurrenceTemplate struct {
	ID              string          `db:"id" json:"id"`
	OrganizationID  string          `db:"organization_id" json:"organization_id"`
	CourseID        string          `db:"course_id" json:"course_id"`
	InstructorID    string          `db:"instructor_id" json:"instructor_id"`
	LocationID      *string         `db:"location_id" json:"location_id,omitempty"`
	Name            string          `db:"name" json:"name"`
	Weekdays        pq.Int64Array   `db:"weekdays" json:"weekdays"`
	StartTime       string          `db:"start_time" json:"start_time"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	ValidFrom       localdate.Date  `db:"valid_from" json:"valid_from"`
	ValidUntil      *localdate.Date `db:"valid_until" json:"valid_until,omitempty"`
	Capacity        int             `db:"capacity" json:"capacity"`
	Active          bool            `db:"active" json:"active"`
}

// OccurrenceOverride is the persisted state of one template occurrence.
type OccurrenceOverride struct {
	ID              string             `db:"id" json:"id"`
	TemplateID      string             `db:"template_id" json:"template_id"`
	Date            localdate.Date     `db:"occurrence_date" json:"date"`
	Sequence        int                `db:"sequence" json:"sequence"`
	Status          OccurrenceStatus   `db:"status" json:"status"`
	LessonContentID *string            `db:"lesson_content_id" json:"lesson_content_id,omitempty"`
	Notes           *string            `db:"notes" json:"notes,omitempty"`
	AttendeeCount   int                `db:"attendee_count" json:"attendee_count"`
	Attendance      []AttendanceRecord `db:"-" json:"attendance,omitempty"`
}

// OverrideKey is the unique (template, date) pair of an override plus its status,
// enough to count without loading payloads.
type OverrideKey struct {
	TemplateID string           `db:"template_id"`
	Date       localdate.Date   `db:"occurrence_date"`
	Status     OccurrenceStatus `db:"status"`
}

// AdHocClass is a one-off class unrelated to any template.
type AdHocClass struct {
	ID             string             `db:"id" json:"id"`
	OrganizationID string             `db:"organization_id" json:"organization_id"`
	CourseID       string             `db:"course_id" json:"course_id"`
	InstructorID   string             `db:"instructor_id" json:"instructor_id"`
	LocationID     *string            `db:"location_id" json:"location_id,omitempty"`
	Title          string             `db:"title" json:"title"`
	StartsAt       time.Time          `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time          `db:"ends_at" json:"ends_at"`
	Status         OccurrenceStatus   `db:"status" json:"status"`
	Capacity       int                `db:"capacity" json:"capacity"`
	AttendeeCount  int                `db:"attendee_count" json:"attendee_count"`
	Attendance     []AttendanceRecord `db:"-" json:"attendance,omitempty"`
}

// PersonalSession is a one-on-one session of a student/instructor pairing.
type PersonalSession struct {
	ID                  string           `db:"id" json:"id"`
	OrganizationID      string           `db:"organization_id" json:"organization_id"`
	PairingID           string           `db:"pairing_id" json:"pairing_id"`
	StudentID           string           `db:"student_id" json:"student_id"`
	InstructorID        string           `db:"instructor_id" json:"instructor_id"`
	LocationID          *string          `db:"location_id" json:"location_id,omitempty"`
	StartsAt            time.Time        `db:"starts_at" json:"starts_at"`
	EndsAt              time.Time        `db:"ends_at" json:"ends_at"`
	Status              OccurrenceStatus `db:"status" json:"status"`
	AttendanceConfirmed bool             `db:"attendance_confirmed" json:"attendance_confirmed"`
}

// AttendanceRecord is one roster line of a class occurrence.
type AttendanceRecord struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   bool   `db:"present" json:"present"`
}

// UnifiedOccurrence is the per-request projection every source is mapped into.
type UnifiedOccurrence struct {
	Token               string             `json:"id"`
	Kind                OccurrenceKind     `json:"kind"`
	Title               string             `json:"title"`
	Label               string             `json:"label,omitempty"`
	Icon                string             `json:"icon,omitempty"`
	Color               string             `json:"color,omitempty"`
	Date                localdate.Date     `json:"date"`
	Start               time.Time          `json:"start"`
	End                 time.Time          `json:"end"`
	Status              OccurrenceStatus   `json:"status"`
	Capacity            int                `json:"capacity"`
	AttendeeCount       int                `json:"attendee_count"`
	CourseID            string             `json:"course_id,omitempty"`
	InstructorID        string             `json:"instructor_id,omitempty"`
	LocationID          string             `json:"location_id,omitempty"`
	TemplateID          string             `json:"template_id,omitempty"`
	SourceID            string             `json:"source_id,omitempty"`
	StudentID           string             `json:"student_id,omitempty"`
	LessonContentID     *string            `json:"lesson_content_id,omitempty"`
	Notes               *string            `json:"notes,omitempty"`
	AttendanceConfirmed *bool              `json:"attendance_confirmed,omitempty"`
	Attendance          []AttendanceRecord `json:"attendance,omitempty"`
}

// Requester is the opaque identity handed over by the authentication collaborator.
type Requester struct {
	UserID         string
	Role           UserRole
	OrganizationID string
}

// TemplateFilter narrows template reads.
type TemplateFilter struct {
	OrganizationID string
	InstructorID   string
	CourseID       string
	Window         localdate.Window
}

// OverrideFilter narrows override reads to the active templates of an organization
// and a date window.
type OverrideFilter struct {
	OrganizationID string
	InstructorID   string
	CourseID       string
	Window         localdate.Window
}

// ClassFilter narrows ad-hoc class reads. From/To bound starts_at as [From, To).
type ClassFilter struct {
	OrganizationID string
	InstructorID   string
	CourseID       string
	Status         OccurrenceStatus
	From           time.Time
	To             time.Time
}

// PersonalSessionFilter narrows personal session reads. From/To bound starts_at as [From, To).
type PersonalSessionFilter struct {
	OrganizationID string
	InstructorID   string
	StudentID      string
	Status         OccurrenceStatus
	From           time.Time
	To             time.Time
}

// InstructorCount is a pre-aggregated count of persisted occurrences.
type InstructorCount struct {
	InstructorID string           `db:"instructor_id" json:"instructor_id"`
	Status       OccurrenceStatus `db:"status" json:"status"`
	Total        int              `db:"total" json:"total"`
}
