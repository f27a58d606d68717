package agenda

import (
	"errors"
	"sort"
	"time"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/labels"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// ErrOccurrenceGone indicates a decoded virtual occurrence that its template no
// longer produces.
var ErrOccurrenceGone = errors.New("agenda: occurrence no longer resolves")

// Engine projects sources into UnifiedOccurrence values in one local frame.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	loc    *time.Location
	labels labels.Set
}

// NewEngine builds an engine for the organization time zone loc.
func NewEngine(loc *time.Location, set labels.Set) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc, labels: set}
}

// Location returns the local frame of the engine.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Sources are the store reads of one agenda request. Slices for sources that a
// query does not include are left nil.
type Sources struct {
	Templates []models.RecurrenceTemplate
	Overrides []models.OccurrenceOverride
	Classes   []models.AdHocClass
	Sessions  []models.PersonalSession
}

// MergeOptions carry the request window and the post-merge filters.
type MergeOptions struct {
	Window     localdate.Window
	Visibility Visibility
	Status     models.OccurrenceStatus
}

// MergeStats describes how a result was assembled.
type MergeStats struct {
	Virtual          int
	Materialized     int
	AdHoc            int
	Personal         int
	HiddenPersonal   int
	SkippedTemplates []string
}

// Result is the merged agenda.
type Result struct {
	Occurrences []models.UnifiedOccurrence
	Stats       MergeStats
}

type overrideIndexKey struct {
	templateID string
	date       localdate.Date
}

// Merge expands templates over the window, overlays overrides, adds ad-hoc classes
// and visible personal sessions, and returns everything ordered by start. Each
// (template, date) yields exactly one occurrence: the override when present,
// otherwise the virtual one.
func (e *Engine) Merge(src Sources, opts MergeOptions) Result {
	var res Result
	out := make([]models.UnifiedOccurrence, 0, len(src.Overrides)+len(src.Classes)+len(src.Sessions))

	index, consumed := indexOverrides(src.Overrides)
	templates := make(map[string]models.RecurrenceTemplate, len(src.Templates))
	patterns := make(map[string]Pattern, len(src.Templates))

	for _, t := range src.Templates {
		p, err := PatternOf(t)
		if err != nil {
			res.Stats.SkippedTemplates = append(res.Stats.SkippedTemplates, t.ID)
			continue
		}
		dates, err := expandPattern(t, p, opts.Window)
		if err != nil {
			res.Stats.SkippedTemplates = append(res.Stats.SkippedTemplates, t.ID)
			continue
		}
		templates[t.ID] = t
		patterns[t.ID] = p
		for _, d := range dates {
			if i, ok := index[overrideIndexKey{templateID: t.ID, date: d}]; ok {
				consumed[i] = true
				out = e.keep(out, e.materialized(t, p, src.Overrides[i]), opts, &res.Stats.Materialized)
				continue
			}
			out = e.keep(out, e.virtual(t, p, d), opts, &res.Stats.Virtual)
		}
	}

	// Overrides on dates the pattern no longer fires on still hold persisted state.
	for i, o := range src.Overrides {
		if consumed[i] || !opts.Window.Contains(o.Date) {
			continue
		}
		t, ok := templates[o.TemplateID]
		if !ok {
			continue
		}
		out = e.keep(out, e.materialized(t, patterns[t.ID], o), opts, &res.Stats.Materialized)
	}

	for _, c := range src.Classes {
		if !opts.Window.Contains(localdate.Of(c.StartsAt, e.loc)) {
			continue
		}
		out = e.keep(out, e.FromClass(c), opts, &res.Stats.AdHoc)
	}

	for _, s := range src.Sessions {
		if !opts.Window.Contains(localdate.Of(s.StartsAt, e.loc)) {
			continue
		}
		if !opts.Visibility.Allows(s) {
			res.Stats.HiddenPersonal++
			continue
		}
		out = e.keep(out, e.FromSession(s), opts, &res.Stats.Personal)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	res.Occurrences = out
	return res
}

// indexOverrides maps each (template, date) to its last override. Earlier overrides
// for the same pair are marked consumed so they are never emitted.
func indexOverrides(overrides []models.OccurrenceOverride) (map[overrideIndexKey]int, []bool) {
	index := make(map[overrideIndexKey]int, len(overrides))
	consumed := make([]bool, len(overrides))
	for i, o := range overrides {
		key := overrideIndexKey{templateID: o.TemplateID, date: o.Date}
		if prev, ok := index[key]; ok {
			consumed[prev] = true
		}
		index[key] = i
	}
	return index, consumed
}

func (e *Engine) keep(out []models.UnifiedOccurrence, o models.UnifiedOccurrence, opts MergeOptions, counter *int) []models.UnifiedOccurrence {
	if opts.Status != "" && o.Status != opts.Status {
		return out
	}
	*counter++
	return append(out, o)
}

// Rederive rebuilds the occurrence of template t on date d. When override is
// non-nil the materialized form is returned; otherwise t must still fire on d.
func (e *Engine) Rederive(t models.RecurrenceTemplate, d localdate.Date, override *models.OccurrenceOverride) (models.UnifiedOccurrence, error) {
	p, err := PatternOf(t)
	if err != nil {
		return models.UnifiedOccurrence{}, ErrOccurrenceGone
	}
	if override != nil {
		return e.materialized(t, p, *override), nil
	}
	if !t.Active || !Fires(t, d) {
		return models.UnifiedOccurrence{}, ErrOccurrenceGone
	}
	return e.virtual(t, p, d), nil
}

func (e *Engine) virtual(t models.RecurrenceTemplate, p Pattern, d localdate.Date) models.UnifiedOccurrence {
	start, end := p.Slot(d, e.loc)
	o := models.UnifiedOccurrence{
		Token:        EncodeVirtual(t.ID, d),
		Kind:         models.KindTemplateVirtual,
		Title:        t.Name,
		Date:         d,
		Start:        start,
		End:          end,
		Status:       models.StatusScheduled,
		Capacity:     t.Capacity,
		CourseID:     t.CourseID,
		InstructorID: t.InstructorID,
		LocationID:   deref(t.LocationID),
		TemplateID:   t.ID,
	}
	return e.decorate(o)
}

func (e *Engine) materialized(t models.RecurrenceTemplate, p Pattern, ov models.OccurrenceOverride) models.UnifiedOccurrence {
	start, end := p.Slot(ov.Date, e.loc)
	attendees := ov.AttendeeCount
	if len(ov.Attendance) > 0 {
		attendees = countPresent(ov.Attendance)
	}
	o := models.UnifiedOccurrence{
		Token:           EncodeRecord(models.KindTemplateMaterialized, ov.ID),
		Kind:            models.KindTemplateMaterialized,
		Title:           t.Name,
		Date:            ov.Date,
		Start:           start,
		End:             end,
		Status:          ov.Status,
		Capacity:        t.Capacity,
		AttendeeCount:   attendees,
		CourseID:        t.CourseID,
		InstructorID:    t.InstructorID,
		LocationID:      deref(t.LocationID),
		TemplateID:      t.ID,
		SourceID:        ov.ID,
		LessonContentID: ov.LessonContentID,
		Notes:           ov.Notes,
		Attendance:      ov.Attendance,
	}
	return e.decorate(o)
}

// FromClass maps an ad-hoc class 1:1.
func (e *Engine) FromClass(c models.AdHocClass) models.UnifiedOccurrence {
	attendees := c.AttendeeCount
	if len(c.Attendance) > 0 {
		attendees = countPresent(c.Attendance)
	}
	o := models.UnifiedOccurrence{
		Token:         EncodeRecord(models.KindAdHocClass, c.ID),
		Kind:          models.KindAdHocClass,
		Title:         c.Title,
		Date:          localdate.Of(c.StartsAt, e.loc),
		Start:         c.StartsAt.In(e.loc),
		End:           c.EndsAt.In(e.loc),
		Status:        c.Status,
		Capacity:      c.Capacity,
		AttendeeCount: attendees,
		CourseID:      c.CourseID,
		InstructorID:  c.InstructorID,
		LocationID:    deref(c.LocationID),
		SourceID:      c.ID,
		Attendance:    c.Attendance,
	}
	return e.decorate(o)
}

// FromSession maps a personal session 1:1. Visibility is the caller's concern.
func (e *Engine) FromSession(s models.PersonalSession) models.UnifiedOccurrence {
	confirmed := s.AttendanceConfirmed
	attendees := 0
	if confirmed {
		attendees = 1
	}
	o := models.UnifiedOccurrence{
		Token:               EncodeRecord(models.KindPersonalSession, s.ID),
		Kind:                models.KindPersonalSession,
		Date:                localdate.Of(s.StartsAt, e.loc),
		Start:               s.StartsAt.In(e.loc),
		End:                 s.EndsAt.In(e.loc),
		Status:              s.Status,
		Capacity:            1,
		AttendeeCount:       attendees,
		InstructorID:        s.InstructorID,
		StudentID:           s.StudentID,
		LocationID:          deref(s.LocationID),
		SourceID:            s.ID,
		AttendanceConfirmed: &confirmed,
	}
	o = e.decorate(o)
	o.Title = o.Label
	return o
}

func (e *Engine) decorate(o models.UnifiedOccurrence) models.UnifiedOccurrence {
	if l, ok := e.labels.Lookup(string(o.Kind)); ok {
		o.Label = l.Label
		o.Icon = l.Icon
		o.Color = l.Color
	}
	return o
}

func countPresent(records []models.AttendanceRecord) int {
	n := 0
	for _, r := range records {
		if r.Present {
			n++
		}
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
