// Package agenda merges recurring class templates, their per-date overrides, ad-hoc
// classes and personal sessions into one time-ordered agenda.
package agenda

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

var (
	// ErrEmptyWeekdays indicates a weekly pattern without weekdays.
	ErrEmptyWeekdays = errors.New("agenda: weekly pattern requires at least one weekday")
	// ErrInvalidWeekday indicates a weekday outside 0..6.
	ErrInvalidWeekday = errors.New("agenda: weekday must be between 0 (Sunday) and 6 (Saturday)")
	// ErrInvalidDuration indicates a non-positive duration.
	ErrInvalidDuration = errors.New("agenda: duration must be positive")
	// ErrInvalidValidity indicates a validity window that ends before it starts.
	ErrInvalidValidity = errors.New("agenda: validity window ends before it starts")
)

// rruleWeekdays maps time.Weekday (Sunday=0) to rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Pattern is the validated weekly schedule of a template.
type Pattern struct {
	Weekdays []time.Weekday
	Start    localdate.TimeOfDay
	Duration time.Duration
}

// PatternOf validates and extracts the weekly pattern of t.
func PatternOf(t models.RecurrenceTemplate) (Pattern, error) {
	if len(t.Weekdays) == 0 {
		return Pattern{}, ErrEmptyWeekdays
	}
	seen := make(map[time.Weekday]struct{}, len(t.Weekdays))
	days := make([]time.Weekday, 0, len(t.Weekdays))
	for _, raw := range t.Weekdays {
		if raw < 0 || raw > 6 {
			return Pattern{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, raw)
		}
		day := time.Weekday(raw)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	start, err := localdate.ParseTimeOfDay(t.StartTime)
	if err != nil {
		return Pattern{}, err
	}
	if t.DurationMinutes <= 0 {
		return Pattern{}, ErrInvalidDuration
	}
	return Pattern{
		Weekdays: days,
		Start:    start,
		Duration: time.Duration(t.DurationMinutes) * time.Minute,
	}, nil
}

// Has reports whether the pattern fires on weekday w.
func (p Pattern) Has(w time.Weekday) bool {
	for _, d := range p.Weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// Slot returns the start and end instants of the occurrence on date d in loc.
func (p Pattern) Slot(d localdate.Date, loc *time.Location) (time.Time, time.Time) {
	start := d.At(p.Start, loc)
	return start, start.Add(p.Duration)
}

// Validity returns the template's validity window, open ends closed at openEnd.
func Validity(t models.RecurrenceTemplate, openEnd localdate.Date) (localdate.Window, error) {
	end := openEnd
	if t.ValidUntil != nil && !t.ValidUntil.IsZero() {
		if t.ValidUntil.Before(t.ValidFrom) {
			return localdate.Window{}, ErrInvalidValidity
		}
		end = *t.ValidUntil
	}
	return localdate.NewWindow(t.ValidFrom, end), nil
}

// Fires reports whether t produces an occurrence on d.
func Fires(t models.RecurrenceTemplate, d localdate.Date) bool {
	p, err := PatternOf(t)
	if err != nil {
		return false
	}
	validity, err := Validity(t, d)
	if err != nil {
		return false
	}
	return validity.Contains(d) && p.Has(d.Weekday())
}

// Expand returns, in ascending order, the local dates within window on which t fires.
// The result depends only on t and window.
func Expand(t models.RecurrenceTemplate, window localdate.Window) ([]localdate.Date, error) {
	p, err := PatternOf(t)
	if err != nil {
		return nil, err
	}
	return expandPattern(t, p, window)
}

func expandPattern(t models.RecurrenceTemplate, p Pattern, window localdate.Window) ([]localdate.Date, error) {
	if !window.Valid() {
		return nil, nil
	}
	validity, err := Validity(t, window.End)
	if err != nil {
		return nil, err
	}
	span, ok := window.Intersect(validity)
	if !ok {
		return nil, nil
	}

	byDay := make([]rrule.Weekday, 0, len(p.Weekdays))
	for _, d := range p.Weekdays {
		byDay = append(byDay, rruleWeekdays[d])
	}
	// Dates ride on UTC-midnight carriers so the rule never sees a DST shift.
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   span.Start.Carrier(),
		Until:     span.End.Carrier(),
		Byweekday: byDay,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence rule for template %s: %w", t.ID, err)
	}

	carriers := rule.All()
	dates := make([]localdate.Date, 0, len(carriers))
	for _, c := range carriers {
		d := localdate.FromCarrier(c)
		if !span.Contains(d) || !p.Has(d.Weekday()) {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}
