// Package localdate models calendar dates in an organization's local frame.
//
// A Date has no time-zone component. Conversions between instants and dates always
// take an explicit *time.Location, and day arithmetic happens on a UTC-midnight
// carrier so daylight-saving transitions never shift a date.
package localdate

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO calendar date format used on the wire and in tokens.
const Layout = "2006-01-02"

// Date is a calendar date without a time-zone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns a normalised date (e.g. Feb 30 becomes Mar 1 or 2).
func New(year int, month time.Month, day int) Date {
	return FromCarrier(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the calendar date of the instant t as observed in loc.
func Of(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the local calendar date of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	return Of(now, loc)
}

// FromCarrier reads the wall-clock date of t without converting zones. Database DATE
// columns arrive this way.
func FromCarrier(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads a YYYY-MM-DD date.
func Parse(raw string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("parse local date %q: %w", raw, err)
	}
	return FromCarrier(t), nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Carrier returns d as midnight UTC.
func (d Date) Carrier() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves d by n calendar days.
func (d Date) AddDays(n int) Date {
	return FromCarrier(d.Carrier().AddDate(0, 0, n))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Carrier().Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	a, b := d.Carrier(), other.Carrier()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Carrier().Sub(d.Carrier()).Hours() / 24)
}

// StartOfWeek returns the most recent date on or before d that falls on first.
func (d Date) StartOfWeek(first time.Weekday) Date {
	shift := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-shift)
}

// At combines d with a time of day in loc. The date is fixed first; the clock is
// applied afterwards so the result always reports d when viewed in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, tod.Second, 0, loc)
}

// Midnight returns the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return d.At(TimeOfDay{}, loc)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so dates bind to DATE parameters.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = FromCarrier(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("localdate: cannot scan %T", src)
	}
}

func (d *Date) scanString(raw string) error {
	if len(raw) > len(Layout) {
		raw = raw[:len(Layout)]
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time-of-day format: %q", raw)
}

// String formats the time as HH:MM, or HH:MM:SS when seconds are set.
func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start Date
	End   Date
}

// NewWindow returns [start, end]; it does not validate ordering.
func NewWindow(start, end Date) Window {
	return Window{Start: start, End: end}
}

// Valid reports whether both ends are set and Start is not after End.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && !w.Start.After(w.End)
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of dates in the window.
func (w Window) Days() int {
	if !w.Valid() {
		return 0
	}
	return w.Start.DaysUntil(w.End) + 1
}

// Intersect clips w to other. ok is false when the windows are disjoint.
func (w Window) Intersect(other Window) (Window, bool) {
	start := w.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := w.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.After(end) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// Bounds returns the instants [first midnight, midnight after End) in loc.
func (w Window) Bounds(loc *time.Location) (time.Time, time.Time) {
	return w.Start.Midnight(loc), w.End.AddDays(1).Midnight(loc)
}

// String formats the window as start..end.
func (w Window) String() string {
	return w.Start.String() + ".." + w.End.String()
}
