package agenda

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// Tally is the count of occurrences in a window without their payloads.
type Tally struct {
	Total        int      `json:"total"`
	Virtual      int      `json:"virtual"`
	Materialized int      `json:"materialized"`
	AdHoc        int      `json:"ad_hoc"`
	Personal     int      `json:"personal"`
	Cancelled    int      `json:"cancelled"`
	Instructors  []string `json:"instructors"`
}

// CountInputs are the aggregate reads behind a Tally. Override keys must belong to
// the given templates; class and session rows are pre-aggregated by the store.
type CountInputs struct {
	Templates []models.RecurrenceTemplate
	Overrides []models.OverrideKey
	Classes   []models.InstructorCount
	Sessions  []models.InstructorCount
}

// Count sums persisted counts with the virtual occurrences the templates produce in
// window. Virtual and materialized occurrences of a (template, date) pair exclude each
// other, so the parts are added rather than unioned. Instructors lists the distinct
// instructors of non-cancelled occurrences.
func Count(in CountInputs, window localdate.Window) Tally {
	var tally Tally
	instructors := make(map[string]struct{})
	owners := make(map[string]string, len(in.Templates))

	// Last key per (template, date) wins, matching Merge.
	overridden := make(map[overrideIndexKey]int, len(in.Overrides))
	for i, k := range in.Overrides {
		overridden[overrideIndexKey{templateID: k.TemplateID, date: k.Date}] = i
	}

	for _, t := range in.Templates {
		dates, err := Expand(t, window)
		if err != nil {
			continue
		}
		owners[t.ID] = t.InstructorID
		for _, d := range dates {
			if _, ok := overridden[overrideIndexKey{templateID: t.ID, date: d}]; ok {
				continue
			}
			tally.Virtual++
			addInstructor(instructors, t.InstructorID)
		}
	}

	for i, k := range in.Overrides {
		if overridden[overrideIndexKey{templateID: k.TemplateID, date: k.Date}] != i {
			continue
		}
		owner, ok := owners[k.TemplateID]
		if !ok || !window.Contains(k.Date) {
			continue
		}
		tally.Materialized++
		if k.Status == models.StatusCancelled {
			tally.Cancelled++
			continue
		}
		addInstructor(instructors, owner)
	}

	tally.AdHoc = sumCounts(in.Classes, &tally.Cancelled, instructors)
	tally.Personal = sumCounts(in.Sessions, &tally.Cancelled, instructors)
	tally.Total = tally.Virtual + tally.Materialized + tally.AdHoc + tally.Personal

	tally.Instructors = make([]string, 0, len(instructors))
	for id := range instructors {
		tally.Instructors = append(tally.Instructors, id)
	}
	sort.Strings(tally.Instructors)
	return tally
}

func sumCounts(rows []models.InstructorCount, cancelled *int, instructors map[string]struct{}) int {
	total := 0
	for _, r := range rows {
		total += r.Total
		if r.Status == models.StatusCancelled {
			*cancelled += r.Total
			continue
		}
		if r.Total > 0 {
			addInstructor(instructors, r.InstructorID)
		}
	}
	return total
}

func addInstructor(set map[string]struct{}, id string) {
	if id != "" {
		set[id] = struct{}{}
	}
}

// DayBucket groups the occurrences of one local date.
type DayBucket struct {
	Date      localdate.Date                `json:"date"`
	Weekday   string                        `json:"weekday"`
	Total     int                           `json:"total"`
	Cancelled int                           `json:"cancelled"`
	ByKind    map[models.OccurrenceKind]int `json:"by_kind"`
}

// GroupByDay buckets a merged sequence by local date. Every date of window gets a
// bucket, empty ones included.
func GroupByDay(occurrences []models.UnifiedOccurrence, window localdate.Window) []DayBucket {
	if !window.Valid() {
		return nil
	}
	buckets := make([]DayBucket, 0, window.Days())
	for d := window.Start; !d.After(window.End); d = d.AddDays(1) {
		buckets = append(buckets, DayBucket{
			Date:    d,
			Weekday: d.Weekday().String(),
			ByKind:  map[models.OccurrenceKind]int{},
		})
	}
	for _, o := range occurrences {
		if !window.Contains(o.Date) {
			continue
		}
		b := &buckets[window.Start.DaysUntil(o.Date)]
		b.Total++
		b.ByKind[o.Kind]++
		if o.Status == models.StatusCancelled {
			b.Cancelled++
		}
	}
	return buckets
}

// SlotBucket groups occurrences starting within the same local hour.
type SlotBucket struct {
	Slot  string `json:"slot"`
	Total int    `json:"total"`
}

// GroupBySlot buckets a merged sequence by local start hour ("19:00"), in slot order.
func GroupBySlot(occurrences []models.UnifiedOccurrence, loc *time.Location) []SlotBucket {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[int]int)
	for _, o := range occurrences {
		counts[o.Start.In(loc).Hour()]++
	}
	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	out := make([]SlotBucket, 0, len(hours))
	for _, h := range hours {
		out = append(out, SlotBucket{Slot: fmt.Sprintf("%02d:00", h), Total: counts[h]})
	}
	return out
}
