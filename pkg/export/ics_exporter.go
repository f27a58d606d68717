package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is one VEVENT of an iCalendar document.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Category    string
	Start       time.Time
	End         time.Time
	Cancelled   bool
}

// Calendar is the iCalendar document to render.
type Calendar struct {
	Name     string
	Timezone string
	Refresh  time.Duration
	Events   []Event
}

// ICSExporter renders calendars in RFC 5545 format.
type ICSExporter struct {
	productID string
	domain    string
	now       func() time.Time
}

// NewICSExporter builds an exporter. domain qualifies event UIDs.
func NewICSExporter(productID, domain string) *ICSExporter {
	return &ICSExporter{productID: productID, domain: domain, now: time.Now}
}

// Render serializes cal. Instants are written in UTC.
func (e *ICSExporter) Render(cal Calendar) ([]byte, error) {
	out := ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	if e.productID != "" {
		out.SetProductId(e.productID)
	}
	if cal.Name != "" {
		out.SetXWRCalName(cal.Name)
	}
	if cal.Timezone != "" {
		out.SetXWRTimezone(cal.Timezone)
	}
	if cal.Refresh > 0 {
		out.SetRefreshInterval(isoDuration(cal.Refresh))
	}

	stamp := e.now().UTC()
	for _, ev := range cal.Events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event requires a uid")
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		vevent := out.AddEvent(e.uid(ev.UID))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Category != "" {
			vevent.AddProperty(ics.ComponentPropertyCategories, ev.Category)
		}
		if ev.Cancelled {
			vevent.SetStatus(ics.ObjectStatusCancelled)
		} else {
			vevent.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return []byte(out.Serialize()), nil
}

func (e *ICSExporter) uid(id string) string {
	if e.domain == "" || strings.Contains(id, "@") {
		return id
	}
	return id + "@" + e.domain
}

func isoDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("PT%dH", minutes/60)
	}
	return fmt.Sprintf("PT%dM", minutes)
}
