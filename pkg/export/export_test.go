package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:    "Agenda",
		Subtitle: "2024-03-04..2024-03-10 (America/Sao_Paulo)",
		Headers:  []string{"Data", "Início", "Título"},
		Rows: [][]string{
			{"2024-03-04", "19:00", "Jiu-jitsu adulto"},
			{"2024-03-06", "19:00", "Jiu-jitsu, avançado"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter(false).Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Data,Início,Título\n2024-03-04,19:00,Jiu-jitsu adulto\n2024-03-06,19:00,\"Jiu-jitsu, avançado\"\n", string(out))

	withBOM, err := NewCSVExporter(true).Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(withBOM, []byte("\xEF\xBB\xBF")))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only one"})
	_, err := NewCSVExporter(false).Render(data)
	assert.Error(t, err)

	_, err = NewCSVExporter(false).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 60; i++ {
		data.Rows = append(data.Rows, []string{"2024-03-08", "07:00", "Funcional"})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestICSExporterRender(t *testing.T) {
	start := time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC)
	exporter := NewICSExporter("-//gym-agenda//EN", "agenda.example.com")
	exporter.now = func() time.Time { return start }

	out, err := exporter.Render(Calendar{
		Name:     "Agenda",
		Timezone: "America/Sao_Paulo",
		Refresh:  time.Hour,
		Events: []Event{
			{UID: "v:tpl-1:2024-03-04", Summary: "Jiu-jitsu adulto", Category: "Turma", Start: start, End: start.Add(time.Hour)},
			{UID: "m:occ-1", Summary: "Jiu-jitsu adulto", Start: start.Add(48 * time.Hour), End: start.Add(49 * time.Hour), Cancelled: true},
		},
	})
	require.NoError(t, err)
	body := string(out)
	assert.Contains(t, body, "X-WR-CALNAME:Agenda")
	assert.Contains(t, body, "STATUS:CANCELLED")

	cal, err := ics.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "v:tpl-1:2024-03-04@agenda.example.com", events[0].Id())
	got, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, got.Equal(start))
}

func TestICSExporterRejectsInvertedEvents(t *testing.T) {
	start := time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC)
	_, err := NewICSExporter("", "").Render(Calendar{Events: []Event{{UID: "c:1", Start: start, End: start}}})
	assert.Error(t, err)
}
