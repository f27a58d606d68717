package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/signing"
)

func newExportFixture(t *testing.T) (*agendaFixture, *ExportService) {
	t.Helper()
	f := newAgendaFixture(t)
	signer := signing.NewFeedSigner("feed-secret", 24*time.Hour).WithClock(func() time.Time { return fixedNow })
	svc := NewExportService(ExportServiceParams{
		Agenda: f.svc,
		Signer: signer,
		Config: ExportServiceConfig{FeedPath: "/api/v1/agenda/feed/"},
	})
	return f, svc
}

func TestExportServiceExport_CSV(t *testing.T) {
	_, svc := newExportFixture(t)

	file, err := svc.Export(context.Background(), adminRequester, dto.ExportQuery{AgendaQuery: twoWeeks(), Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "agenda_2024-03-04_2024-03-17.csv", file.Filename)
	assert.Equal(t, contentTypeCSV, file.ContentType)

	body := strings.TrimPrefix(string(file.Body), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "Date,Start,End,Kind,Title,Status,Instructor,Course,Location,Attendees,Capacity,ID", lines[0])
	assert.Equal(t, "2024-03-04,19:00,20:00,Turma,Muay thai iniciante,SCHEDULED,inst-1,course-1,,0,20,v:tpl-1:2024-03-04", lines[1])
}

func TestExportServiceExport_ICSAndPDF(t *testing.T) {
	_, svc := newExportFixture(t)

	file, err := svc.Export(context.Background(), adminRequester, dto.ExportQuery{AgendaQuery: twoWeeks(), Format: "ics"})
	require.NoError(t, err)
	assert.Equal(t, contentTypeICS, file.ContentType)
	body := string(file.Body)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:v:tpl-1:2024-03-04@agenda.local")
	assert.Equal(t, 9, strings.Count(body, "BEGIN:VEVENT"))

	file, err = svc.Export(context.Background(), adminRequester, dto.ExportQuery{AgendaQuery: twoWeeks(), Format: "pdf"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportServiceExport_RejectsUnknownFormat(t *testing.T) {
	f, svc := newExportFixture(t)

	_, err := svc.Export(context.Background(), adminRequester, dto.ExportQuery{AgendaQuery: twoWeeks(), Format: "xlsx"})
	requireAppError(t, err, "VALIDATION_ERROR")
	assert.Zero(t, f.orgs.calls)
}

func TestExportServiceFeed_RoundTrip(t *testing.T) {
	f, svc := newExportFixture(t)
	requester := models.Requester{UserID: "user-stu-1", Role: models.RoleStudent, OrganizationID: "org-1"}

	issued, err := svc.IssueFeed(context.Background(), requester, dto.FeedRequest{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.Path, "/api/v1/agenda/feed/"))
	assert.Equal(t, fixedNow.Add(24*time.Hour), issued.ExpiresAt)

	file, err := svc.Feed(context.Background(), issued.Token)
	require.NoError(t, err)
	body := string(file.Body)
	assert.Contains(t, body, "X-WR-CALNAME:Agenda Academia Centro")
	assert.Contains(t, body, "UID:p:ps-1@agenda.local")
	assert.NotContains(t, body, "UID:p:ps-2")
	assert.Equal(t, "stu-1", f.sessions.lastFilter.StudentID)
}

func TestExportServiceFeed_RejectsBadTokens(t *testing.T) {
	_, svc := newExportFixture(t)

	_, err := svc.Feed(context.Background(), "not-a-token")
	requireAppError(t, err, "UNAUTHORIZED")

	issued, err := svc.IssueFeed(context.Background(), adminRequester, dto.FeedRequest{})
	require.NoError(t, err)
	_, err = svc.Feed(context.Background(), issued.Token+"0")
	requireAppError(t, err, "UNAUTHORIZED")
}

func TestExportServiceFeed_AdministrativeClaimHidesPersonalSessions(t *testing.T) {
	f, svc := newExportFixture(t)

	issued, err := svc.IssueFeed(context.Background(), adminRequester, dto.FeedRequest{})
	require.NoError(t, err)

	file, err := svc.Feed(context.Background(), issued.Token)
	require.NoError(t, err)
	body := string(file.Body)
	assert.Contains(t, body, "UID:v:tpl-1:2024-03-04@agenda.local")
	assert.Contains(t, body, "UID:c:cls-1@agenda.local")
	assert.NotContains(t, body, "UID:p:")
	assert.Zero(t, f.sessions.calls)

	// The same requester still sees every personal session through the API.
	resp, _, err := f.svc.List(context.Background(), adminRequester, twoWeeks())
	require.NoError(t, err)
	assert.Equal(t, 9, resp.Total)
}

func TestExportServiceFeed_InstructorClaimKeepsOwnSessions(t *testing.T) {
	f, svc := newExportFixture(t)
	requester := models.Requester{UserID: "user-inst-2", Role: models.RoleInstructor, OrganizationID: "org-1"}

	issued, err := svc.IssueFeed(context.Background(), requester, dto.FeedRequest{})
	require.NoError(t, err)

	file, err := svc.Feed(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Contains(t, string(file.Body), "UID:p:ps-1@agenda.local")
	assert.Equal(t, "inst-2", f.sessions.lastFilter.InstructorID)
}
