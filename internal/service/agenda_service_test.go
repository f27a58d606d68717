package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/labels"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// 2024-03-06 09:00 in São Paulo, a Wednesday.
var fixedNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func mwfTemplate() models.RecurrenceTemplate {
	until := localdate.MustParse("2024-03-17")
	return models.RecurrenceTemplate{
		ID:              "tpl-1",
		OrganizationID:  "org-1",
		CourseID:        "course-1",
		InstructorID:    "inst-1",
		Name:            "Muay thai iniciante",
		Weekdays:        pq.Int64Array{1, 3, 5},
		StartTime:       "19:00",
		DurationMinutes: 60,
		ValidFrom:       localdate.MustParse("2024-03-04"),
		ValidUntil:      &until,
		Capacity:        20,
		Active:          true,
	}
}

type fakeTemplateSource struct {
	mu        sync.Mutex
	templates []models.RecurrenceTemplate
	hit       bool
	err       error
	calls     int
}

func (f *fakeTemplateSource) Active(_ context.Context, filter models.TemplateFilter) ([]models.RecurrenceTemplate, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	return filterTemplates(f.templates, filter), f.hit, nil
}

type fakeTemplateRows struct {
	rows map[string]models.RecurrenceTemplate
}

func (f *fakeTemplateRows) FindByID(_ context.Context, id string) (*models.RecurrenceTemplate, error) {
	tpl, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tpl, nil
}

type fakeOverrides struct {
	list       []models.OccurrenceOverride
	keys       []models.OverrideKey
	attendance map[string][]models.AttendanceRecord
	err        error
	calls      int
}

func (f *fakeOverrides) List(context.Context, models.OverrideFilter) ([]models.OccurrenceOverride, error) {
	f.calls++
	return f.list, f.err
}

func (f *fakeOverrides) ListKeys(context.Context, models.OverrideFilter) ([]models.OverrideKey, error) {
	f.calls++
	return f.keys, f.err
}

func (f *fakeOverrides) FindByID(_ context.Context, id string) (*models.OccurrenceOverride, error) {
	for _, o := range f.list {
		if o.ID == id {
			found := o
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOverrides) FindByTemplateDate(_ context.Context, templateID string, date localdate.Date) (*models.OccurrenceOverride, error) {
	for _, o := range f.list {
		if o.TemplateID == templateID && o.Date == date {
			found := o
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOverrides) ListAttendance(_ context.Context, id string) ([]models.AttendanceRecord, error) {
	return f.attendance[id], nil
}

type fakeClasses struct {
	list       []models.AdHocClass
	counts     []models.InstructorCount
	attendance map[string][]models.AttendanceRecord
	err        error
	calls      int
}

func (f *fakeClasses) List(context.Context, models.ClassFilter) ([]models.AdHocClass, error) {
	f.calls++
	return f.list, f.err
}

func (f *fakeClasses) CountByInstructor(context.Context, models.ClassFilter) ([]models.InstructorCount, error) {
	f.calls++
	return f.counts, f.err
}

func (f *fakeClasses) FindByID(_ context.Context, id string) (*models.AdHocClass, error) {
	for _, c := range f.list {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClasses) ListAttendance(_ context.Context, id string) ([]models.AttendanceRecord, error) {
	return f.attendance[id], nil
}

type fakeSessions struct {
	list       []models.PersonalSession
	counts     []models.InstructorCount
	err        error
	calls      int
	lastFilter models.PersonalSessionFilter
}

func (f *fakeSessions) List(_ context.Context, filter models.PersonalSessionFilter) ([]models.PersonalSession, error) {
	f.calls++
	f.lastFilter = filter
	return f.list, f.err
}

func (f *fakeSessions) CountByInstructor(_ context.Context, filter models.PersonalSessionFilter) ([]models.InstructorCount, error) {
	f.calls++
	f.lastFilter = filter
	return f.counts, f.err
}

func (f *fakeSessions) FindByID(_ context.Context, id string) (*models.PersonalSession, error) {
	for _, s := range f.list {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeOrganizations struct {
	orgs  map[string]models.Organization
	err   error
	calls int
}

func (f *fakeOrganizations) FindByID(_ context.Context, id string) (*models.Organization, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	org, ok := f.orgs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &org, nil
}

type fakeIdentities struct {
	students    map[string]string
	instructors map[string]string
	err         error
}

func (f *fakeIdentities) StudentIDByUser(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id, ok := f.students[userID]; ok {
		return id, nil
	}
	return "", sql.ErrNoRows
}

func (f *fakeIdentities) InstructorIDByUser(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id, ok := f.instructors[userID]; ok {
		return id, nil
	}
	return "", sql.ErrNoRows
}

type stubCacheRepo struct {
	mu       sync.Mutex
	store    map[string][]byte
	getErr   error
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	return nil
}

type agendaFixture struct {
	templates  *fakeTemplateSource
	rows       *fakeTemplateRows
	overrides  *fakeOverrides
	classes    *fakeClasses
	sessions   *fakeSessions
	orgs       *fakeOrganizations
	identities *fakeIdentities
	cacheRepo  *stubCacheRepo
	metrics    *MetricsService
	svc        *AgendaService
}

func newAgendaFixture(t *testing.T) *agendaFixture {
	t.Helper()
	loc := saoPaulo(t)
	tpl := mwfTemplate()
	f := &agendaFixture{
		templates: &fakeTemplateSource{templates: []models.RecurrenceTemplate{tpl}},
		rows:      &fakeTemplateRows{rows: map[string]models.RecurrenceTemplate{tpl.ID: tpl}},
		overrides: &fakeOverrides{},
		classes: &fakeClasses{list: []models.AdHocClass{{
			ID:             "cls-1",
			OrganizationID: "org-1",
			CourseID:       "course-2",
			InstructorID:   "inst-3",
			Title:          "Aulão de sábado",
			StartsAt:       time.Date(2024, 3, 5, 10, 0, 0, 0, loc),
			EndsAt:         time.Date(2024, 3, 5, 11, 30, 0, 0, loc),
			Status:         models.StatusScheduled,
			Capacity:       30,
		}}},
		sessions: &fakeSessions{list: []models.PersonalSession{
			{ID: "ps-1", OrganizationID: "org-1", StudentID: "stu-1", InstructorID: "inst-2",
				StartsAt: time.Date(2024, 3, 7, 8, 0, 0, 0, loc), EndsAt: time.Date(2024, 3, 7, 9, 0, 0, 0, loc),
				Status: models.StatusScheduled, AttendanceConfirmed: true},
			{ID: "ps-2", OrganizationID: "org-1", StudentID: "stu-2", InstructorID: "inst-2",
				StartsAt: time.Date(2024, 3, 8, 8, 0, 0, 0, loc), EndsAt: time.Date(2024, 3, 8, 9, 0, 0, 0, loc),
				Status: models.StatusScheduled},
		}},
		orgs: &fakeOrganizations{orgs: map[string]models.Organization{
			"org-1": {ID: "org-1", Name: "Academia Centro", Timezone: "America/Sao_Paulo"},
			"org-2": {ID: "org-2", Name: "Academia Norte", Timezone: "America/Manaus"},
		}},
		identities: &fakeIdentities{
			students:    map[string]string{"user-stu-1": "stu-1"},
			instructors: map[string]string{"user-inst-2": "inst-2"},
		},
		cacheRepo: &stubCacheRepo{},
		metrics:   NewMetricsService(),
	}
	f.svc = NewAgendaService(AgendaServiceParams{
		Templates:     f.templates,
		TemplateRows:  f.rows,
		Overrides:     f.overrides,
		Classes:       f.classes,
		Sessions:      f.sessions,
		Organizations: f.orgs,
		Identities:    f.identities,
		Cache:         NewCacheService(f.cacheRepo, nil, time.Minute, zap.NewNop(), true),
		Labels:        labels.Default(),
		Metrics:       f.metrics,
		Logger:        zap.NewNop(),
		Config: AgendaServiceConfig{
			DefaultTimezone: "America/Sao_Paulo",
			HorizonDays:     366,
			MaxWindowDays:   93,
			WeekStart:       time.Monday,
		},
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

var adminRequester = models.Requester{UserID: "user-admin", Role: models.RoleAdmin, OrganizationID: "org-1"}

func twoWeeks() dto.AgendaQuery {
	return dto.AgendaQuery{Start: "2024-03-04", End: "2024-03-17"}
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestAgendaServiceList_MergesAllSources(t *testing.T) {
	f := newAgendaFixture(t)
	f.overrides.list = []models.OccurrenceOverride{{
		ID: "occ-1", TemplateID: "tpl-1", Date: localdate.MustParse("2024-03-06"), Status: models.StatusCancelled,
	}}

	resp, hit, err := f.svc.List(context.Background(), adminRequester, twoWeeks())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "America/Sao_Paulo", resp.Timezone)
	assert.Equal(t, dto.AgendaWindow{Start: "2024-03-04", End: "2024-03-17"}, resp.Window)

	// six template dates, one ad-hoc class, two personal sessions
	require.Len(t, resp.Occurrences, 9)
	assert.Equal(t, 9, resp.Total)

	got := make([]string, 0, 4)
	for _, o := range resp.Occurrences[:4] {
		got = append(got, o.Token)
	}
	assert.Equal(t, []string{"v:tpl-1:2024-03-04", "c:cls-1", "m:occ-1", "p:ps-1"}, got)
	assert.Equal(t, models.StatusCancelled, resp.Occurrences[2].Status)

	for i := 1; i < len(resp.Occurrences); i++ {
		assert.False(t, resp.Occurrences[i].Start.Before(resp.Occurrences[i-1].Start))
	}
}

func TestAgendaServiceList_RejectsWindowsBeforeStoreAccess(t *testing.T) {
	cases := []struct {
		name  string
		query dto.AgendaQuery
		code  string
	}{
		{name: "missing start", query: dto.AgendaQuery{End: "2024-03-10"}, code: "INVALID_WINDOW"},
		{name: "bad format", query: dto.AgendaQuery{Start: "06/03/2024", End: "2024-03-10"}, code: "INVALID_WINDOW"},
		{name: "reversed", query: dto.AgendaQuery{Start: "2024-03-10", End: "2024-03-04"}, code: "INVALID_WINDOW"},
		{name: "too wide", query: dto.AgendaQuery{Start: "2024-01-01", End: "2024-06-30"}, code: "INVALID_WINDOW"},
		{name: "beyond horizon", query: dto.AgendaQuery{Start: "2026-01-01", End: "2026-01-31"}, code: "INVALID_WINDOW"},
		{name: "unknown status", query: dto.AgendaQuery{Start: "2024-03-04", End: "2024-03-10", Status: "LATE"}, code: "VALIDATION_ERROR"},
		{name: "unknown kind", query: dto.AgendaQuery{Start: "2024-03-04", End: "2024-03-10", Kind: "EVENT"}, code: "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAgendaFixture(t)
			_, _, err := f.svc.List(context.Background(), adminRequester, tc.query)
			requireAppError(t, err, tc.code)
			assert.Zero(t, f.orgs.calls)
			assert.Zero(t, f.templates.calls)
			assert.Zero(t, f.classes.calls)
		})
	}
}

func TestAgendaServiceList_OrganizationScope(t *testing.T) {
	f := newAgendaFixture(t)

	q := twoWeeks()
	q.OrganizationID = "org-2"
	_, _, err := f.svc.List(context.Background(), adminRequester, q)
	requireAppError(t, err, "FORBIDDEN")

	super := models.Requester{UserID: "user-root", Role: models.RoleSuperAdmin}
	resp, _, err := f.svc.List(context.Background(), super, q)
	require.NoError(t, err)
	assert.Equal(t, "America/Manaus", resp.Timezone)

	_, _, err = f.svc.List(context.Background(), super, twoWeeks())
	requireAppError(t, err, "VALIDATION_ERROR")

	q.OrganizationID = "org-missing"
	_, _, err = f.svc.List(context.Background(), super, q)
	requireAppError(t, err, "NOT_FOUND")
}

func TestAgendaServiceList_StudentWithoutRecordSeesNoPersonalSessions(t *testing.T) {
	f := newAgendaFixture(t)
	requester := models.Requester{UserID: "user-unlinked", Role: models.RoleStudent, OrganizationID: "org-1"}

	resp, _, err := f.svc.List(context.Background(), requester, twoWeeks())
	require.NoError(t, err)
	assert.Zero(t, f.sessions.calls)
	for _, o := range resp.Occurrences {
		assert.NotEqual(t, models.KindPersonalSession, o.Kind)
	}
	assert.Len(t, resp.Occurrences, 7)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.denials.WithLabelValues("STUDENT")))
}

func TestAgendaServiceList_StudentSeesOnlyOwnSessions(t *testing.T) {
	f := newAgendaFixture(t)
	requester := models.Requester{UserID: "user-stu-1", Role: models.RoleStudent, OrganizationID: "org-1"}

	resp, _, err := f.svc.List(context.Background(), requester, twoWeeks())
	require.NoError(t, err)
	assert.Equal(t, "stu-1", f.sessions.lastFilter.StudentID)

	var personal []string
	for _, o := range resp.Occurrences {
		if o.Kind == models.KindPersonalSession {
			personal = append(personal, o.SourceID)
		}
	}
	assert.Equal(t, []string{"ps-1"}, personal)
}

func TestAgendaServiceList_InstructorScope(t *testing.T) {
	f := newAgendaFixture(t)
	requester := models.Requester{UserID: "user-inst-2", Role: models.RoleInstructor, OrganizationID: "org-1"}

	resp, _, err := f.svc.List(context.Background(), requester, twoWeeks())
	require.NoError(t, err)
	assert.Equal(t, "inst-2", f.sessions.lastFilter.InstructorID)
	assert.Len(t, resp.Occurrences, 9)
}

func TestAgendaServiceList_IdentityStoreFailureIsRetryable(t *testing.T) {
	f := newAgendaFixture(t)
	f.identities.err = errors.New("connection reset")
	requester := models.Requester{UserID: "user-stu-1", Role: models.RoleStudent, OrganizationID: "org-1"}

	_, _, err := f.svc.List(context.Background(), requester, twoWeeks())
	requireAppError(t, err, "STORE_UNAVAILABLE")
	assert.True(t, appErrors.Retryable(err))
}

func TestAgendaServiceList_KindScopeSkipsSources(t *testing.T) {
	f := newAgendaFixture(t)
	q := twoWeeks()
	q.Kind = "CLASS"

	resp, _, err := f.svc.List(context.Background(), adminRequester, q)
	require.NoError(t, err)
	assert.Zero(t, f.templates.calls)
	assert.Zero(t, f.overrides.calls)
	assert.Zero(t, f.sessions.calls)
	require.Len(t, resp.Occurrences, 1)
	assert.Equal(t, "c:cls-1", resp.Occurrences[0].Token)

	f = newAgendaFixture(t)
	q = twoWeeks()
	q.CourseID = "course-1"
	resp, _, err = f.svc.List(context.Background(), adminRequester, q)
	require.NoError(t, err)
	assert.Zero(t, f.sessions.calls)
	assert.Equal(t, 1, f.classes.calls)
	// the class fake ignores the course filter; templates are filtered in memory
	assert.Len(t, resp.Occurrences, 7)
}

func TestAgendaServiceList_TemplatesFillEmptyWindow(t *testing.T) {
	f := newAgendaFixture(t)
	f.classes.list = nil
	f.sessions.list = nil

	resp, _, err := f.svc.List(context.Background(), adminRequester, twoWeeks())
	require.NoError(t, err)
	assert.Len(t, resp.Occurrences, 6)
}

func TestAgendaServiceList_StoreFailureIsRetryable(t *testing.T) {
	f := newAgendaFixture(t)
	f.classes.err = errors.New("dial tcp: connection refused")

	_, _, err := f.svc.List(context.Background(), adminRequester, twoWeeks())
	requireAppError(t, err, "STORE_UNAVAILABLE")
	assert.True(t, appErrors.Retryable(err))
}

func TestAgendaServiceGet_VirtualRoundTrip(t *testing.T) {
	f := newAgendaFixture(t)
	resp, _, err := f.svc.List(context.Background(), adminRequester, twoWeeks())
	require.NoError(t, err)

	for _, listed := range resp.Occurrences {
		if listed.Kind != models.KindTemplateVirtual {
			continue
		}
		got, err := f.svc.Get(context.Background(), adminRequester, "", listed.Token)
		require.NoError(t, err, listed.Token)
		assert.Equal(t, listed.Token, got.Token)
		assert.True(t, listed.Start.Equal(got.Start))
		assert.True(t, listed.End.Equal(got.End))
		assert.Equal(t, listed.Date, got.Date)
	}
}

func TestAgendaServiceGet_VirtualTokenWithOverrideResolvesMaterialized(t *testing.T) {
	f := newAgendaFixture(t)
	f.overrides.list = []models.OccurrenceOverride{{
		ID: "occ-9", TemplateID: "tpl-1", Date: localdate.MustParse("2024-03-08"), Status: models.StatusCompleted,
	}}
	f.overrides.attendance = map[string][]models.AttendanceRecord{
		"occ-9": {{StudentID: "stu-1", Present: true}, {StudentID: "stu-2", Present: false}},
	}

	got, err := f.svc.Get(context.Background(), adminRequester, "", "v:tpl-1:2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, models.KindTemplateMaterialized, got.Kind)
	assert.Equal(t, "m:occ-9", got.Token)
	assert.Equal(t, 1, got.AttendeeCount)
	assert.Len(t, got.Attendance, 2)

	byID, err := f.svc.Get(context.Background(), adminRequester, "", "m:occ-9")
	require.NoError(t, err)
	assert.Equal(t, got.Token, byID.Token)
	assert.True(t, got.Start.Equal(byID.Start))
	assert.Equal(t, got.Attendance, byID.Attendance)
}

func TestAgendaServiceGet_NotFoundCases(t *testing.T) {
	f := newAgendaFixture(t)
	other := mwfTemplate()
	other.ID = "tpl-other"
	other.OrganizationID = "org-2"
	f.rows.rows[other.ID] = other

	tokens := []string{
		"garbage",
		"v:tpl-1:2024-03-05",  // Tuesday, pattern does not fire
		"v:tpl-1:2024-03-20",  // after validity
		"v:tpl-gone:2024-03-06",
		"v:tpl-other:2024-03-06",
		"m:missing",
		"c:missing",
	}
	for _, token := range tokens {
		_, err := f.svc.Get(context.Background(), adminRequester, "", token)
		requireAppError(t, err, "NOT_FOUND")
	}
}

func TestAgendaServiceGet_PersonalSessionVisibility(t *testing.T) {
	f := newAgendaFixture(t)
	student := models.Requester{UserID: "user-stu-1", Role: models.RoleStudent, OrganizationID: "org-1"}

	own, err := f.svc.Get(context.Background(), student, "", "p:ps-1")
	require.NoError(t, err)
	assert.Equal(t, "Personal", own.Title)
	require.NotNil(t, own.AttendanceConfirmed)
	assert.True(t, *own.AttendanceConfirmed)

	_, err = f.svc.Get(context.Background(), student, "", "p:ps-2")
	requireAppError(t, err, "NOT_FOUND")

	unlinked := models.Requester{UserID: "user-x", Role: models.RoleStudent, OrganizationID: "org-1"}
	_, err = f.svc.Get(context.Background(), unlinked, "", "p:ps-1")
	requireAppError(t, err, "NOT_FOUND")
}

func TestAgendaServiceGet_ClassDetailCarriesAttendance(t *testing.T) {
	f := newAgendaFixture(t)
	f.classes.attendance = map[string][]models.AttendanceRecord{
		"cls-1": {{StudentID: "stu-1", Present: true}, {StudentID: "stu-3", Present: true}},
	}

	got, err := f.svc.Get(context.Background(), adminRequester, "", "c:cls-1")
	require.NoError(t, err)
	assert.Equal(t, models.KindAdHocClass, got.Kind)
	assert.Equal(t, 2, got.AttendeeCount)
	assert.Equal(t, "Aula avulsa", got.Label)
}
