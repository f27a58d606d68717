package agenda

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/labels"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

var brt = time.FixedZone("BRT", -3*60*60)

func newTestEngine() *Engine {
	return NewEngine(brt, labels.Default())
}

func TestMergeVirtualOccurrencesOnly(t *testing.T) {
	engine := newTestEngine()
	res := engine.Merge(Sources{Templates: []models.RecurrenceTemplate{mwfTemplate()}}, MergeOptions{
		Window: window("2024-03-04", "2024-03-17"),
	})

	require.Len(t, res.Occurrences, 6)
	assert.Equal(t, 6, res.Stats.Virtual)
	wantDays := []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Monday, time.Wednesday, time.Friday}
	for i, o := range res.Occurrences {
		assert.Equal(t, models.KindTemplateVirtual, o.Kind)
		assert.Equal(t, models.StatusScheduled, o.Status)
		assert.Equal(t, wantDays[i], o.Start.Weekday())
		assert.Equal(t, 19, o.Start.Hour())
		assert.Equal(t, 0, o.Start.Minute())
		assert.Equal(t, time.Hour, o.End.Sub(o.Start))
		assert.Equal(t, "Turma", o.Label)
		assert.Equal(t, "tpl-1", o.TemplateID)
	}
}

func TestMergeOverrideReplacesVirtual(t *testing.T) {
	engine := newTestEngine()
	override := models.OccurrenceOverride{
		ID:         "occ-1",
		TemplateID: "tpl-1",
		Date:       localdate.MustParse("2024-03-06"),
		Status:     models.StatusCancelled,
	}
	res := engine.Merge(Sources{
		Templates: []models.RecurrenceTemplate{mwfTemplate()},
		Overrides: []models.OccurrenceOverride{override},
	}, MergeOptions{Window: window("2024-03-04", "2024-03-17")})

	require.Len(t, res.Occurrences, 6)
	assert.Equal(t, 5, res.Stats.Virtual)
	assert.Equal(t, 1, res.Stats.Materialized)

	perDate := map[localdate.Date]int{}
	for _, o := range res.Occurrences {
		perDate[o.Date]++
		if o.Date == override.Date {
			assert.Equal(t, models.KindTemplateMaterialized, o.Kind)
			assert.Equal(t, models.StatusCancelled, o.Status)
			assert.Equal(t, "m:occ-1", o.Token)
		}
	}
	for d, n := range perDate {
		assert.Equal(t, 1, n, d.String())
	}
}

func TestMergeEmitsOverrideOffPattern(t *testing.T) {
	engine := newTestEngine()
	res := engine.Merge(Sources{
		Templates: []models.RecurrenceTemplate{mwfTemplate()},
		Overrides: []models.OccurrenceOverride{{
			ID:         "occ-moved",
			TemplateID: "tpl-1",
			Date:       localdate.MustParse("2024-03-07"),
			Status:     models.StatusScheduled,
		}},
	}, MergeOptions{Window: window("2024-03-04", "2024-03-10")})

	require.Len(t, res.Occurrences, 4)
	assert.Equal(t, "m:occ-moved", res.Occurrences[2].Token)
	assert.Equal(t, localdate.MustParse("2024-03-07"), res.Occurrences[2].Date)
}

func TestMergeLateEveningStaysOnLocalDate(t *testing.T) {
	engine := newTestEngine()
	tpl := mwfTemplate()
	tpl.StartTime = "23:30"

	res := engine.Merge(Sources{Templates: []models.RecurrenceTemplate{tpl}}, MergeOptions{
		Window: window("2024-03-04", "2024-03-04"),
	})

	require.Len(t, res.Occurrences, 1)
	o := res.Occurrences[0]
	assert.Equal(t, "2024-03-04", o.Date.String())
	assert.Equal(t, "2024-03-04", localdate.Of(o.Start, brt).String())
	assert.Equal(t, 5, o.Start.UTC().Day())
	assert.Equal(t, "v:tpl-1:2024-03-04", o.Token)
}

func TestMergeOrdersAllKindsByStart(t *testing.T) {
	engine := newTestEngine()
	classStart := time.Date(2024, 3, 4, 7, 0, 0, 0, brt)
	sessionStart := time.Date(2024, 3, 4, 12, 0, 0, 0, brt)
	res := engine.Merge(Sources{
		Templates: []models.RecurrenceTemplate{mwfTemplate()},
		Classes: []models.AdHocClass{{
			ID: "cls-1", Title: "Aulão", StartsAt: classStart, EndsAt: classStart.Add(time.Hour),
			Status: models.StatusScheduled, InstructorID: "inst-2",
		}},
		Sessions: []models.PersonalSession{{
			ID: "ps-1", StudentID: "stu-1", InstructorID: "inst-3",
			StartsAt: sessionStart, EndsAt: sessionStart.Add(time.Hour), Status: models.StatusScheduled,
		}},
	}, MergeOptions{Window: window("2024-03-04", "2024-03-04"), Visibility: VisibleToAll()})

	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, models.KindAdHocClass, res.Occurrences[0].Kind)
	assert.Equal(t, models.KindPersonalSession, res.Occurrences[1].Kind)
	assert.Equal(t, "Personal", res.Occurrences[1].Title)
	assert.Equal(t, models.KindTemplateVirtual, res.Occurrences[2].Kind)
}

func TestMergeVisibilityFailsClosed(t *testing.T) {
	engine := newTestEngine()
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, brt)
	sessions := []models.PersonalSession{
		{ID: "ps-1", StudentID: "stu-1", InstructorID: "inst-1", StartsAt: start, EndsAt: start.Add(time.Hour), Status: models.StatusScheduled},
		{ID: "ps-2", StudentID: "stu-2", InstructorID: "inst-2", StartsAt: start, EndsAt: start.Add(time.Hour), Status: models.StatusScheduled},
	}
	src := Sources{Templates: []models.RecurrenceTemplate{mwfTemplate()}, Sessions: sessions}
	w := window("2024-03-04", "2024-03-10")

	cases := []struct {
		name    string
		vis     Visibility
		visible []string
	}{
		{"unresolved student", VisibleToStudent(""), nil},
		{"zero value", Visibility{}, nil},
		{"student", VisibleToStudent("stu-2"), []string{"p:ps-2"}},
		{"instructor", VisibleToInstructor("inst-1"), []string{"p:ps-1"}},
		{"admin", VisibleToAll(), []string{"p:ps-1", "p:ps-2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := engine.Merge(src, MergeOptions{Window: w, Visibility: tc.vis})
			var personal []string
			for _, o := range res.Occurrences {
				if o.Kind == models.KindPersonalSession {
					personal = append(personal, o.Token)
				}
			}
			assert.Equal(t, tc.visible, personal)
			assert.Equal(t, 3, res.Stats.Virtual)
			assert.Equal(t, len(sessions)-len(tc.visible), res.Stats.HiddenPersonal)
		})
	}
}

func TestMergeStatusFilterAndSkippedTemplates(t *testing.T) {
	engine := newTestEngine()
	broken := mwfTemplate()
	broken.ID = "tpl-broken"
	broken.Weekdays = pq.Int64Array{}

	res := engine.Merge(Sources{
		Templates: []models.RecurrenceTemplate{mwfTemplate(), broken},
		Overrides: []models.OccurrenceOverride{{
			ID: "occ-1", TemplateID: "tpl-1", Date: localdate.MustParse("2024-03-06"), Status: models.StatusCancelled,
		}},
	}, MergeOptions{Window: window("2024-03-04", "2024-03-10"), Status: models.StatusCancelled})

	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "m:occ-1", res.Occurrences[0].Token)
	assert.Equal(t, []string{"tpl-broken"}, res.Stats.SkippedTemplates)
}

func TestRederiveMatchesMergedOccurrence(t *testing.T) {
	engine := newTestEngine()
	tpl := mwfTemplate()
	res := engine.Merge(Sources{Templates: []models.RecurrenceTemplate{tpl}}, MergeOptions{
		Window: window("2024-03-04", "2024-03-17"),
	})

	for _, o := range res.Occurrences {
		tok, err := Decode(o.Token)
		require.NoError(t, err)
		assert.Equal(t, tpl.ID, tok.TemplateID)
		assert.Equal(t, o.Date, tok.Date)

		again, err := engine.Rederive(tpl, tok.Date, nil)
		require.NoError(t, err)
		assert.True(t, o.Start.Equal(again.Start))
		assert.True(t, o.End.Equal(again.End))
		assert.Equal(t, o, again)
	}
}

func TestRederiveRejectsDatesTheTemplateNoLongerProduces(t *testing.T) {
	engine := newTestEngine()
	tpl := mwfTemplate()

	_, err := engine.Rederive(tpl, localdate.MustParse("2024-03-07"), nil)
	assert.ErrorIs(t, err, ErrOccurrenceGone)
	_, err = engine.Rederive(tpl, localdate.MustParse("2024-03-20"), nil)
	assert.ErrorIs(t, err, ErrOccurrenceGone)

	tpl.Active = false
	_, err = engine.Rederive(tpl, localdate.MustParse("2024-03-06"), nil)
	assert.ErrorIs(t, err, ErrOccurrenceGone)

	occ, err := engine.Rederive(tpl, localdate.MustParse("2024-03-06"), &models.OccurrenceOverride{
		ID: "occ-1", TemplateID: tpl.ID, Date: localdate.MustParse("2024-03-06"), Status: models.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindTemplateMaterialized, occ.Kind)
}

func TestMergeDuplicateOverridesYieldOneOccurrence(t *testing.T) {
	engine := newTestEngine()
	date := localdate.MustParse("2024-03-06")
	res := engine.Merge(Sources{
		Templates: []models.RecurrenceTemplate{mwfTemplate()},
		Overrides: []models.OccurrenceOverride{
			{ID: "occ-1", TemplateID: "tpl-1", Date: date, Status: models.StatusCancelled},
			{ID: "occ-2", TemplateID: "tpl-1", Date: date, Status: models.StatusCompleted},
		},
	}, MergeOptions{Window: window("2024-03-04", "2024-03-10")})

	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, 1, res.Stats.Materialized)
	var onDate []models.UnifiedOccurrence
	for _, o := range res.Occurrences {
		if o.Date == date {
			onDate = append(onDate, o)
		}
	}
	require.Len(t, onDate, 1)
	assert.Equal(t, "m:occ-2", onDate[0].Token)
	assert.Equal(t, models.StatusCompleted, onDate[0].Status)
}
