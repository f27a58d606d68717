package localdate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfUsesLocationNotUTC(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	instant := time.Date(2024, 3, 6, 2, 30, 0, 0, time.UTC) // 23:30 on the 5th in BRT

	assert.Equal(t, New(2024, time.March, 5), Of(instant, saoPaulo))
	assert.Equal(t, New(2024, time.March, 6), Of(instant, time.UTC))
}

func TestAddDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	d := New(2024, time.March, 9)
	next := d.AddDays(1)
	assert.Equal(t, "2024-03-10", next.String())

	start := next.At(TimeOfDay{Hour: 19}, ny)
	assert.Equal(t, 19, start.Hour())
	assert.Equal(t, next, Of(start, ny))
}

func TestParseAndFormat(t *testing.T) {
	d, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, d.Weekday())
	assert.Equal(t, "2024-02-29", d.String())

	_, err = Parse("29/02/2024")
	assert.Error(t, err)
}

func TestStartOfWeek(t *testing.T) {
	wed := MustParse("2024-03-06")
	assert.Equal(t, "2024-03-04", wed.StartOfWeek(time.Monday).String())
	assert.Equal(t, "2024-03-03", wed.StartOfWeek(time.Sunday).String())
	mon := MustParse("2024-03-04")
	assert.Equal(t, mon, mon.StartOfWeek(time.Monday))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("19:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 19}, tod)
	assert.Equal(t, "19:00", tod.String())

	tod, err = ParseTimeOfDay("07:05:30")
	require.NoError(t, err)
	assert.Equal(t, "07:05:30", tod.String())

	_, err = ParseTimeOfDay("7pm")
	assert.Error(t, err)
}

func TestWindowIntersect(t *testing.T) {
	a := NewWindow(MustParse("2024-03-01"), MustParse("2024-03-14"))
	b := NewWindow(MustParse("2024-03-10"), MustParse("2024-04-01"))

	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, "2024-03-10..2024-03-14", got.String())
	assert.Equal(t, 5, got.Days())

	_, ok = a.Intersect(NewWindow(MustParse("2024-04-01"), MustParse("2024-04-02")))
	assert.False(t, ok)
}

func TestScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 1, 0, 0, 0, 0, time.FixedZone("X", 5*3600))))
	assert.Equal(t, "2024-05-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-02T00:00:00Z")))
	assert.Equal(t, "2024-05-02", d.String())

	payload, err := json.Marshal(struct {
		Date Date `json:"date"`
	}{Date: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-05-02"}`, string(payload))
}
