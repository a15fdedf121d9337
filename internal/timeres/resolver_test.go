package timeres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, time.Time) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, time.October, 16, 9, 41, 27, 0, loc)
	return New(loc, WithClock(func() time.Time { return now })), now
}

func TestResolve_TodayAndTomorrow(t *testing.T) {
	r, _ := newTestResolver(t)

	got := r.Resolve("Today", "14:30", nil)
	assert.Equal(t, time.Date(2026, time.October, 16, 14, 30, 0, 0, r.Location()), got)

	got = r.Resolve("TOMORROW", "noon", nil)
	assert.Equal(t, time.Date(2026, time.October, 17, 12, 0, 0, 0, r.Location()), got)
}

func TestResolve_TomorrowCrossesMonth(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.December, 31, 22, 0, 0, 0, loc)
	r := New(loc, WithClock(func() time.Time { return now }))

	got := r.Resolve("tomorrow", "8am", nil)
	assert.Equal(t, time.Date(2027, time.January, 1, 8, 0, 0, 0, loc), got)
}

func TestResolve_ExplicitFormats(t *testing.T) {
	r, _ := newTestResolver(t)

	cases := map[string]Date{
		"2026-11-03":       {2026, time.November, 3},
		"11/03/2026":       {2026, time.November, 3},
		"November 3, 2026": {2026, time.November, 3},
		"Nov 3":            {2026, time.November, 3},
	}
	for expr, want := range cases {
		got := r.Resolve(expr, "9:15", nil)
		assert.Equal(t, want.At(9, 15, r.Location()), got, expr)
	}
}

func TestResolve_ClockFormats(t *testing.T) {
	r, _ := newTestResolver(t)

	cases := map[string][2]int{
		"15:00":     {15, 0},
		"3pm":       {15, 0},
		"3:45 PM":   {15, 45},
		"at 7 a.m.": {7, 0},
		"midnight":  {0, 0},
		"9":         {9, 0},
	}
	for expr, want := range cases {
		h, m, ok := r.ParseClock(expr)
		require.True(t, ok, expr)
		assert.Equal(t, want[0], h, expr)
		assert.Equal(t, want[1], m, expr)
	}
}

func TestResolve_UnparseableDateUsesFallback(t *testing.T) {
	r, _ := newTestResolver(t)
	fallback := Date{2026, time.October, 22}

	got := r.Resolve("zzqx vrrp", "10:00", &fallback)
	assert.Equal(t, fallback.At(10, 0, r.Location()), got)
}

func TestResolve_UnparseableDateWithoutFallbackIsToday(t *testing.T) {
	r, now := newTestResolver(t)

	got := r.Resolve("zzqx vrrp", "10:00", nil)
	assert.Equal(t, DateOf(now), DateOf(got))
	assert.Equal(t, 10, got.Hour())
}

func TestResolve_EmptyDateUsesFallback(t *testing.T) {
	r, _ := newTestResolver(t)
	fallback := Date{2026, time.October, 20}

	got := r.Resolve("", "11:00", &fallback)
	assert.Equal(t, fallback.At(11, 0, r.Location()), got)
}

func TestResolve_MissingOrBadTimeUsesCurrentClock(t *testing.T) {
	r, now := newTestResolver(t)

	for _, expr := range []string{"", "qqq zzz"} {
		got := r.Resolve("2026-10-30", expr, nil)
		assert.Equal(t, now.Hour(), got.Hour(), expr)
		assert.Equal(t, now.Minute(), got.Minute(), expr)
		assert.Equal(t, Date{2026, time.October, 30}, DateOf(got), expr)
	}
}

func TestResolve_AlwaysInConfiguredZone(t *testing.T) {
	r, _ := newTestResolver(t)

	for _, expr := range []string{"today", "tomorrow", "2026-01-05", "", "nonsense words"} {
		got := r.Resolve(expr, "12:00", nil)
		assert.Equal(t, r.Location(), got.Location(), expr)
	}
}

func TestDate_DayBounds(t *testing.T) {
	d := Date{2026, time.March, 8}
	start, end := d.DayBounds(time.UTC)

	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 8, 23, 59, 59, 999999999, time.UTC), end)
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2026-02-28")))
	assert.Equal(t, "2026-02-28", d.String())
	assert.Equal(t, Date{2026, time.March, 1}, d.AddDays(1))
}
