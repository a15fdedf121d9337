package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/samson/internal/dialogue"
	"github.com/MikeSquared-Agency/samson/internal/oracle"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newExtractor(reply string, opts Options) (*Extractor, *[]string) {
	var prompts []string
	o := oracle.Func(func(_ context.Context, system, user string) (string, error) {
		prompts = append(prompts, user)
		return reply, nil
	})
	r := timeres.New(time.UTC, timeres.WithClock(func() time.Time { return testNow }))
	return New(o, r, opts, discardLogger()), &prompts
}

func TestExtract_FullDetails(t *testing.T) {
	ext, prompts := newExtractor(`{"title":"Dentist","date":"2026-10-20","time":"15:00","duration_minutes":45,"description":"bring forms"}`, DefaultOptions())

	draft, err := ext.Extract(context.Background(), "dentist on the 20th at 3pm for 45 minutes, bring forms", dialogue.New(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Dentist", draft.Title)
	assert.Equal(t, "bring forms", draft.Description)
	assert.Equal(t, time.Date(2026, time.October, 20, 15, 0, 0, 0, time.UTC), draft.Start)
	assert.Equal(t, time.Date(2026, time.October, 20, 15, 45, 0, 0, time.UTC), draft.End)
	assert.Equal(t, 45, draft.DurationMinutes)

	require.Len(t, *prompts, 1)
	assert.Contains(t, (*prompts)[0], "dentist on the 20th")
}

func TestExtract_DefaultsWithoutTitle(t *testing.T) {
	ext, _ := newExtractor(`{"time":"12:00","duration_minutes":60}`, DefaultOptions())

	draft, err := ext.Extract(context.Background(), "lunch at noon for an hour", dialogue.New(), nil)
	require.NoError(t, err)

	assert.Empty(t, draft.Title)
	assert.Empty(t, draft.Description)
	assert.Equal(t, time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC), draft.Start)
	assert.Equal(t, 60, draft.DurationMinutes)
}

func TestExtract_HintDateWinsOverContextDate(t *testing.T) {
	ext, _ := newExtractor(`{"time":"12:00","duration_minutes":60}`, DefaultOptions())
	c := dialogue.New()
	c.MentionDate(timeres.Date{Year: 2026, Month: time.October, Day: 22})
	hint := timeres.Date{Year: 2026, Month: time.October, Day: 17}

	draft, err := ext.Extract(context.Background(), "lunch tomorrow at noon for an hour", c, &hint)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC), draft.Start)
	assert.Equal(t, time.Date(2026, time.October, 17, 13, 0, 0, 0, time.UTC), draft.End)
	// The context is only read.
	assert.Equal(t, timeres.Date{Year: 2026, Month: time.October, Day: 22}, *c.LastMentionedDate)
}

func TestExtract_HintDateIsNeverBumped(t *testing.T) {
	ext, _ := newExtractor(`{"title":"Walk","time":"07:00"}`, DefaultOptions())
	hint := timeres.Date{Year: 2026, Month: time.October, Day: 16}

	draft, err := ext.Extract(context.Background(), "walk today at 7", dialogue.New(), &hint)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 16, 7, 0, 0, 0, time.UTC), draft.Start)
}

func TestExtract_MissingDurationUsesDefault(t *testing.T) {
	ext, _ := newExtractor(`{"title":"Call","date":"tomorrow","time":"10:00"}`, DefaultOptions())

	draft, err := ext.Extract(context.Background(), "call tomorrow at 10", dialogue.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 60, draft.DurationMinutes)
	assert.Equal(t, draft.Start.Add(time.Hour), draft.End)
}

func TestExtract_MissingDateUsesContextDate(t *testing.T) {
	ext, _ := newExtractor(`{"title":"Review","time":"08:00"}`, DefaultOptions())
	c := dialogue.New()
	c.MentionDate(timeres.Date{Year: 2026, Month: time.October, Day: 22})

	draft, err := ext.Extract(context.Background(), "add a review at 8", c, nil)
	require.NoError(t, err)
	// A carried-over date is never bumped even though 08:00 is earlier than now's clock.
	assert.Equal(t, time.Date(2026, time.October, 22, 8, 0, 0, 0, time.UTC), draft.Start)
}

func TestExtract_BarePastTimeBumpsToTomorrow(t *testing.T) {
	ext, _ := newExtractor(`{"title":"Walk","time":"07:00"}`, DefaultOptions())

	draft, err := ext.Extract(context.Background(), "walk at 7", dialogue.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 17, 7, 0, 0, 0, time.UTC), draft.Start)
}

func TestExtract_BumpPolicyDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.BumpPastBareTime = false
	ext, _ := newExtractor(`{"title":"Walk","time":"07:00"}`, opts)

	draft, err := ext.Extract(context.Background(), "walk at 7", dialogue.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 16, 7, 0, 0, 0, time.UTC), draft.Start)
}

func TestExtract_DurationCoercion(t *testing.T) {
	for _, raw := range []string{`"90"`, `90`, `90.0`} {
		ext, _ := newExtractor(`{"title":"Workshop","date":"today","time":"13:00","duration_minutes":`+raw+`}`, DefaultOptions())
		draft, err := ext.Extract(context.Background(), "workshop", dialogue.New(), nil)
		require.NoError(t, err, raw)
		assert.Equal(t, 90, draft.DurationMinutes, raw)
	}
}

func TestExtract_InvalidDuration(t *testing.T) {
	for _, raw := range []string{`0`, `-30`, `"an hour"`, `1.5`, `true`, `[60]`,
		`527041`, `153722868`, `200000000`, `2000000000`, `"153722868"`, `1e30`} {
		ext, _ := newExtractor(`{"title":"Workshop","duration_minutes":`+raw+`}`, DefaultOptions())
		_, err := ext.Extract(context.Background(), "workshop", dialogue.New(), nil)

		var extErr *ExtractionError
		require.True(t, errors.As(err, &extErr), raw)
		assert.Equal(t, "invalid duration", extErr.Reason, raw)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	ext, _ := newExtractor("this is not json", DefaultOptions())

	_, err := ext.Extract(context.Background(), "something", dialogue.New(), nil)
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.ErrorIs(t, err, oracle.ErrNoObject)
}

func TestExtract_OracleFailure(t *testing.T) {
	o := oracle.Func(func(context.Context, string, string) (string, error) {
		return "", errors.New("connection reset")
	})
	ext := New(o, timeres.New(time.UTC), DefaultOptions(), discardLogger())

	_, err := ext.Extract(context.Background(), "something", dialogue.New(), nil)
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.True(t, strings.Contains(err.Error(), "connection reset"))
}

func TestExtract_EndAlwaysAfterStart(t *testing.T) {
	for _, minutes := range []string{"1", "15", "60", "600", "1440", "527040"} {
		ext, _ := newExtractor(`{"title":"x","date":"today","time":"23:30","duration_minutes":`+minutes+`}`, DefaultOptions())
		draft, err := ext.Extract(context.Background(), "x", dialogue.New(), nil)
		require.NoError(t, err)
		assert.True(t, draft.End.After(draft.Start), minutes)
	}
}

func TestExtractChanges(t *testing.T) {
	ext, _ := newExtractor(`{"new_title":"Sync","time":"16:00"}`, DefaultOptions())

	slots, err := ext.ExtractChanges(context.Background(), "rename standup to sync and move it to 4pm", dialogue.New())
	require.NoError(t, err)
	assert.Equal(t, "Sync", slots.Title)
	assert.Equal(t, "16:00", slots.Time)
	assert.Empty(t, slots.Date)
	assert.False(t, slots.HasDuration)
	assert.False(t, slots.HasDescription)
}
