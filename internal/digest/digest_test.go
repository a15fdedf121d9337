package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/hermes"
	"github.com/MikeSquared-Agency/samson/internal/scheduling"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	subject string
	data    any
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.subject, p.data = subject, data
	return nil
}

type fakePoster struct {
	date, listing string
	err           error
}

func (p *fakePoster) PostAgenda(_ context.Context, date, listing string) (string, error) {
	p.date, p.listing = date, listing
	return "1.0", p.err
}

type failingLister struct{}

func (failingLister) RetrieveForDate(context.Context, timeres.Date) (string, error) {
	return "", errors.New("backend down")
}

func newResolver() *timeres.Resolver {
	now := time.Date(2026, time.October, 16, 7, 0, 0, 0, time.UTC)
	return timeres.New(time.UTC, timeres.WithClock(func() time.Time { return now }))
}

func TestRunOnce_PublishesAndPosts(t *testing.T) {
	mem := calendar.NewMemory("")
	start := time.Date(2026, time.October, 16, 14, 0, 0, 0, time.UTC)
	mem.Seed(calendar.Event{Title: "Standup", Start: calendar.At(start), End: calendar.At(start.Add(time.Hour))})

	resolver := newResolver()
	actions := scheduling.New(mem, resolver, 0, discardLogger())
	pub, poster := &fakePublisher{}, &fakePoster{}

	agenda, err := New(actions, resolver, pub, poster, discardLogger()).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2026-10-16", agenda.Date)
	assert.Contains(t, agenda.Text, "Standup at 2:00 PM")
	assert.Equal(t, hermes.SubjectAgenda, pub.subject)
	assert.Equal(t, agenda, pub.data)
	assert.Equal(t, "2026-10-16", poster.date)
	assert.Equal(t, agenda.Text, poster.listing)
}

func TestRunOnce_OptionalSinksAndPostFailure(t *testing.T) {
	resolver := newResolver()
	actions := scheduling.New(calendar.NewMemory(""), resolver, 0, discardLogger())

	agenda, err := New(actions, resolver, nil, nil, discardLogger()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You have no events scheduled.", agenda.Text)

	poster := &fakePoster{err: errors.New("channel_not_found")}
	_, err = New(actions, resolver, nil, poster, discardLogger()).RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestRunOnce_ListingFailure(t *testing.T) {
	_, err := New(failingLister{}, newResolver(), nil, nil, discardLogger()).RunOnce(context.Background())
	assert.ErrorContains(t, err, "backend down")
}

func TestStart_ValidatesSchedule(t *testing.T) {
	d := New(failingLister{}, newResolver(), nil, nil, discardLogger())
	assert.Error(t, d.Start("every morning"))

	require.NoError(t, d.Start("0 7 * * *"))
	d.Stop()
}
