//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL, "https://cal.test")
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// window returns a far-future day unique to this run so tests do not see
// each other's rows.
func window(t *testing.T) time.Time {
	t.Helper()
	offset := time.Duration(uuid.New().ID()%100000) * 24 * time.Hour
	return time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC).Add(offset)
}

func TestIntegration_InsertGetUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	day := window(t)

	ins, err := s.Insert(ctx, calendar.Event{
		Title: "Integration standup",
		Start: calendar.At(day.Add(14 * time.Hour)),
		End:   calendar.At(day.Add(15 * time.Hour)),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if ins.Link != "https://cal.test/events/"+ins.ID {
		t.Errorf("unexpected link %q", ins.Link)
	}

	ev, err := s.Get(ctx, ins.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ev.Title != "Integration standup" {
		t.Errorf("expected title, got %q", ev.Title)
	}

	title := "Integration sync"
	newStart, newEnd := calendar.At(day.Add(16*time.Hour)), calendar.At(day.Add(17*time.Hour))
	updated, err := s.Update(ctx, ins.ID, calendar.Patch{Title: &title, Start: &newStart, End: &newEnd})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "Integration sync" || !updated.Start.Time.Equal(newStart.Time) {
		t.Errorf("unexpected updated event %+v", updated)
	}

	if _, err := s.Get(ctx, "missing-"+uuid.NewString()); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_ListOverlapAndRecurrence(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	day := window(t)

	_, err := s.Insert(ctx, calendar.Event{
		Title: "Block",
		Start: calendar.At(day.Add(14 * time.Hour)),
		End:   calendar.At(day.Add(15 * time.Hour)),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err = s.Import(ctx, []calendar.Event{{
		ID:         "series-" + uuid.NewString(),
		Title:      "Daily",
		Start:      calendar.At(day.Add(9 * time.Hour)),
		End:        calendar.At(day.Add(9*time.Hour + 30*time.Minute)),
		Recurrence: "RRULE:FREQ=DAILY;COUNT=3",
	}})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	events, err := s.List(ctx, calendar.ListQuery{
		TimeMin:      day.Add(24 * time.Hour),
		TimeMax:      day.Add(48 * time.Hour),
		SingleEvents: true,
		OrderByStart: true,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Daily" || events[0].RecurringID == "" {
		t.Fatalf("expected one expanded Daily instance, got %+v", events)
	}

	touching, err := s.List(ctx, calendar.ListQuery{
		TimeMin:      day.Add(15 * time.Hour),
		TimeMax:      day.Add(16 * time.Hour),
		SingleEvents: true,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(touching) != 0 {
		t.Errorf("expected touching interval to be free, got %+v", touching)
	}
}
