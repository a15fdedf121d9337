// Package scheduling executes fully resolved requests against the calendar
// backend: conflict detection, creation, listings, lookups and edits.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

const (
	DefaultLookupWindow = 10

	// NoEventsText is the fixed reply for an empty listing.
	NoEventsText = "You have no events scheduled."

	lookupHorizon = 365 * 24 * time.Hour
)

// ErrRecurringInstance is returned when an edit targets one occurrence of a
// recurring series.
var ErrRecurringInstance = errors.New("cannot modify a single occurrence of a recurring event")

type Actions struct {
	backend      calendar.Backend
	resolver     *timeres.Resolver
	lookupWindow int
	logger       *slog.Logger
}

func New(backend calendar.Backend, resolver *timeres.Resolver, lookupWindow int, logger *slog.Logger) *Actions {
	if lookupWindow <= 0 {
		lookupWindow = DefaultLookupWindow
	}
	return &Actions{backend: backend, resolver: resolver, lookupWindow: lookupWindow, logger: logger}
}

func (a *Actions) Location() *time.Location { return a.resolver.Location() }

// Conflicts returns the timed events overlapping the draft's [Start, End).
// All-day events are never conflicts.
func (a *Actions) Conflicts(ctx context.Context, d calendar.Draft) ([]calendar.Event, error) {
	events, err := a.backend.List(ctx, calendar.ListQuery{
		TimeMin:      d.Start,
		TimeMax:      d.End,
		SingleEvents: true,
		OrderByStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}

	var out []calendar.Event
	for _, ev := range events {
		// All-day events are free time.
		if ev.Start.AllDay || !ev.Overlaps(d.Start, d.End) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Create inserts the draft and returns the stored event with its backend ID
// and link. Callers run Conflicts first; Create does not retry.
func (a *Actions) Create(ctx context.Context, d calendar.Draft) (calendar.Event, error) {
	ev := d.Event()
	ins, err := a.backend.Insert(ctx, ev)
	if err != nil {
		return calendar.Event{}, err
	}
	ev.ID = ins.ID
	ev.Link = ins.Link

	a.logger.Info("event created", "event_id", ev.ID, "title", ev.Title,
		"start", ev.Start.Time.Format(time.RFC3339))
	return ev, nil
}

// Confirmation renders the reply for a created event.
func (a *Actions) Confirmation(ev calendar.Event) string {
	loc := a.Location()
	start, end := ev.Start.Time.In(loc), ev.End.Time.In(loc)

	var b strings.Builder
	fmt.Fprintf(&b, "Event created: %s\n", ev.Title)
	fmt.Fprintf(&b, "Date: %s\n", start.Format(longDateLayout))
	fmt.Fprintf(&b, "Time: %s - %s (%s)\n", start.Format(clockLayout), end.Format(clockLayout), humanDuration(ev.Duration()))
	if ev.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", ev.Description)
	}
	fmt.Fprintf(&b, "Link: %s", ev.Link)
	return b.String()
}

// RetrieveForDate lists the day's events in the configured zone.
func (a *Actions) RetrieveForDate(ctx context.Context, day timeres.Date) (string, error) {
	from, to := day.DayBounds(a.Location())
	events, err := a.list(ctx, from, to)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return NoEventsText, nil
	}
	header := fmt.Sprintf("Here are your events for %s:\n", from.Format(longDateLayout))
	return header + a.FormatEvents(events, false), nil
}

// RetrieveForPeriod lists events from the start of first to the end of last,
// inclusive. Reversed bounds are swapped.
func (a *Actions) RetrieveForPeriod(ctx context.Context, first, last timeres.Date) (string, error) {
	if last.Before(first) {
		first, last = last, first
	}
	from, _ := first.DayBounds(a.Location())
	_, to := last.DayBounds(a.Location())

	events, err := a.list(ctx, from, to)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return NoEventsText, nil
	}
	header := fmt.Sprintf("Here are your events from %s to %s:\n",
		from.Format(shortDateLayout), to.Format(shortDateLayout))
	return header + a.FormatEvents(events, true), nil
}

func (a *Actions) list(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	events, err := a.backend.List(ctx, calendar.ListQuery{
		TimeMin:      from,
		TimeMax:      to,
		SingleEvents: true,
		OrderByStart: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// LookupByTitle scans the next upcoming events for a case-insensitive exact
// title match. ok is false when nothing matches.
func (a *Actions) LookupByTitle(ctx context.Context, name string) (calendar.Event, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return calendar.Event{}, false, nil
	}
	now := a.resolver.Now()
	events, err := a.backend.List(ctx, calendar.ListQuery{
		TimeMin:      now,
		TimeMax:      now.Add(lookupHorizon),
		SingleEvents: true,
		OrderByStart: true,
		MaxResults:   a.lookupWindow,
	})
	if err != nil {
		return calendar.Event{}, false, fmt.Errorf("lookup events: %w", err)
	}
	for _, ev := range events {
		if strings.EqualFold(strings.TrimSpace(ev.Title), name) {
			return ev, true, nil
		}
	}
	return calendar.Event{}, false, nil
}

// Details renders a single event for get_event_details.
func (a *Actions) Details(ev calendar.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s", ev.Title, a.when(ev, true))
	if !ev.Start.AllDay {
		fmt.Fprintf(&b, " until %s", ev.End.Time.In(a.Location()).Format(clockLayout))
	}
	b.WriteString(".")
	if ev.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", ev.Location)
	}
	if ev.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", ev.Description)
	}
	if ev.Link != "" {
		fmt.Fprintf(&b, "\nLink: %s", ev.Link)
	}
	return b.String()
}

// Change describes an edit to an existing event. Empty strings and a zero
// DurationMinutes leave the corresponding field as it is.
type Change struct {
	Title           string
	Date            string
	Time            string
	DurationMinutes int
	Description     *string
}

func (c Change) empty() bool {
	return c.Title == "" && c.Date == "" && c.Time == "" && c.DurationMinutes == 0 && c.Description == nil
}

// Modify applies ch to ev. A new date or time is resolved against the
// event's current start; the duration is kept unless ch sets one.
func (a *Actions) Modify(ctx context.Context, ev calendar.Event, ch Change) (calendar.Event, error) {
	if ev.RecurringID != "" {
		return calendar.Event{}, ErrRecurringInstance
	}
	if ch.empty() {
		return ev, nil
	}

	var patch calendar.Patch
	if ch.Title != "" {
		patch.Title = &ch.Title
	}
	if ch.Description != nil {
		patch.Description = ch.Description
	}

	if ch.Date != "" || ch.Time != "" || ch.DurationMinutes > 0 {
		loc := a.Location()
		current := ev.Start.Time.In(loc)
		day := ev.Start.Date(loc)
		day = a.resolver.ResolveDate(ch.Date, &day)

		hour, minute := current.Hour(), current.Minute()
		if h, m, ok := a.resolver.ParseClock(ch.Time); ok {
			hour, minute = h, m
		}

		duration := ev.Duration()
		if ch.DurationMinutes > 0 {
			duration = time.Duration(ch.DurationMinutes) * time.Minute
		}

		start := calendar.At(day.At(hour, minute, loc))
		end := calendar.At(start.Time.Add(duration))
		patch.Start, patch.End = &start, &end
	}

	updated, err := a.backend.Update(ctx, ev.ID, patch)
	if err != nil {
		return calendar.Event{}, err
	}
	a.logger.Info("event updated", "event_id", updated.ID, "title", updated.Title)
	return updated, nil
}

// UpdateConfirmation renders the reply for an edited event.
func (a *Actions) UpdateConfirmation(ev calendar.Event) string {
	return fmt.Sprintf("Event updated: %s, now %s.", ev.Title, a.when(ev, true))
}
