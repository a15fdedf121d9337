// Package calendar holds the calendar backend contract, the event model the
// assistant exchanges with it, and an in-process backend implementation.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

// ErrNotFound is returned by Get and Update for unknown event IDs.
var ErrNotFound = errors.New("event not found")

// EventTime is either a zoned instant or, when AllDay is set, a bare date
// (only the date part of Time is meaningful).
type EventTime struct {
	Time   time.Time
	AllDay bool
}

func At(t time.Time) EventTime { return EventTime{Time: t} }

func OnDate(d timeres.Date, loc *time.Location) EventTime {
	return EventTime{Time: d.In(loc), AllDay: true}
}

// Date returns the calendar day of the event time in loc. All-day markers
// keep their own day regardless of loc.
func (et EventTime) Date(loc *time.Location) timeres.Date {
	if et.AllDay {
		return timeres.DateOf(et.Time)
	}
	return timeres.DateOf(et.Time.In(loc))
}

// Event is a calendar entry as seen by the assistant. Recurrence holds an
// RRULE for series masters; expanded instances carry RecurringID instead.
type Event struct {
	ID          string
	Title       string
	Start       EventTime
	End         EventTime
	Location    string
	Description string
	Link        string
	Recurrence  string
	RecurringID string
}

func (e Event) Duration() time.Duration {
	return e.End.Time.Sub(e.Start.Time)
}

// Overlaps reports whether e intersects the half-open interval [from, to).
func (e Event) Overlaps(from, to time.Time) bool {
	return e.End.Time.After(from) && e.Start.Time.Before(to)
}

// Inserted is the backend's receipt for a newly created event.
type Inserted struct {
	ID   string
	Link string
}

// ListQuery mirrors the backend list contract. Zero MaxResults means no cap.
type ListQuery struct {
	TimeMin      time.Time
	TimeMax      time.Time
	SingleEvents bool
	OrderByStart bool
	MaxResults   int
}

// Patch carries the fields to change; nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Location    *string
	Start       *EventTime
	End         *EventTime
}

// Apply copies the non-nil fields onto e.
func (p Patch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
}

// Backend is the calendar service the assistant acts on. List returns events
// whose interval overlaps [TimeMin, TimeMax).
type Backend interface {
	Insert(ctx context.Context, ev Event) (Inserted, error)
	List(ctx context.Context, q ListQuery) ([]Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Update(ctx context.Context, id string, patch Patch) (Event, error)
}
