package calendar

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const defaultLinkBase = "https://calendar.local"

// Memory is a process-local Backend. It is safe for concurrent use; events
// are copied in and out so callers never share backing state.
type Memory struct {
	mu       sync.RWMutex
	events   map[string]Event
	order    []string
	linkBase string
}

// NewMemory creates an empty backend. linkBase prefixes generated event
// links; empty selects a placeholder host.
func NewMemory(linkBase string) *Memory {
	if linkBase == "" {
		linkBase = defaultLinkBase
	}
	return &Memory{
		events:   make(map[string]Event),
		linkBase: strings.TrimSuffix(linkBase, "/"),
	}
}

// Seed loads pre-existing events, keeping IDs that are already set.
func (m *Memory) Seed(events ...Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		m.putLocked(ev)
	}
}

func (m *Memory) Insert(_ context.Context, ev Event) (Inserted, error) {
	if !ev.End.Time.After(ev.Start.Time) {
		return Inserted{}, errors.New("event end must be after start")
	}
	ev.ID = ""
	m.mu.Lock()
	defer m.mu.Unlock()
	ev = m.putLocked(ev)
	return Inserted{ID: ev.ID, Link: ev.Link}, nil
}

func (m *Memory) putLocked(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Link == "" {
		ev.Link = m.linkBase + "/events/" + ev.ID
	}
	if _, exists := m.events[ev.ID]; !exists {
		m.order = append(m.order, ev.ID)
	}
	m.events[ev.ID] = ev
	return ev
}

func (m *Memory) List(_ context.Context, q ListQuery) ([]Event, error) {
	m.mu.RLock()
	all := make([]Event, 0, len(m.order))
	for _, id := range m.order {
		all = append(all, m.events[id])
	}
	m.mu.RUnlock()

	var out []Event
	if q.SingleEvents {
		expanded, err := Expand(all, q.TimeMin, q.TimeMax)
		if err != nil {
			return nil, err
		}
		out = expanded
	} else {
		for _, ev := range all {
			if ev.Recurrence != "" && ev.Start.Time.Before(q.TimeMax) {
				out = append(out, ev)
			} else if ev.Overlaps(q.TimeMin, q.TimeMax) {
				out = append(out, ev)
			}
		}
	}

	if q.OrderByStart {
		SortByStart(out)
	}
	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return ev, nil
}

func (m *Memory) Update(_ context.Context, id string, patch Patch) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	patch.Apply(&ev)
	if !ev.End.Time.After(ev.Start.Time) {
		return Event{}, errors.New("event end must be after start")
	}
	m.events[id] = ev
	return ev, nil
}
