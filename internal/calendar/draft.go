package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDurationMinutes = 60
	// MaxDurationMinutes bounds a single event to one leap year.
	MaxDurationMinutes = 60 * 24 * 366
)

// Draft is an event under construction. It has no identity until the
// backend assigns one on insert.
type Draft struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// NewDraft derives End from Start and a positive duration of at most
// MaxDurationMinutes.
func NewDraft(title, description string, start time.Time, durationMinutes int) (Draft, error) {
	if durationMinutes <= 0 {
		return Draft{}, errors.New("duration must be positive")
	}
	if durationMinutes > MaxDurationMinutes {
		return Draft{}, fmt.Errorf("duration of %d minutes exceeds %d", durationMinutes, MaxDurationMinutes)
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	if !end.After(start) {
		return Draft{}, errors.New("event end must be after start")
	}
	return Draft{
		Title:           title,
		Description:     description,
		Start:           start,
		End:             end,
		DurationMinutes: durationMinutes,
	}, nil
}

func (d Draft) Event() Event {
	return Event{
		Title:       d.Title,
		Description: d.Description,
		Start:       At(d.Start),
		End:         At(d.End),
	}
}
