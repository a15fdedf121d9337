package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Expand replaces recurring series with their concrete instances overlapping
// [from, to). Non-recurring events are kept when they overlap the window.
func Expand(events []Event, from, to time.Time) ([]Event, error) {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Recurrence == "" {
			if ev.Overlaps(from, to) {
				out = append(out, ev)
			}
			continue
		}
		instances, err := expandSeries(ev, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	return out, nil
}

func expandSeries(master Event, from, to time.Time) ([]Event, error) {
	rule := strings.TrimPrefix(strings.TrimSpace(master.Recurrence), "RRULE:")
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("parse rrule for %s: %w", master.ID, err)
	}
	r.DTStart(master.Start.Time)

	dur := master.Duration()
	// Instances that started before the window can still overlap it.
	starts := r.Between(from.Add(-dur), to, true)

	out := make([]Event, 0, len(starts))
	for _, s := range starts {
		inst := master
		inst.Recurrence = ""
		inst.RecurringID = master.ID
		inst.ID = master.ID + "_" + s.UTC().Format("20060102T150405Z")
		inst.Start = EventTime{Time: s, AllDay: master.Start.AllDay}
		inst.End = EventTime{Time: s.Add(dur), AllDay: master.End.AllDay}
		if inst.Overlaps(from, to) {
			out = append(out, inst)
		}
	}
	return out, nil
}

// SortByStart orders events by start time, breaking ties by title.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Time.Equal(b.Start.Time) {
			return a.Start.Time.Before(b.Start.Time)
		}
		return a.Title < b.Title
	})
}
