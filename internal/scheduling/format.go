package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
)

const (
	longDateLayout  = "Monday, January 2, 2006"
	shortDateLayout = "Mon Jan 2"
	clockLayout     = "3:04 PM"
)

// FormatEvents renders one line per event. withDate prefixes each time with
// its day, for listings that span more than one date. A location tally is
// appended when any event has a location.
func (a *Actions) FormatEvents(events []calendar.Event, withDate bool) string {
	lines := make([]string, 0, len(events))
	tally := make(map[string]int)
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("- %s %s", ev.Title, a.when(ev, withDate)))
		if loc := strings.TrimSpace(ev.Location); loc != "" {
			tally[loc]++
		}
	}
	out := strings.Join(lines, "\n")
	if len(tally) > 0 {
		out += "\n\nLocations: " + formatTally(tally)
	}
	return out
}

func (a *Actions) when(ev calendar.Event, withDate bool) string {
	loc := a.Location()
	if ev.Start.AllDay {
		if withDate {
			return "on " + ev.Start.Time.Format(shortDateLayout) + " (all-day event)"
		}
		return "(all-day event)"
	}
	start := ev.Start.Time.In(loc)
	if withDate {
		return "at " + start.Format(shortDateLayout+", "+clockLayout)
	}
	return "at " + start.Format(clockLayout)
}

func formatTally(tally map[string]int) string {
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if tally[names[i]] != tally[names[j]] {
			return tally[names[i]] > tally[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (%d)", name, tally[name])
	}
	return strings.Join(parts, ", ")
}

func humanDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes == 60:
		return "1 hour"
	case minutes%60 == 0:
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
	}
}
