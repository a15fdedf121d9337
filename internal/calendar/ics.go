package calendar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//MikeSquared-Agency//samson//EN"

// ImportICS reads VEVENTs from an iCalendar stream. All-day dates are placed
// in loc; events without DTEND last one hour (one day when all-day).
func ImportICS(r io.Reader, loc *time.Location) ([]Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var out []Event
	for _, ve := range cal.Events() {
		ev, err := fromVEvent(ve, loc)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func fromVEvent(ve *ical.VEvent, loc *time.Location) (Event, error) {
	var ev Event
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.ID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		ev.Link = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.Recurrence = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}

	if isDateValue(startProp) {
		start, err := time.ParseInLocation("20060102", strings.TrimSpace(startProp.Value), loc)
		if err != nil {
			return ev, fmt.Errorf("parse all-day start: %w", err)
		}
		end := start.AddDate(0, 0, 1)
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if t, err := time.ParseInLocation("20060102", strings.TrimSpace(endProp.Value), loc); err == nil && t.After(start) {
				end = t
			}
		}
		ev.Start = EventTime{Time: start, AllDay: true}
		ev.End = EventTime{Time: end, AllDay: true}
		return ev, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("parse start: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	ev.Start = At(start.In(loc))
	ev.End = At(end.In(loc))
	return ev, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// ExportICS renders events as an iCalendar document.
func ExportICS(events []Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		if ev.Start.AllDay {
			ve.SetAllDayStartAt(ev.Start.Time)
			ve.SetAllDayEndAt(ev.End.Time)
		} else {
			ve.SetStartAt(ev.Start.Time)
			ve.SetEndAt(ev.End.Time)
		}
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Link != "" {
			ve.SetURL(ev.Link)
		}
		if ev.Recurrence != "" {
			ve.AddProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(ev.Recurrence, "RRULE:"))
		}
	}
	return cal.Serialize()
}
