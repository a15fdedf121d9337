// Package timeres turns loose date and time expressions into zoned timestamps.
//
// Resolution never fails: an expression that cannot be understood degrades to
// the caller's fallback date, then to the current date (or the current time of
// day for clock expressions).
package timeres

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"Monday, January 2, 2006",
}

// Layouts without a year are pinned to the current year.
var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"2 January",
	"01/02",
	"1/2",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04pm",
	"3pm",
	"15",
}

var namedClocks = map[string][2]int{
	"noon":     {12, 0},
	"midday":   {12, 0},
	"midnight": {0, 0},
}

// Resolver is a pure function of its inputs, the configured zone and the clock.
type Resolver struct {
	loc    *time.Location
	now    func() time.Time
	parser *when.Parser
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(loc *time.Location, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)

	r := &Resolver{loc: loc, now: time.Now, parser: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the current instant in the configured zone.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

func (r *Resolver) Today() Date { return DateOf(r.Now()) }

// Resolve combines a date expression and an optional clock expression into a
// timestamp in the configured zone. An empty timeExpr means "now".
func (r *Resolver) Resolve(dateExpr, timeExpr string, fallback *Date) time.Time {
	day := r.ResolveDate(dateExpr, fallback)

	now := r.Now()
	hour, minute := now.Hour(), now.Minute()
	if strings.TrimSpace(timeExpr) != "" {
		if h, m, ok := r.ParseClock(timeExpr); ok {
			hour, minute = h, m
		}
	}
	return day.At(hour, minute, r.loc)
}

// ResolveDate resolves expr to a day, degrading to fallback and then today.
func (r *Resolver) ResolveDate(expr string, fallback *Date) Date {
	if d, ok := r.ParseDate(expr); ok {
		return d
	}
	if fallback != nil && !fallback.IsZero() {
		return *fallback
	}
	return r.Today()
}

// ParseDate reports whether expr names a recognizable day.
func (r *Resolver) ParseDate(expr string) (Date, bool) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Date{}, false
	}
	today := r.Today()
	switch s {
	case "today", "tonight":
		return today, true
	case "tomorrow":
		return today.AddDays(1), true
	case "yesterday":
		return today.AddDays(-1), true
	}

	raw := strings.TrimSpace(expr)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return DateOf(t), true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return Date{Year: today.Year, Month: t.Month(), Day: t.Day()}, true
		}
	}

	res, err := r.parser.Parse(raw, r.Now())
	if err != nil || res == nil {
		return Date{}, false
	}
	return DateOf(res.Time.In(r.loc)), true
}

// ParseClock reports the hour and minute named by expr.
func (r *Resolver) ParseClock(expr string) (int, int, bool) {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.TrimPrefix(s, "at ")
	s = strings.NewReplacer(" ", "", ".", "").Replace(s)
	if s == "" {
		return 0, 0, false
	}
	if hm, ok := namedClocks[s]; ok {
		return hm[0], hm[1], true
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}

	res, err := r.parser.Parse(expr, r.Now())
	if err != nil || res == nil {
		return 0, 0, false
	}
	t := res.Time.In(r.loc)
	return t.Hour(), t.Minute(), true
}
