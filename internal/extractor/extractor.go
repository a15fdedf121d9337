package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/dialogue"
	"github.com/MikeSquared-Agency/samson/internal/oracle"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

type Options struct {
	// DefaultDurationMinutes applies when the user gives no duration.
	DefaultDurationMinutes int
	// BumpPastBareTime moves a bare clock time that already passed today to
	// tomorrow. It only applies when neither the user nor the context named a day.
	BumpPastBareTime bool
}

func DefaultOptions() Options {
	return Options{DefaultDurationMinutes: calendar.DefaultDurationMinutes, BumpPastBareTime: true}
}

type Extractor struct {
	oracle   oracle.Oracle
	resolver *timeres.Resolver
	opts     Options
	logger   *slog.Logger
}

func New(o oracle.Oracle, resolver *timeres.Resolver, opts Options, logger *slog.Logger) *Extractor {
	if opts.DefaultDurationMinutes <= 0 {
		opts.DefaultDurationMinutes = calendar.DefaultDurationMinutes
	}
	return &Extractor{oracle: o, resolver: resolver, opts: opts, logger: logger}
}

// Extract turns an utterance into an event draft. The title is left empty
// when the user gave none. When the oracle names no date, hint is used,
// then the context's last mentioned date, then today. A malformed oracle
// reply or a duration that is not a positive integer yields an
// *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, utterance string, c *dialogue.Context, hint *timeres.Date) (calendar.Draft, error) {
	slots, err := e.slots(ctx, systemPrompt, utterance, c)
	if err != nil {
		return calendar.Draft{}, err
	}

	duration := e.opts.DefaultDurationMinutes
	if slots.HasDuration {
		duration = slots.DurationMinutes
	}

	fallback := hint
	if fallback == nil {
		fallback = c.LastMentionedDate
	}
	start := e.resolver.Resolve(slots.Date, slots.Time, fallback)
	if slots.Date == "" && slots.Time != "" && fallback == nil &&
		e.opts.BumpPastBareTime && start.Before(e.resolver.Now()) {
		start = start.AddDate(0, 0, 1)
	}

	draft, err := calendar.NewDraft(slots.Title, slots.Description, start, duration)
	if err != nil {
		return calendar.Draft{}, &ExtractionError{Reason: "invalid duration", Err: err}
	}

	e.logger.Info("event details extracted",
		"title", draft.Title,
		"start", draft.Start.Format("2006-01-02T15:04:05Z07:00"),
		"duration_minutes", draft.DurationMinutes,
	)
	return draft, nil
}

// ExtractChanges reads only the fields the user wants to change on an
// existing event. The new title, if any, is reported in Slots.Title.
func (e *Extractor) ExtractChanges(ctx context.Context, utterance string, c *dialogue.Context) (Slots, error) {
	return e.slots(ctx, changesSystemPrompt, utterance, c)
}

func (e *Extractor) slots(ctx context.Context, system, utterance string, c *dialogue.Context) (Slots, error) {
	prompt := fmt.Sprintf(extractionUserPrompt, c.Snapshot(e.resolver.Now()), utterance)

	raw, err := e.oracle.Complete(ctx, system, prompt)
	if err != nil {
		e.logger.Error("oracle extraction call failed", "error", err)
		return Slots{}, &ExtractionError{Reason: "oracle call failed", Err: err}
	}

	obj, err := oracle.Object(raw)
	if err != nil {
		e.logger.Error("failed to parse extraction response", "error", err, "raw", raw)
		return Slots{}, &ExtractionError{Reason: "malformed oracle response", Err: err}
	}

	slots, err := readSlots(obj)
	if err != nil {
		e.logger.Error("invalid extraction response", "error", err, "raw", raw)
		return Slots{}, &ExtractionError{Reason: "invalid duration", Err: err}
	}
	return slots, nil
}

func readSlots(obj gjson.Result) (Slots, error) {
	s := Slots{
		Title: oracle.String(obj, "title"),
		Date:  oracle.String(obj, "date"),
		Time:  oracle.String(obj, "time"),
	}
	if s.Title == "" {
		s.Title = oracle.String(obj, "new_title")
	}
	if d := obj.Get("description"); d.Type == gjson.String {
		s.Description = strings.TrimSpace(d.Str)
		s.HasDescription = true
	}

	d := obj.Get("duration_minutes")
	if !d.Exists() || d.Type == gjson.Null {
		return s, nil
	}
	minutes, err := positiveMinutes(d)
	if err != nil {
		return Slots{}, err
	}
	s.DurationMinutes = minutes
	s.HasDuration = true
	return s, nil
}

func positiveMinutes(v gjson.Result) (int, error) {
	var n int
	switch v.Type {
	case gjson.Number:
		if v.Num != math.Trunc(v.Num) {
			return 0, fmt.Errorf("duration_minutes %v is not an integer", v.Num)
		}
		if v.Num > calendar.MaxDurationMinutes {
			return 0, fmt.Errorf("duration_minutes %v is too long", v.Num)
		}
		n = int(v.Num)
	case gjson.String:
		parsed, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0, fmt.Errorf("duration_minutes %q is not an integer", v.Str)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("duration_minutes has unsupported type %s", v.Type)
	}
	if n <= 0 {
		return 0, fmt.Errorf("duration_minutes %d is not positive", n)
	}
	if n > calendar.MaxDurationMinutes {
		return 0, fmt.Errorf("duration_minutes %d is too long", n)
	}
	return n, nil
}
