// Package processor is the conversation state machine. It owns the turn loop:
// a pending clarification consumes the next utterance, otherwise the intent
// dispatcher routes it to the matching scheduling action.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/dialogue"
	"github.com/MikeSquared-Agency/samson/internal/extractor"
	"github.com/MikeSquared-Agency/samson/internal/hermes"
	"github.com/MikeSquared-Agency/samson/internal/intent"
	"github.com/MikeSquared-Agency/samson/internal/oracle"
	"github.com/MikeSquared-Agency/samson/internal/scheduling"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

const (
	DefaultHistoryTurns = 6

	askTitleText       = "What would you like to call this event?"
	cancelledText      = "Event creation cancelled."
	yesNoText          = "Please respond with Yes or No."
	notUnderstoodText  = "I could not understand the event details. Could you rephrase?"
	fallbackAnswerText = "I'm sorry, I didn't understand that. You can ask me to create an event or ask about your scheduled events."
)

// Publisher receives domain events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Announcer is told about newly created events. *slack.Poster satisfies it.
type Announcer interface {
	PostEventCreated(ctx context.Context, ev calendar.Event, loc *time.Location) error
}

// Deps are the collaborators of a Processor. Publisher and Announcer are
// optional.
type Deps struct {
	Dispatcher *intent.Dispatcher
	Extractor  *extractor.Extractor
	Actions    *scheduling.Actions
	Oracle     oracle.Oracle
	Resolver   *timeres.Resolver
	Publisher  Publisher
	Announcer  Announcer
}

type Processor struct {
	Deps
	historyTurns int
	logger       *slog.Logger
}

func New(deps Deps, historyTurns int, logger *slog.Logger) *Processor {
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	return &Processor{Deps: deps, historyTurns: historyTurns, logger: logger}
}

// outcome is the result of one turn before it is committed to the context.
type outcome struct {
	response  string
	next      dialogue.Clarification
	mentioned *timeres.Date
	intent    intent.Intent
}

// HandleTurn processes one utterance for the session owning c and returns
// the reply. It never fails; every error becomes reply text. Callers must not
// run two turns on the same context concurrently.
func (p *Processor) HandleTurn(ctx context.Context, sessionID string, c *dialogue.Context, utterance string) string {
	utterance = strings.TrimSpace(utterance)

	var out outcome
	switch pending := c.Pending.(type) {
	case dialogue.AwaitingTitle:
		out = p.completeTitle(ctx, sessionID, pending, utterance)
	case dialogue.AwaitingConflictConfirmation:
		out = p.confirm(ctx, sessionID, pending, utterance)
	default:
		out = p.route(ctx, sessionID, c, utterance)
	}

	c.Pending = out.next
	c.Record(utterance, out.response, p.historyTurns)
	if out.mentioned != nil {
		c.MentionDate(*out.mentioned)
	}

	p.logger.Info("turn handled",
		"session_id", sessionID,
		"intent", string(out.intent),
		"state", string(c.State()),
	)
	p.publish(hermes.SubjectTurnCompleted, hermes.TurnCompleted{
		SessionID: sessionID,
		Intent:    string(out.intent),
		State:     string(c.State()),
		Utterance: utterance,
		Response:  out.response,
		At:        p.Resolver.Now(),
	})
	return out.response
}

func (p *Processor) completeTitle(ctx context.Context, sessionID string, pending dialogue.AwaitingTitle, utterance string) outcome {
	if utterance == "" {
		return outcome{response: askTitleText, next: pending}
	}
	draft := pending.Draft
	draft.Title = utterance
	return p.schedule(ctx, sessionID, draft)
}

func (p *Processor) confirm(ctx context.Context, sessionID string, pending dialogue.AwaitingConflictConfirmation, utterance string) outcome {
	switch strings.ToLower(utterance) {
	case "yes", "y":
		return p.create(ctx, sessionID, pending.Draft)
	case "no", "n":
		return outcome{response: cancelledText}
	default:
		return outcome{response: yesNoText, next: pending}
	}
}

func (p *Processor) route(ctx context.Context, sessionID string, c *dialogue.Context, utterance string) outcome {
	res := p.Dispatcher.Dispatch(ctx, utterance, c)

	var out outcome
	switch res.Intent {
	case intent.CreateEvent:
		out = p.createFromUtterance(ctx, sessionID, c, utterance, res)
	case intent.RetrieveEvents:
		out = p.retrieve(ctx, c, res)
	case intent.GetEventDetails:
		out = p.details(ctx, res)
	case intent.ModifyEvent:
		out = p.modify(ctx, sessionID, c, utterance, res)
	default:
		out = p.answer(ctx, c, utterance)
	}
	out.intent = res.Intent

	if out.mentioned == nil && res.DateHint != "" {
		if d, ok := p.Resolver.ParseDate(res.DateHint); ok {
			out.mentioned = &d
		}
	}
	return out
}

func (p *Processor) createFromUtterance(ctx context.Context, sessionID string, c *dialogue.Context, utterance string, res intent.Result) outcome {
	var hint *timeres.Date
	if d, ok := p.Resolver.ParseDate(res.DateHint); ok {
		hint = &d
	}
	draft, err := p.Extractor.Extract(ctx, utterance, c, hint)
	if err != nil {
		return outcome{response: notUnderstoodText}
	}
	if draft.Title == "" {
		return outcome{
			response:  askTitleText,
			next:      dialogue.AwaitingTitle{Draft: draft},
			mentioned: p.dateOf(draft.Start),
		}
	}
	return p.schedule(ctx, sessionID, draft)
}

// schedule runs conflict detection and either creates the draft or holds it
// for confirmation.
func (p *Processor) schedule(ctx context.Context, sessionID string, draft calendar.Draft) outcome {
	conflicts, err := p.Actions.Conflicts(ctx, draft)
	if err != nil {
		p.logger.Error("conflict check failed", "session_id", sessionID, "error", err)
		return outcome{response: errorText(err)}
	}
	if len(conflicts) > 0 {
		return outcome{
			response:  p.conflictPrompt(conflicts),
			next:      dialogue.AwaitingConflictConfirmation{Draft: draft, Conflicts: conflicts},
			mentioned: p.dateOf(draft.Start),
		}
	}
	return p.create(ctx, sessionID, draft)
}

func (p *Processor) create(ctx context.Context, sessionID string, draft calendar.Draft) outcome {
	ev, err := p.Actions.Create(ctx, draft)
	if err != nil {
		p.logger.Error("event creation failed", "session_id", sessionID, "error", err)
		return outcome{response: errorText(err)}
	}

	p.publish(hermes.SubjectEventCreated, hermes.NewEventPayload(sessionID, ev))
	if p.Announcer != nil {
		if err := p.Announcer.PostEventCreated(ctx, ev, p.Resolver.Location()); err != nil {
			p.logger.Error("event announcement failed", "event_id", ev.ID, "error", err)
		}
	}
	return outcome{response: p.Actions.Confirmation(ev), mentioned: p.dateOf(ev.Start.Time)}
}

func (p *Processor) conflictPrompt(conflicts []calendar.Event) string {
	return "This event conflicts with:\n" +
		p.Actions.FormatEvents(conflicts, false) +
		"\nDo you still want to create it? (Yes/No)"
}

func (p *Processor) retrieve(ctx context.Context, c *dialogue.Context, res intent.Result) outcome {
	day := p.Resolver.ResolveDate(res.DateHint, c.LastMentionedDate)

	var (
		text string
		err  error
	)
	if last, ok := p.Resolver.ParseDate(res.EndDateHint); ok && last != day {
		text, err = p.Actions.RetrieveForPeriod(ctx, day, last)
	} else {
		text, err = p.Actions.RetrieveForDate(ctx, day)
	}
	if err != nil {
		return outcome{response: errorText(err)}
	}
	return outcome{response: text, mentioned: &day}
}

func (p *Processor) details(ctx context.Context, res intent.Result) outcome {
	if strings.TrimSpace(res.EventSummary) == "" {
		return outcome{response: "Which event would you like to know about?"}
	}
	ev, ok, err := p.Actions.LookupByTitle(ctx, res.EventSummary)
	if err != nil {
		return outcome{response: errorText(err)}
	}
	if !ok {
		return outcome{response: notFoundText(res.EventSummary)}
	}
	d := ev.Start.Date(p.Resolver.Location())
	return outcome{response: p.Actions.Details(ev), mentioned: &d}
}

func (p *Processor) modify(ctx context.Context, sessionID string, c *dialogue.Context, utterance string, res intent.Result) outcome {
	if strings.TrimSpace(res.EventSummary) == "" {
		return outcome{response: "Which event would you like to change?"}
	}
	ev, ok, err := p.Actions.LookupByTitle(ctx, res.EventSummary)
	if err != nil {
		return outcome{response: errorText(err)}
	}
	if !ok {
		return outcome{response: notFoundText(res.EventSummary)}
	}

	slots, err := p.Extractor.ExtractChanges(ctx, utterance, c)
	if err != nil {
		return outcome{response: notUnderstoodText}
	}
	change := scheduling.Change{
		Title:           slots.Title,
		Date:            slots.Date,
		Time:            slots.Time,
		DurationMinutes: slots.DurationMinutes,
	}
	if slots.HasDescription {
		change.Description = &slots.Description
	}

	updated, err := p.Actions.Modify(ctx, ev, change)
	if err != nil {
		if !errors.Is(err, scheduling.ErrRecurringInstance) {
			p.logger.Error("event update failed", "session_id", sessionID, "event_id", ev.ID, "error", err)
		}
		return outcome{response: errorText(err)}
	}

	p.publish(hermes.SubjectEventUpdated, hermes.NewEventPayload(sessionID, updated))
	return outcome{response: p.Actions.UpdateConfirmation(updated), mentioned: p.dateOf(updated.Start.Time)}
}

func (p *Processor) answer(ctx context.Context, c *dialogue.Context, utterance string) outcome {
	prompt := fmt.Sprintf(generalUserPrompt, c.Snapshot(p.Resolver.Now()), utterance)
	text, err := p.Oracle.Complete(ctx, generalSystemPrompt, prompt)
	if err != nil {
		p.logger.Warn("general query oracle call failed", "error", err)
		return outcome{response: fallbackAnswerText}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return outcome{response: fallbackAnswerText}
	}
	return outcome{response: text}
}

func (p *Processor) publish(subject string, data any) {
	if p.Publisher == nil {
		return
	}
	if err := p.Publisher.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish", "subject", subject, "error", err)
	}
}

func (p *Processor) dateOf(t time.Time) *timeres.Date {
	d := timeres.DateOf(t.In(p.Resolver.Location()))
	return &d
}

func errorText(err error) string {
	return "An error occurred: " + err.Error()
}

func notFoundText(name string) string {
	return fmt.Sprintf("I couldn't find an event called %q.", strings.TrimSpace(name))
}
