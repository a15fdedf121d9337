// Package intent classifies an utterance into one of the assistant's intents.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/dialogue"
	"github.com/MikeSquared-Agency/samson/internal/oracle"
)

type Intent string

const (
	CreateEvent     Intent = "create_event"
	RetrieveEvents  Intent = "retrieve_events"
	GetEventDetails Intent = "get_event_details"
	ModifyEvent     Intent = "modify_event"
	GeneralQuery    Intent = "general_query"
)

var known = map[Intent]bool{
	CreateEvent:     true,
	RetrieveEvents:  true,
	GetEventDetails: true,
	ModifyEvent:     true,
	GeneralQuery:    true,
}

// Result is the classification of a single turn. Hints are raw, unparsed
// user wording.
type Result struct {
	Intent       Intent
	DateHint     string
	EndDateHint  string
	EventSummary string
}

type Dispatcher struct {
	oracle oracle.Oracle
	now    func() time.Time
	logger *slog.Logger
}

func NewDispatcher(o oracle.Oracle, now func() time.Time, logger *slog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{oracle: o, now: now, logger: logger}
}

// Dispatch never fails: any oracle problem degrades to GeneralQuery. The
// context is only read.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string, c *dialogue.Context) Result {
	prompt := fmt.Sprintf(dispatchUserPrompt, c.Snapshot(d.now()), utterance)

	raw, err := d.oracle.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		d.logger.Warn("intent oracle call failed", "error", err)
		return Result{Intent: GeneralQuery}
	}

	obj, err := oracle.Object(raw)
	if err != nil {
		d.logger.Warn("failed to parse intent response", "error", err, "raw", raw)
		return Result{Intent: GeneralQuery}
	}

	in := Intent(oracle.String(obj, "intent"))
	if !known[in] {
		d.logger.Warn("unknown intent from oracle", "intent", string(in))
		return Result{Intent: GeneralQuery}
	}

	return Result{
		Intent:       in,
		DateHint:     oracle.String(obj, "date_hint"),
		EndDateHint:  oracle.String(obj, "end_date_hint"),
		EventSummary: oracle.String(obj, "event_summary"),
	}
}
