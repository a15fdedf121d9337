// Package dialogue holds the per-session conversation state the assistant
// carries from one turn to the next.
package dialogue

import (
	"encoding/json"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

// State names the clarification the session is waiting on.
type State string

const (
	StateIdle                         State = "idle"
	StateAwaitingTitle                State = "awaiting_title"
	StateAwaitingConflictConfirmation State = "awaiting_conflict_confirmation"
)

// Clarification is an outstanding sub-dialogue. The set of implementations is
// closed: AwaitingTitle and AwaitingConflictConfirmation.
type Clarification interface {
	State() State
	clarification()
}

// AwaitingTitle holds a draft that is complete except for its title.
type AwaitingTitle struct {
	Draft calendar.Draft
}

func (AwaitingTitle) State() State   { return StateAwaitingTitle }
func (AwaitingTitle) clarification() {}

// AwaitingConflictConfirmation holds a draft that clashes with Conflicts.
type AwaitingConflictConfirmation struct {
	Draft     calendar.Draft
	Conflicts []calendar.Event
}

func (AwaitingConflictConfirmation) State() State   { return StateAwaitingConflictConfirmation }
func (AwaitingConflictConfirmation) clarification() {}

// Turn is one exchange kept for oracle grounding.
type Turn struct {
	Query    string `json:"user"`
	Response string `json:"assistant"`
}

// Context is the rolling state of one session. Pending is a single slot, so
// at most one clarification can be outstanding.
type Context struct {
	LastMentionedDate *timeres.Date
	LastQuery         string
	LastResponse      string
	History           []Turn
	Pending           Clarification
}

func New() *Context { return &Context{} }

// State reports the current clarification state.
func (c *Context) State() State {
	if c.Pending == nil {
		return StateIdle
	}
	return c.Pending.State()
}

// Record stores the finished turn, keeping at most limit history entries.
func (c *Context) Record(query, response string, limit int) {
	c.LastQuery = query
	c.LastResponse = response
	c.History = append(c.History, Turn{Query: query, Response: response})
	if limit > 0 && len(c.History) > limit {
		c.History = append([]Turn(nil), c.History[len(c.History)-limit:]...)
	}
}

func (c *Context) MentionDate(d timeres.Date) {
	c.LastMentionedDate = &d
}

type snapshot struct {
	CurrentTime       string        `json:"current_time"`
	LastMentionedDate *timeres.Date `json:"last_mentioned_date,omitempty"`
	LastQuery         string        `json:"last_query,omitempty"`
	LastResponse      string        `json:"last_response,omitempty"`
	History           []Turn        `json:"history,omitempty"`
}

// Snapshot serializes the context for oracle grounding. Pending drafts are
// left out; they never reach the oracle.
func (c *Context) Snapshot(now time.Time) string {
	b, err := json.Marshal(snapshot{
		CurrentTime:       now.Format("Monday, 2006-01-02 15:04 MST"),
		LastMentionedDate: c.LastMentionedDate,
		LastQuery:         c.LastQuery,
		LastResponse:      c.LastResponse,
		History:           c.History,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}
