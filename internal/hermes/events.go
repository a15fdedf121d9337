package hermes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
)

const (
	// SubjectTurn carries TurnRequest/TurnReply request-reply traffic.
	SubjectTurn          = "samson.assistant.turn"
	SubjectTurnCompleted = "samson.assistant.turn.completed"
	SubjectEventCreated  = "samson.calendar.event.created"
	SubjectEventUpdated  = "samson.calendar.event.updated"
	SubjectAgenda        = "samson.calendar.agenda"

	TurnQueue = "samson-turns"
)

// TurnRequest asks the assistant to process one utterance. An empty
// SessionID opens a new session.
type TurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Utterance string `json:"utterance"`
}

type TurnReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response,omitempty"`
	State     string `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TurnCompleted is published after every processed turn.
type TurnCompleted struct {
	SessionID string    `json:"session_id"`
	Intent    string    `json:"intent,omitempty"`
	State     string    `json:"state"`
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	At        time.Time `json:"at"`
}

// EventPayload describes a created or updated calendar event.
type EventPayload struct {
	SessionID string    `json:"session_id,omitempty"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	AllDay    bool      `json:"all_day,omitempty"`
	Link      string    `json:"link,omitempty"`
}

func NewEventPayload(sessionID string, ev calendar.Event) EventPayload {
	return EventPayload{
		SessionID: sessionID,
		EventID:   ev.ID,
		Title:     ev.Title,
		Start:     ev.Start.Time,
		End:       ev.End.Time,
		AllDay:    ev.Start.AllDay,
		Link:      ev.Link,
	}
}

// Agenda is the daily digest payload.
type Agenda struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// TurnHandler processes one turn request. It is what ServeTurns exposes on
// SubjectTurn.
type TurnHandler func(req TurnRequest) TurnReply

// ServeTurns answers TurnRequests on SubjectTurn.
func (c *Client) ServeTurns(handler TurnHandler) error {
	return c.Respond(SubjectTurn, TurnQueue, func(data []byte) any {
		return decodeTurn(data, handler)
	})
}

func decodeTurn(data []byte, handler TurnHandler) TurnReply {
	var req TurnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return TurnReply{Error: fmt.Sprintf("invalid turn request: %v", err)}
	}
	if req.Utterance == "" {
		return TurnReply{SessionID: req.SessionID, Error: "utterance is required"}
	}
	return handler(req)
}
