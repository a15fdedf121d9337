package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostEventCreated announces a newly created event in the channel.
func (p *Poster) PostEventCreated(ctx context.Context, ev calendar.Event, loc *time.Location) error {
	text := formatEventMessage(ev, loc)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": text},
			},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted event to slack", "ts", ts, "event_id", ev.ID)
	return nil
}

// PostAgenda posts the daily digest. Returns the message timestamp.
func (p *Poster) PostAgenda(ctx context.Context, date, listing string) (string, error) {
	text := fmt.Sprintf("*Agenda for %s*\n%s", date, listing)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": text},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{"type": "mrkdwn", "text": "Reply to the assistant to add or move events."},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted agenda to slack", "ts", ts, "date", date)
	return ts, nil
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatEventMessage(ev calendar.Event, loc *time.Location) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, ":calendar: *New event:* %s\n", ev.Title)
	if ev.Start.AllDay {
		fmt.Fprintf(&sb, "*When:* %s (all day)\n", ev.Start.Time.Format("Mon Jan 2"))
	} else {
		start, end := ev.Start.Time.In(loc), ev.End.Time.In(loc)
		fmt.Fprintf(&sb, "*When:* %s, %s - %s\n", start.Format("Mon Jan 2"), start.Format("3:04 PM"), end.Format("3:04 PM"))
	}
	if ev.Location != "" {
		fmt.Fprintf(&sb, "*Where:* %s\n", ev.Location)
	}
	if ev.Description != "" {
		fmt.Fprintf(&sb, "_%s_\n", ev.Description)
	}
	if ev.Link != "" {
		fmt.Fprintf(&sb, "<%s|Open in calendar>", ev.Link)
	}
	return strings.TrimRight(sb.String(), "\n")
}
