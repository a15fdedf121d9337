// Package digest renders and distributes the daily agenda on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MikeSquared-Agency/samson/internal/hermes"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

const runTimeout = 30 * time.Second

// Lister renders the listing for one day. *scheduling.Actions satisfies it.
type Lister interface {
	RetrieveForDate(ctx context.Context, day timeres.Date) (string, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Poster delivers the digest to chat. *slack.Poster satisfies it.
type Poster interface {
	PostAgenda(ctx context.Context, date, listing string) (string, error)
}

// Digest posts today's agenda. Publisher and Poster are optional.
type Digest struct {
	lister    Lister
	resolver  *timeres.Resolver
	publisher Publisher
	poster    Poster
	logger    *slog.Logger
	cron      *cron.Cron
}

func New(lister Lister, resolver *timeres.Resolver, publisher Publisher, poster Poster, logger *slog.Logger) *Digest {
	return &Digest{
		lister:    lister,
		resolver:  resolver,
		publisher: publisher,
		poster:    poster,
		logger:    logger,
	}
}

// RunOnce renders today's agenda in the configured zone and distributes it.
// Distribution failures are logged; only a failed listing is returned.
func (d *Digest) RunOnce(ctx context.Context) (hermes.Agenda, error) {
	day := d.resolver.Today()
	text, err := d.lister.RetrieveForDate(ctx, day)
	if err != nil {
		return hermes.Agenda{}, fmt.Errorf("render agenda: %w", err)
	}
	agenda := hermes.Agenda{Date: day.String(), Text: text}

	if d.publisher != nil {
		if err := d.publisher.Publish(hermes.SubjectAgenda, agenda); err != nil {
			d.logger.Error("failed to publish agenda", "error", err)
		}
	}
	if d.poster != nil {
		if _, err := d.poster.PostAgenda(ctx, agenda.Date, agenda.Text); err != nil {
			d.logger.Error("failed to post agenda", "error", err)
		}
	}

	d.logger.Info("agenda digest sent", "date", agenda.Date)
	return agenda, nil
}

// Start runs the digest on schedule, a standard five-field cron expression
// evaluated in the resolver's zone.
func (d *Digest) Start(schedule string) error {
	c := cron.New(cron.WithLocation(d.resolver.Location()))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := d.RunOnce(ctx); err != nil {
			d.logger.Error("agenda digest failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", schedule, err)
	}
	c.Start()
	d.cron = c
	d.logger.Info("agenda digest scheduled", "schedule", schedule, "timezone", d.resolver.Location().String())
	return nil
}

// Stop halts the schedule and waits for a running digest to finish.
func (d *Digest) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}
