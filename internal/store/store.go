// Package store is a PostgreSQL calendar backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	starts_at   TIMESTAMPTZ NOT NULL,
	ends_at     TIMESTAMPTZ NOT NULL,
	all_day     BOOLEAN NOT NULL DEFAULT false,
	recurrence  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (ends_at > starts_at)
);
CREATE INDEX IF NOT EXISTS calendar_events_span_idx ON calendar_events (starts_at, ends_at);`

const eventColumns = `id, title, description, location, starts_at, ends_at, all_day, recurrence`

// Store implements calendar.Backend on a pgx pool.
type Store struct {
	pool     *pgxpool.Pool
	linkBase string
}

func New(ctx context.Context, databaseURL, linkBase string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if linkBase == "" {
		linkBase = "https://calendar.local"
	}
	return &Store{pool: pool, linkBase: strings.TrimSuffix(linkBase, "/")}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the events table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) link(id string) string {
	return s.linkBase + "/events/" + id
}

func (s *Store) Insert(ctx context.Context, ev calendar.Event) (calendar.Inserted, error) {
	if !ev.End.Time.After(ev.Start.Time) {
		return calendar.Inserted{}, errors.New("event end must be after start")
	}
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_events (id, title, description, location, starts_at, ends_at, all_day, recurrence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, ev.Title, ev.Description, ev.Location, ev.Start.Time, ev.End.Time, ev.Start.AllDay, ev.Recurrence,
	)
	if err != nil {
		return calendar.Inserted{}, fmt.Errorf("insert event: %w", err)
	}
	return calendar.Inserted{ID: id, Link: s.link(id)}, nil
}

// Import stores events that already carry an ID, skipping IDs that exist.
// Events without an ID get a fresh one.
func (s *Store) Import(ctx context.Context, events []calendar.Event) (int, error) {
	batch := &pgx.Batch{}
	for _, ev := range events {
		id := ev.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO calendar_events (id, title, description, location, starts_at, ends_at, all_day, recurrence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			id, ev.Title, ev.Description, ev.Location, ev.Start.Time, ev.End.Time, ev.Start.AllDay, ev.Recurrence,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	imported := 0
	for range events {
		tag, err := br.Exec()
		if err != nil {
			return imported, fmt.Errorf("import event: %w", err)
		}
		imported += int(tag.RowsAffected())
	}
	return imported, nil
}

// List returns events overlapping [TimeMin, TimeMax). Recurring series are
// expanded into instances when SingleEvents is set.
func (s *Store) List(ctx context.Context, q calendar.ListQuery) ([]calendar.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE (recurrence = '' AND ends_at > $1 AND starts_at < $2)
		   OR (recurrence <> '' AND starts_at < $2)
		ORDER BY starts_at, title`,
		q.TimeMin, q.TimeMax,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []calendar.Event
	for rows.Next() {
		ev, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	if q.SingleEvents {
		events, err = calendar.Expand(events, q.TimeMin, q.TimeMax)
		if err != nil {
			return nil, err
		}
	}
	if q.OrderByStart {
		calendar.SortByStart(events)
	}
	if q.MaxResults > 0 && len(events) > q.MaxResults {
		events = events[:q.MaxResults]
	}
	return events, nil
}

func (s *Store) Get(ctx context.Context, id string) (calendar.Event, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = $1`, id)
	ev, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return calendar.Event{}, calendar.ErrNotFound
	}
	return ev, err
}

func (s *Store) Update(ctx context.Context, id string, patch calendar.Patch) (calendar.Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = $1 FOR UPDATE`, id)
	ev, err := s.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return calendar.Event{}, calendar.ErrNotFound
	}
	if err != nil {
		return calendar.Event{}, err
	}

	patch.Apply(&ev)
	if !ev.End.Time.After(ev.Start.Time) {
		return calendar.Event{}, errors.New("event end must be after start")
	}

	_, err = tx.Exec(ctx, `
		UPDATE calendar_events
		SET title = $1, description = $2, location = $3, starts_at = $4, ends_at = $5, all_day = $6, updated_at = now()
		WHERE id = $7`,
		ev.Title, ev.Description, ev.Location, ev.Start.Time, ev.End.Time, ev.Start.AllDay, id,
	)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("update event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return calendar.Event{}, fmt.Errorf("commit: %w", err)
	}
	return ev, nil
}

func (s *Store) scan(row pgx.Row) (calendar.Event, error) {
	var (
		ev         calendar.Event
		start, end time.Time
		allDay     bool
	)
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location, &start, &end, &allDay, &ev.Recurrence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return calendar.Event{}, err
		}
		return calendar.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Start = calendar.EventTime{Time: start, AllDay: allDay}
	ev.End = calendar.EventTime{Time: end, AllDay: allDay}
	ev.Link = s.link(ev.ID)
	return ev, nil
}
