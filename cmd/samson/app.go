package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MikeSquared-Agency/samson/internal/anthropic"
	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/config"
	"github.com/MikeSquared-Agency/samson/internal/extractor"
	"github.com/MikeSquared-Agency/samson/internal/intent"
	"github.com/MikeSquared-Agency/samson/internal/oracle"
	"github.com/MikeSquared-Agency/samson/internal/processor"
	"github.com/MikeSquared-Agency/samson/internal/scheduling"
	"github.com/MikeSquared-Agency/samson/internal/session"
	"github.com/MikeSquared-Agency/samson/internal/store"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

// app holds the assistant core shared by every command.
type app struct {
	cfg      config.Config
	resolver *timeres.Resolver
	backend  calendar.Backend
	actions  *scheduling.Actions
	registry *session.Registry
	closers  []func()
}

// newApp wires the core. deps may carry an optional publisher and announcer.
func newApp(ctx context.Context, cfg config.Config, deps processor.Deps) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, resolver: timeres.New(loc)}

	if err := a.openBackend(ctx); err != nil {
		a.close()
		return nil, err
	}

	o, err := newOracle(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	logger := slog.Default()
	a.actions = scheduling.New(a.backend, a.resolver, cfg.LookupWindow, logger)

	deps.Dispatcher = intent.NewDispatcher(o, a.resolver.Now, logger)
	deps.Extractor = extractor.New(o, a.resolver, extractor.Options{
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		BumpPastBareTime:       cfg.BumpPastTimes,
	}, logger)
	deps.Actions = a.actions
	deps.Oracle = o
	deps.Resolver = a.resolver

	proc := processor.New(deps, cfg.HistoryTurns, logger)
	a.registry = session.NewRegistry(proc.HandleTurn)
	return a, nil
}

func (a *app) openBackend(ctx context.Context) error {
	var seed []calendar.Event
	if a.cfg.SeedICS != "" {
		f, err := os.Open(a.cfg.SeedICS)
		if err != nil {
			return fmt.Errorf("open seed calendar: %w", err)
		}
		defer f.Close()
		seed, err = calendar.ImportICS(f, a.resolver.Location())
		if err != nil {
			return err
		}
	}

	if a.cfg.DatabaseURL == "" {
		mem := calendar.NewMemory(a.cfg.LinkBase)
		mem.Seed(seed...)
		a.backend = mem
		slog.Info("using in-memory calendar", "seeded", len(seed))
		return nil
	}

	db, err := store.New(ctx, a.cfg.DatabaseURL, a.cfg.LinkBase)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	if len(seed) > 0 {
		n, err := db.Import(ctx, seed)
		if err != nil {
			return err
		}
		slog.Info("seed calendar imported", "events", n)
	}
	a.backend = db
	slog.Info("database connected")
	return nil
}

func newOracle(cfg config.Config) (oracle.Oracle, error) {
	switch cfg.OracleProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required")
		}
		slog.Info("openai oracle ready", "model", cfg.OpenAIModel)
		return oracle.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required")
		}
		slog.Info("anthropic oracle ready", "model", cfg.AnthropicModel)
		return oracle.NewAnthropic(anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
