package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/samson/internal/api"
	"github.com/MikeSquared-Agency/samson/internal/digest"
	"github.com/MikeSquared-Agency/samson/internal/hermes"
	"github.com/MikeSquared-Agency/samson/internal/processor"
	"github.com/MikeSquared-Agency/samson/internal/slack"
)

const sessionIdleTimeout = 2 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and NATS turn interfaces",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel, os.Stdout)

	slog.Info("samson starting", "port", cfg.Port, "timezone", cfg.Timezone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deps processor.Deps

	// NATS/Hermes (optional)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		deps.Publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without event publishing")
	}

	// Slack poster (optional)
	var slackPoster *slack.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		slackPoster = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		deps.Announcer = slackPoster
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	a, err := newApp(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer a.close()

	if hermesClient != nil {
		if err := hermesClient.ServeTurns(natsTurnHandler(a)); err != nil {
			return err
		}
	}

	// Agenda digest
	if cfg.DigestCron != "" {
		var pub digest.Publisher
		if hermesClient != nil {
			pub = hermesClient
		}
		var poster digest.Poster
		if slackPoster != nil {
			poster = slackPoster
		}
		d := digest.New(a.actions, a.resolver, pub, poster, slog.Default())
		if err := d.Start(cfg.DigestCron); err != nil {
			return err
		}
		defer d.Stop()
	}

	janitor := cron.New()
	if _, err := janitor.AddFunc("@every 10m", func() {
		if n := a.registry.EvictIdle(sessionIdleTimeout); n > 0 {
			slog.Info("idle sessions evicted", "count", n)
		}
	}); err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	// HTTP API
	srv := api.NewServer(api.Options{
		Port:       cfg.Port,
		APIToken:   cfg.APIToken,
		CORSOrigin: cfg.CORSOrigin,
	}, a.registry, a.backend, a.resolver, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish("samson.agent.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("samson ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("samson stopped")
	return nil
}

// natsTurnHandler serves turns arriving over NATS. A request without a
// session ID opens a new session.
func natsTurnHandler(a *app) hermes.TurnHandler {
	return func(req hermes.TurnRequest) hermes.TurnReply {
		id := req.SessionID
		if id == "" {
			id = a.registry.Create().ID
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		reply, err := a.registry.Turn(ctx, id, req.Utterance)
		if err != nil {
			return hermes.TurnReply{SessionID: id, Error: err.Error()}
		}
		return hermes.TurnReply{SessionID: reply.SessionID, Response: reply.Response, State: reply.State}
	}
}
