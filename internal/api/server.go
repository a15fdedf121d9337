package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/samson/internal/calendar"
	"github.com/MikeSquared-Agency/samson/internal/session"
	"github.com/MikeSquared-Agency/samson/internal/timeres"
)

const (
	maxUtteranceBytes = 4096
	defaultExportDays = 30
)

type Options struct {
	Port       int
	APIToken   string
	CORSOrigin string
}

type Server struct {
	router   *chi.Mux
	http     *http.Server
	port     int
	sessions *session.Registry
	backend  calendar.Backend
	resolver *timeres.Resolver
	logger   *slog.Logger
}

func NewServer(opts Options, sessions *session.Registry, backend calendar.Backend, resolver *timeres.Resolver, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if opts.CORSOrigin != "" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{opts.CORSOrigin},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s := &Server{
		router:   router,
		port:     opts.Port,
		sessions: sessions,
		backend:  backend,
		resolver: resolver,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.Get("/samson/status", s.status)
		r.Post("/sessions", s.createSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Post("/sessions/{id}/turns", s.turn)
		r.Get("/calendar.ics", s.exportCalendar)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// BearerAuthMiddleware requires "Authorization: Bearer <token>". An empty
// token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got != token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "samson",
		"status":   "active",
		"sessions": s.sessions.Len(),
		"timezone": s.resolver.Location().String(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	info := s.sessions.Create()
	s.logger.Info("session created", "session_id", info.ID)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info("session ended", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func (s *Server) turn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUtteranceBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Utterance) == "" {
		writeError(w, http.StatusBadRequest, "utterance is required")
		return
	}

	reply, err := s.sessions.Turn(r.Context(), chi.URLParam(r, "id"), req.Utterance)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// exportCalendar serves events between ?from= and ?to= (YYYY-MM-DD,
// inclusive) as an iCalendar feed. Series are exported with their RRULE.
func (s *Server) exportCalendar(w http.ResponseWriter, r *http.Request) {
	loc := s.resolver.Location()
	from := s.resolver.Today()
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := timeres.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}
	to := from.AddDays(defaultExportDays)
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := timeres.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = d
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	start, _ := from.DayBounds(loc)
	_, end := to.DayBounds(loc)
	events, err := s.backend.List(r.Context(), calendar.ListQuery{TimeMin: start, TimeMax: end, OrderByStart: true})
	if err != nil {
		s.logger.Error("calendar export failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="samson.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.ExportICS(events, s.resolver.Now())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
