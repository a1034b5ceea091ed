// Package api exposes the HTTP interface for the monitoring service:
// health probes, Prometheus metrics, and read/write access to the archive,
// change log, subscriptions, and frontier.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Frontier is the subset of scheduling the API needs.
type Frontier interface {
	AddURL(url string, priority float64)
	Size() int
}

// SubscriptionWriter extends the read-only store with registration.
type SubscriptionWriter interface {
	sentry.SubscriptionStore
	Upsert(ctx context.Context, sub sentry.Subscription) error
}

// Server wires HTTP handlers to the stores and the frontier.
type Server struct {
	router   chi.Router
	archive  sentry.ArchiveStore
	events   sentry.EventStore
	subs     SubscriptionWriter
	frontier Frontier
	idGen    sentry.IDGenerator
	logger   *zap.Logger
}

func NewServer(
	archive sentry.ArchiveStore,
	events sentry.EventStore,
	subs SubscriptionWriter,
	frontier Frontier,
	idGen sentry.IDGenerator,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		archive:  archive,
		events:   events,
		subs:     subs,
		frontier: frontier,
		idGen:    idGen,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/pages", s.getPage)
		r.Get("/events", s.listEvents)
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.listSubscriptions)
			r.Post("/", s.createSubscription)
		})
		r.Route("/frontier", func(r chi.Router) {
			r.Get("/", s.frontierStatus)
			r.Post("/", s.scheduleURL)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The archive is the only hard downstream; a cheap lookup proves the
	// connection pool is usable.
	if _, _, err := s.archive.GetPage(r.Context(), "readyz-probe"); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	page, found, err := s.archive.GetPage(r.Context(), url)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "archive lookup failed")
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "page not archived")
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	query := sentry.EventQuery{
		SourceURL: r.URL.Query().Get("source_url"),
		Limit:     100,
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		query.Since = t
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		query.Until = t
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = n
	}

	events, err := s.events.ListEvents(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "event query failed")
		return
	}
	if events == nil {
		events = []sentry.ChangeEvent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.ListActive(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "subscription query failed")
		return
	}
	if subs == nil {
		subs = []sentry.Subscription{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

type createSubscriptionRequest struct {
	Rule    map[string]any `json:"rule_definition"`
	Channel string         `json:"notification_channel"`
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Channel == "" {
		s.writeError(w, http.StatusBadRequest, "notification_channel required")
		return
	}
	if req.Rule == nil {
		req.Rule = map[string]any{}
	}

	id, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to generate subscription id")
		return
	}
	sub := sentry.Subscription{
		ID:       id,
		Rule:     req.Rule,
		Channel:  req.Channel,
		IsActive: true,
	}
	if err := s.subs.Upsert(r.Context(), sub); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to store subscription")
		return
	}
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) scheduleURL(w http.ResponseWriter, r *http.Request) {
	var req sentry.FrontierEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	s.frontier.AddURL(req.URL, req.Priority)
	s.writeJSON(w, http.StatusAccepted, req)
}

func (s *Server) frontierStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"size": s.frontier.Size()})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
