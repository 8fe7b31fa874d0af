// Package server exposes the order and customer loaders over HTTP.
// Each browser session gets its own pair of loaders; sessions idle longer
// than the configured TTL are dropped and their loaders closed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ArtemZhigarev/woo-lister/pkg/client"
	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/metrics"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
	"github.com/ArtemZhigarev/woo-lister/pkg/woo"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

// Config holds the server configuration.
type Config struct {
	// SessionTTL is how long an idle session keeps its loaders.
	SessionTTL time.Duration

	// MaxSessions bounds the number of live sessions; the least recently used
	// one is dropped first.
	MaxSessions int
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() Config {
	return Config{
		SessionTTL:  30 * time.Minute,
		MaxSessions: 1000,
	}
}

// resource is the type-erased view of one loader used by the handlers.
type resource interface {
	start(ctx context.Context)
	Reset(ctx context.Context, filter string)
	LoadMore(ctx context.Context) bool
	Retry(ctx context.Context) bool
	Close()
	snapshot() any
}

type loaderResource[T any] struct {
	*pagination.Loader[T, int64]
	started *sync.Once
}

func newLoaderResource[T any](l *pagination.Loader[T, int64]) loaderResource[T] {
	return loaderResource[T]{Loader: l, started: &sync.Once{}}
}

// start loads the first page unless the loader already has a session.
// Concurrent first requests share one fetch; latecomers wait for it.
func (r loaderResource[T]) start(ctx context.Context) {
	r.started.Do(func() {
		if !r.Started() {
			r.Init(ctx)
		}
	})
}

func (r loaderResource[T]) snapshot() any {
	return r.State()
}

type session struct {
	id        string
	resources map[string]resource
}

func (s *session) close() {
	for _, r := range s.resources {
		r.Close()
	}
}

// Server routes HTTP requests to per-session loaders.
type Server struct {
	provider credentials.Provider
	client   *client.Client
	router   *mux.Router
	logger   zerolog.Logger

	mu       sync.Mutex // serializes get-or-create
	sessions *expirable.LRU[string, *session]
}

// New creates a server.
func New(provider credentials.Provider, c *client.Client, cfg Config) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("credentials provider is required")
	}
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive (got %s)", cfg.SessionTTL)
	}
	if cfg.MaxSessions < 1 {
		return nil, fmt.Errorf("max sessions must be at least 1 (got %d)", cfg.MaxSessions)
	}

	s := &Server{
		provider: provider,
		client:   c,
		logger:   log.With().Str("component", "server").Logger(),
	}

	s.sessions = expirable.NewLRU[string, *session](
		cfg.MaxSessions,
		func(id string, sess *session) {
			sess.close()
			s.logger.Debug().Str("session", id).Msg("Session dropped")
		},
		cfg.SessionTTL,
	)

	s.router = s.newRouter()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Close drops every session.
func (s *Server) Close() {
	s.sessions.Purge()
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	resourcePath := "/{resource:" + woo.ResourceOrders + "|" + woo.ResourceCustomers + "}"
	api.HandleFunc(resourcePath, s.handleState).Methods(http.MethodGet)
	api.HandleFunc(resourcePath+"/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc(resourcePath+"/more", s.handleMore).Methods(http.MethodPost)
	api.HandleFunc(resourcePath+"/retry", s.handleRetry).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
	})
}

// handleState returns the current state, loading the first page on first use.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, res, err := s.lookup(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res.start(detach(r))

	s.logger.Debug().Str("session", sess.id).Str("resource", mux.Vars(r)["resource"]).Msg("State served")
	writeJSON(w, http.StatusOK, res.snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["resource"]
	filter := r.URL.Query().Get("filter")
	if filter != "" && name != woo.ResourceCustomers {
		writeError(w, http.StatusBadRequest, name+" cannot be filtered")
		return
	}

	_, res, err := s.lookup(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res.Reset(detach(r), filter)
	writeJSON(w, http.StatusOK, res.snapshot())
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.lookup(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Refused triggers are no-ops; the caller just gets the current state.
	res.LoadMore(detach(r))
	writeJSON(w, http.StatusOK, res.snapshot())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.lookup(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res.Retry(detach(r))
	writeJSON(w, http.StatusOK, res.snapshot())
}

// lookup resolves the caller's session, minting a new one when the header is
// missing or names an expired session, and returns the requested resource.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, resource, error) {
	sess, err := s.session(r.Header.Get(SessionHeader))
	if err != nil {
		return nil, nil, err
	}
	w.Header().Set(SessionHeader, sess.id)

	res, ok := sess.resources[mux.Vars(r)["resource"]]
	if !ok {
		return nil, nil, errors.New("unknown resource")
	}
	return sess, res, nil
}

func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions.Get(id); ok {
			// Re-adding restarts the TTL, so only idle sessions expire.
			s.sessions.Add(id, sess)
			return sess, nil
		}
	}

	sess, err := s.newSession(uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.sessions.Add(sess.id, sess)
	s.logger.Info().Str("session", sess.id).Msg("Session created")
	return sess, nil
}

func (s *Server) newSession(id string) (*session, error) {
	orders, err := woo.NewOrdersLoader(s.provider, s.client, pagination.Config[woo.Order]{})
	if err != nil {
		return nil, fmt.Errorf("create orders loader: %w", err)
	}
	customers, err := woo.NewCustomersLoader(s.provider, s.client, pagination.Config[woo.Customer]{})
	if err != nil {
		return nil, fmt.Errorf("create customers loader: %w", err)
	}

	return &session{
		id: id,
		resources: map[string]resource{
			woo.ResourceOrders:    newLoaderResource(orders),
			woo.ResourceCustomers: newLoaderResource(customers),
		},
	}, nil
}

// detach keeps a fetch running when the browser disconnects; the loader state
// it updates outlives the request.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
