package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PageSize is the fixed number of items requested per page.
const PageSize = 20

const unexpectedErrorMessage = "An unexpected error occurred"

// PageRequest describes one page of a remote collection.
type PageRequest struct {
	// Page is the 1-based page number.
	Page int

	// PerPage is the requested page length (always PageSize from the loader).
	PerPage int

	// Filter is an optional resource-specific filter. Empty means no filter.
	Filter string
}

// Source fetches a single page of items.
type Source[T any] interface {
	FetchPage(ctx context.Context, creds credentials.Credentials, req PageRequest) ([]T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, creds credentials.Credentials, req PageRequest) ([]T, error)

// FetchPage implements Source.
func (f SourceFunc[T]) FetchPage(ctx context.Context, creds credentials.Credentials, req PageRequest) ([]T, error) {
	return f(ctx, creds, req)
}

// KeyFunc extracts the identity used to deduplicate items.
type KeyFunc[T any, K comparable] func(T) K

// State is a point-in-time copy of a loader's state.
type State[T any] struct {
	Items   []T    `json:"items"`
	Page    int    `json:"page"`
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
	HasMore bool   `json:"has_more"`
	Filter  string `json:"filter,omitempty"`
}

// Failed reports whether the last fetch ended in an error.
func (s State[T]) Failed() bool {
	return s.Err != ""
}

// Config holds optional loader settings.
type Config[T any] struct {
	// Name labels logs and metrics (e.g. "orders").
	Name string

	// OnChange, if set, receives a snapshot after every state transition.
	// It is called without the loader lock held.
	OnChange func(State[T])
}

// Loader accumulates pages of a remote collection into one deduplicated list.
type Loader[T any, K comparable] struct {
	provider credentials.Provider
	source   Source[T]
	key      KeyFunc[T, K]
	name     string
	onChange func(State[T])
	logger   zerolog.Logger

	mu         sync.Mutex
	generation uint64
	items      []T
	seen       map[K]struct{}
	page       int
	loading    bool
	err        string
	hasMore    bool
	filter     string
	closed     bool
}

// ticket identifies one in-flight fetch and the session it belongs to.
type ticket struct {
	generation uint64
	req        PageRequest
}

// New creates a loader. Nothing is fetched until Init or Reset.
func New[T any, K comparable](provider credentials.Provider, source Source[T], key KeyFunc[T, K], cfg Config[T]) (*Loader[T, K], error) {
	if provider == nil {
		return nil, fmt.Errorf("credentials provider is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if key == nil {
		return nil, fmt.Errorf("key func is required")
	}
	if cfg.Name == "" {
		cfg.Name = "items"
	}

	return &Loader[T, K]{
		provider: provider,
		source:   source,
		key:      key,
		name:     cfg.Name,
		onChange: cfg.OnChange,
		logger:   log.With().Str("component", "loader").Str("resource", cfg.Name).Logger(),
		seen:     make(map[K]struct{}),
		page:     1,
		hasMore:  true,
	}, nil
}

// Name returns the resource label.
func (l *Loader[T, K]) Name() string {
	return l.name
}

// Init loads the first unfiltered page.
func (l *Loader[T, K]) Init(ctx context.Context) {
	l.Reset(ctx, "")
}

// Reset discards all accumulated items and loads page 1 for filter.
// It always starts over, even when filter equals the current one.
func (l *Loader[T, K]) Reset(ctx context.Context, filter string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	l.generation++
	l.items = nil
	l.seen = make(map[K]struct{})
	l.page = 1
	l.hasMore = true
	l.err = ""
	l.filter = filter
	// The previous session's request, if any, no longer owns the flag.
	l.loading = false

	t := l.startLocked(1)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.Info().
		Str("filter", filter).
		Uint64("session", t.generation).
		Msg("Session reset")

	l.emit(snap)
	l.run(ctx, t)
}

// LoadMore advances to the next page and fetches it. It is a no-op, returning
// false, when no more pages exist, a fetch is running, or the loader has not
// been started.
func (l *Loader[T, K]) LoadMore(ctx context.Context) bool {
	l.mu.Lock()
	if l.closed || l.generation == 0 || !l.hasMore || l.loading {
		l.mu.Unlock()
		return false
	}

	l.page++
	t := l.startLocked(l.page)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.emit(snap)
	l.run(ctx, t)
	return true
}

// Retry re-fetches the current page after a failed fetch. It returns false
// when there is nothing to retry.
func (l *Loader[T, K]) Retry(ctx context.Context) bool {
	l.mu.Lock()
	if l.closed || l.generation == 0 || l.loading || l.err == "" {
		l.mu.Unlock()
		return false
	}

	t := l.startLocked(l.page)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.emit(snap)
	l.run(ctx, t)
	return true
}

// Close ends the current session. Responses still in flight are discarded and
// further triggers are ignored.
func (l *Loader[T, K]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.generation++
	l.loading = false
}

// Started reports whether Init or Reset has been called.
func (l *Loader[T, K]) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation > 0
}

// State returns a snapshot of the current state.
func (l *Loader[T, K]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// startLocked marks the loader busy and builds the request for page.
// Callers check l.loading first. Must be called with l.mu held.
func (l *Loader[T, K]) startLocked(page int) ticket {
	l.loading = true
	l.err = ""

	return ticket{
		generation: l.generation,
		req: PageRequest{
			Page:    page,
			PerPage: PageSize,
			Filter:  l.filter,
		},
	}
}

// run performs the fetch for t outside the lock and applies the result.
func (l *Loader[T, K]) run(ctx context.Context, t ticket) {
	var items []T
	err := credentials.Use(ctx, l.provider, func(creds credentials.Credentials) error {
		var fetchErr error
		items, fetchErr = l.source.FetchPage(ctx, creds, t.req)
		return fetchErr
	})

	l.finish(t, items, err)
}

// finish applies a resolved fetch if its session is still current.
func (l *Loader[T, K]) finish(t ticket, items []T, err error) {
	l.mu.Lock()
	if t.generation != l.generation {
		l.mu.Unlock()
		StaleResponses.WithLabelValues(l.name).Inc()
		l.logger.Debug().
			Uint64("session", t.generation).
			Int("page", t.req.Page).
			Msg("Discarding response from superseded session")
		return
	}

	l.loading = false

	if err != nil {
		l.err = errorMessage(err)
		snap := l.snapshotLocked()
		l.mu.Unlock()

		PagesTotal.WithLabelValues(l.name, "failed").Inc()
		if errors.Is(err, credentials.ErrNotConfigured) {
			l.logger.Info().Int("page", t.req.Page).Msg("Settings not configured, nothing fetched")
		} else {
			l.logger.Warn().Err(err).Int("page", t.req.Page).Msg("Page fetch failed")
		}

		l.emit(snap)
		return
	}

	added, dropped := l.mergeLocked(items)
	// Raw page length decides, even when part of the page was already known.
	l.hasMore = len(items) == t.req.PerPage
	snap := l.snapshotLocked()
	l.mu.Unlock()

	PagesTotal.WithLabelValues(l.name, "ok").Inc()
	if dropped > 0 {
		DuplicatesDropped.WithLabelValues(l.name).Add(float64(dropped))
	}
	l.logger.Debug().
		Int("page", t.req.Page).
		Int("received", len(items)).
		Int("added", added).
		Int("duplicates", dropped).
		Bool("has_more", snap.HasMore).
		Msg("Page merged")

	l.emit(snap)
}

// mergeLocked appends items whose key is not yet present, keeping their order.
func (l *Loader[T, K]) mergeLocked(items []T) (added, dropped int) {
	for _, item := range items {
		k := l.key(item)
		if _, ok := l.seen[k]; ok {
			dropped++
			continue
		}
		l.seen[k] = struct{}{}
		l.items = append(l.items, item)
		added++
	}
	return added, dropped
}

func (l *Loader[T, K]) snapshotLocked() State[T] {
	items := make([]T, len(l.items))
	copy(items, l.items)

	return State[T]{
		Items:   items,
		Page:    l.page,
		Loading: l.loading,
		Err:     l.err,
		HasMore: l.hasMore,
		Filter:  l.filter,
	}
}

func (l *Loader[T, K]) emit(s State[T]) {
	if l.onChange != nil {
		l.onChange(s)
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unexpectedErrorMessage
}
