package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/binlocate/internal/config"
	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/internal/storage"
	"github.com/dshills/binlocate/pkg/types"
)

// Backend selects where a search looks for packages
type Backend string

const (
	BackendOffline Backend = config.EngineOffline // Local package-file index
	BackendOnline  Backend = config.EngineOnline  // Remote package catalog
)

// ErrBackendUnavailable is returned by backends that cannot serve searches
var ErrBackendUnavailable = errors.New("search backend not available")

// Error categories used as titles of informational matches
const (
	CategoryIndexOpen   = "Index unavailable"
	CategoryPattern     = "Invalid query"
	CategoryIndexQuery  = "Index query failed"
	CategoryUnavailable = "Search backend unavailable"
	CategoryUnknown     = "Search failed"
)

// IndexOpener opens the package-file index at path
type IndexOpener func(ctx context.Context, path string) (*storage.Index, error)

// Engine runs searches for one session. It owns the session configuration
// and the correlation store that links returned matches to launch data.
type Engine struct {
	config       *config.Config
	backend      Backend
	correlations *CorrelationStore
	patterns     *PatternCache
	openIndex    IndexOpener
	logger       *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrDiscard(logger)
	}
}

// WithIndexOpener replaces how the offline backend opens its index
func WithIndexOpener(open IndexOpener) Option {
	return func(e *Engine) {
		e.openIndex = open
	}
}

// NewEngine creates an engine for cfg with an empty correlation store
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		config:       cfg,
		backend:      Backend(cfg.Engine),
		correlations: NewCorrelationStore(),
		patterns:     NewPatternCache(cfg.PatternCacheSize),
		openIndex:    storage.OpenIndex,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the session configuration
func (e *Engine) Config() *config.Config {
	return e.config
}

// Search runs query against the configured backend.
//
// It never fails: a backend error is returned as a single match whose title
// is the error category and whose description explains what went wrong.
func (e *Engine) Search(ctx context.Context, query string) []types.Match {
	start := time.Now()

	matches, err := e.dispatch(ctx, query)
	if err != nil {
		e.logger.Error("search failed", "query", query, "backend", e.backend, "error", err)
		return []types.Match{errorMatch(err)}
	}

	e.logger.Debug("search complete",
		"query", query,
		"backend", e.backend,
		"matches", len(matches),
		"duration", time.Since(start))
	return matches
}

// dispatch runs the selected backend
func (e *Engine) dispatch(ctx context.Context, query string) ([]types.Match, error) {
	switch e.backend {
	case BackendOffline:
		return e.searchOffline(ctx, query)
	case BackendOnline:
		return e.searchOnline(ctx, query)
	default:
		return nil, fmt.Errorf("unsupported search backend: %q", e.backend)
	}
}

// searchOffline scans the local index
func (e *Engine) searchOffline(ctx context.Context, query string) ([]types.Match, error) {
	if e.config.MaxEntries <= 0 {
		return []types.Match{}, nil
	}

	pattern, err := e.patterns.Get(query, e.config.SearchMode())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("searching index", "pattern", pattern.String(), "index", e.config.IndexPath)

	ix, err := e.openIndex(ctx, e.config.IndexPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ix.Close() }()

	results, err := ix.Query(pattern).Run(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = results.Close() }()

	return Project(results.All(), e.config.MaxEntries, e.correlations, e.logger), nil
}

// searchOnline would query a remote package catalog. Network search is not
// supported, so the selection degrades to an informational match.
func (e *Engine) searchOnline(_ context.Context, _ string) ([]types.Match, error) {
	return nil, fmt.Errorf("%w: online search is not supported, set engine to %q",
		ErrBackendUnavailable, BackendOffline)
}

// Resolve returns the correlation record of a previously returned match
func (e *Engine) Resolve(id types.MatchID) (types.Correlation, error) {
	return e.correlations.Lookup(id)
}

// Correlations returns the number of matches that can be resolved
func (e *Engine) Correlations() int {
	return e.correlations.Len()
}

// errorMatch converts a search failure into an informational match
func errorMatch(err error) types.Match {
	var (
		openErr    *types.IndexOpenError
		patternErr *types.PatternError
		queryErr   *types.IndexQueryError
	)

	m := types.Match{Description: err.Error()}
	switch {
	case errors.As(err, &openErr):
		m.Title = CategoryIndexOpen
		m.Description = fmt.Sprintf("Could not open the index at %s (%v). Rebuild it with `binlocate index`.",
			openErr.Path, openErr.Err)
	case errors.As(err, &patternErr):
		m.Title = CategoryPattern
	case errors.As(err, &queryErr):
		m.Title = CategoryIndexQuery
	case errors.Is(err, ErrBackendUnavailable):
		m.Title = CategoryUnavailable
	default:
		m.Title = CategoryUnknown
	}
	return m
}
