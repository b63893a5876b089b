package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/querysql"
	"github.com/roach88/memelang/internal/resolve"
	"github.com/roach88/memelang/internal/store"
)

// Engine compiles memelang text and runs it against one store.
type Engine struct {
	store   *store.Store
	cache   *resolve.Cache
	sql     *querysql.SQLCompiler
	runIDs  RunIDGenerator
	metrics *Metrics
	logger  *slog.Logger
	tables  *store.Tables
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMetrics records compile, lookup, row and put counts.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger. Records carry a run_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRunIDs sets the run id generator.
//
// Default: UUIDv7Generator
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithTables points compiled queries at other tables in the same database.
// Symbol lookups and writes keep using the store's own tables.
//
// Default: the store's tables
func WithTables(t store.Tables) Option {
	return func(e *Engine) { e.tables = &t }
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	tables := s.Tables()
	if e.tables != nil {
		tables = *e.tables
	}
	e.sql = &querysql.SQLCompiler{MemeTable: tables.Meme, NameTable: tables.Name}

	var cacheOpts []resolve.Option
	if e.metrics != nil {
		cacheOpts = append(cacheOpts, resolve.WithObserver(e.metrics))
	}
	e.cache = resolve.NewCache(s, cacheOpts...)
	return e
}

// Cache returns the engine's symbol cache.
func (e *Engine) Cache() *resolve.Cache {
	return e.cache
}

// Install writes the reserved symbol bindings to the store.
// This function is idempotent.
func (e *Engine) Install(ctx context.Context) error {
	log := e.run("install")
	if err := e.store.Install(ctx); err != nil {
		log.Error("install failed", "error", err)
		return fmt.Errorf("install: %w", err)
	}
	log.Info("installed", "names", len(ir.Reserved))
	return nil
}

// run starts a call: it draws a run id and returns a logger carrying it.
func (e *Engine) run(op string) *slog.Logger {
	return e.logger.With("run_id", e.runIDs.Generate(), "op", op)
}
