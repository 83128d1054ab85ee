// Package engine is the crossfilter façade: it resolves a dataset's tables
// and relationship graph from the metadata store, classifies the active
// filters per table, compiles them into conditions, and aggregates columns
// against the analytical store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/leapstack-labs/crossfilter/internal/aggregate"
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/internal/graph"
	"github.com/leapstack-labs/crossfilter/internal/state"
	"github.com/leapstack-labs/crossfilter/pkg/adapter"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultCacheSize = 64

// Engine answers filter and aggregation queries for datasets.
type Engine struct {
	// Store adapter (lazy initialized unless injected)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	closeDB     bool
	dbMu        sync.Mutex

	// Set once the adapter is connected.
	dialect  *dialect.Dialect
	compiler *compiler.Compiler
	agg      *aggregate.Aggregator

	logger     *slog.Logger
	store      *state.SQLiteStore
	ownsStore  bool
	aggOpts    aggregate.Options
	classify   filter.ClassifyOptions
	metrics    *Metrics
	aggMetrics *aggregate.Metrics

	graphs  *lru.Cache[versionKey, *graph.Graph]
	columns *lru.Cache[tableKey, []core.ColumnInfo]
}

// Config holds engine configuration.
type Config struct {
	// StatePath is the path to the SQLite metadata store.
	StatePath string
	// Store is an already opened metadata store; it takes precedence over
	// StatePath and is not closed by the engine.
	Store *state.SQLiteStore
	// AdapterConfig contains the analytical store configuration.
	AdapterConfig *adapter.Config
	// Adapter is an already connected analytical store; it takes precedence
	// over AdapterConfig and is not closed by the engine.
	Adapter adapter.Adapter
	// Aggregation holds aggregation defaults.
	Aggregation aggregate.Options
	// TransitivePropagation propagates filters to every reachable table
	// instead of direct neighbours only.
	TransitivePropagation bool
	// CacheSize bounds the graph and column caches (entries).
	CacheSize int
	// Registerer receives engine metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. The analytical store is connected on first use.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, owns := cfg.Store, false
	if store == nil {
		if cfg.StatePath == "" {
			return nil, fmt.Errorf("state path is required")
		}
		var err error
		store, err = state.OpenAndMigrate(cfg.StatePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		owns = true
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	graphs, err := lru.New[versionKey, *graph.Graph](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	columns, err := lru.New[tableKey, []core.ColumnInfo](size * 8)
	if err != nil {
		return nil, fmt.Errorf("failed to create column cache: %w", err)
	}

	var dbConfig adapter.Config
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	e := &Engine{
		dbConfig:  dbConfig,
		logger:    logger,
		store:     store,
		ownsStore: owns,
		aggOpts:   cfg.Aggregation,
		classify:  filter.ClassifyOptions{Transitive: cfg.TransitivePropagation},
		graphs:    graphs,
		columns:   columns,
	}
	if cfg.Registerer != nil {
		e.metrics = NewMetrics(cfg.Registerer)
		e.aggMetrics = aggregate.NewMetrics(cfg.Registerer)
	}
	if cfg.Adapter != nil {
		if err := e.attach(cfg.Adapter); err != nil {
			return nil, err
		}
	}

	logger.Debug("engine initialized", "adapter_type", dbConfig.Type, "state", store.Path())
	return e, nil
}

// ensureDBConnected lazily connects to the analytical store.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to store", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create store adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	if err := e.attach(db); err != nil {
		_ = db.Close()
		return err
	}
	e.closeDB = true
	return nil
}

// attach wires a connected adapter and the dialect-specific collaborators.
func (e *Engine) attach(db adapter.Adapter) error {
	name := db.DialectName()
	d, err := dialect.Resolve(name)
	if err != nil {
		return fmt.Errorf("failed to attach %s store: %w", e.dbConfig.Type, err)
	}

	e.db = db
	e.dialect = d
	e.compiler = compiler.New(d, e.logger)
	e.agg = aggregate.New(db, d, e.aggOpts, e.logger, e.aggMetrics)
	e.dbConnected = true

	e.logger.Debug("store connected", "dialect", name)
	return nil
}

// Close releases the resources the engine opened.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil && e.closeDB {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Store returns the metadata store.
func (e *Engine) Store() *state.SQLiteStore {
	return e.store
}

// Dialect returns the store dialect, connecting first if needed.
func (e *Engine) Dialect(ctx context.Context) (*dialect.Dialect, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.dialect, nil
}

// AggregationOptions returns the effective aggregation defaults.
func (e *Engine) AggregationOptions() aggregate.Options {
	return aggregate.New(nil, nil, e.aggOpts, nil, nil).Options()
}
