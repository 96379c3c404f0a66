package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"statlab/domain/dataset"
	"statlab/domain/stats"
	"statlab/internal"
	"statlab/internal/classify"
	"statlab/internal/config"
	"statlab/internal/distribution"
	"statlab/internal/errors"
	"statlab/internal/flagstore"
	"statlab/internal/pipeline"
	"statlab/internal/statscache"
	"statlab/ports"

	"github.com/google/uuid"
)

// Engine owns the single active dataset and every piece of derived state: the
// flag grid, the stats cache, and the pipeline tracker. Instances are
// explicitly constructed and passed by handle; there is no process-wide
// dataset.
//
// Dataset, flag grid, and cache are not safe for concurrent mutation: the
// engine refuses mutating operations while a pipeline run is in flight, and
// Load cancels any in-flight run before replacing state.
type Engine struct {
	cfg    *config.Config
	logger *internal.Logger

	classifier *classify.Classifier
	analyzer   *distribution.Analyzer
	flags      *flagstore.Store
	cache      *statscache.Cache
	tracker    *pipeline.Tracker
	runner     *pipeline.Runner

	history ports.HistoryStore // optional

	mu       sync.Mutex
	ds       *dataset.Dataset
	types    []stats.ColumnType
	profiles map[string]stats.DistributionProfile
	runID    string
}

// DeletionPreview reports the outcome of a column deletion.
type DeletionPreview struct {
	Removed   []string `json:"removed"`
	Remaining []string `json:"remaining"`
	Rows      int      `json:"rows"`
}

// New creates an engine. history may be nil when no durable log is configured.
func New(cfg *config.Config, logger *internal.Logger, history ports.HistoryStore) *Engine {
	tracker := pipeline.NewTracker()
	classifier := classify.New(cfg.Classify.DiscreteUniqueLimit)
	analyzer := distribution.New(cfg.Classify.MinDistributionN)
	return &Engine{
		cfg:        cfg,
		logger:     logger.WithTag("engine"),
		classifier: classifier,
		analyzer:   analyzer,
		flags:      flagstore.New(cfg.Flagging),
		cache:      statscache.New(classifier, analyzer, logger),
		tracker:    tracker,
		runner:     pipeline.NewRunner(tracker, logger),
		history:    history,
	}
}

// Load replaces the active dataset wholesale. The new dataset is validated
// before any prior state is discarded, so a failed load leaves the engine
// untouched. An in-flight pipeline run is cancelled and drained first.
func (e *Engine) Load(ds *dataset.Dataset) error {
	if ds == nil || ds.Cols() == 0 {
		return errors.LoadError("dataset has no columns")
	}
	if ds.Rows() == 0 {
		return errors.LoadError("dataset has no rows")
	}
	rows := ds.Rows()
	for _, col := range ds.Columns {
		if len(col.Values) != rows {
			return errors.LoadError(fmt.Sprintf("column %q has %d rows, expected %d", col.Name, len(col.Values), rows))
		}
	}

	e.runner.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ds = ds
	e.types = nil
	e.profiles = nil
	e.flags.Initialize(ds)
	e.cache.Reset()
	e.tracker.Reset()
	e.logger.Info("loaded dataset %q: %d rows, %d columns", ds.FileName, ds.Rows(), ds.Cols())
	return nil
}

// Reset discards the dataset and all derived state.
func (e *Engine) Reset() {
	e.runner.Cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ds = nil
	e.types = nil
	e.profiles = nil
	e.cache.Reset()
	e.tracker.Reset()
}

// StartPipeline launches the staged computation on the background worker.
// Returns AlreadyRunning while a run is in flight.
func (e *Engine) StartPipeline(ctx context.Context) error {
	e.mu.Lock()
	if e.ds == nil {
		e.mu.Unlock()
		return errors.ValidationError("no dataset loaded")
	}
	e.runID = uuid.NewString()
	e.mu.Unlock()

	return e.runner.Start(ctx, e.stages())
}

// CancelPipeline stops an in-flight run and waits for it to drain.
// Cancelling an idle engine is a no-op.
func (e *Engine) CancelPipeline() {
	e.runner.Cancel()
}

// Progress returns the current pipeline state without blocking.
func (e *Engine) Progress() pipeline.Progress {
	return e.tracker.Snapshot()
}

// WaitForPipeline blocks until the in-flight run (if any) finishes. Intended
// for tests and shutdown paths.
func (e *Engine) WaitForPipeline() {
	e.runner.Wait()
}

// Snapshot returns the descriptive-statistics aggregate, or nil until the
// first completed run (and after structural mutations, until patched).
func (e *Engine) Snapshot() *stats.Snapshot {
	return e.cache.Snapshot()
}

// Columns returns the active dataset's column names in order.
func (e *Engine) Columns() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	return e.ds.ColumnNames(), nil
}

// PointFlag returns the flag at (row, col).
func (e *Engine) PointFlag(row, col int) (dataset.Flag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return 0, errors.ValidationError("no dataset loaded")
	}
	if row < 0 || row >= e.flags.Rows() || col < 0 || col >= e.flags.Cols() {
		return 0, errors.ValidationError("cell out of range")
	}
	return e.flags.Get(row, col), nil
}

// ColumnFlags returns one column's flags by name.
func (e *Engine) ColumnFlags(name string) ([]dataset.Flag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	idx := e.ds.ColumnIndex(name)
	if idx < 0 {
		return nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	return e.flags.Column(idx), nil
}

// ColumnValues returns a column's raw values with its flags, the payload the
// plotting collaborator consumes.
func (e *Engine) ColumnValues(name string) (dataset.Column, []dataset.Flag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return dataset.Column{}, nil, errors.ValidationError("no dataset loaded")
	}
	idx := e.ds.ColumnIndex(name)
	if idx < 0 {
		return dataset.Column{}, nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	return e.ds.Columns[idx], e.flags.Column(idx), nil
}

// ApplyRange marks out-of-range cells OUTOFBOUNDS in a numeric column. The
// operation is rejected whole when the column is non-numeric, the bounds are
// inverted, or too few NORMAL cells would remain.
func (e *Engine) ApplyRange(column string, min, max float64) (flagstore.FlagStats, error) {
	// Claiming the run slot excludes a pipeline start for the whole mutation,
	// not just at this check.
	if !e.runner.TryExclusive() {
		return flagstore.FlagStats{}, errors.AlreadyRunning("cannot modify flags during analysis")
	}
	defer e.runner.EndExclusive()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return flagstore.FlagStats{}, errors.ValidationError("no dataset loaded")
	}
	idx := e.ds.ColumnIndex(column)
	if idx < 0 {
		return flagstore.FlagStats{}, errors.ValidationError(fmt.Sprintf("column %q not found", column))
	}
	if t := e.columnType(idx); !t.IsNumericLike() {
		return flagstore.FlagStats{}, errors.ValidationError(fmt.Sprintf("column %q is %s, not numeric", column, t))
	}
	return e.flags.ApplyRange(e.ds, idx, min, max)
}

// DeleteColumns removes columns by name, all-or-nothing: any unknown name
// rejects the whole request before a single column drops. The stats snapshot
// is patched rather than rebuilt.
func (e *Engine) DeleteColumns(names []string) (DeletionPreview, error) {
	if !e.runner.TryExclusive() {
		return DeletionPreview{}, errors.AlreadyRunning("cannot delete columns during analysis")
	}
	defer e.runner.EndExclusive()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return DeletionPreview{}, errors.ValidationError("no dataset loaded")
	}
	if len(names) == 0 {
		return DeletionPreview{}, errors.DeletionError("no columns named")
	}

	indices := make([]int, 0, len(names))
	for _, name := range names {
		idx := e.ds.ColumnIndex(name)
		if idx < 0 {
			return DeletionPreview{}, errors.DeletionError(fmt.Sprintf("column %q not found", name))
		}
		indices = append(indices, idx)
	}
	if len(indices) == e.ds.Cols() {
		return DeletionPreview{}, errors.DeletionError("cannot delete every column")
	}

	// Drop right-to-left so earlier indices stay valid.
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, idx := range indices {
		e.ds.RemoveColumn(idx)
		e.flags.DropColumn(idx)
	}

	e.types = nil // column order changed; recomputed lazily
	if e.cache.Snapshot() != nil {
		if _, err := e.cache.PatchAfterColumnRemoval(e.ds, e.flags, names); err != nil {
			e.logger.Warn("snapshot patch failed, invalidating: %v", err)
			e.cache.Invalidate()
		}
	}
	return DeletionPreview{
		Removed:   names,
		Remaining: e.ds.ColumnNames(),
		Rows:      e.ds.Rows(),
	}, nil
}

// ColumnQuality computes the on-demand quality report for one column.
func (e *Engine) ColumnQuality(name string) (statscache.ColumnQuality, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return statscache.ColumnQuality{}, errors.ValidationError("no dataset loaded")
	}
	return e.cache.ColumnQuality(e.ds, e.flags, name)
}

// AddValidationRule registers a per-column rule evaluated on the next rebuild.
func (e *Engine) AddValidationRule(rule statscache.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return errors.ValidationError("no dataset loaded")
	}
	if e.ds.ColumnIndex(rule.Column) < 0 {
		return errors.NotFound(fmt.Sprintf("column %q", rule.Column))
	}
	e.cache.AddRule(rule)
	return nil
}

// ValidateColumnTypes checks that the named columns exist and carry one of the
// allowed types; all-or-nothing, mutation-free.
func (e *Engine) ValidateColumnTypes(names []string, allowed []stats.ColumnType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds == nil {
		return errors.ValidationError("no dataset loaded")
	}
	for _, name := range names {
		idx := e.ds.ColumnIndex(name)
		if idx < 0 {
			return errors.NotFound(fmt.Sprintf("column %q", name))
		}
		t := e.columnType(idx)
		permitted := false
		for _, a := range allowed {
			if t == a {
				permitted = true
				break
			}
		}
		if !permitted {
			return errors.ValidationError(fmt.Sprintf("column %q is %s, not one of the required types", name, t))
		}
	}
	return nil
}

// columnType returns the cached pipeline-computed type, classifying on demand
// when no run has happened yet. Caller holds e.mu.
func (e *Engine) columnType(idx int) stats.ColumnType {
	if e.types != nil && idx < len(e.types) {
		return e.types[idx]
	}
	return e.classifier.Classify(e.ds.Columns[idx].Values)
}

// recordHistory writes a free-form record through the history port, when one
// is configured. Failures are logged, never fatal.
func (e *Engine) recordHistory(ctx context.Context, kind, summary string) {
	if e.history == nil {
		return
	}
	record := ports.AnalysisRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Summary:   summary,
		CreatedAt: time.Now(),
	}
	if err := e.history.Record(ctx, record); err != nil {
		e.logger.Warn("history record failed: %v", err)
	}
}
