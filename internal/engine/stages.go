package engine

import (
	"context"
	"fmt"

	"statlab/domain/stats"
	"statlab/internal/pipeline"
)

// Stage labels exposed through the progress tracker.
const (
	StageTypeAnalysis         = "type_analysis"
	StageBasicStats           = "basic_stats"
	StageDistributionAnalysis = "distribution_analysis"
	StageOutlierDetection     = "outlier_detection"
	StageFinalAggregation     = "final_aggregation"
)

// stages builds the five-stage state machine for one pipeline run. Stages
// mutate engine state directly; the runner guarantees a single worker and the
// engine refuses competing mutators while a run is in flight.
func (e *Engine) stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: StageTypeAnalysis, Target: 20, Run: e.runTypeAnalysis},
		{Name: StageBasicStats, Target: 40, Run: e.runBasicStats},
		{Name: StageDistributionAnalysis, Target: 60, Run: e.runDistributionAnalysis},
		{Name: StageOutlierDetection, Target: 80, Run: e.runOutlierDetection},
		{Name: StageFinalAggregation, Target: 100, Run: e.runFinalAggregation},
	}
}

// runTypeAnalysis assigns every column its semantic type.
func (e *Engine) runTypeAnalysis(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]stats.ColumnType, e.ds.Cols())
	for i, col := range e.ds.Columns {
		types[i] = e.classifier.Classify(col.Values)
	}
	e.types = types
	return nil
}

// runBasicStats marks missing and type-mismatched cells, then seeds the grid
// with a distribution-agnostic IQR pass so the distribution stage can ignore
// flagged cells.
func (e *Engine) runBasicStats(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.ds.Columns {
		e.flags.MarkMissingAndUnexpected(e.ds, i, e.types[i])
	}
	for i := range e.ds.Columns {
		if e.types[i].IsNumericLike() {
			e.flags.MarkOutliersIQR(e.ds, i)
		}
	}
	return nil
}

// runDistributionAnalysis fits a distribution profile for each numeric-like
// column. This is the expensive stage, hence the cancellation check before it.
func (e *Engine) runDistributionAnalysis(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	profiles := make(map[string]stats.DistributionProfile)
	for i, col := range e.ds.Columns {
		if !e.types[i].IsNumericLike() {
			continue
		}
		profiles[col.Name] = e.analyzer.AnalyzeColumn(col, e.flags.Column(i), true)
	}
	e.profiles = profiles
	return nil
}

// runOutlierDetection re-evaluates outlier flags with distribution-aware
// bounds now that authoritative per-column profiles exist.
func (e *Engine) runOutlierDetection(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, col := range e.ds.Columns {
		if !e.types[i].IsNumericLike() {
			continue
		}
		profile, ok := e.profiles[col.Name]
		if !ok {
			e.flags.MarkOutliersIQR(e.ds, i)
			continue
		}
		e.flags.MarkOutliersAdaptive(e.ds, i, profile)
	}
	return nil
}

// runFinalAggregation rebuilds the stats snapshot and records the run in the
// durable history.
func (e *Engine) runFinalAggregation(ctx context.Context) error {
	e.mu.Lock()
	snap := e.cache.Rebuild(e.ds, e.flags)
	runID := e.runID
	e.mu.Unlock()

	summary := fmt.Sprintf("run %s: %d rows, %d columns, completeness %.1f%%",
		runID, snap.FileStats.Rows, snap.FileStats.Columns, snap.Quality.Completeness*100)
	e.recordHistory(ctx, "descriptive_analysis", summary)
	return nil
}
