package statscache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"statlab/domain/dataset"
	"statlab/domain/stats"
	"statlab/internal"
	"statlab/internal/classify"
	"statlab/internal/distribution"
	"statlab/internal/errors"
	"statlab/internal/flagstore"

	mstats "github.com/montanaflynn/stats"
)

// Cache aggregates per-column descriptive statistics into a serializable
// snapshot. The snapshot is self-consistent only at build time: structural
// mutations leave the cache stale, and stale reads return nil rather than a
// silently outdated aggregate.
type Cache struct {
	classifier *classify.Classifier
	analyzer   *distribution.Analyzer
	logger     *internal.Logger

	// mu guards snapshot, stale, and rules. The worker publishes a rebuilt
	// snapshot while HTTP handlers poll for it, so these cross goroutines.
	// The lock is held only for field copies, never during computation.
	mu       sync.Mutex
	snapshot *stats.Snapshot
	stale    bool
	rules    []Rule
}

// Rule is a per-column validation rule evaluated during rebuild. Nil bound
// pointers mean the bound is not set.
type Rule struct {
	Column        string   `json:"column"`
	MinValue      *float64 `json:"min_value,omitempty"`
	MaxValue      *float64 `json:"max_value,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
}

// New creates a cache wired to the given classifier and analyzer.
func New(classifier *classify.Classifier, analyzer *distribution.Analyzer, logger *internal.Logger) *Cache {
	return &Cache{
		classifier: classifier,
		analyzer:   analyzer,
		logger:     logger,
		stale:      true,
	}
}

// AddRule registers a validation rule; it takes effect on the next rebuild.
func (c *Cache) AddRule(rule Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule)
}

// ClearRules drops all registered rules.
func (c *Cache) ClearRules() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = nil
}

// Snapshot returns the current aggregate, or nil when none has been built or
// the last one was invalidated by a structural change. The returned snapshot
// is shared with concurrent readers and must be treated as read-only.
func (c *Cache) Snapshot() *stats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale {
		return nil
	}
	return c.snapshot
}

// Invalidate marks the snapshot stale without discarding it; Patch can still
// reuse its per-column entries.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

// Reset discards all derived state, for use on dataset replacement.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.stale = true
	c.rules = nil
}

// Rebuild recomputes the full snapshot with one O(rows x cols) pass. A column
// whose computation panics degrades to a minimal categorical entry instead of
// failing the whole rebuild.
func (c *Cache) Rebuild(ds *dataset.Dataset, flags *flagstore.Store) *stats.Snapshot {
	snap := &stats.Snapshot{
		BuiltAt: time.Now(),
		FileStats: stats.FileStats{
			FileName: ds.FileName,
			FileSize: ds.FileSize,
			Rows:     ds.Rows(),
			Columns:  ds.Cols(),
		},
		MissingByColumn:  make(map[string]int),
		OutliersByColumn: make(map[string]int),
	}

	census := stats.TypeCensus{Counts: make(map[stats.ColumnType]int)}
	for i, col := range ds.Columns {
		entry := c.computeColumnSafe(ds, flags, i)
		snap.Columns = append(snap.Columns, entry)
		snap.MissingByColumn[col.Name] = entry.MissingCount
		snap.OutliersByColumn[col.Name] = entry.OutlierCount
		census.ByColumn = append(census.ByColumn, entry.Type)
		census.Counts[entry.Type]++
	}
	snap.ColumnTypes = census
	snap.Quality = c.computeQuality(ds, flags)
	snap.ValidationResults = c.evaluateRules(ds)

	c.mu.Lock()
	c.snapshot = snap
	c.stale = false
	c.mu.Unlock()
	return snap
}

// PatchAfterColumnRemoval rebuilds the snapshot in O(remaining columns) by
// reusing the surviving per-column entries. Only dataset-wide aggregates are
// recomputed.
func (c *Cache) PatchAfterColumnRemoval(ds *dataset.Dataset, flags *flagstore.Store, removed []string) (*stats.Snapshot, error) {
	c.mu.Lock()
	prev := c.snapshot
	c.mu.Unlock()
	if prev == nil {
		return nil, errors.InternalError("no snapshot to patch")
	}
	dropped := make(map[string]bool, len(removed))
	for _, name := range removed {
		dropped[name] = true
	}

	snap := &stats.Snapshot{
		BuiltAt: time.Now(),
		FileStats: stats.FileStats{
			FileName: ds.FileName,
			FileSize: ds.FileSize,
			Rows:     ds.Rows(),
			Columns:  ds.Cols(),
		},
		MissingByColumn:  make(map[string]int),
		OutliersByColumn: make(map[string]int),
	}

	census := stats.TypeCensus{Counts: make(map[stats.ColumnType]int)}
	for _, entry := range prev.Columns {
		if dropped[entry.Name] {
			continue
		}
		snap.Columns = append(snap.Columns, entry)
		snap.MissingByColumn[entry.Name] = entry.MissingCount
		snap.OutliersByColumn[entry.Name] = entry.OutlierCount
		census.ByColumn = append(census.ByColumn, entry.Type)
		census.Counts[entry.Type]++
	}
	snap.ColumnTypes = census
	snap.Quality = c.computeQuality(ds, flags)

	c.mu.Lock()
	var rules []Rule
	for _, rule := range c.rules {
		if !dropped[rule.Column] {
			rules = append(rules, rule)
		}
	}
	c.rules = rules
	c.mu.Unlock()
	snap.ValidationResults = evaluateRuleSet(ds, rules)

	c.mu.Lock()
	c.snapshot = snap
	c.stale = false
	c.mu.Unlock()
	return snap, nil
}

// computeColumnSafe isolates per-column failures: the bulk rebuild path
// prefers a degraded entry over aborting everything.
func (c *Cache) computeColumnSafe(ds *dataset.Dataset, flags *flagstore.Store, col int) (entry stats.ColumnStats) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("column %q stats failed: %v", ds.Columns[col].Name, r)
			entry = c.degradedColumn(ds, flags, col)
		}
	}()
	return c.computeColumn(ds, flags, col)
}

func (c *Cache) degradedColumn(ds *dataset.Dataset, flags *flagstore.Store, col int) stats.ColumnStats {
	column := ds.Columns[col]
	return stats.ColumnStats{
		Name:         column.Name,
		Type:         stats.TypeCategorical,
		MissingCount: flags.CountColumn(col, dataset.FlagMissing),
		UniqueCount:  uniqueCount(column.Values),
		Degraded:     true,
	}
}

func (c *Cache) computeColumn(ds *dataset.Dataset, flags *flagstore.Store, col int) stats.ColumnStats {
	column := ds.Columns[col]
	colType := c.classifier.Classify(column.Values)

	entry := stats.ColumnStats{
		Name:         column.Name,
		Type:         colType,
		MissingCount: flags.CountColumn(col, dataset.FlagMissing),
		UniqueCount:  uniqueCount(column.Values),
		OutlierCount: flags.CountColumn(col, dataset.FlagOutlier),
		SampleValues: sampleValues(column.Values, 10),
	}

	switch {
	case colType.IsNumericLike():
		entry.Summary = numericSummary(column)
		profile := c.analyzer.AnalyzeColumn(column, flags.Column(col), true)
		entry.Distribution = &profile
	case colType == stats.TypeCategorical || colType == stats.TypeOrdinal:
		entry.Categorical = categoricalSummary(column)
	case colType == stats.TypeBoolean:
		entry.Boolean = booleanSummary(column)
	case colType == stats.TypeTimeseries:
		entry.Datetime = datetimeSummary(column)
	}
	return entry
}

func numericSummary(column dataset.Column) *stats.SummaryStats {
	values, _ := column.NumericValues()
	if len(values) == 0 {
		return nil
	}
	mean, _ := mstats.Mean(values)
	median, _ := mstats.Median(values)
	stdDev, _ := mstats.StandardDeviation(values)
	min, _ := mstats.Min(values)
	max, _ := mstats.Max(values)
	return &stats.SummaryStats{
		Mean:     mean,
		Median:   median,
		StdDev:   stdDev,
		Min:      min,
		Max:      max,
		Skewness: distribution.Skewness(values, mean, stdDev),
		Kurtosis: distribution.ExcessKurtosis(values, mean, stdDev),
	}
}

func categoricalSummary(column dataset.Column) *stats.CategoricalStats {
	frequency := make(map[string]int)
	for _, raw := range column.Values {
		if dataset.IsMissing(raw) {
			continue
		}
		frequency[raw]++
	}
	if len(frequency) == 0 {
		return &stats.CategoricalStats{}
	}

	type kv struct {
		value string
		count int
	}
	pairs := make([]kv, 0, len(frequency))
	for v, n := range frequency {
		pairs = append(pairs, kv{v, n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].value < pairs[j].value
	})

	top := make(map[string]int)
	for i, p := range pairs {
		if i >= 10 {
			break
		}
		top[p.value] = p.count
	}
	return &stats.CategoricalStats{
		UniqueCount:  len(frequency),
		MostFrequent: pairs[0].value,
		ModeCount:    pairs[0].count,
		TopValues:    top,
	}
}

func booleanSummary(column dataset.Column) *stats.BooleanStats {
	trueCount, falseCount := 0, 0
	for _, raw := range column.Values {
		if dataset.IsMissing(raw) {
			continue
		}
		switch normalizeBool(raw) {
		case "true":
			trueCount++
		case "false":
			falseCount++
		}
	}
	total := trueCount + falseCount
	pct := 0.0
	if total > 0 {
		pct = float64(trueCount) / float64(total) * 100
	}
	return &stats.BooleanStats{
		TrueCount:      trueCount,
		FalseCount:     falseCount,
		TruePercentage: pct,
	}
}

func datetimeSummary(column dataset.Column) *stats.DatetimeStats {
	var times []time.Time
	for _, raw := range column.Values {
		if dataset.IsMissing(raw) {
			continue
		}
		if t, ok := dataset.ParseTime(raw); ok {
			times = append(times, t)
		}
	}
	if len(times) == 0 {
		return nil
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	out := &stats.DatetimeStats{
		Start: times[0],
		End:   times[len(times)-1],
		Range: times[len(times)-1].Sub(times[0]).String(),
	}
	if len(times) > 1 {
		diffs := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			diffs = append(diffs, times[i].Sub(times[i-1]).Seconds())
		}
		median, _ := mstats.Median(diffs)
		out.TypicalInterval = intervalBucket(median)
	}
	return out
}

// intervalBucket maps a median spacing in seconds to a coarse magnitude label.
func intervalBucket(seconds float64) string {
	const day = 86400
	switch {
	case seconds < 60:
		return "seconds"
	case seconds < 3600:
		return "minutes"
	case seconds < day:
		return "hours"
	case seconds < 7*day:
		return "days"
	case seconds < 30*day:
		return "weeks"
	case seconds < 365*day:
		return "months"
	default:
		return "years"
	}
}

func normalizeBool(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t":
		return "true"
	case "false", "f":
		return "false"
	}
	return ""
}

func uniqueCount(values []string) int {
	distinct := make(map[string]struct{})
	for _, raw := range values {
		if dataset.IsMissing(raw) {
			continue
		}
		distinct[raw] = struct{}{}
	}
	return len(distinct)
}

func sampleValues(values []string, n int) []string {
	if len(values) < n {
		n = len(values)
	}
	out := make([]string, n)
	copy(out, values[:n])
	return out
}
