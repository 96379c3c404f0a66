package statscache

import (
	"fmt"
	"strings"

	"statlab/domain/dataset"
	"statlab/domain/stats"
	"statlab/internal/errors"
	"statlab/internal/flagstore"

	mstats "github.com/montanaflynn/stats"
)

// computeQuality derives the dataset-wide quality metrics: completeness,
// duplicate rows, numeric-stored-as-text columns, and cells lying beyond
// widened 3*IQR fences. The last are "suspicious" independent of whether the
// flag grid formally marks them OUTLIER.
func (c *Cache) computeQuality(ds *dataset.Dataset, flags *flagstore.Store) stats.QualityStats {
	rows, cols := ds.Rows(), ds.Cols()
	totalCells := rows * cols
	if totalCells == 0 {
		return stats.QualityStats{Completeness: 1}
	}

	missing := 0
	for col := 0; col < cols; col++ {
		missing += flags.CountColumn(col, dataset.FlagMissing)
	}

	return stats.QualityStats{
		Completeness:    1 - float64(missing)/float64(totalCells),
		DuplicateRows:   duplicateRows(ds),
		NumericAsText:   numericAsTextColumns(ds),
		SuspiciousCells: suspiciousCells(ds),
	}
}

// duplicateRows counts rows identical to an earlier row.
func duplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]bool, ds.Rows())
	dupes := 0
	var b strings.Builder
	for row := 0; row < ds.Rows(); row++ {
		b.Reset()
		for _, col := range ds.Columns {
			b.WriteString(col.Values[row])
			b.WriteByte(0x1f)
		}
		key := b.String()
		if seen[key] {
			dupes++
		} else {
			seen[key] = true
		}
	}
	return dupes
}

// numericAsTextColumns counts columns whose present cells nearly all parse as
// numbers but carry text decoration ("$1,200", "42%"), a consistency smell
// from upstream export tools.
func numericAsTextColumns(ds *dataset.Dataset) int {
	count := 0
	for _, col := range ds.Columns {
		present, decorated := 0, 0
		for _, raw := range col.Values {
			if dataset.IsMissing(raw) {
				continue
			}
			present++
			if _, ok := dataset.ParseNumeric(raw); ok && !plainNumeric(strings.TrimSpace(raw)) {
				decorated++
			}
		}
		if present > 0 && float64(decorated)/float64(present) >= 0.8 {
			count++
		}
	}
	return count
}

func plainNumeric(raw string) bool {
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			return false
		}
	}
	return true
}

// suspiciousCells counts numeric cells beyond 3*IQR fences across all columns.
func suspiciousCells(ds *dataset.Dataset) int {
	count := 0
	for _, col := range ds.Columns {
		values, _ := col.NumericValues()
		if len(values) < 4 {
			continue
		}
		q1, err1 := mstats.Percentile(values, 25)
		q3, err3 := mstats.Percentile(values, 75)
		if err1 != nil || err3 != nil {
			continue
		}
		iqr := q3 - q1
		lower, upper := q1-3*iqr, q3+3*iqr
		for _, v := range values {
			if v < lower || v > upper {
				count++
			}
		}
	}
	return count
}

// evaluateRules checks every registered validation rule against the current
// data. Rules report; they never mutate flags.
func (c *Cache) evaluateRules(ds *dataset.Dataset) []stats.RuleResult {
	c.mu.Lock()
	rules := append([]Rule(nil), c.rules...)
	c.mu.Unlock()
	return evaluateRuleSet(ds, rules)
}

func evaluateRuleSet(ds *dataset.Dataset, rules []Rule) []stats.RuleResult {
	var results []stats.RuleResult
	for _, rule := range rules {
		idx := ds.ColumnIndex(rule.Column)
		if idx < 0 {
			results = append(results, stats.RuleResult{
				Column: rule.Column, Rule: "exists", Passed: false,
				Message: "column not found",
			})
			continue
		}
		col := ds.Columns[idx]
		if rule.MinValue != nil {
			results = append(results, checkBound(col, "min_value", *rule.MinValue, true))
		}
		if rule.MaxValue != nil {
			results = append(results, checkBound(col, "max_value", *rule.MaxValue, false))
		}
		if len(rule.AllowedValues) > 0 {
			results = append(results, checkAllowed(col, rule.AllowedValues))
		}
	}
	return results
}

func checkBound(col dataset.Column, name string, bound float64, isMin bool) stats.RuleResult {
	values, _ := col.NumericValues()
	violations := 0
	for _, v := range values {
		if (isMin && v < bound) || (!isMin && v > bound) {
			violations++
		}
	}
	result := stats.RuleResult{Column: col.Name, Rule: name, Passed: violations == 0}
	if violations > 0 {
		result.Message = fmt.Sprintf("%d values violate %s %g", violations, name, bound)
	}
	return result
}

func checkAllowed(col dataset.Column, allowed []string) stats.RuleResult {
	allowedSet := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = true
	}
	violations := 0
	for _, raw := range col.Values {
		if dataset.IsMissing(raw) {
			continue
		}
		if !allowedSet[raw] {
			violations++
		}
	}
	result := stats.RuleResult{Column: col.Name, Rule: "allowed_values", Passed: violations == 0}
	if violations > 0 {
		result.Message = fmt.Sprintf("%d values outside allowed set", violations)
	}
	return result
}

// ColumnQuality is the on-demand quality report for one column. Unlike the
// snapshot it is computed fresh on every call, so it stays accurate between
// pipeline runs.
type ColumnQuality struct {
	Column          string              `json:"column"`
	Rows            int                 `json:"rows"`
	Missing         int                 `json:"missing"`
	Unique          int                 `json:"unique"`
	DuplicateValues int                 `json:"duplicate_values"`
	Outliers        int                 `json:"outliers"`
	Summary         *stats.SummaryStats `json:"summary,omitempty"`
}

// ColumnQuality computes the quality report for the named column.
func (c *Cache) ColumnQuality(ds *dataset.Dataset, flags *flagstore.Store, name string) (ColumnQuality, error) {
	idx := ds.ColumnIndex(name)
	if idx < 0 {
		return ColumnQuality{}, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	col := ds.Columns[idx]

	seen := make(map[string]int, len(col.Values))
	for _, raw := range col.Values {
		if !dataset.IsMissing(raw) {
			seen[raw]++
		}
	}
	duplicates := 0
	for _, n := range seen {
		if n > 1 {
			duplicates += n - 1
		}
	}

	return ColumnQuality{
		Column:          name,
		Rows:            ds.Rows(),
		Missing:         flags.CountColumn(idx, dataset.FlagMissing),
		Unique:          uniqueCount(col.Values),
		DuplicateValues: duplicates,
		Outliers:        flags.CountColumn(idx, dataset.FlagOutlier),
		Summary:         numericSummary(col),
	}, nil
}
