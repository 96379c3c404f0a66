package statscache

import (
	"testing"

	"statlab/domain/dataset"
	"statlab/domain/stats"
	"statlab/internal/config"
	"statlab/internal/flagstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityMetrics(t *testing.T) {
	ds, err := dataset.New([]dataset.Column{
		{Name: "price", Values: []string{"$1,200", "$980", "$1,450", "$2,100", "$875"}},
		{Name: "n", Values: []string{"1", "2", "2", "1", "3"}},
		{Name: "tag", Values: []string{"a", "b", "b", "a", ""}},
	})
	require.NoError(t, err)

	flags := flagstore.New(config.FlaggingConfig{
		IQRMultiplier: 1.5, HeavyTailMultiplier: 2.5, StdDevMultiplier: 3, MinNormalCells: 1,
	})
	flags.Initialize(ds)
	flags.MarkMissingAndUnexpected(ds, 2, stats.TypeCategorical)

	q := newCache().computeQuality(ds, flags)

	assert.InDelta(t, 1-1.0/15.0, q.Completeness, 1e-9, "one missing cell of fifteen")
	assert.Equal(t, 0, q.DuplicateRows)
	assert.Equal(t, 1, q.NumericAsText, "only the decorated price column counts")
}

func TestDuplicateRows(t *testing.T) {
	ds, err := dataset.New([]dataset.Column{
		{Name: "a", Values: []string{"1", "1", "2", "1"}},
		{Name: "b", Values: []string{"x", "x", "y", "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, duplicateRows(ds))
}

func TestSuspiciousCells(t *testing.T) {
	values := make([]string, 0, 30)
	for i := 1; i <= 29; i++ {
		values = append(values, "10")
	}
	values = append(values, "10")
	ds, err := dataset.New([]dataset.Column{{Name: "flat", Values: values}})
	require.NoError(t, err)

	// A flat column has zero IQR but every value sits on the fence.
	assert.Equal(t, 0, suspiciousCells(ds))
}

func TestEvaluateRules(t *testing.T) {
	ds, err := dataset.New([]dataset.Column{
		{Name: "age", Values: []string{"25", "40", "-3", "200", "33"}},
		{Name: "grade", Values: []string{"A", "B", "Z", "A", ""}},
	})
	require.NoError(t, err)

	c := newCache()
	min, max := 0.0, 120.0
	c.AddRule(Rule{Column: "age", MinValue: &min, MaxValue: &max})
	c.AddRule(Rule{Column: "grade", AllowedValues: []string{"A", "B", "C"}})
	c.AddRule(Rule{Column: "ghost", MinValue: &min})

	results := c.evaluateRules(ds)
	require.Len(t, results, 4)

	byKey := make(map[string]stats.RuleResult)
	for _, r := range results {
		byKey[r.Column+"/"+r.Rule] = r
	}
	assert.False(t, byKey["age/min_value"].Passed, "-3 violates the minimum")
	assert.False(t, byKey["age/max_value"].Passed, "200 violates the maximum")
	assert.False(t, byKey["grade/allowed_values"].Passed, "Z is not allowed")
	assert.False(t, byKey["ghost/exists"].Passed, "unknown column fails the exists check")
	assert.NotEmpty(t, byKey["age/min_value"].Message)
}

func TestColumnQuality(t *testing.T) {
	ds, err := dataset.New([]dataset.Column{
		{Name: "score", Values: []string{"10", "20", "20", "", "40"}},
		{Name: "tag", Values: []string{"a", "b", "b", "a", "c"}},
	})
	require.NoError(t, err)

	flags := flagstore.New(config.FlaggingConfig{
		IQRMultiplier: 1.5, HeavyTailMultiplier: 2.5, StdDevMultiplier: 3, MinNormalCells: 1,
	})
	flags.Initialize(ds)
	flags.MarkMissingAndUnexpected(ds, 0, stats.TypeNumeric)

	c := newCache()
	q, err := c.ColumnQuality(ds, flags, "score")
	require.NoError(t, err)
	assert.Equal(t, 5, q.Rows)
	assert.Equal(t, 1, q.Missing)
	assert.Equal(t, 3, q.Unique, "missing cells do not count as a value")
	assert.Equal(t, 1, q.DuplicateValues)
	require.NotNil(t, q.Summary)
	assert.InDelta(t, 22.5, q.Summary.Mean, 1e-9)

	_, err = c.ColumnQuality(ds, flags, "ghost")
	assert.Error(t, err)
}

func TestEvaluateRules_PassingRule(t *testing.T) {
	ds, err := dataset.New([]dataset.Column{
		{Name: "age", Values: []string{"25", "40", "33"}},
	})
	require.NoError(t, err)

	c := newCache()
	min := 0.0
	c.AddRule(Rule{Column: "age", MinValue: &min})

	results := c.evaluateRules(ds)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Empty(t, results[0].Message)
}
