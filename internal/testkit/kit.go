package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"statlab/domain/dataset"
)

// GeneratorConfig configures the synthetic dataset generator.
type GeneratorConfig struct {
	Rows int   `json:"rows"`
	Seed int64 `json:"seed"`
}

// DefaultConfig returns sensible defaults for synthetic data generation.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Rows: 200,
		Seed: 42,
	}
}

// Generator produces datasets with known column shapes so tests can assert
// classification and flagging outcomes deterministically.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a seeded synthetic data generator.
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// NormalColumn draws rows from N(mean, std).
func (g *Generator) NormalColumn(name string, mean, std float64) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = formatFloat(mean + g.rng.NormFloat64()*std)
	}
	return dataset.Column{Name: name, Values: values}
}

// LogNormalColumn draws rows whose logarithms follow N(meanlog, sdlog).
func (g *Generator) LogNormalColumn(name string, meanlog, sdlog float64) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = formatFloat(math.Exp(meanlog + g.rng.NormFloat64()*sdlog))
	}
	return dataset.Column{Name: name, Values: values}
}

// ExponentialColumn draws rows from Exp(rate).
func (g *Generator) ExponentialColumn(name string, rate float64) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = formatFloat(g.rng.ExpFloat64() / rate)
	}
	return dataset.Column{Name: name, Values: values}
}

// UniformColumn draws rows from U(min, max).
func (g *Generator) UniformColumn(name string, min, max float64) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = formatFloat(min + g.rng.Float64()*(max-min))
	}
	return dataset.Column{Name: name, Values: values}
}

// DiscreteColumn cycles through small integer codes.
func (g *Generator) DiscreteColumn(name string, levels int) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = strconv.Itoa(g.rng.Intn(levels) + 1)
	}
	return dataset.Column{Name: name, Values: values}
}

// CategoricalColumn samples uniformly from the given labels.
func (g *Generator) CategoricalColumn(name string, labels []string) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = labels[g.rng.Intn(len(labels))]
	}
	return dataset.Column{Name: name, Values: values}
}

// BooleanColumn emits "true"/"false" with the given true probability.
func (g *Generator) BooleanColumn(name string, trueProb float64) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		if g.rng.Float64() < trueProb {
			values[i] = "true"
		} else {
			values[i] = "false"
		}
	}
	return dataset.Column{Name: name, Values: values}
}

// TimeseriesColumn emits daily timestamps starting at start.
func (g *Generator) TimeseriesColumn(name string, start time.Time) dataset.Column {
	values := make([]string, g.config.Rows)
	for i := range values {
		values[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dataset.Column{Name: name, Values: values}
}

// WithMissing blanks out roughly frac of the column's cells.
func (g *Generator) WithMissing(col dataset.Column, frac float64) dataset.Column {
	out := dataset.Column{Name: col.Name, Values: append([]string(nil), col.Values...)}
	for i := range out.Values {
		if g.rng.Float64() < frac {
			out.Values[i] = ""
		}
	}
	return out
}

// WithSpikes replaces count cells with the given extreme value. Used to plant
// outliers at known magnitudes.
func (g *Generator) WithSpikes(col dataset.Column, count int, value float64) dataset.Column {
	out := dataset.Column{Name: col.Name, Values: append([]string(nil), col.Values...)}
	for i := 0; i < count && i < len(out.Values); i++ {
		out.Values[i] = formatFloat(value)
	}
	return out
}

// Dataset assembles columns into a dataset, panicking on construction errors
// so test setup stays terse.
func (g *Generator) Dataset(cols ...dataset.Column) *dataset.Dataset {
	ds, err := dataset.New(cols)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad fixture: %v", err))
	}
	return ds
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// SequenceColumn emits 1..rows as strings. Handy for deterministic numeric
// fixtures where the exact values matter.
func SequenceColumn(name string, rows int) dataset.Column {
	values := make([]string, rows)
	for i := range values {
		values[i] = strconv.Itoa(i + 1)
	}
	return dataset.Column{Name: name, Values: values}
}

// LiteralColumn wraps explicit values, padding with "" to the requested length.
func LiteralColumn(name string, rows int, values ...string) dataset.Column {
	out := make([]string, rows)
	copy(out, values)
	return dataset.Column{Name: name, Values: out}
}
