package distribution

import (
	"math"

	"statlab/domain/dataset"
	"statlab/domain/stats"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Analyzer fits and classifies the distribution shape of a numeric series.
// Analyze is read-only; it never mutates the series or any flag state.
type Analyzer struct {
	minSamples int

	// normality returns the p-value of the normality test. Injectable so the
	// fit cascade can be exercised with forced p-values.
	normality func(values []float64) float64
}

// New creates an analyzer with the given sample floor (30 is the documented
// default, carried from upstream but not validated there).
func New(minSamples int) *Analyzer {
	if minSamples < 3 {
		minSamples = 30
	}
	return &Analyzer{
		minSamples: minSamples,
		normality:  dagostinoK2,
	}
}

// WithNormalityTest replaces the normality test. Test seam.
func (a *Analyzer) WithNormalityTest(test func([]float64) float64) *Analyzer {
	a.normality = test
	return a
}

type moments struct {
	mean, stdDev, min, max float64
	skew, kurt             float64 // kurt is excess kurtosis
	n                      int
}

// candidate pairs a cheap moment predicate with an expensive fit-and-test.
// Candidates run in fixed priority; the first accepted wins.
type candidate struct {
	kind    stats.DistributionType
	applies func(m moments) bool
	fit     func(a *Analyzer, values []float64, m moments) (map[string]float64, float64, bool)
}

var candidates = []candidate{
	{
		kind:    stats.DistNormal,
		applies: func(m moments) bool { return math.Abs(m.skew) < 0.5 && math.Abs(m.kurt) < 2 },
		fit:     fitNormal,
	},
	{
		kind:    stats.DistLogNormal,
		applies: func(m moments) bool { return m.skew > 0 },
		fit:     fitLogNormal,
	},
	{
		kind:    stats.DistExponential,
		applies: func(m moments) bool { return m.skew > 1 && m.kurt > 6 },
		fit:     fitExponential,
	},
	{
		kind:    stats.DistUniform,
		applies: func(m moments) bool { return math.Abs(m.skew) < 0.5 && math.Abs(m.kurt) < 1.8 },
		fit:     fitUniform,
	},
}

// AnalyzeColumn drops missing cells (and all non-NORMAL cells when
// ignoreFlagged is set) before analyzing. flags may be nil when no grid exists
// yet.
func (a *Analyzer) AnalyzeColumn(col dataset.Column, flags []dataset.Flag, ignoreFlagged bool) stats.DistributionProfile {
	values := make([]float64, 0, len(col.Values))
	for i, raw := range col.Values {
		if dataset.IsMissing(raw) {
			continue
		}
		if ignoreFlagged && flags != nil && flags[i] != dataset.FlagNormal {
			continue
		}
		if v, ok := dataset.ParseNumeric(raw); ok {
			values = append(values, v)
		}
	}
	return a.Analyze(values)
}

// Analyze classifies the shape of a cleaned numeric series.
func (a *Analyzer) Analyze(values []float64) stats.DistributionProfile {
	if len(values) < a.minSamples {
		return stats.DistributionProfile{
			Type:       stats.DistInsufficientData,
			SampleSize: len(values),
		}
	}

	m := computeMoments(values)
	for _, c := range candidates {
		if !c.applies(m) {
			continue
		}
		params, p, ok := c.fit(a, values, m)
		if !ok {
			continue
		}
		return stats.DistributionProfile{
			Type:          c.kind,
			Parameters:    params,
			GoodnessOfFit: p,
			Confidence:    clamp01(1 - p),
			SampleSize:    m.n,
			Skewness:      m.skew,
			Kurtosis:      m.kurt,
		}
	}
	return fallbackFromMoments(m)
}

// fallbackFromMoments classifies purely from skewness and excess kurtosis when
// no parametric fit is accepted.
func fallbackFromMoments(m moments) stats.DistributionProfile {
	kind := stats.DistUnknown
	switch {
	case m.skew > 1:
		kind = stats.DistRightSkewed
	case m.skew < -1:
		kind = stats.DistLeftSkewed
	case m.kurt > 3:
		kind = stats.DistHeavyTailed
	case m.kurt < 1.8:
		kind = stats.DistLightTailed
	}
	return stats.DistributionProfile{
		Type:       kind,
		Confidence: 0.5,
		SampleSize: m.n,
		Skewness:   m.skew,
		Kurtosis:   m.kurt,
	}
}

func fitNormal(a *Analyzer, values []float64, m moments) (map[string]float64, float64, bool) {
	p := a.normality(values)
	if p <= 0.05 {
		return nil, 0, false
	}
	return map[string]float64{"mean": m.mean, "std": m.stdDev}, p, true
}

func fitLogNormal(a *Analyzer, values []float64, m moments) (map[string]float64, float64, bool) {
	logs := make([]float64, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			return nil, 0, false
		}
		logs = append(logs, math.Log(v))
	}
	p := a.normality(logs)
	if p <= 0.05 {
		return nil, 0, false
	}
	meanLog, _ := mstats.Mean(logs)
	sdLog, _ := mstats.StandardDeviation(logs)
	return map[string]float64{"meanlog": meanLog, "sdlog": sdLog}, p, true
}

func fitExponential(_ *Analyzer, values []float64, m moments) (map[string]float64, float64, bool) {
	if m.mean <= 0 || m.min < 0 {
		return nil, 0, false
	}
	dist := distuv.Exponential{Rate: 1 / m.mean}
	p := ksPValue(values, dist.CDF)
	if p <= 0.05 {
		return nil, 0, false
	}
	return map[string]float64{"rate": 1 / m.mean}, p, true
}

func fitUniform(_ *Analyzer, values []float64, m moments) (map[string]float64, float64, bool) {
	if m.max <= m.min {
		return nil, 0, false
	}
	dist := distuv.Uniform{Min: m.min, Max: m.max}
	p := ksPValue(values, dist.CDF)
	if p <= 0.05 {
		return nil, 0, false
	}
	return map[string]float64{"min": m.min, "max": m.max}, p, true
}

func computeMoments(values []float64) moments {
	mean, _ := mstats.Mean(values)
	stdDev, _ := mstats.StandardDeviation(values)
	min, _ := mstats.Min(values)
	max, _ := mstats.Max(values)
	return moments{
		mean:   mean,
		stdDev: stdDev,
		min:    min,
		max:    max,
		skew:   Skewness(values, mean, stdDev),
		kurt:   ExcessKurtosis(values, mean, stdDev),
		n:      len(values),
	}
}

// Skewness computes the bias-corrected adjusted Fisher-Pearson coefficient.
func Skewness(values []float64, mean, stdDev float64) float64 {
	if len(values) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(values))
	sum := 0.0
	for _, x := range values {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return (sum / n) * math.Sqrt(n*(n-1)) / (n - 2)
}

// ExcessKurtosis computes bias-corrected sample kurtosis relative to the
// normal distribution (normal = 0).
func ExcessKurtosis(values []float64, mean, stdDev float64) float64 {
	if len(values) < 4 || stdDev == 0 {
		return 0
	}
	n := float64(len(values))
	sum := 0.0
	for _, x := range values {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	g2 := sum/n - 3
	return ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
