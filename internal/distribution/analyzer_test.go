package distribution

import (
	"math"
	"math/rand"
	"testing"

	"statlab/domain/dataset"
	"statlab/domain/stats"
)

func normalSample(seed int64, n int, mean, std float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + rng.NormFloat64()*std
	}
	return out
}

func lognormalSample(seed int64, n int, meanlog, sdlog float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(meanlog + rng.NormFloat64()*sdlog)
	}
	return out
}

func uniformSample(seed int64, n int, min, max float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = min + rng.Float64()*(max-min)
	}
	return out
}

func TestAnalyze_InsufficientData(t *testing.T) {
	a := New(30)
	profile := a.Analyze([]float64{1, 2, 3, 4, 5})

	if profile.Type != stats.DistInsufficientData {
		t.Errorf("Type = %s, want %s", profile.Type, stats.DistInsufficientData)
	}
	if profile.SampleSize != 5 {
		t.Errorf("SampleSize = %d, want 5", profile.SampleSize)
	}
}

func TestAnalyze_NormalAccepted(t *testing.T) {
	a := New(30).WithNormalityTest(func([]float64) float64 { return 0.42 })
	values := normalSample(1, 500, 100, 15)

	profile := a.Analyze(values)
	if profile.Type != stats.DistNormal {
		t.Fatalf("Type = %s, want %s", profile.Type, stats.DistNormal)
	}
	if profile.GoodnessOfFit != 0.42 {
		t.Errorf("GoodnessOfFit = %v, want 0.42", profile.GoodnessOfFit)
	}
	if math.Abs(profile.Confidence-0.58) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.58", profile.Confidence)
	}
	if math.Abs(profile.Parameters["mean"]-100) > 3 {
		t.Errorf("fitted mean = %v, want near 100", profile.Parameters["mean"])
	}
	if profile.SampleSize != 500 {
		t.Errorf("SampleSize = %d, want 500", profile.SampleSize)
	}
}

func TestAnalyze_LogNormal(t *testing.T) {
	a := New(30).WithNormalityTest(func([]float64) float64 { return 0.31 })
	values := lognormalSample(2, 500, 1.0, 0.8)

	profile := a.Analyze(values)
	if profile.Type != stats.DistLogNormal {
		t.Fatalf("Type = %s (skew=%.2f kurt=%.2f), want %s",
			profile.Type, profile.Skewness, profile.Kurtosis, stats.DistLogNormal)
	}
	if math.Abs(profile.Parameters["meanlog"]-1.0) > 0.15 {
		t.Errorf("fitted meanlog = %v, want near 1.0", profile.Parameters["meanlog"])
	}
	if math.Abs(profile.Parameters["sdlog"]-0.8) > 0.15 {
		t.Errorf("fitted sdlog = %v, want near 0.8", profile.Parameters["sdlog"])
	}
}

func TestAnalyze_Uniform(t *testing.T) {
	// Real normality test: it rejects a uniform sample hard, so the cascade
	// falls through normal and log-normal before the KS test accepts uniform.
	a := New(30)
	values := uniformSample(3, 500, 1, 10)

	profile := a.Analyze(values)
	if profile.Type != stats.DistUniform {
		t.Fatalf("Type = %s (skew=%.2f kurt=%.2f), want %s",
			profile.Type, profile.Skewness, profile.Kurtosis, stats.DistUniform)
	}
	if profile.Parameters["min"] < 1 || profile.Parameters["max"] > 10 {
		t.Errorf("fitted bounds [%v, %v] outside generating range",
			profile.Parameters["min"], profile.Parameters["max"])
	}
}

func TestAnalyze_RejectedFitsFallToMoments(t *testing.T) {
	// Symmetric bell-shaped data with every normality test forced to reject:
	// normal fails, log-normal fails, and the KS test rules out uniform, so the
	// moment fallback decides. Near-zero skew and kurtosis land on light-tailed
	// with the fixed 0.5 confidence.
	a := New(30).WithNormalityTest(func([]float64) float64 { return 0.01 })
	values := normalSample(4, 500, 50, 5)

	profile := a.Analyze(values)
	if profile.Type != stats.DistLightTailed {
		t.Fatalf("Type = %s (skew=%.2f kurt=%.2f), want %s",
			profile.Type, profile.Skewness, profile.Kurtosis, stats.DistLightTailed)
	}
	if profile.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", profile.Confidence)
	}
}

func TestAnalyze_RightSkewedFallback(t *testing.T) {
	// Strongly right-skewed data shifted away from zero: log-normal is rejected
	// by the forced test, the exponential KS fit cannot match the offset, and
	// the skew is far outside the uniform and normal gates.
	a := New(30).WithNormalityTest(func([]float64) float64 { return 0.01 })
	base := lognormalSample(5, 300, 0, 1)
	values := make([]float64, len(base))
	for i, v := range base {
		values[i] = v + 10
	}

	profile := a.Analyze(values)
	if profile.Type != stats.DistRightSkewed {
		t.Fatalf("Type = %s (skew=%.2f kurt=%.2f), want %s",
			profile.Type, profile.Skewness, profile.Kurtosis, stats.DistRightSkewed)
	}
}

func TestAnalyzeColumn_SkipsMissingAndFlagged(t *testing.T) {
	a := New(3).WithNormalityTest(func([]float64) float64 { return 0.9 })

	col := dataset.Column{
		Name:   "x",
		Values: []string{"10", "", "12", "11", "9999", "13", "NA", "10.5", "11.5", "12.5"},
	}
	flags := []dataset.Flag{
		dataset.FlagNormal, dataset.FlagMissing, dataset.FlagNormal, dataset.FlagNormal,
		dataset.FlagOutlier, dataset.FlagNormal, dataset.FlagMissing, dataset.FlagNormal,
		dataset.FlagNormal, dataset.FlagNormal,
	}

	profile := a.AnalyzeColumn(col, flags, true)
	if profile.SampleSize != 7 {
		t.Errorf("SampleSize = %d, want 7 (missing and flagged cells skipped)", profile.SampleSize)
	}

	// Without ignoreFlagged the 9999 outlier participates.
	profile = a.AnalyzeColumn(col, flags, false)
	if profile.SampleSize != 8 {
		t.Errorf("SampleSize = %d, want 8 (only missing cells skipped)", profile.SampleSize)
	}
}

func TestSkewness_SymmetricIsZero(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	mean, std := 3.0, math.Sqrt(2.5)
	if got := Skewness(values, mean, std); math.Abs(got) > 1e-12 {
		t.Errorf("Skewness = %v, want 0", got)
	}
}

func TestExcessKurtosis_FlatIsNegative(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	mean, std := 3.0, math.Sqrt(2.5)
	if got := ExcessKurtosis(values, mean, std); got >= 0 {
		t.Errorf("ExcessKurtosis = %v, want negative for a flat series", got)
	}
}

func TestDagostinoK2(t *testing.T) {
	if p := dagostinoK2(normalSample(6, 200, 0, 1)); p <= 0.01 {
		t.Errorf("normal sample rejected: p = %v", p)
	}
	if p := dagostinoK2(lognormalSample(7, 200, 0, 1)); p > 0.05 {
		t.Errorf("log-normal sample accepted as normal: p = %v", p)
	}
}

func TestKSPValue_SelfConsistency(t *testing.T) {
	values := uniformSample(8, 200, 0, 1)
	p := ksPValue(values, func(x float64) float64 {
		if x < 0 {
			return 0
		}
		if x > 1 {
			return 1
		}
		return x
	})
	if p <= 0.01 {
		t.Errorf("uniform sample rejected against its own CDF: p = %v", p)
	}
}
