package distribution

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// dagostinoK2 runs D'Agostino's K² normality test and returns its p-value.
// For samples too small for the transforms, a Jarque-Bera style approximation
// on skewness and kurtosis is used instead.
func dagostinoK2(values []float64) float64 {
	if len(values) < 8 {
		return jarqueBeraApprox(values)
	}

	n := float64(len(values))
	mean, _ := mstats.Mean(values)
	stdDev, _ := mstats.StandardDeviation(values)
	if stdDev == 0 || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return 0
	}

	g1 := Skewness(values, mean, stdDev)
	g2 := ExcessKurtosis(values, mean, stdDev) + 3 // total kurtosis for the transform

	// Skewness transform to Z1 (D'Agostino).
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := (3 * (n*n + 27*n - 70) * (n + 1) * (n + 3)) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 0 {
		return 0
	}
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	ay := y / alpha
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	// Kurtosis transform to Z2 (Anscombe-Glynn).
	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	if v <= 0 {
		return 0
	}
	x := (g2 - e) / math.Sqrt(v)

	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if a <= 4 {
		return 0
	}
	term := 1 - 2/(9*a)
	den := 1 + x*math.Sqrt(2/(a-4))
	if den <= 0 {
		return 0
	}
	z2 := (term - math.Pow((1-2/a)/den, 1.0/3.0)) / math.Sqrt(2/(9*a))

	k2 := z1*z1 + z2*z2
	chi2 := distuv.ChiSquared{K: 2}
	return 1 - chi2.CDF(k2)
}

func jarqueBeraApprox(values []float64) float64 {
	if len(values) < 3 {
		return 1
	}
	mean, _ := mstats.Mean(values)
	stdDev, _ := mstats.StandardDeviation(values)
	if stdDev == 0 {
		return 0
	}
	skew := Skewness(values, mean, stdDev)
	kurt := ExcessKurtosis(values, mean, stdDev)

	testStat := math.Abs(skew) + math.Abs(kurt)/2
	chi2 := distuv.ChiSquared{K: 2}
	return 1 - chi2.CDF(testStat*testStat)
}

// ksPValue runs a one-sample Kolmogorov-Smirnov test of the series against the
// given CDF and returns the asymptotic p-value.
func ksPValue(values []float64, cdf func(float64) float64) float64 {
	n := len(values)
	if n == 0 {
		return 1
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d := 0.0
	for i, x := range sorted {
		f := cdf(x)
		dPlus := float64(i+1)/float64(n) - f
		dMinus := f - float64(i)/float64(n)
		if dPlus > d {
			d = dPlus
		}
		if dMinus > d {
			d = dMinus
		}
	}
	return kolmogorovSF(d, n)
}

// kolmogorovSF approximates the survival function of the KS statistic using
// the Stephens small-sample adjustment with the Kolmogorov series.
func kolmogorovSF(d float64, n int) float64 {
	if d <= 0 {
		return 1
	}
	sqrtN := math.Sqrt(float64(n))
	t := d * (sqrtN + 0.12 + 0.11/sqrtN)

	sum := 0.0
	for k := 1; k <= 100; k++ {
		term := math.Exp(-2 * float64(k) * float64(k) * t * t)
		if k%2 == 1 {
			sum += term
		} else {
			sum -= term
		}
		if term < 1e-10 {
			break
		}
	}
	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
