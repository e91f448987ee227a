package optimize

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// UniformPrior returns log density of the uniform distribution.
func UniformPrior(min, max float64, incmin, incmax bool) func(float64) float64 {
	if max <= min {
		panic("max <= min")
	}
	return func(x float64) float64 {
		if (incmin && x < min) ||
			(!incmin && x <= min) ||
			(incmax && x > max) ||
			(!incmax && x >= max) {
			return math.Inf(-1)
		}
		return -math.Log(max - min)
	}
}

// NormalPrior returns log density of the normal distribution with a
// given mean and variance.
func NormalPrior(mean, variance float64) func(float64) float64 {
	if variance <= 0 {
		panic("variance of normal distribution must be > 0")
	}
	d := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}
	return d.LogProb
}
