package optimize

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// AdaptiveSettings control the adaptation of normal random walk
// proposals during warmup. Accepted values are collected in batches.
// After every batch the running estimates of the parameter mean and
// variance move towards the batch estimates with a Robbins-Monro
// step, and the proposal standard deviation becomes Lambda times the
// estimated posterior standard deviation.
type AdaptiveSettings struct {
	// Batch is the number of accepted values per update.
	Batch int
	// Window is the number of recent mean estimates which decide
	// whether the estimate is stable.
	Window int
	// Skip is the first sweep contributing to the estimates.
	Skip int
	// MaxAdapt is the sweep where adaptation stops. The sampler
	// keeps it within the warmup, so recorded draws use a fixed
	// proposal.
	MaxAdapt int
	// MaxBatches stops adaptation after this many updates.
	MaxBatches int
	// Tolerance stops adaptation once the standard deviation of
	// the recent mean estimates relative to max(|mean|, 1) is
	// below it. Regression coefficients are often close to zero.
	Tolerance float64
	// C and Nu define the step size C/(k+1)^(1/(1+Nu)), where k
	// counts sign changes of the mean correction.
	C, Nu float64
	// Lambda multiplies the estimated standard deviation, 2.4 is
	// the optimal one-dimensional random walk scale.
	Lambda float64
	// SD is the standard deviation estimate before the first
	// update unless the sampler sets a scale.
	SD float64
}

// NewAdaptiveSettings returns settings suited to standardized
// logistic regression coefficients.
func NewAdaptiveSettings() *AdaptiveSettings {
	return &AdaptiveSettings{
		Batch:      20,
		Window:     10,
		Skip:       50,
		MaxAdapt:   1000,
		MaxBatches: 200,
		Tolerance:  0.05,
		C:          1,
		Nu:         3,
		Lambda:     2.4,
		SD:         0.1,
	}
}

// ParameterGenerator is a FloatParameterGenerator for adaptive
// parameters sharing as.
func (as *AdaptiveSettings) ParameterGenerator(par *float64, name string) FloatParameter {
	return NewAdaptiveParameter(par, name, as)
}

// AdaptiveParameter is a parameter with an adaptive normal random
// walk proposal.
type AdaptiveParameter struct {
	*BasicFloatParameter
	*AdaptiveSettings

	// n is the number of accepted values used.
	n        int
	switches int
	up       bool

	mean, variance float64
	// running batch mean and sum of squared deviations
	bmean, bm2 float64

	window []float64
	frozen bool
}

func square(x float64) float64 {
	return x * x
}

// NewAdaptiveParameter creates an adaptive parameter bound to par.
func NewAdaptiveParameter(par *float64, name string, as *AdaptiveSettings) *AdaptiveParameter {
	if as.SD <= 0 {
		panic("SD should be > 0")
	}
	if as.Batch < 2 {
		panic("Batch should be >= 2")
	}
	a := &AdaptiveParameter{
		BasicFloatParameter: NewBasicFloatParameter(par, name),
		AdaptiveSettings:    as,
		mean:                math.NaN(),
		variance:            square(as.SD),
	}
	a.proposalFunc = func(r *rand.Rand, x float64) float64 {
		return x + r.NormFloat64()*a.Scale()
	}
	return a
}

// SetScale sets the proposal standard deviation.
func (a *AdaptiveParameter) SetScale(sd float64) {
	if sd <= 0 {
		panic("sd should be > 0")
	}
	a.variance = square(sd / a.Lambda)
}

// Scale returns the proposal standard deviation.
func (a *AdaptiveParameter) Scale() float64 {
	return math.Sqrt(a.variance) * a.Lambda
}

// SetProposalFunc is ignored, the proposal is always adaptive.
func (a *AdaptiveParameter) SetProposalFunc(f func(*rand.Rand, float64) float64) {
}

// Accept records the accepted value of sweep iter.
func (a *AdaptiveParameter) Accept(iter int) {
	if !a.frozen && iter >= a.Skip && iter < a.MaxAdapt {
		a.add(*a.float64)
	}
}

// step returns the Robbins-Monro step size. It only decreases when
// the correction of the mean changes sign.
func (a *AdaptiveParameter) step() float64 {
	d := a.bmean - a.mean
	if (d > 0 && !a.up) || (d < 0 && a.up) {
		a.switches++
	}
	a.up = d > 0
	return a.C / math.Pow(float64(a.switches+1), 1/math.Max(1, 1+a.Nu))
}

// add adds an accepted value to the current batch and updates the
// estimates when the batch is full.
func (a *AdaptiveParameter) add(x float64) {
	if math.IsNaN(a.mean) {
		a.mean = x
	}
	i := a.n % a.Batch
	if a.n > 0 && i == 0 {
		g := a.step()
		a.mean += g * (a.bmean - a.mean)
		a.variance += g * (a.bm2/float64(a.Batch-1) - a.variance)
		if a.variance <= 0 {
			a.variance = square(a.SD)
		}
		a.bmean, a.bm2 = 0, 0
		a.checkStable()
		if a.frozen {
			return
		}
	}
	d := x - a.bmean
	a.bmean += d / float64(i+1)
	a.bm2 += d * (x - a.bmean)
	a.n++
}

// checkStable freezes the proposal once the mean estimate settles or
// the number of updates reaches MaxBatches.
func (a *AdaptiveParameter) checkStable() {
	if a.n/a.Batch >= a.MaxBatches {
		a.freeze("max batches")
		return
	}
	a.window = append(a.window, a.mean)
	if len(a.window) > a.Window {
		a.window = a.window[1:]
	}
	if a.Window < 2 || len(a.window) < a.Window {
		return
	}
	m, sd := stat.MeanStdDev(a.window, nil)
	if sd/math.Max(math.Abs(m), 1) < a.Tolerance {
		a.freeze("stable mean")
	}
}

func (a *AdaptiveParameter) freeze(reason string) {
	a.frozen = true
	log.Debugf("%s: adaptation stopped (%s), scale=%g", a.Name(), reason, a.Scale())
}
