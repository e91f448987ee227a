package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// Gradienter is an Optimizable which provides the gradient of the
// log posterior with respect to its parameters.
type Gradienter interface {
	// Gradient stores the gradient in grad (allocated if nil) and
	// returns it.
	Gradient(grad []float64) []float64
}

// LBFGSB finds the posterior mode (log-likelihood plus log prior)
// with the limited-memory BFGS with bounds.
type LBFGSB struct {
	BaseOptimizer
	dH   float64
	grad []float64
}

// NewLBFGSB creates a new LBFGSB optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH: 1e-6,
	}
	return
}

// posterior returns the unnormalized log posterior.
func (l *LBFGSB) posterior() float64 {
	l.calls++
	return l.Likelihood() + l.parameters.Prior()
}

// Logger is called by the optimizer after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.parameters.SetValues(info.X)
	l.PrintLine(-info.F, 1)
}

// EvaluateFunction returns the minimized function value.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}

	l.parameters.SetValues(x)

	L := l.posterior()
	l.updateMax(L)
	return -L
}

// EvaluateGradient returns the minimized function gradient.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	l.parameters.SetValues(x)
	if g, ok := l.Optimizable.(Gradienter); ok {
		l.grad = g.Gradient(l.grad)
		grad = make([]float64, len(l.grad))
		for i, v := range l.grad {
			grad[i] = -v
		}
		return
	}

	// central differences
	grad = make([]float64, len(x))
	for i := range x {
		par := l.parameters[i]
		v := x[i]
		par.Set(v - l.dH)
		l1 := -l.posterior()
		par.Set(v + l.dH)
		l2 := -l.posterior()
		par.Set(v)
		grad[i] = (l2 - l1) / 2 / l.dH
	}
	return
}

// Run finds the mode. iterations is ignored, the optimizer stops
// when tolerances are reached.
func (l *LBFGSB) Run(iterations int) {
	l.saveStart()
	l.PrintHeader()

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)

	bounded := false
	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin()
		bounds[i][1] = par.GetMax()
		if !math.IsInf(par.GetMin(), 0) || !math.IsInf(par.GetMax(), 0) {
			bounded = true
		}
	}
	if bounded {
		opt.SetBounds(bounds)
	}
	opt.SetLogger(l.Logger)

	min, exitStatus := opt.Minimize(l, l.parameters.Values(nil))
	log.Debugf("Exit status: %v", exitStatus)

	if min.X != nil {
		l.parameters.SetValues(min.X)
	}
	if l.maxLPar != nil {
		l.parameters.SetValues(l.maxLPar)
	}
	l.l = l.maxL

	l.saveDeltaT()
	if !l.Quiet {
		log.Debugf("Maximum log posterior: %v", l.maxL)
		log.Debugf("Function calls: %v", l.calls)
	}
	l.PrintFinal()
}

// Summary returns the optimizer summary.
func (l *LBFGSB) Summary() Summary {
	return l.baseSummary("lbfgsb")
}
