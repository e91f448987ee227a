// Package optimize provides model parameters, priors and proposals
// together with a Metropolis-Hastings sampler and an L-BFGS-B
// optimizer working on them.
package optimize

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Optimizable is a model which can be sampled or optimized.
type Optimizable interface {
	// GetFloatParameters returns all the free parameters.
	GetFloatParameters() FloatParameters
	// Likelihood returns the log-likelihood at the current
	// parameter values (priors excluded).
	Likelihood() float64
	// Copy returns an independent copy of the model.
	Copy() Optimizable
	// SetDefaults resets parameters to the default values.
	SetDefaults()
}

// Optimizer is a sampler or an optimizer.
type Optimizer interface {
	SetOptimizable(Optimizable)
	SetReportPeriod(period int)
	SetTrajectoryOutput(io.Writer)
	Run(iterations int)
	Summary() Summary
}

// Summary is the short summary of an optimizer run.
type Summary struct {
	// Method is the method name.
	Method string `json:"method"`
	// Iterations is the number of performed iterations.
	Iterations int `json:"iterations"`
	// Calls is the number of likelihood function calls.
	Calls int `json:"calls"`
	// AcceptanceRate is the proportion of accepted proposals
	// (samplers only).
	AcceptanceRate float64 `json:"acceptanceRate,omitempty"`
	// MaxLnL is the maximum of the objective encountered.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters are the parameter values at MaxLnL.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	// Time is the running time in seconds.
	Time float64 `json:"time"`
}

// BaseOptimizer implements common optimizer functionality.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	calls      int
	l          float64
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	trajF      io.Writer
	startTime  time.Time
	deltaT     time.Duration
	Quiet      bool
}

// SetOptimizable sets the model.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// SetReportPeriod sets the trajectory report period.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// SetTrajectoryOutput sets the trajectory writer. nil disables the
// trajectory output.
func (o *BaseOptimizer) SetTrajectoryOutput(w io.Writer) {
	o.trajF = w
}

// saveStart stores starting time and likelihood.
func (o *BaseOptimizer) saveStart() {
	o.startTime = time.Now()
	o.l = o.Likelihood()
	o.calls++
	o.maxL = math.Inf(-1)
	if o.repPeriod <= 0 {
		o.repPeriod = 10
	}
}

// saveDeltaT stores running time.
func (o *BaseOptimizer) saveDeltaT() {
	o.deltaT = time.Since(o.startTime)
}

// updateMax remembers the best value.
func (o *BaseOptimizer) updateMax(l float64) {
	if l > o.maxL {
		o.maxL = l
		o.maxLPar = o.parameters.Values(o.maxLPar)
	}
}

// PrintHeader prints the trajectory header.
func (o *BaseOptimizer) PrintHeader() {
	if !o.Quiet && o.trajF != nil {
		fmt.Fprintf(o.trajF, "iteration\tlikelihood\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine prints a trajectory line every repPeriod iterations.
func (o *BaseOptimizer) PrintLine(l float64, repPeriod int) {
	if !o.Quiet && o.trajF != nil && o.i%repPeriod == 0 {
		fmt.Fprintf(o.trajF, "%d\t%f\t%s\n", o.i, l, o.parameters.ValuesString())
	}
}

// PrintFinal logs final parameter values.
func (o *BaseOptimizer) PrintFinal() {
	if !o.Quiet {
		for _, par := range o.parameters {
			log.Debugf("%s=%v", par.Name(), par.Get())
		}
	}
}

// GetMaxLParameters returns parameter values at the maximum.
func (o *BaseOptimizer) GetMaxLParameters() map[string]float64 {
	m := make(map[string]float64, len(o.parameters))
	if o.maxLPar == nil {
		return m
	}
	for i, par := range o.parameters {
		m[par.Name()] = o.maxLPar[i]
	}
	return m
}

// baseSummary fills the common summary fields.
func (o *BaseOptimizer) baseSummary(method string) Summary {
	return Summary{
		Method:         method,
		Iterations:     o.i,
		Calls:          o.calls,
		MaxLnL:         o.maxL,
		MaxLParameters: o.GetMaxLParameters(),
		Time:           o.deltaT.Seconds(),
	}
}
