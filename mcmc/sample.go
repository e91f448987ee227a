// Package mcmc runs several Metropolis-Hastings chains on copies of a
// model, stores the draws and computes convergence diagnostics.
package mcmc

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"github.com/covstat/electlogit/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("mcmc")

// seedStep separates the seeds of the chains.
const seedStep = 1000003

// Model is a model which can be sampled by Sample.
type Model interface {
	optimize.Optimizable
	// ParameterNames returns names of all the reported parameters,
	// fixed ones included.
	ParameterNames() []string
	// Values stores the reported parameter values.
	Values(dst []float64) []float64
	// Generated returns names of generated quantities.
	Generated() []string
	// GeneratedValues stores generated quantities at the current
	// parameter values.
	GeneratedValues(dst []float64) []float64
	// HessianDiag returns the log posterior curvature for every
	// free parameter.
	HessianDiag(h []float64) []float64
	// SetAdaptive switches to adaptive proposals.
	SetAdaptive(*optimize.AdaptiveSettings)
}

// Settings are sampler settings.
type Settings struct {
	// Chains is the number of chains.
	Chains int `json:"chains" yaml:"chains"`
	// Warmup is the number of discarded sweeps per chain.
	Warmup int `json:"warmup" yaml:"warmup"`
	// Draws is the number of recorded sweeps per chain.
	Draws int `json:"draws" yaml:"iterations"`
	// Seed is the base random seed.
	Seed int64 `json:"seed" yaml:"seed"`
	// Adaptive enables adaptive proposals during warmup.
	Adaptive bool `json:"adaptive" yaml:"adaptive"`
	// MAP starts chains from the posterior mode.
	MAP bool `json:"map" yaml:"map"`
	// Jitter is the standard deviation of the start point
	// perturbation around the mode, in units of the posterior
	// standard deviation estimate.
	Jitter float64 `json:"jitter" yaml:"jitter"`
	// Threads limits the number of concurrently running chains,
	// 0 means no limit.
	Threads int `json:"threads" yaml:"threads"`
	// Limits are the convergence thresholds.
	Limits Limits `json:"limits" yaml:"limits"`

	// ReportPeriod is the trajectory report period.
	ReportPeriod int `json:"-" yaml:"-"`
	// Trajectory receives the trajectory of the first chain.
	Trajectory io.Writer `json:"-" yaml:"-"`
}

// NewSettings returns the default settings.
func NewSettings() *Settings {
	return &Settings{
		Chains:       2,
		Warmup:       1000,
		Draws:        1000,
		Seed:         1,
		Jitter:       1,
		ReportPeriod: 100,
		Limits:       DefaultLimits(),
	}
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	switch {
	case s.Chains < 1:
		return fmt.Errorf("number of chains should be positive, got %d", s.Chains)
	case s.Draws < 1:
		return fmt.Errorf("number of draws should be positive, got %d", s.Draws)
	case s.Warmup < 0:
		return fmt.Errorf("warmup should be non-negative, got %d", s.Warmup)
	case s.Jitter < 0:
		return fmt.Errorf("jitter should be non-negative, got %v", s.Jitter)
	}
	return nil
}

// Posterior is the result of sampling.
type Posterior struct {
	// Names are the parameter names followed by the generated
	// quantity names.
	Names []string
	// NParameters is the number of parameters in Names.
	NParameters int
	// Draws are indexed by quantity, chain and draw.
	Draws [][][]float64
	// Acceptance is the post-warmup acceptance rate per chain.
	Acceptance []float64
	// MAP is the posterior mode used to start the chains.
	MAP map[string]float64
	// MAPRun is the summary of the mode search, nil without MAP.
	MAPRun *optimize.Summary
	// Runs are the sampler summaries of the chains.
	Runs []optimize.Summary
	// Summaries are computed for every quantity.
	Summaries []Summary
	// Warnings are convergence problems.
	Warnings []Warning
	// MeanLnL is the log-likelihood at the posterior mean.
	MeanLnL float64
	// Time is the sampling time.
	Time time.Duration
}

// Index returns the index of the named quantity or -1.
func (p *Posterior) Index(name string) int {
	for i, n := range p.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// NDraws returns the total number of draws of all the chains.
func (p *Posterior) NDraws() int {
	if len(p.Draws) == 0 {
		return 0
	}
	n := 0
	for _, c := range p.Draws[0] {
		n += len(c)
	}
	return n
}

// Pooled returns the draws of quantity q from all the chains.
func (p *Posterior) Pooled(q int) []float64 {
	res := make([]float64, 0, p.NDraws())
	for _, c := range p.Draws[q] {
		res = append(res, c...)
	}
	return res
}

// Parameters returns summaries of the parameters only.
func (p *Posterior) Parameters() []Summary {
	return p.Summaries[:p.NParameters]
}

// run runs o on m and returns its summary.
func run(o optimize.Optimizer, m optimize.Optimizable, iterations int) optimize.Summary {
	o.SetOptimizable(m)
	o.Run(iterations)
	return o.Summary()
}

// findMAP moves the model to the posterior mode.
func findMAP(m Model) optimize.Summary {
	opt := optimize.NewLBFGSB()
	opt.Quiet = true
	s := run(opt, m, 0)
	log.Debugf("MAP log posterior %v after %d calls", s.MaxLnL, s.Calls)
	return s
}

// scales sets initial proposal standard deviations from the log
// posterior curvature at the current point.
func scales(m Model) {
	h := m.HessianDiag(nil)
	for k, par := range m.GetFloatParameters() {
		if h[k] < 0 && !math.IsInf(h[k], 0) {
			par.SetScale(2.4 / math.Sqrt(-h[k]))
		}
	}
}

// chain runs a single chain and stores its draws in p.
func chain(ctx context.Context, m Model, s *Settings, c int, start []float64, p *Posterior) error {
	rng := rand.New(rand.NewSource(s.Seed + int64(c)*seedStep))
	pars := m.GetFloatParameters()
	if start != nil {
		if err := pars.SetValues(start); err != nil {
			return err
		}
		h := m.HessianDiag(nil)
		for k, par := range pars {
			if h[k] < 0 {
				par.Set(start[k] + rng.NormFloat64()*s.Jitter/math.Sqrt(-h[k]))
			}
		}
	} else {
		pars.Randomize(rng, -2, 2)
	}
	scales(m)

	mh := optimize.NewMH(rng)
	mh.Warmup = s.Warmup
	mh.SetContext(ctx)
	if c == 0 && s.Trajectory != nil {
		mh.SetTrajectoryOutput(s.Trajectory)
		mh.SetReportPeriod(s.ReportPeriod)
	} else {
		mh.Quiet = true
	}

	nPar := p.NParameters
	vals := make([]float64, nPar)
	gen := make([]float64, len(p.Names)-nPar)
	mh.OnDraw = func(d int) {
		vals = m.Values(vals)
		for q, v := range vals {
			p.Draws[q][c][d] = v
		}
		gen = m.GeneratedValues(gen)
		for q, v := range gen {
			p.Draws[nPar+q][c][d] = v
		}
	}
	p.Runs[c] = run(mh, m, s.Draws)
	if err := mh.Err(); err != nil {
		return fmt.Errorf("chain %d: %w", c+1, err)
	}
	p.Acceptance[c] = p.Runs[c].AcceptanceRate
	log.Debugf("Chain %d acceptance rate %.2f%%", c+1, 100*p.Acceptance[c])
	return nil
}

// Sample runs s.Chains chains concurrently. Every chain works on its
// own copy of m. Results only depend on the settings.
func Sample(ctx context.Context, m Model, s *Settings) (*Posterior, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	p := &Posterior{
		Names:       m.ParameterNames(),
		NParameters: len(m.ParameterNames()),
		Acceptance:  make([]float64, s.Chains),
		Runs:        make([]optimize.Summary, s.Chains),
	}
	p.Names = append(p.Names, m.Generated()...)
	p.Draws = make([][][]float64, len(p.Names))
	for q := range p.Draws {
		p.Draws[q] = make([][]float64, s.Chains)
		for c := range p.Draws[q] {
			p.Draws[q][c] = make([]float64, s.Draws)
		}
	}

	var start []float64
	if s.MAP {
		mm := m.Copy().(Model)
		ms := findMAP(mm)
		p.MAPRun = &ms
		pars := mm.GetFloatParameters()
		start = pars.Values(nil)
		p.MAP = make(map[string]float64, p.NParameters)
		for i, v := range mm.Values(nil) {
			p.MAP[p.Names[i]] = v
		}
	}

	var as *optimize.AdaptiveSettings
	if s.Adaptive {
		as = optimize.NewAdaptiveSettings()
		if as.MaxAdapt > s.Warmup {
			as.MaxAdapt = s.Warmup
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.Threads > 0 {
		g.SetLimit(s.Threads)
	}
	for c := 0; c < s.Chains; c++ {
		c := c
		mc := m.Copy().(Model)
		if as != nil {
			mc.SetAdaptive(as)
		}
		g.Go(func() error {
			return chain(gctx, mc, s, c, start, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.Summaries = make([]Summary, len(p.Names))
	for q, name := range p.Names {
		p.Summaries[q] = Summarize(name, p.Draws[q])
	}
	p.Warnings = s.Limits.Check(p.Summaries)
	for _, w := range p.Warnings {
		log.Warning(w.Message)
	}
	p.MeanLnL = meanLikelihood(m, p)
	p.Time = time.Since(startTime)
	return p, nil
}

// meanLikelihood evaluates the log-likelihood at the posterior mean
// of the free parameters.
func meanLikelihood(m Model, p *Posterior) float64 {
	mm := m.Copy().(Model)
	pars := mm.GetFloatParameters()
	for _, par := range pars {
		if q := p.Index(par.Name()); q >= 0 {
			par.Set(p.Summaries[q].Mean)
		}
	}
	n := optimize.NewNone()
	n.Quiet = true
	return run(n, mm, 1).MaxLnL
}
