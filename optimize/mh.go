package optimize

import (
	"context"
	"math"
	"math/rand"
)

// MH is a Metropolis-within-Gibbs sampler. Every iteration is a
// sweep which proposes a new value for each parameter in random
// order.
type MH struct {
	BaseOptimizer
	AccPeriod int
	// Warmup is the number of sweeps before the recorded ones.
	// Proposal adaptation happens only during warmup.
	Warmup int
	// OnDraw is called after every recorded sweep with the draw
	// index.
	OnDraw func(draw int)

	rng      *rand.Rand
	ctx      context.Context
	err      error
	proposed int
	accepted int
}

// NewMH creates a new MH sampler using the random source r.
func NewMH(r *rand.Rand) (mcmc *MH) {
	mcmc = &MH{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		AccPeriod: 100,
		rng:       r,
		ctx:       context.Background(),
	}
	return
}

// SetContext sets a context which stops sampling when done.
func (m *MH) SetContext(ctx context.Context) {
	m.ctx = ctx
}

// SetOptimizable sets the model and binds its parameters to the
// sampler random source.
func (m *MH) SetOptimizable(opt Optimizable) {
	m.BaseOptimizer.SetOptimizable(opt)
	m.parameters.SetRand(m.rng)
}

// Err returns an error which interrupted the last run.
func (m *MH) Err() error {
	return m.err
}

// AcceptanceRate returns the acceptance rate of recorded sweeps.
func (m *MH) AcceptanceRate() float64 {
	if m.proposed == 0 {
		return 0
	}
	return float64(m.accepted) / float64(m.proposed)
}

// Run performs Warmup + iterations sweeps.
func (m *MH) Run(iterations int) {
	m.saveStart()
	m.updateMax(m.l)
	m.PrintHeader()
	m.err = nil
	m.proposed, m.accepted = 0, 0
	accepted, proposed := 0, 0
	l := m.l
	total := m.Warmup + iterations
	order := make([]int, len(m.parameters))
	for i := range order {
		order[i] = i
	}
	if m.Warmup > 0 {
		log.Debugf("Warmup for %d iterations", m.Warmup)
	}
Iter:
	for m.i = 0; m.i < total; m.i++ {
		if m.i == m.Warmup {
			log.Debug("Starting sampling")
		}
		if m.i > 0 && m.i%m.AccPeriod == 0 && proposed > 0 {
			log.Debugf("Acceptance rate %.2f%%", 100*float64(accepted)/float64(proposed))
			accepted, proposed = 0, 0
		}

		m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, p := range order {
			par := m.parameters[p]
			par.Propose()
			newL := m.Likelihood()
			m.calls++
			proposed++

			a := math.Exp(par.Prior() - par.OldPrior() + newL - l)
			ok := a > 1 || m.rng.Float64() < a
			if ok {
				l = newL
				par.Accept(m.i)
				accepted++
				m.updateMax(l)
			} else {
				par.Reject()
			}
			if m.i >= m.Warmup {
				m.proposed++
				if ok {
					m.accepted++
				}
			}
		}
		m.l = l

		if m.i >= m.Warmup {
			m.PrintLine(l, m.repPeriod)
			if m.OnDraw != nil {
				m.OnDraw(m.i - m.Warmup)
			}
		}

		select {
		case <-m.ctx.Done():
			m.err = m.ctx.Err()
			break Iter
		default:
		}
	}

	m.saveDeltaT()
	m.PrintFinal()
}

// Summary returns the sampler summary.
func (m *MH) Summary() Summary {
	s := m.baseSummary("mh")
	s.AcceptanceRate = m.AcceptanceRate()
	return s
}
