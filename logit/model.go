// Package logit implements the Bayesian logistic regression model:
// normal priors on the intercept and the coefficients and a
// Bernoulli-logit likelihood. The model also reports the linear
// predictor for held-out observations.
package logit

import (
	"fmt"
	"math"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/covstat/electlogit/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("logit")

// Intercept is the intercept parameter name.
const Intercept = "alpha"

// Model is the Bayesian logistic regression.
type Model struct {
	data  *Data
	prior *Prior
	names []string

	alpha   float64
	beta    []float64
	betaVec *mat.VecDense

	// cached linear predictor of the training rows
	eta     *mat.VecDense
	etaDone bool

	parameters optimize.FloatParameters
	// index of a parameter in the model: -1 is intercept, j >= 0
	// is a coefficient
	index []int
	as    *optimize.AdaptiveSettings
}

// New creates a model. names are predictor names used for parameter
// names, generated if nil. Both data and prior are validated and
// later shared read-only between model copies.
func New(data *Data, prior *Prior, names []string) (*Model, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if err := prior.Validate(data.P); err != nil {
		return nil, err
	}
	if names == nil {
		names = make([]string, data.P)
		for j := range names {
			names[j] = fmt.Sprintf("x%d", j+1)
		}
	}
	if len(names) != data.P {
		return nil, fmt.Errorf("%w: %d predictor names, P=%d", ErrDimension, len(names), data.P)
	}
	m := &Model{
		data:  data,
		prior: prior,
		names: names,
		beta:  make([]float64, data.P),
		eta:   mat.NewVecDense(data.N, nil),
	}
	m.betaVec = mat.NewVecDense(data.P, m.beta)
	m.setupParameters()
	m.SetDefaults()
	return m, nil
}

// ParameterName returns the name of coefficient j.
func (m *Model) ParameterName(j int) string {
	return "beta[" + m.names[j] + "]"
}

// ParameterNames returns the names of the intercept and all the
// coefficients, including the fixed ones.
func (m *Model) ParameterNames() []string {
	s := make([]string, 0, 1+m.data.P)
	s = append(s, Intercept)
	for j := range m.names {
		s = append(s, m.ParameterName(j))
	}
	return s
}

// Data returns the model input bundle.
func (m *Model) Data() *Data {
	return m.data
}

// setupParameters creates free parameters for non-zero variances.
func (m *Model) setupParameters() {
	m.parameters = nil
	m.index = nil
	var fpg optimize.FloatParameterGenerator
	if m.as != nil {
		fpg = m.as.ParameterGenerator
	} else {
		fpg = optimize.BasicFloatParameterGenerator
	}
	invalidate := func() {
		m.etaDone = false
	}

	if m.prior.SigmaA > 0 {
		alpha := fpg(&m.alpha, Intercept)
		alpha.SetPriorFunc(optimize.NormalPrior(m.prior.A, m.prior.SigmaA))
		alpha.SetScale(math.Sqrt(m.prior.SigmaA) / 4)
		alpha.SetOnChange(invalidate)
		m.parameters.Append(alpha)
		m.index = append(m.index, -1)
	} else {
		log.Debugf("%s is fixed at %v", Intercept, m.prior.A)
	}

	for j := range m.beta {
		if m.prior.SigmaB[j] == 0 {
			log.Debugf("%s is fixed at %v", m.ParameterName(j), m.prior.Beta0[j])
			continue
		}
		b := fpg(&m.beta[j], m.ParameterName(j))
		b.SetPriorFunc(optimize.NormalPrior(m.prior.Beta0[j], m.prior.SigmaB[j]))
		b.SetScale(math.Sqrt(m.prior.SigmaB[j]) / 4)
		b.SetOnChange(invalidate)
		m.parameters.Append(b)
		m.index = append(m.index, j)
	}
}

// SetAdaptive enables adaptive MCMC proposals.
func (m *Model) SetAdaptive(as *optimize.AdaptiveSettings) {
	m.as = as
	m.setupParameters()
}

// GetFloatParameters returns the free parameters.
func (m *Model) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// SetDefaults sets all the parameters to their prior means.
func (m *Model) SetDefaults() {
	m.alpha = m.prior.A
	copy(m.beta, m.prior.Beta0)
	m.etaDone = false
}

// SetParameters sets the intercept and the coefficients.
func (m *Model) SetParameters(alpha float64, beta []float64) {
	if len(beta) != len(m.beta) {
		panic("incorrect number of coefficients")
	}
	m.alpha = alpha
	copy(m.beta, beta)
	m.etaDone = false
}

// GetParameters returns the intercept and a copy of the
// coefficients.
func (m *Model) GetParameters() (alpha float64, beta []float64) {
	beta = make([]float64, len(m.beta))
	copy(beta, m.beta)
	return m.alpha, beta
}

// Values stores the intercept followed by the coefficients in dst
// (allocated if nil) in the order of ParameterNames.
func (m *Model) Values(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, 1+len(m.beta))
	}
	dst[0] = m.alpha
	copy(dst[1:], m.beta)
	return dst
}

// Copy returns a model sharing data and prior with an independent
// parameter state.
func (m *Model) Copy() optimize.Optimizable {
	newM := &Model{
		data:  m.data,
		prior: m.prior,
		names: m.names,
		alpha: m.alpha,
		beta:  make([]float64, len(m.beta)),
		eta:   mat.NewVecDense(m.data.N, nil),
		as:    m.as,
	}
	copy(newM.beta, m.beta)
	newM.betaVec = mat.NewVecDense(len(newM.beta), newM.beta)
	newM.setupParameters()
	return newM
}

// updateEta recomputes the training linear predictor.
func (m *Model) updateEta() {
	if m.etaDone {
		return
	}
	m.eta.MulVec(m.data.X, m.betaVec)
	raw := m.eta.RawVector().Data
	floats.AddConst(m.alpha, raw)
	m.etaDone = true
}

// log1pExp computes log(1+exp(x)) without overflow.
func log1pExp(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// Sigmoid is the logistic function 1/(1+exp(-x)).
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Likelihood returns the Bernoulli-logit log-likelihood.
func (m *Model) Likelihood() (lnL float64) {
	m.updateEta()
	for i, eta := range m.eta.RawVector().Data {
		if m.data.Y[i] == 1 {
			lnL += eta
		}
		lnL -= log1pExp(eta)
	}
	return
}

// LogPosterior returns the unnormalized log posterior of the free
// parameters.
func (m *Model) LogPosterior() float64 {
	return m.Likelihood() + m.parameters.Prior()
}

// Gradient returns the gradient of the log posterior with respect
// to the free parameters, in the GetFloatParameters order.
func (m *Model) Gradient(grad []float64) []float64 {
	if grad == nil {
		grad = make([]float64, len(m.parameters))
	}
	m.updateEta()
	eta := m.eta.RawVector().Data
	for k, j := range m.index {
		var g float64
		for i := range eta {
			r := float64(m.data.Y[i]) - Sigmoid(eta[i])
			if j < 0 {
				g += r
			} else {
				g += r * m.data.X.At(i, j)
			}
		}
		if j < 0 {
			g -= (m.alpha - m.prior.A) / m.prior.SigmaA
		} else {
			g -= (m.beta[j] - m.prior.Beta0[j]) / m.prior.SigmaB[j]
		}
		grad[k] = g
	}
	return grad
}

// HessianDiag returns the diagonal of the log posterior Hessian with
// respect to the free parameters. All the values are negative.
func (m *Model) HessianDiag(h []float64) []float64 {
	if h == nil {
		h = make([]float64, len(m.parameters))
	}
	m.updateEta()
	eta := m.eta.RawVector().Data
	for k, j := range m.index {
		var v float64
		for i := range eta {
			p := Sigmoid(eta[i])
			w := p * (1 - p)
			if j < 0 {
				v -= w
			} else {
				x := m.data.X.At(i, j)
				v -= w * x * x
			}
		}
		if j < 0 {
			v -= 1 / m.prior.SigmaA
		} else {
			v -= 1 / m.prior.SigmaB[j]
		}
		h[k] = v
	}
	return h
}

// EtaNew stores the held-out linear predictors in dst (allocated if
// nil) and returns it. No outcome is simulated.
func (m *Model) EtaNew(dst []float64) []float64 {
	if m.data.NNew == 0 {
		return dst[:0]
	}
	if dst == nil {
		dst = make([]float64, m.data.NNew)
	}
	v := mat.NewVecDense(m.data.NNew, dst)
	v.MulVec(m.data.XNew, m.betaVec)
	floats.AddConst(m.alpha, dst)
	return dst
}

// Generated returns the names of generated quantities.
func (m *Model) Generated() []string {
	s := make([]string, m.data.NNew)
	for i := range s {
		s[i] = fmt.Sprintf("eta_new[%d]", i+1)
	}
	return s
}

// GeneratedValues is EtaNew.
func (m *Model) GeneratedValues(dst []float64) []float64 {
	return m.EtaNew(dst)
}
