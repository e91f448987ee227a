package optimize

import (
	"errors"
	"math"
	"math/rand"
	"strconv"
)

// FloatParameter is a single real-valued model parameter which can
// be proposed, accepted and rejected by a sampler.
type FloatParameter interface {
	Name() string
	Prior() float64
	OldPrior() float64
	Propose()
	Accept(int)
	Reject()
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	SetProposalFunc(func(*rand.Rand, float64) float64)
	SetPriorFunc(func(float64) float64)
	// SetScale sets the proposal standard deviation.
	SetScale(float64)
	// Scale returns the current proposal standard deviation.
	Scale() float64
	SetRand(*rand.Rand)
	Get() float64
	Set(float64)
	ValueInRange(float64) bool
}

// FloatParameterGenerator creates a parameter bound to a variable.
type FloatParameterGenerator func(*float64, string) FloatParameter

// FloatParameters is an ordered parameter collection.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Values returns parameter values, reusing iv if it is not nil.
func (p *FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(*p))
	} else {
		v = iv
	}
	for i, par := range *p {
		v[i] = par.Get()
	}
	return
}

// ValuesInRange checks if all the values are within the parameter
// boundaries.
func (p *FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(*p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range *p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all parameter values.
func (p *FloatParameters) SetValues(v []float64) error {
	if len(v) != len(*p) {
		return errors.New("incorrect number of parameters")
	}
	for i, par := range *p {
		par.Set(v[i])
	}
	return nil
}

// Randomize draws every parameter uniformly from [min, max]
// intersected with the parameter boundaries.
func (p *FloatParameters) Randomize(r *rand.Rand, min, max float64) {
	for _, par := range *p {
		lo := math.Max(min, par.GetMin())
		hi := math.Min(max, par.GetMax())
		par.Set(lo + r.Float64()*(hi-lo))
	}
}

// SetRand sets the random source for all the parameters.
func (p *FloatParameters) SetRand(r *rand.Rand) {
	for _, par := range *p {
		par.SetRand(r)
	}
}

// Prior returns the sum of log priors.
func (p *FloatParameters) Prior() (s float64) {
	for _, par := range *p {
		s += par.Prior()
	}
	return
}

// NamesString returns tab separated parameter names.
func (p *FloatParameters) NamesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab separated parameter values.
func (p *FloatParameters) ValuesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// BasicFloatParameter is a random walk parameter with a fixed
// proposal distribution.
type BasicFloatParameter struct {
	*float64
	old          float64
	name         string
	scale        float64
	rng          *rand.Rand
	priorFunc    func(float64) float64
	proposalFunc func(*rand.Rand, float64) float64
	min          float64
	max          float64
	onChange     func()
}

// NewBasicFloatParameter creates a parameter bound to par.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64:      par,
		name:         name,
		scale:        1,
		rng:          rand.New(rand.NewSource(1)),
		priorFunc:    UniformPrior(-1, 1, true, true),
		proposalFunc: NormalProposal(1),
		min:          math.Inf(-1),
		max:          math.Inf(+1),
	}
}

// BasicFloatParameterGenerator is a FloatParameterGenerator for
// BasicFloatParameter.
func BasicFloatParameterGenerator(par *float64, name string) FloatParameter {
	return NewBasicFloatParameter(par, name)
}

func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

func (p *BasicFloatParameter) SetPriorFunc(f func(float64) float64) {
	p.priorFunc = f
}

func (p *BasicFloatParameter) SetProposalFunc(f func(*rand.Rand, float64) float64) {
	p.proposalFunc = f
}

func (p *BasicFloatParameter) SetScale(sd float64) {
	p.scale = sd
	p.proposalFunc = NormalProposal(sd)
}

func (p *BasicFloatParameter) Scale() float64 {
	return p.scale
}

func (p *BasicFloatParameter) SetRand(r *rand.Rand) {
	p.rng = r
}

func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		// do nothing if value has not changed
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	return v >= p.min && v <= p.max
}

func (p *BasicFloatParameter) Name() string {
	return p.name
}

func (p *BasicFloatParameter) Prior() float64 {
	return p.priorFunc(*p.float64)
}

func (p *BasicFloatParameter) OldPrior() float64 {
	return p.priorFunc(p.old)
}

// reflect moves the value back into [min, max].
func (p *BasicFloatParameter) reflect() {
	for *p.float64 < p.min || *p.float64 > p.max {
		if *p.float64 < p.min {
			*p.float64 = p.min + (p.min - *p.float64)
		}
		if *p.float64 > p.max {
			*p.float64 = p.max - (*p.float64 - p.max)
		}
	}
}

func (p *BasicFloatParameter) Propose() {
	p.old, *p.float64 = *p.float64, p.proposalFunc(p.rng, *p.float64)
	p.reflect()
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) Reject() {
	*p.float64, p.old = p.old, *p.float64
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) Accept(iter int) {
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}
