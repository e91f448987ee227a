package optimize

// None is an optimizer which only evaluates the model at the current
// parameter values.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes the current likelihood
// only.
func NewNone() *None {
	return &None{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 1,
		},
	}
}

// Run evaluates the likelihood once; iterations is ignored.
func (n *None) Run(iterations int) {
	n.saveStart()
	n.maxL = n.l
	n.maxLPar = n.parameters.Values(n.maxLPar)
	n.PrintHeader()
	n.PrintLine(n.l, n.repPeriod)
	n.saveDeltaT()
}

// Summary returns the evaluation summary.
func (n *None) Summary() Summary {
	return n.baseSummary("none")
}
