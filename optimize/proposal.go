package optimize

import (
	"math/rand"
)

// NormalProposal returns normal random walk proposal function.
func NormalProposal(sd float64) func(*rand.Rand, float64) float64 {
	if sd <= 0 {
		panic("sd should be > 0")
	}
	return func(r *rand.Rand, x float64) float64 {
		return x + r.NormFloat64()*sd
	}
}
