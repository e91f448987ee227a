package logit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Configuration errors. They are always wrapped with details.
var (
	// ErrDimension is returned when declared sizes and actual
	// matrix or vector sizes do not agree.
	ErrDimension = errors.New("dimension mismatch")
	// ErrOutcome is returned for outcomes other than 0 and 1.
	ErrOutcome = errors.New("outcome is not binary")
	// ErrPrior is returned for invalid prior hyperparameters.
	ErrPrior = errors.New("invalid prior")
	// ErrValue is returned for NaN or infinite predictors.
	ErrValue = errors.New("non-finite predictor")
)

// Data is the model input bundle: a training design matrix X with
// outcomes Y, and a held-out design matrix XNew for which only the
// linear predictor is generated.
type Data struct {
	// N is the number of training observations.
	N int
	// P is the number of predictors.
	P int
	// X is the N x P training design matrix (without intercept).
	X *mat.Dense
	// Y are the binary training outcomes.
	Y []int
	// NNew is the number of held-out observations.
	NNew int
	// XNew is the NNew x P held-out design matrix, nil if NNew is 0.
	XNew *mat.Dense
}

// NewData creates a bundle with sizes taken from the arguments. xNew
// can be nil.
func NewData(x *mat.Dense, y []int, xNew *mat.Dense) *Data {
	d := &Data{X: x, Y: y, XNew: xNew}
	if x != nil {
		d.N, d.P = x.Dims()
	}
	if xNew != nil {
		d.NNew, _ = xNew.Dims()
	}
	return d
}

// Validate checks that the declared sizes agree with the matrices,
// outcomes are binary and predictors are finite.
func (d *Data) Validate() error {
	if d.N < 1 || d.P < 1 {
		return fmt.Errorf("%w: N=%d, P=%d, both must be positive", ErrDimension, d.N, d.P)
	}
	if d.X == nil {
		return fmt.Errorf("%w: X is missing", ErrDimension)
	}
	if r, c := d.X.Dims(); r != d.N || c != d.P {
		return fmt.Errorf("%w: X is %dx%d, declared %dx%d", ErrDimension, r, c, d.N, d.P)
	}
	if len(d.Y) != d.N {
		return fmt.Errorf("%w: len(y)=%d, N=%d", ErrDimension, len(d.Y), d.N)
	}
	for i, y := range d.Y {
		if y != 0 && y != 1 {
			return fmt.Errorf("%w: y[%d]=%d", ErrOutcome, i, y)
		}
	}
	if err := finite("X", d.X); err != nil {
		return err
	}
	switch {
	case d.NNew < 0:
		return fmt.Errorf("%w: N_new=%d", ErrDimension, d.NNew)
	case d.NNew == 0 && d.XNew != nil:
		if r, _ := d.XNew.Dims(); r != 0 {
			return fmt.Errorf("%w: X_new has %d rows, N_new=0", ErrDimension, r)
		}
	case d.NNew > 0:
		if d.XNew == nil {
			return fmt.Errorf("%w: X_new is missing, N_new=%d", ErrDimension, d.NNew)
		}
		if r, c := d.XNew.Dims(); r != d.NNew || c != d.P {
			return fmt.Errorf("%w: X_new is %dx%d, declared %dx%d", ErrDimension, r, c, d.NNew, d.P)
		}
		if err := finite("X_new", d.XNew); err != nil {
			return err
		}
	}
	return nil
}

// finite checks that all matrix elements are finite.
func finite(name string, m *mat.Dense) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s[%d,%d]=%v", ErrValue, name, i, j, v)
			}
		}
	}
	return nil
}

// Prior stores normal prior hyperparameters. Sigma values are
// variances; a zero variance fixes the parameter at its mean.
type Prior struct {
	// A is the intercept prior mean.
	A float64 `json:"a" yaml:"a"`
	// SigmaA is the intercept prior variance.
	SigmaA float64 `json:"sigmaA" yaml:"sigmaA"`
	// Beta0 are the coefficient prior means.
	Beta0 []float64 `json:"beta0" yaml:"beta0"`
	// SigmaB are the coefficient prior variances.
	SigmaB []float64 `json:"sigmaB" yaml:"sigmaB"`
}

// NewPrior creates a zero-mean prior for p coefficients where the
// intercept and all the coefficients share the variance.
func NewPrior(p int, variance float64) *Prior {
	pr := &Prior{
		SigmaA: variance,
		Beta0:  make([]float64, p),
		SigmaB: make([]float64, p),
	}
	for j := range pr.SigmaB {
		pr.SigmaB[j] = variance
	}
	return pr
}

// Validate checks the prior against the number of predictors.
func (pr *Prior) Validate(p int) error {
	if len(pr.Beta0) != p || len(pr.SigmaB) != p {
		return fmt.Errorf("%w: len(beta0)=%d, len(Sigma_b)=%d, P=%d",
			ErrDimension, len(pr.Beta0), len(pr.SigmaB), p)
	}
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrPrior, name, v)
		}
		return nil
	}
	if err := check("a", pr.A); err != nil {
		return err
	}
	if err := check("Sigma_a", pr.SigmaA); err != nil {
		return err
	}
	if pr.SigmaA < 0 {
		return fmt.Errorf("%w: Sigma_a=%v < 0", ErrPrior, pr.SigmaA)
	}
	for j := 0; j < p; j++ {
		if err := check(fmt.Sprintf("beta0[%d]", j), pr.Beta0[j]); err != nil {
			return err
		}
		if err := check(fmt.Sprintf("Sigma_b[%d]", j), pr.SigmaB[j]); err != nil {
			return err
		}
		if pr.SigmaB[j] < 0 {
			return fmt.Errorf("%w: Sigma_b[%d]=%v < 0", ErrPrior, j, pr.SigmaB[j])
		}
	}
	return nil
}
