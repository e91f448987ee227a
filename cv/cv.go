// Package cv implements k-fold cross-validation of the logistic
// model. Every fold is fitted on the remaining observations and the
// held-out outcomes are predicted from the posterior predictive
// probabilities.
package cv

import (
	"context"
	"fmt"
	"time"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/covstat/electlogit/checkpoint"
	"github.com/covstat/electlogit/confusion"
	"github.com/covstat/electlogit/dataset"
	"github.com/covstat/electlogit/logit"
	"github.com/covstat/electlogit/mcmc"
	"github.com/covstat/electlogit/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("cv")

// Threshold is the classification threshold. Probabilities equal to
// the threshold are classified as 0.
const Threshold = 0.5

// Classify converts probabilities to labels.
func Classify(probs []float64) []int {
	res := make([]int, len(probs))
	for i, p := range probs {
		if p > Threshold {
			res[i] = 1
		}
	}
	return res
}

// Probabilities returns the posterior mean of sigmoid(eta_new) for
// every held-out observation.
func Probabilities(p *mcmc.Posterior) []float64 {
	n := len(p.Names) - p.NParameters
	res := make([]float64, n)
	for i := range res {
		draws := p.Pooled(p.NParameters + i)
		var s float64
		for _, eta := range draws {
			s += logit.Sigmoid(eta)
		}
		if len(draws) > 0 {
			res[i] = s / float64(len(draws))
		}
	}
	return res
}

// Settings are cross-validation settings.
type Settings struct {
	// Partition are the folds.
	Partition Partition
	// Prior is the prior used for every fold.
	Prior *logit.Prior
	// Names are the predictor names.
	Names []string
	// Standardize scales every fold with the means and standard
	// deviations of its training rows.
	Standardize bool
	// Sampler are the sampler settings.
	Sampler *mcmc.Settings
	// Store keeps finished folds, can be nil.
	Store *checkpoint.Store
}

// FoldResult is the result of a single fold.
type FoldResult struct {
	Fold      int              `json:"fold"`
	Test      []int            `json:"test"`
	Probs     []float64        `json:"probabilities"`
	Predicted []int            `json:"predicted"`
	Actual    []int            `json:"actual"`
	Matrix    confusion.Matrix `json:"matrix"`
	// Summaries are the parameter summaries of the fold fit.
	Summaries  []mcmc.Summary `json:"summaries"`
	Warnings   []mcmc.Warning `json:"warnings,omitempty"`
	Acceptance []float64      `json:"acceptance"`
	// Runs are the sampler summaries of the chains.
	Runs []optimize.Summary `json:"runs"`
	Time float64            `json:"time"`
}

// Result is the cross-validation result.
type Result struct {
	Folds    []FoldResult     `json:"folds"`
	Total    confusion.Matrix `json:"total"`
	Accuracy float64          `json:"accuracy"`
}

// Warnings returns warnings of all the folds prefixed by the fold
// number.
func (r *Result) Warnings() []string {
	var res []string
	for _, f := range r.Folds {
		for _, w := range f.Warnings {
			res = append(res, fmt.Sprintf("fold %d: %s", f.Fold, w.Message))
		}
	}
	return res
}

// Rows copies the listed rows of x.
func Rows(x mat.Matrix, idx []int) *mat.Dense {
	_, c := x.Dims()
	if len(idx) == 0 {
		return nil
	}
	res := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			res.Set(i, j, x.At(r, j))
		}
	}
	return res
}

// Fold fits the model on all the observations except test and
// classifies the test observations.
func Fold(ctx context.Context, x *mat.Dense, y []int, train, test []int, s *Settings) (*FoldResult, error) {
	startTime := time.Now()
	yTrain := make([]int, len(train))
	for i, r := range train {
		yTrain[i] = y[r]
	}
	actual := make([]int, len(test))
	for i, r := range test {
		actual[i] = y[r]
	}

	xTrain, xTest := Rows(x, train), Rows(x, test)
	if s.Standardize {
		means, sds := dataset.Standardize(xTrain, s.Names)
		dataset.Apply(xTest, means, sds)
	}
	data := logit.NewData(xTrain, yTrain, xTest)
	m, err := logit.New(data, s.Prior, s.Names)
	if err != nil {
		return nil, err
	}
	p, err := mcmc.Sample(ctx, m, s.Sampler)
	if err != nil {
		return nil, err
	}

	res := &FoldResult{
		Test:       test,
		Actual:     actual,
		Probs:      Probabilities(p),
		Summaries:  p.Parameters(),
		Warnings:   p.Warnings,
		Acceptance: p.Acceptance,
		Runs:       p.Runs,
	}
	res.Predicted = Classify(res.Probs)
	res.Matrix, err = confusion.New(res.Predicted, res.Actual)
	if err != nil {
		return nil, err
	}
	res.Time = time.Since(startTime).Seconds()
	return res, nil
}

// Run performs the cross-validation. Folds are fitted sequentially
// and the total confusion matrix is the sum of the fold matrices.
func Run(ctx context.Context, x *mat.Dense, y []int, s *Settings) (*Result, error) {
	n, _ := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d outcomes, %d rows", logit.ErrDimension, len(y), n)
	}
	if err := s.Partition.Validate(n); err != nil {
		return nil, err
	}

	res := &Result{Folds: make([]FoldResult, len(s.Partition))}
	ms := make([]confusion.Matrix, len(s.Partition))
	for f, test := range s.Partition {
		key := fmt.Sprintf("fold/%d", f+1)
		var fr FoldResult
		found, err := s.Store.Load(key, &fr)
		if err != nil {
			log.Warningf("Error loading checkpoint %s: %v", key, err)
		}
		if !found {
			log.Infof("Fold %d/%d: %d held-out observations", f+1, len(s.Partition), len(test))
			r, err := Fold(ctx, x, y, s.Partition.Complement(f, n), test, s)
			if err != nil {
				return nil, fmt.Errorf("fold %d: %w", f+1, err)
			}
			fr = *r
			fr.Fold = f + 1
			if err := s.Store.Save(key, fr); err != nil {
				log.Warningf("Error saving checkpoint %s: %v", key, err)
			}
		}
		log.Debugf("Fold %d accuracy %.3f", f+1, fr.Matrix.Accuracy())
		res.Folds[f] = fr
		ms[f] = fr.Matrix
	}
	res.Total = confusion.Sum(ms...)
	res.Accuracy = res.Total.Accuracy()
	log.Infof("Accuracy %.3f (%d/%d)", res.Accuracy, res.Total.Trace(), res.Total.Total())
	return res, nil
}
