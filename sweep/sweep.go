// Package sweep repeats cross-validation and a full-data fit for
// several prior variances and compares the results.
package sweep

import (
	"context"
	"fmt"
	"math"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/covstat/electlogit/checkpoint"
	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/dataset"
	"github.com/covstat/electlogit/logit"
	"github.com/covstat/electlogit/mcmc"
	"github.com/covstat/electlogit/optimize"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("sweep")

// DefaultVariances are the prior variances of the sensitivity
// analysis.
var DefaultVariances = []float64{2.5, 5.0, 7.5}

// Settings are the sweep settings shared by all the runs.
type Settings struct {
	Variances []float64
	Partition cv.Partition
	Names     []string
	Sampler   *mcmc.Settings
	// Standardize scales the predictors, within every fold for
	// cross-validation.
	Standardize bool
	// NoCV skips cross-validation and only fits the full data.
	NoCV bool
	// DB stores finished folds, can be nil.
	DB *bolt.DB
	// Key identifies the data and settings in DB.
	Key interface{}
}

// Run is the result for a single variance.
type Run struct {
	Variance float64 `json:"variance"`
	// CV is nil if cross-validation was skipped.
	CV *cv.Result `json:"cv,omitempty"`
	// Summaries are the parameter summaries of the full-data fit.
	Summaries  []mcmc.Summary     `json:"summaries"`
	Warnings   []mcmc.Warning     `json:"warnings,omitempty"`
	Acceptance []float64          `json:"acceptance"`
	MAP        map[string]float64 `json:"map,omitempty"`
	MeanLnL    float64            `json:"meanLnL"`
	Time       float64            `json:"time"`
	// Runs are the sampler summaries of the full-data chains.
	Runs   []optimize.Summary `json:"runs"`
	MAPRun *optimize.Summary  `json:"mapRun,omitempty"`

	// Posterior is the full-data posterior.
	Posterior *mcmc.Posterior `json:"-"`
}

// Stability compares a single parameter across the runs.
type Stability struct {
	Name string `json:"name"`
	// Means are the posterior means per run.
	Means []float64 `json:"means"`
	// SignStable is true if all the means have the same sign.
	SignStable bool `json:"signStable"`
	// MaxDelta is the maximum absolute difference of the means.
	MaxDelta float64 `json:"maxDelta"`
}

// Result is the sweep result.
type Result struct {
	Runs      []Run       `json:"runs"`
	Stability []Stability `json:"stability"`
	// AccuracyMin and AccuracyMax are the accuracy range over runs.
	AccuracyMin float64 `json:"accuracyMin"`
	AccuracyMax float64 `json:"accuracyMax"`
}

// Fit samples the posterior given all the observations.
func Fit(ctx context.Context, x *mat.Dense, y []int, prior *logit.Prior, names []string, s *mcmc.Settings) (*mcmc.Posterior, error) {
	m, err := logit.New(logit.NewData(x, y, nil), prior, names)
	if err != nil {
		return nil, err
	}
	return mcmc.Sample(ctx, m, s)
}

// Scaled returns a standardized copy of x, or x itself if standardize
// is false.
func Scaled(x *mat.Dense, names []string, standardize bool) *mat.Dense {
	if !standardize {
		return x
	}
	xs := mat.DenseCopyOf(x)
	dataset.Standardize(xs, names)
	return xs
}

// One runs cross-validation and the full-data fit for a single prior
// variance. x holds raw predictors.
func One(ctx context.Context, x *mat.Dense, y []int, variance float64, s *Settings) (*Run, error) {
	_, p := x.Dims()
	prior := logit.NewPrior(p, variance)
	if err := prior.Validate(p); err != nil {
		return nil, err
	}
	run := &Run{Variance: variance}

	if !s.NoCV {
		var store *checkpoint.Store
		if s.DB != nil {
			key, err := checkpoint.RunKey(struct {
				Key      interface{}
				Variance float64
			}{s.Key, variance})
			if err != nil {
				return nil, err
			}
			store = checkpoint.New(s.DB, key)
		}
		res, err := cv.Run(ctx, x, y, &cv.Settings{
			Partition:   s.Partition,
			Prior:       prior,
			Names:       s.Names,
			Standardize: s.Standardize,
			Sampler:     s.Sampler,
			Store:       store,
		})
		if err != nil {
			return nil, err
		}
		run.CV = res
	}

	post, err := Fit(ctx, Scaled(x, s.Names, s.Standardize), y, prior, s.Names, s.Sampler)
	if err != nil {
		return nil, err
	}
	run.Posterior = post
	run.Summaries = post.Parameters()
	run.Warnings = post.Warnings
	run.Acceptance = post.Acceptance
	run.MAP = post.MAP
	run.MeanLnL = post.MeanLnL
	run.Time = post.Time.Seconds()
	run.Runs = post.Runs
	run.MAPRun = post.MAPRun
	return run, nil
}

// Sweep runs all the variances sequentially with the same settings
// and seed.
func Sweep(ctx context.Context, x *mat.Dense, y []int, s *Settings) (*Result, error) {
	variances := s.Variances
	if len(variances) == 0 {
		variances = DefaultVariances
	}
	if !s.NoCV {
		n, _ := x.Dims()
		if err := s.Partition.Validate(n); err != nil {
			return nil, err
		}
	}
	res := &Result{}
	for _, v := range variances {
		log.Noticef("Prior variance %g", v)
		run, err := One(ctx, x, y, v, s)
		if err != nil {
			return nil, fmt.Errorf("variance %g: %w", v, err)
		}
		res.Runs = append(res.Runs, *run)
	}
	res.Compare()
	return res, nil
}

// Compare fills the stability comparison and the accuracy range.
func (r *Result) Compare() {
	r.Stability = nil
	if len(r.Runs) == 0 {
		return
	}
	r.AccuracyMin, r.AccuracyMax = math.Inf(1), math.Inf(-1)
	for _, run := range r.Runs {
		if run.CV == nil {
			continue
		}
		r.AccuracyMin = math.Min(r.AccuracyMin, run.CV.Accuracy)
		r.AccuracyMax = math.Max(r.AccuracyMax, run.CV.Accuracy)
	}
	if math.IsInf(r.AccuracyMin, 1) {
		r.AccuracyMin, r.AccuracyMax = 0, 0
	}

	for q, s := range r.Runs[0].Summaries {
		st := Stability{
			Name:       s.Name,
			Means:      make([]float64, len(r.Runs)),
			SignStable: true,
		}
		for i, run := range r.Runs {
			st.Means[i] = run.Summaries[q].Mean
		}
		for i, a := range st.Means {
			for _, b := range st.Means[i+1:] {
				st.MaxDelta = math.Max(st.MaxDelta, math.Abs(a-b))
			}
			if math.Signbit(a) != math.Signbit(st.Means[0]) || a == 0 {
				st.SignStable = false
			}
		}
		if !st.SignStable {
			log.Warningf("Posterior mean sign of %s changes with the prior variance", s.Name)
		}
		r.Stability = append(r.Stability, st)
	}
}
