package main

import (
	"context"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	bolt "go.etcd.io/bbolt"

	"github.com/covstat/electlogit/checkpoint"
	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/dataset"
	"github.com/covstat/electlogit/report"
	"github.com/covstat/electlogit/sweep"
)

// analysis stores the data and configuration of a run.
type analysis struct {
	cfg *Config
	obs []dataset.Observation
	// x holds raw predictors, xs the full-data standardized ones.
	x, xs *mat.Dense
	y     []int

	means, sds []float64

	db *bolt.DB
}

// newAnalysis loads the data and builds the design matrix.
func newAnalysis(cfg *Config, fileName string) (*analysis, error) {
	if err := cfg.Sampler.Validate(); err != nil {
		return nil, err
	}
	obs, err := dataset.Load(fileName)
	if err != nil {
		return nil, err
	}
	log.Infof("Read %d states from %s", len(obs), fileName)

	x, y, err := dataset.Design(obs, cfg.Predictors)
	if err != nil {
		return nil, err
	}
	a := &analysis{
		cfg: cfg,
		obs: obs,
		x:   x,
		xs:  x,
		y:   y,
	}
	wins := 0
	for _, v := range y {
		wins += v
	}
	log.Infof("Predictors: %v, %d states won by Biden", cfg.Predictors, wins)
	if cfg.Standardize {
		a.xs = mat.DenseCopyOf(x)
		a.means, a.sds = dataset.Standardize(a.xs, cfg.Predictors)
		log.Debugf("Predictor means %v, standard deviations %v", a.means, a.sds)
	}
	return a, nil
}

// openCheckpoint opens the checkpoint database.
func (a *analysis) openCheckpoint(path string) (err error) {
	a.db, err = checkpoint.Open(path)
	return
}

// key identifies the data and configuration in the checkpoint
// database.
func (a *analysis) key() interface{} {
	return struct {
		Obs []dataset.Observation
		Cfg *Config
	}{a.obs, a.cfg}
}

// newSummary fills the common summary fields.
func (a *analysis) newSummary(command string) *Summary {
	s := &Summary{
		Command: command,
		Config:  a.cfg,
	}
	for _, o := range a.obs {
		s.States = append(s.States, o.State)
	}
	if a.cfg.Standardize {
		s.Standardization = &Standardization{
			Means: a.means,
			SDs:   a.sds,
		}
	}
	return s
}

// crossValidate runs the cv command.
func (a *analysis) crossValidate(ctx context.Context, w io.Writer) (*Summary, error) {
	n, p := a.x.Dims()
	part, err := a.cfg.Folds.Partition(n)
	if err != nil {
		return nil, err
	}
	prior, err := a.cfg.prior(p)
	if err != nil {
		return nil, err
	}
	var store *checkpoint.Store
	if a.db != nil {
		run, err := checkpoint.RunKey(a.key())
		if err != nil {
			return nil, err
		}
		log.Infof("Checkpoint run key %v", run)
		store = checkpoint.New(a.db, run)
	}
	log.Noticef("%d-fold cross-validation, fold sizes %v", len(part), part.Sizes())
	res, err := cv.Run(ctx, a.x, a.y, &cv.Settings{
		Partition:   part,
		Prior:       prior,
		Names:       a.cfg.Predictors,
		Standardize: a.cfg.Standardize,
		Sampler:     &a.cfg.Sampler,
		Store:       store,
	})
	if err != nil {
		return nil, err
	}
	report.CV(w, res)

	s := a.newSummary("cv")
	s.CV = res
	return s, nil
}

// sweep runs the sweep command.
func (a *analysis) sweep(ctx context.Context, w io.Writer, plotDir string) (*Summary, error) {
	n, _ := a.x.Dims()
	part, err := a.cfg.Folds.Partition(n)
	if err != nil {
		return nil, err
	}
	res, err := sweep.Sweep(ctx, a.x, a.y, &sweep.Settings{
		Variances:   a.cfg.Variances,
		Partition:   part,
		Names:       a.cfg.Predictors,
		Sampler:     &a.cfg.Sampler,
		Standardize: a.cfg.Standardize,
		DB:          a.db,
		Key:         a.key(),
	})
	if err != nil {
		return nil, err
	}
	report.Sweep(w, res)
	if plotDir != "" {
		if err := report.Plots(plotDir, res); err != nil {
			return nil, fmt.Errorf("error plotting: %w", err)
		}
		log.Infof("Plots saved to %s", plotDir)
	}

	s := a.newSummary("sweep")
	s.Sweep = res
	return s, nil
}

// fit runs the fit command.
func (a *analysis) fit(ctx context.Context, w io.Writer) (*Summary, error) {
	_, p := a.xs.Dims()
	prior, err := a.cfg.prior(p)
	if err != nil {
		return nil, err
	}
	post, err := sweep.Fit(ctx, a.xs, a.y, prior, a.cfg.Predictors, &a.cfg.Sampler)
	if err != nil {
		return nil, err
	}
	report.Summaries(w, post.Parameters())
	report.Warnings(w, post.Warnings)

	s := a.newSummary("fit")
	s.Fit = &FitResult{
		Prior:      prior,
		Summaries:  post.Parameters(),
		Warnings:   post.Warnings,
		Acceptance: post.Acceptance,
		MAP:        post.MAP,
		MeanLnL:    post.MeanLnL,
		Runs:       post.Runs,
		MAPRun:     post.MAPRun,
		Time:       post.Time.Seconds(),
	}
	return s, nil
}
