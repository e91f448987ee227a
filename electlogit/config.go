package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/dataset"
	"github.com/covstat/electlogit/logit"
	"github.com/covstat/electlogit/mcmc"
	"github.com/covstat/electlogit/sweep"
)

// FoldConfig describes the cross-validation folds. Indices take
// precedence over Sizes which take precedence over K.
type FoldConfig struct {
	// K is the number of consecutive folds.
	K int `yaml:"k" json:"k"`
	// Sizes are the consecutive fold sizes.
	Sizes []int `yaml:"sizes,omitempty" json:"sizes,omitempty"`
	// Indices are explicit 0-based folds.
	Indices [][]int `yaml:"indices,omitempty" json:"indices,omitempty"`
}

// Partition builds the folds for n observations.
func (fc FoldConfig) Partition(n int) (cv.Partition, error) {
	var p cv.Partition
	switch {
	case len(fc.Indices) > 0:
		p = cv.Partition(fc.Indices)
	case len(fc.Sizes) > 0:
		var err error
		if p, err = cv.Consecutive(n, fc.Sizes); err != nil {
			return nil, err
		}
	default:
		sizes := cv.DefaultSizes(n, fc.K)
		if sizes == nil {
			return nil, fmt.Errorf("%w: cannot split %d observations in %d folds", cv.ErrPartition, n, fc.K)
		}
		var err error
		if p, err = cv.Consecutive(n, sizes); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(n); err != nil {
		return nil, err
	}
	return p, nil
}

// Config is the analysis configuration. It can be read from a YAML
// file, explicitly set command line flags override it.
type Config struct {
	// Predictors are the predictor names.
	Predictors []string `yaml:"predictors" json:"predictors"`
	// Standardize enables z-scoring of the predictors.
	Standardize bool `yaml:"standardize" json:"standardize"`
	// Variance is the prior variance of cv and fit commands.
	Variance float64 `yaml:"variance" json:"variance"`
	// Prior overrides Variance with explicit hyperparameters.
	Prior *logit.Prior `yaml:"prior,omitempty" json:"prior,omitempty"`
	// Variances are the prior variances of the sweep.
	Variances []float64 `yaml:"variances" json:"variances"`
	// Folds are the cross-validation folds.
	Folds FoldConfig `yaml:"folds" json:"folds"`
	// Sampler are the sampler settings.
	Sampler mcmc.Settings `yaml:"sampler" json:"sampler"`
}

// defaultConfig returns the configuration used without a file.
func defaultConfig() *Config {
	s := mcmc.NewSettings()
	s.Seed = -1
	return &Config{
		Predictors:  append([]string(nil), dataset.DefaultPredictors...),
		Standardize: true,
		Variance:    5,
		Variances:   append([]float64(nil), sweep.DefaultVariances...),
		Folds:       FoldConfig{K: 10},
		Sampler:     *s,
	}
}

// readConfig reads a YAML file on top of the defaults.
func readConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}

// prior returns the prior of cv and fit commands.
func (c *Config) prior(p int) (*logit.Prior, error) {
	pr := c.Prior
	if pr == nil {
		pr = logit.NewPrior(p, c.Variance)
	}
	if err := pr.Validate(p); err != nil {
		return nil, err
	}
	return pr, nil
}
