package main

import (
	"os"

	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/logit"
	"github.com/covstat/electlogit/mcmc"
	"github.com/covstat/electlogit/optimize"
	"github.com/covstat/electlogit/report"
	"github.com/covstat/electlogit/sweep"
)

// CallSummary stores information on the program call.
type CallSummary struct {
	// Version stores electlogit version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// TotalTime is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// Standardization stores the full-data predictor transformation.
// Cross-validation folds are scaled with their training rows.
type Standardization struct {
	Means []float64 `json:"means"`
	SDs   []float64 `json:"sds"`
}

// Summary is the JSON output.
type Summary struct {
	CallSummary
	// Command is cv, sweep or fit.
	Command string `json:"command"`
	// Config is the effective configuration.
	Config *Config `json:"config"`
	// States are the state names in the row order.
	States []string `json:"states"`
	// Standardization is nil for raw predictors.
	Standardization *Standardization `json:"standardization,omitempty"`

	CV    *cv.Result    `json:"cv,omitempty"`
	Sweep *sweep.Result `json:"sweep,omitempty"`
	Fit   *FitResult    `json:"fit,omitempty"`
}

// FitResult is the full-data posterior of the fit command.
type FitResult struct {
	// Prior is the effective prior.
	Prior      *logit.Prior       `json:"prior"`
	Summaries  []mcmc.Summary     `json:"summaries"`
	Warnings   []mcmc.Warning     `json:"warnings,omitempty"`
	Acceptance []float64          `json:"acceptance"`
	MAP        map[string]float64 `json:"map,omitempty"`
	MeanLnL    float64            `json:"meanLnL"`
	Runs       []optimize.Summary `json:"runs"`
	MAPRun     *optimize.Summary  `json:"mapRun,omitempty"`
	Time       float64            `json:"time"`
}

// write writes the summary to a file.
func (s *Summary) write(fn string) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := report.WriteJSON(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
