// Package report writes analysis results as JSON, plain text tables
// and posterior density plots.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/op/go-logging"

	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/mcmc"
	"github.com/covstat/electlogit/sweep"
)

// log is the global logging variable.
var log = logging.MustGetLogger("report")

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// num formats a value, NaN is shown as NA.
func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

// Summaries prints a table of parameter summaries.
func Summaries(w io.Writer, ss []mcmc.Summary) {
	width := len("parameter")
	for _, s := range ss {
		if len(s.Name) > width {
			width = len(s.Name)
		}
	}
	fmt.Fprintf(w, "%-*s %9s %8s %9s %9s %8s %7s %8s\n",
		width, "parameter", "mean", "sd", "2.5%", "97.5%", "mcse", "rhat", "ess")
	for _, s := range ss {
		fmt.Fprintf(w, "%-*s %9s %8s %9s %9s %8s %7s %8s\n",
			width, s.Name, num(s.Mean, 3), num(s.SD, 3),
			num(s.Q025, 3), num(s.Q975, 3), num(s.MCSE, 4),
			num(s.Rhat, 3), num(s.ESS, 0))
	}
}

// CV prints the per-fold and total cross-validation results.
func CV(w io.Writer, r *cv.Result) {
	fmt.Fprintf(w, "%4s %6s %8s %9s\n", "fold", "n", "correct", "accuracy")
	for _, f := range r.Folds {
		fmt.Fprintf(w, "%4d %6d %8d %9.3f\n", f.Fold, f.Matrix.Total(), f.Matrix.Trace(), f.Matrix.Accuracy())
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, r.Total.String())
	fmt.Fprintf(w, "accuracy: %.3f (%d/%d)\n", r.Accuracy, r.Total.Trace(), r.Total.Total())
	if ws := r.Warnings(); len(ws) > 0 {
		fmt.Fprintf(w, "convergence warnings: %d\n", len(ws))
		for _, s := range ws {
			fmt.Fprintln(w, "  "+s)
		}
	}
}

// Warnings prints convergence warnings.
func Warnings(w io.Writer, ws []mcmc.Warning) {
	for _, x := range ws {
		fmt.Fprintln(w, "warning: "+x.Message)
	}
}

// Sweep prints all the runs and the comparison.
func Sweep(w io.Writer, r *sweep.Result) {
	rule := strings.Repeat("=", 60)
	for _, run := range r.Runs {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "prior variance %g\n", run.Variance)
		fmt.Fprintln(w, rule)
		if run.CV != nil {
			CV(w, run.CV)
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "full data posterior:")
		Summaries(w, run.Summaries)
		Warnings(w, run.Warnings)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "sensitivity")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-20s", "parameter")
	for _, run := range r.Runs {
		fmt.Fprintf(w, " %9s", fmt.Sprintf("v=%g", run.Variance))
	}
	fmt.Fprintf(w, " %9s %6s\n", "max|d|", "sign")
	for _, st := range r.Stability {
		fmt.Fprintf(w, "%-20s", st.Name)
		for _, m := range st.Means {
			fmt.Fprintf(w, " %9s", num(m, 3))
		}
		sign := "stable"
		if !st.SignStable {
			sign = "FLIPS"
		}
		fmt.Fprintf(w, " %9s %6s\n", num(st.MaxDelta, 3), sign)
	}
	if len(r.Runs) > 0 && r.Runs[0].CV != nil {
		fmt.Fprintf(w, "accuracy range: %.3f - %.3f\n", r.AccuracyMin, r.AccuracyMax)
	}
}
