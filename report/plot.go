package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/covstat/electlogit/sweep"
)

// gridSize is the number of points of a density curve.
const gridSize = 200

// Density returns a Gaussian kernel density estimate of x on an
// evenly spaced grid between min and max. The bandwidth follows
// Silverman's rule of thumb.
func Density(x []float64, min, max float64) plotter.XYs {
	pts := make(plotter.XYs, gridSize)
	n := float64(len(x))
	_, sd := stat.MeanStdDev(x, nil)
	h := 1.06 * sd * math.Pow(n, -0.2)
	if h <= 0 || math.IsNaN(h) {
		h = 1e-3
	}
	norm := 1 / (n * h * math.Sqrt(2*math.Pi))
	grid := make([]float64, gridSize)
	floats.Span(grid, min, max)
	for i, g := range grid {
		var s float64
		for _, v := range x {
			z := (g - v) / h
			s += math.Exp(-0.5 * z * z)
		}
		pts[i].X = g
		pts[i].Y = s * norm
	}
	return pts
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// fileName converts a parameter name to a file name.
func fileName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_") + ".png"
}

// Plots writes one PNG per parameter with the posterior densities of
// all the sweep runs.
func Plots(dir string, r *sweep.Result) error {
	if len(r.Runs) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for q, s := range r.Runs[0].Summaries {
		var lines []interface{}
		min, max := math.Inf(1), math.Inf(-1)
		for _, run := range r.Runs {
			if run.Posterior == nil {
				continue
			}
			x := run.Posterior.Pooled(q)
			min = math.Min(min, floats.Min(x))
			max = math.Max(max, floats.Max(x))
		}
		if math.IsInf(min, 0) || min == max {
			log.Infof("Skipping plot of %s", s.Name)
			continue
		}
		for _, run := range r.Runs {
			if run.Posterior == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("variance %g", run.Variance),
				Density(run.Posterior.Pooled(q), min, max))
		}

		p := plot.New()
		p.Title.Text = s.Name
		p.X.Label.Text = "value"
		p.Y.Label.Text = "density"
		if err := plotutil.AddLines(p, lines...); err != nil {
			return err
		}
		path := filepath.Join(dir, fileName(s.Name))
		if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
			return err
		}
		log.Debugf("Saved %s", path)
	}
	return nil
}
