package sweep

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/covstat/electlogit/checkpoint"
	"github.com/covstat/electlogit/cv"
	"github.com/covstat/electlogit/logit"
	"github.com/covstat/electlogit/mcmc"
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
	logging.SetLevel(logging.WARNING, "logit")
	logging.SetLevel(logging.ERROR, "mcmc")
	logging.SetLevel(logging.WARNING, "cv")
	logging.SetLevel(logging.ERROR, "sweep")
	logging.SetLevel(logging.WARNING, "checkpoint")
}

// synthetic simulates n observations with coefficients 1.5 and -1.
func synthetic(n int) (*mat.Dense, []int) {
	r := rand.New(rand.NewSource(17))
	x := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		x1, x2 := r.NormFloat64(), r.NormFloat64()
		x.Set(i, 0, x1)
		x.Set(i, 1, x2)
		if r.Float64() < logit.Sigmoid(0.2+1.5*x1-x2) {
			y[i] = 1
		}
	}
	return x, y
}

func samplerSettings() *mcmc.Settings {
	s := mcmc.NewSettings()
	s.Warmup = 500
	s.Draws = 1000
	s.Seed = 123
	return s
}

func TestSignStability(tst *testing.T) {
	x, y := synthetic(60)
	res, err := Sweep(context.Background(), x, y, &Settings{
		Names:   []string{"x1", "x2"},
		Sampler: samplerSettings(),
		NoCV:    true,
	})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(res.Runs) != 3 {
		tst.Fatal("Expected 3 runs, got", len(res.Runs))
	}
	for i, v := range DefaultVariances {
		if res.Runs[i].Variance != v || res.Runs[i].CV != nil {
			tst.Error("Unexpected run", res.Runs[i].Variance)
		}
	}
	if len(res.Stability) != 3 {
		tst.Fatal("Expected stability of 3 parameters, got", len(res.Stability))
	}
	for _, st := range res.Stability[1:] {
		if !st.SignStable {
			tst.Errorf("%s: sign changes, means %v", st.Name, st.Means)
		}
	}
	if m := res.Stability[1].Means[0]; m <= 0 {
		tst.Error("Expected positive x1 coefficient, got", m)
	}
	if m := res.Stability[2].Means[0]; m >= 0 {
		tst.Error("Expected negative x2 coefficient, got", m)
	}
}

func TestCompare(tst *testing.T) {
	run := func(acc float64, means ...float64) Run {
		r := Run{CV: &cv.Result{Accuracy: acc}}
		for i, m := range means {
			r.Summaries = append(r.Summaries, mcmc.Summary{Name: string(rune('a' + i)), Mean: m})
		}
		return r
	}
	res := &Result{Runs: []Run{
		run(0.8, 1, -1),
		run(0.9, 1.5, 0.2),
		run(0.85, 2, -0.5),
	}}
	res.Compare()
	if res.AccuracyMin != 0.8 || res.AccuracyMax != 0.9 {
		tst.Error("Unexpected accuracy range", res.AccuracyMin, res.AccuracyMax)
	}
	if !res.Stability[0].SignStable || res.Stability[1].SignStable {
		tst.Error("Unexpected sign stability", res.Stability)
	}
	if math.Abs(res.Stability[0].MaxDelta-1) > 1e-12 || math.Abs(res.Stability[1].MaxDelta-1.2) > 1e-12 {
		tst.Error("Unexpected max delta", res.Stability)
	}
}

func TestSweepCV(tst *testing.T) {
	x, y := synthetic(20)
	p, err := cv.Consecutive(20, cv.DefaultSizes(20, 4))
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	db, err := checkpoint.Open(filepath.Join(tst.TempDir(), "sweep.db"))
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	defer db.Close()

	s := &Settings{
		Variances:   []float64{2.5, 7.5},
		Partition:   p,
		Names:       []string{"x1", "x2"},
		Sampler:     samplerSettings(),
		Standardize: true,
		DB:          db,
		Key:         "synthetic",
	}
	s.Sampler.Warmup = 200
	s.Sampler.Draws = 200
	res, err := Sweep(context.Background(), x, y, s)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for _, r := range res.Runs {
		if r.CV.Total.Total() != 20 {
			tst.Error("Expected 20 classified observations, got", r.CV.Total.Total())
		}
		if r.CV.Accuracy < 0 || r.CV.Accuracy > 1 {
			tst.Error("Accuracy out of range", r.CV.Accuracy)
		}
		if len(r.Runs) != 2 || len(r.CV.Folds[0].Runs) != 2 {
			tst.Error("Expected sampler summaries of 2 chains")
		}
	}
	if res.AccuracyMin > res.AccuracyMax {
		tst.Error("Unexpected accuracy range", res.AccuracyMin, res.AccuracyMax)
	}
}

func TestScaled(tst *testing.T) {
	x, _ := synthetic(10)
	if Scaled(x, nil, false) != x {
		tst.Error("Raw predictors are copied")
	}
	v := x.At(3, 1)
	xs := Scaled(x, nil, true)
	if x.At(3, 1) != v {
		tst.Error("Standardization changed the input")
	}
	col := mat.Col(nil, 1, xs)
	if m := floats.Sum(col) / 10; math.Abs(m) > 1e-12 {
		tst.Error("Expected centered column, got mean", m)
	}
}
