package mcmc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/covstat/electlogit/logit"
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
	logging.SetLevel(logging.WARNING, "logit")
	logging.SetLevel(logging.ERROR, "mcmc")
}

func normalChains(seed int64, m, n int, shift float64) [][]float64 {
	r := rand.New(rand.NewSource(seed))
	res := make([][]float64, m)
	for c := range res {
		res[c] = make([]float64, n)
		for i := range res[c] {
			res[c][i] = r.NormFloat64() + float64(c)*shift
		}
	}
	return res
}

func TestSplitRhatIID(tst *testing.T) {
	r := SplitRhat(normalChains(1, 4, 1000, 0))
	if r < 0.98 || r > 1.02 {
		tst.Error("Expected R-hat close to 1, got", r)
	}
}

func TestSplitRhatShifted(tst *testing.T) {
	r := SplitRhat(normalChains(2, 2, 1000, 3))
	if r <= 1.1 {
		tst.Error("Expected R-hat > 1.1, got", r)
	}
}

func TestSplitRhatTrend(tst *testing.T) {
	// a single chain drifting from 0 to 5 is caught by splitting
	ch := make([]float64, 1000)
	r := rand.New(rand.NewSource(3))
	for i := range ch {
		ch[i] = 5*float64(i)/1000 + 0.1*r.NormFloat64()
	}
	if v := SplitRhat([][]float64{ch}); v <= 1.1 {
		tst.Error("Expected R-hat > 1.1 for a trend, got", v)
	}
}

func TestDegenerate(tst *testing.T) {
	ch := [][]float64{{1, 1, 1, 1, 1, 1, 1, 1}, {1, 1, 1, 1, 1, 1, 1, 1}}
	if v := SplitRhat(ch); !math.IsNaN(v) {
		tst.Error("Expected NaN R-hat, got", v)
	}
	if v := ESS(ch); !math.IsNaN(v) {
		tst.Error("Expected NaN ESS, got", v)
	}
	if v := SplitRhat([][]float64{{1, 2}}); !math.IsNaN(v) {
		tst.Error("Expected NaN R-hat for short chains, got", v)
	}
	if v := SplitRhat([][]float64{{1, 2, 3, 4}, {1, 2, 3}}); !math.IsNaN(v) {
		tst.Error("Expected NaN R-hat for unequal chains, got", v)
	}

	ws := DefaultLimits().Check([]Summary{Summarize("c", ch)})
	if len(ws) != 1 || ws[0].Kind != KindDegenerate {
		tst.Error("Expected a degenerate warning, got", ws)
	}
}

func TestESSIID(tst *testing.T) {
	ess := ESS(normalChains(4, 4, 1000, 0))
	if ess < 3000 || ess > 5500 {
		tst.Error("Expected ESS close to 4000, got", ess)
	}
}

func TestESSAR1(tst *testing.T) {
	r := rand.New(rand.NewSource(5))
	chains := make([][]float64, 4)
	for c := range chains {
		chains[c] = make([]float64, 1000)
		x := r.NormFloat64()
		for i := range chains[c] {
			x = 0.9*x + math.Sqrt(1-0.81)*r.NormFloat64()
			chains[c][i] = x
		}
	}
	// theoretical value is 4000*(1-0.9)/(1+0.9), about 210
	ess := ESS(chains)
	if ess > 800 || ess < 50 {
		tst.Error("Expected ESS around 210, got", ess)
	}
}

func TestMCSE(tst *testing.T) {
	if v := MCSE(2, 400); math.Abs(v-0.1) > 1e-12 {
		tst.Error("Expected 0.1, got", v)
	}
	if v := MCSE(2, math.NaN()); !math.IsNaN(v) {
		tst.Error("Expected NaN, got", v)
	}
}

func TestSummarize(tst *testing.T) {
	s := Summarize("x", normalChains(6, 2, 2000, 0))
	if math.Abs(s.Mean) > 0.1 || math.Abs(s.SD-1) > 0.1 {
		tst.Error("Unexpected mean or sd", s.Mean, s.SD)
	}
	if math.Abs(s.Q025+1.96) > 0.2 || math.Abs(s.Q975-1.96) > 0.2 {
		tst.Error("Unexpected quantiles", s.Q025, s.Q975)
	}
	b, err := json.Marshal(Summarize("c", [][]float64{{1, 1, 1, 1}}))
	if err != nil {
		tst.Fatal("Error marshaling a degenerate summary:", err)
	}
	var d Summary
	if err := json.Unmarshal(b, &d); err != nil {
		tst.Fatal("Error: ", err)
	}
	if d.Mean != 1 || !math.IsNaN(d.Rhat) {
		tst.Error("Unexpected restored summary", d)
	}
}

func TestLimits(tst *testing.T) {
	l := DefaultLimits()
	ws := l.Check([]Summary{
		{Name: "ok", Rhat: 1.01, ESS: 500},
		{Name: "bad", Rhat: 1.3, ESS: 20},
	})
	if len(ws) != 2 {
		tst.Fatal("Expected two warnings, got", ws)
	}
	if ws[0].Kind != KindRhat || ws[1].Kind != KindESS || ws[0].Quantity != "bad" {
		tst.Error("Unexpected warnings", ws)
	}
}

func testModel(tst *testing.T) *logit.Model {
	x := mat.NewDense(8, 1, []float64{-2, -1.5, -1, 0.5, -0.5, 1, 1.5, 2})
	xNew := mat.NewDense(2, 1, []float64{-1, 1})
	d := logit.NewData(x, []int{0, 0, 0, 0, 1, 1, 1, 1}, xNew)
	m, err := logit.New(d, logit.NewPrior(1, 5), nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	return m
}

func TestSample(tst *testing.T) {
	s := NewSettings()
	s.Warmup = 200
	s.Draws = 300
	s.Seed = 42
	p, err := Sample(context.Background(), testModel(tst), s)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(p.Names) != 4 || p.NParameters != 2 {
		tst.Fatal("Unexpected names", p.Names)
	}
	if p.Index("eta_new[2]") != 3 || p.Index("missing") != -1 {
		tst.Error("Unexpected index")
	}
	if p.NDraws() != 600 || len(p.Pooled(1)) != 600 {
		tst.Error("Expected 600 draws, got", p.NDraws())
	}
	if len(p.Parameters()) != 2 {
		tst.Error("Expected 2 parameter summaries")
	}
	b := p.Summaries[p.Index("beta[x1]")]
	if b.Mean <= 0 {
		tst.Error("Expected positive slope, got", b.Mean)
	}
	for c, a := range p.Acceptance {
		if a <= 0 || a >= 1 {
			tst.Errorf("Chain %d: unexpected acceptance rate %v", c, a)
		}
	}
	if math.IsNaN(p.MeanLnL) || p.MeanLnL >= 0 {
		tst.Error("Unexpected log-likelihood at the mean", p.MeanLnL)
	}
	if len(p.Runs) != 2 {
		tst.Fatal("Expected 2 chain summaries, got", len(p.Runs))
	}
	for c, r := range p.Runs {
		if r.Method != "mh" || r.Iterations != 500 {
			tst.Errorf("Chain %d: unexpected summary %+v", c, r)
		}
		if r.AcceptanceRate != p.Acceptance[c] || len(r.MaxLParameters) != 2 {
			tst.Errorf("Chain %d: unexpected summary %+v", c, r)
		}
	}
	if _, err := json.Marshal(p.Runs); err != nil {
		tst.Error("Error encoding chain summaries: ", err)
	}

	// same seed, same draws
	p2, err := Sample(context.Background(), testModel(tst), s)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for q := range p.Draws {
		for c := range p.Draws[q] {
			for d, v := range p.Draws[q][c] {
				if p2.Draws[q][c][d] != v {
					tst.Fatalf("Draw %d of chain %d differs for %s", d, c, p.Names[q])
				}
			}
		}
	}
}

func TestSampleMAPAdaptive(tst *testing.T) {
	s := NewSettings()
	s.Warmup = 300
	s.Draws = 300
	s.MAP = true
	s.Adaptive = true
	s.Threads = 1
	p, err := Sample(context.Background(), testModel(tst), s)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(p.MAP) != 2 {
		tst.Fatal("Expected MAP values for 2 parameters, got", p.MAP)
	}
	if p.MAP["beta[x1]"] <= 0 {
		tst.Error("Expected positive MAP slope, got", p.MAP["beta[x1]"])
	}
	if p.MAPRun == nil || p.MAPRun.Method != "lbfgsb" {
		tst.Fatal("Expected the mode search summary, got", p.MAPRun)
	}
	for name, v := range p.MAPRun.MaxLParameters {
		if math.Abs(v-p.MAP[name]) > 1e-12 {
			tst.Errorf("%s: mode %v, start %v", name, v, p.MAP[name])
		}
	}
}

func TestSampleCancel(tst *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sample(ctx, testModel(tst), NewSettings())
	if !errors.Is(err, context.Canceled) {
		tst.Error("Expected context.Canceled, got", err)
	}
}

func TestSettingsValidate(tst *testing.T) {
	s := NewSettings()
	s.Chains = 0
	if _, err := Sample(context.Background(), testModel(tst), s); err == nil {
		tst.Error("Expected error for zero chains")
	}
}
