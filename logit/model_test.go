package logit

import (
	"errors"
	"math"
	"testing"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

const smallDiff = 1e-6

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
	logging.SetLevel(logging.WARNING, "logit")
}

func testData() *Data {
	x := mat.NewDense(4, 2, []float64{
		1, 0.5,
		-1, 2,
		0.3, -0.7,
		2, 1,
	})
	xNew := mat.NewDense(2, 2, []float64{
		0, 0,
		1, -1,
	})
	return NewData(x, []int{1, 0, 0, 1}, xNew)
}

func TestLikelihood(tst *testing.T) {
	m, err := New(testData(), NewPrior(2, 5), nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	m.SetParameters(0.2, []float64{1.5, -0.4})

	var ref float64
	etas := []float64{0.2 + 1.5 - 0.2, 0.2 - 1.5 - 0.8, 0.2 + 0.45 + 0.28, 0.2 + 3 - 0.4}
	ys := []float64{1, 0, 0, 1}
	for i, eta := range etas {
		p := 1 / (1 + math.Exp(-eta))
		ref += ys[i]*math.Log(p) + (1-ys[i])*math.Log(1-p)
	}
	if L := m.Likelihood(); math.Abs(L-ref) > smallDiff {
		tst.Error("Expected ", ref, ", got", L)
	}
}

func TestLikelihoodExtreme(tst *testing.T) {
	m, err := New(testData(), NewPrior(2, 5), nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	m.SetParameters(0, []float64{1000, 0})
	L := m.Likelihood()
	if math.IsNaN(L) || math.IsInf(L, 0) {
		tst.Error("Expected finite likelihood, got", L)
	}
}

func TestGradient(tst *testing.T) {
	m, err := New(testData(), NewPrior(2, 2.5), []string{"a", "b"})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	m.SetParameters(-0.3, []float64{0.8, 0.1})
	grad := m.Gradient(nil)
	pars := m.GetFloatParameters()
	if len(pars) != 3 {
		tst.Fatal("Expected 3 free parameters, got", len(pars))
	}
	h := 1e-5
	for k, par := range pars {
		v := par.Get()
		par.Set(v + h)
		l2 := m.LogPosterior()
		par.Set(v - h)
		l1 := m.LogPosterior()
		par.Set(v)
		fd := (l2 - l1) / 2 / h
		if math.Abs(fd-grad[k]) > 1e-4 {
			tst.Errorf("%s: expected gradient %v, got %v", par.Name(), fd, grad[k])
		}
	}

	hd := m.HessianDiag(nil)
	for k, v := range hd {
		if v >= 0 {
			tst.Errorf("Expected negative curvature for %s, got %v", pars[k].Name(), v)
		}
	}
}

func TestEtaNew(tst *testing.T) {
	m, err := New(testData(), NewPrior(2, 5), nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	m.SetParameters(0.5, []float64{2, 3})
	eta := m.EtaNew(nil)
	if len(eta) != 2 || eta[0] != 0.5 || eta[1] != 0.5+2-3 {
		tst.Error("Unexpected eta_new", eta)
	}
	if names := m.Generated(); names[1] != "eta_new[2]" {
		tst.Error("Unexpected generated names", names)
	}
}

func TestFixedParameter(tst *testing.T) {
	pr := NewPrior(2, 5)
	pr.SigmaB[1] = 0
	pr.Beta0[1] = 0.7
	m, err := New(testData(), pr, []string{"a", "b"})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	pars := m.GetFloatParameters()
	if len(pars) != 2 {
		tst.Fatal("Expected 2 free parameters, got", len(pars))
	}
	_, beta := m.GetParameters()
	if beta[1] != 0.7 {
		tst.Error("Expected fixed coefficient 0.7, got", beta[1])
	}
	if names := m.ParameterNames(); len(names) != 3 || names[2] != "beta[b]" {
		tst.Error("Unexpected parameter names", names)
	}
}

func TestCopy(tst *testing.T) {
	m, err := New(testData(), NewPrior(2, 5), nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	m.SetParameters(0.1, []float64{0.2, 0.3})
	c := m.Copy().(*Model)
	c.GetFloatParameters()[1].Set(5)
	if _, beta := m.GetParameters(); beta[0] != 0.2 {
		tst.Error("Copy changed the original model")
	}
	if math.Abs(m.Likelihood()-c.Likelihood()) < smallDiff {
		tst.Error("Expected different likelihoods after change")
	}
}

func TestValidate(tst *testing.T) {
	d := testData()
	d.Y = []int{1, 0, 2, 1}
	if _, err := New(d, NewPrior(2, 5), nil); !errors.Is(err, ErrOutcome) {
		tst.Error("Expected ErrOutcome, got", err)
	}

	d = testData()
	d.N = 5
	if _, err := New(d, NewPrior(2, 5), nil); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension, got", err)
	}

	d = testData()
	d.NNew = 3
	if _, err := New(d, NewPrior(2, 5), nil); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension for N_new, got", err)
	}

	if _, err := New(testData(), NewPrior(3, 5), nil); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension for prior, got", err)
	}

	if _, err := New(testData(), NewPrior(2, -1), nil); !errors.Is(err, ErrPrior) {
		tst.Error("Expected ErrPrior, got", err)
	}

	d = testData()
	d.X.Set(1, 1, math.NaN())
	if _, err := New(d, NewPrior(2, 5), nil); !errors.Is(err, ErrValue) {
		tst.Error("Expected ErrValue, got", err)
	}
}

func TestSigmoid(tst *testing.T) {
	if Sigmoid(0) != 0.5 {
		tst.Error("Expected sigmoid(0)=0.5")
	}
	if s := Sigmoid(-800); s < 0 || math.IsNaN(s) {
		tst.Error("Unexpected sigmoid(-800)", s)
	}
	if s := Sigmoid(2) + Sigmoid(-2); math.Abs(s-1) > 1e-12 {
		tst.Error("Expected symmetric sigmoid, got", s)
	}
}
