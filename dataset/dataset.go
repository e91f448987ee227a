// Package dataset loads county or state level election and COVID-19
// data and builds state observations with named predictors.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// log is the global logging variable.
var log = logging.MustGetLogger("dataset")

var (
	// ErrMissing is returned for missing columns and empty or
	// non-numeric values.
	ErrMissing = errors.New("missing value")
	// ErrPredictor is returned for unknown predictor names.
	ErrPredictor = errors.New("unknown predictor")
)

// Column names of the input table.
const (
	ColState        = "state"
	ColTrump        = "votes20_Donald_Trump"
	ColBiden        = "votes20_Joe_Biden"
	ColCases        = "cases"
	ColDeaths       = "deaths"
	ColTotalPop     = "TotalPop"
	ColHispanic     = "Hispanic"
	ColWhite        = "White"
	ColBlack        = "Black"
	ColNative       = "Native"
	ColAsian        = "Asian"
	ColPacific      = "Pacific"
	ColIncome       = "Income"
	ColProfessional = "Professional"
	ColService      = "Service"
	ColOffice       = "Office"
	ColConstruction = "Construction"
	ColProduction   = "Production"
	ColUnemployment = "Unemployment"
)

// Observation is a single state.
type Observation struct {
	State string `json:"state"`
	// Winner is 1 if Biden received more votes than Trump.
	Winner int `json:"winner"`

	TrumpVotes float64 `json:"trumpVotes"`
	BidenVotes float64 `json:"bidenVotes"`
	Cases      float64 `json:"cases"`
	Deaths     float64 `json:"deaths"`
	TotalPop   float64 `json:"totalPop"`

	// population percentages
	Hispanic float64 `json:"hispanic"`
	White    float64 `json:"white"`
	Black    float64 `json:"black"`
	Native   float64 `json:"native"`
	Asian    float64 `json:"asian"`
	Pacific  float64 `json:"pacific"`

	Income float64 `json:"income"`

	// workforce percentages
	Professional float64 `json:"professional"`
	Service      float64 `json:"service"`
	Office       float64 `json:"office"`
	Construction float64 `json:"construction"`
	Production   float64 `json:"production"`
	Unemployment float64 `json:"unemployment"`
}

// CasesPct is the share of the population with a reported case, in
// percent.
func (o *Observation) CasesPct() float64 {
	return pct(o.Cases, o.TotalPop)
}

// DeathsPct is the share of the population who died, in percent.
func (o *Observation) DeathsPct() float64 {
	return pct(o.Deaths, o.TotalPop)
}

func pct(x, pop float64) float64 {
	if pop == 0 {
		return 0
	}
	return 100 * x / pop
}

// weighted are the columns averaged with population weights.
var weighted = []struct {
	col string
	get func(*Observation) *float64
}{
	{ColHispanic, func(o *Observation) *float64 { return &o.Hispanic }},
	{ColWhite, func(o *Observation) *float64 { return &o.White }},
	{ColBlack, func(o *Observation) *float64 { return &o.Black }},
	{ColNative, func(o *Observation) *float64 { return &o.Native }},
	{ColAsian, func(o *Observation) *float64 { return &o.Asian }},
	{ColPacific, func(o *Observation) *float64 { return &o.Pacific }},
	{ColIncome, func(o *Observation) *float64 { return &o.Income }},
	{ColProfessional, func(o *Observation) *float64 { return &o.Professional }},
	{ColService, func(o *Observation) *float64 { return &o.Service }},
	{ColOffice, func(o *Observation) *float64 { return &o.Office }},
	{ColConstruction, func(o *Observation) *float64 { return &o.Construction }},
	{ColProduction, func(o *Observation) *float64 { return &o.Production }},
	{ColUnemployment, func(o *Observation) *float64 { return &o.Unemployment }},
}

// summed are the columns summed over counties.
var summed = []struct {
	col string
	get func(*Observation) *float64
}{
	{ColTrump, func(o *Observation) *float64 { return &o.TrumpVotes }},
	{ColBiden, func(o *Observation) *float64 { return &o.BidenVotes }},
	{ColCases, func(o *Observation) *float64 { return &o.Cases }},
	{ColDeaths, func(o *Observation) *float64 { return &o.Deaths }},
	{ColTotalPop, func(o *Observation) *float64 { return &o.TotalPop }},
}

// Predictors maps predictor names to accessors.
var Predictors = map[string]func(*Observation) float64{
	"CasesPct":     (*Observation).CasesPct,
	"DeathsPct":    (*Observation).DeathsPct,
	"Hispanic":     func(o *Observation) float64 { return o.Hispanic },
	"White":        func(o *Observation) float64 { return o.White },
	"Black":        func(o *Observation) float64 { return o.Black },
	"Native":       func(o *Observation) float64 { return o.Native },
	"Asian":        func(o *Observation) float64 { return o.Asian },
	"Pacific":      func(o *Observation) float64 { return o.Pacific },
	"Income":       func(o *Observation) float64 { return o.Income },
	"Professional": func(o *Observation) float64 { return o.Professional },
	"Service":      func(o *Observation) float64 { return o.Service },
	"Office":       func(o *Observation) float64 { return o.Office },
	"Construction": func(o *Observation) float64 { return o.Construction },
	"Production":   func(o *Observation) float64 { return o.Production },
	"Unemployment": func(o *Observation) float64 { return o.Unemployment },
	"TotalPop":     func(o *Observation) float64 { return o.TotalPop },
}

// DefaultPredictors are the predictors used unless configured.
var DefaultPredictors = []string{"CasesPct", "DeathsPct", "White", "Income", "Unemployment"}

// PredictorNames returns all the known predictor names, sorted.
func PredictorNames() []string {
	res := make([]string, 0, len(Predictors))
	for n := range Predictors {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// Value returns the named predictor.
func (o *Observation) Value(name string) (float64, error) {
	f, ok := Predictors[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPredictor, name)
	}
	return f(o), nil
}

// number parses a cell. Thousands separators are allowed.
func number(t *Table, row, col int) (float64, error) {
	s := strings.ReplaceAll(t.Rows[row][col], ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: row %d, column %s is empty", ErrMissing, row+2, t.Header[col])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d, column %s: %q is not a number", ErrMissing, row+2, t.Header[col], s)
	}
	return v, nil
}

// Aggregate builds one observation per state sorted by state name.
// Counts are summed; percentages and income are population weighted.
// A table with a single row per state is returned unchanged.
func Aggregate(t *Table) ([]Observation, error) {
	cols := map[string]int{}
	required := []string{ColState}
	for _, c := range summed {
		required = append(required, c.col)
	}
	for _, c := range weighted {
		required = append(required, c.col)
	}
	for _, name := range required {
		i := t.Column(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: column %s not found", ErrMissing, name)
		}
		cols[name] = i
	}

	type acc struct {
		obs    Observation
		wsum   []float64
		plain  []float64
		pop    float64
		county int
	}
	states := map[string]*acc{}
	for r, row := range t.Rows {
		state := row[cols[ColState]]
		if state == "" {
			return nil, fmt.Errorf("%w: row %d has no state", ErrMissing, r+2)
		}
		a, ok := states[state]
		if !ok {
			a = &acc{
				obs:   Observation{State: state},
				wsum:  make([]float64, len(weighted)),
				plain: make([]float64, len(weighted)),
			}
			states[state] = a
		}
		a.county++
		for _, c := range summed {
			v, err := number(t, r, cols[c.col])
			if err != nil {
				return nil, err
			}
			*c.get(&a.obs) += v
		}
		pop, _ := number(t, r, cols[ColTotalPop])
		for k, c := range weighted {
			v, err := number(t, r, cols[c.col])
			if err != nil {
				return nil, err
			}
			a.wsum[k] += pop * v
			a.plain[k] += v
		}
		a.pop += pop
	}

	res := make([]Observation, 0, len(states))
	for _, a := range states {
		o := a.obs
		for k, c := range weighted {
			if a.pop > 0 {
				*c.get(&o) = a.wsum[k] / a.pop
			} else {
				*c.get(&o) = a.plain[k] / float64(a.county)
			}
		}
		if o.BidenVotes > o.TrumpVotes {
			o.Winner = 1
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].State < res[j].State })
	log.Infof("%d rows aggregated to %d states", len(t.Rows), len(res))
	return res, nil
}

// Load reads a file and aggregates it to states.
func Load(path string) ([]Observation, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Aggregate(t)
}

// Design returns the design matrix of the named predictors and the
// outcomes.
func Design(obs []Observation, names []string) (*mat.Dense, []int, error) {
	if len(obs) == 0 || len(names) == 0 {
		return nil, nil, fmt.Errorf("%w: %d observations, %d predictors", ErrMissing, len(obs), len(names))
	}
	x := mat.NewDense(len(obs), len(names), nil)
	y := make([]int, len(obs))
	for i := range obs {
		for j, name := range names {
			v, err := obs[i].Value(name)
			if err != nil {
				return nil, nil, err
			}
			x.Set(i, j, v)
		}
		y[i] = obs[i].Winner
	}
	return x, y, nil
}

// Standardize centers and scales the columns of x in place and
// returns the column means and standard deviations. Columns with
// zero variance become zero.
func Standardize(x *mat.Dense, names []string) (means, sds []float64) {
	r, c := x.Dims()
	means = make([]float64, c)
	sds = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		means[j], sds[j] = stat.MeanStdDev(col, nil)
		if r < 2 {
			sds[j] = 0
		}
		if sds[j] == 0 {
			name := fmt.Sprint(j + 1)
			if j < len(names) {
				name = names[j]
			}
			log.Warningf("Predictor %s has zero variance, set to zero", name)
		}
	}
	Apply(x, means, sds)
	return
}

// Apply transforms x in place with the given column means and
// standard deviations. Columns with zero standard deviation become
// zero. A nil x is ignored.
func Apply(x *mat.Dense, means, sds []float64) {
	if x == nil {
		return
	}
	r, c := x.Dims()
	if c != len(means) || c != len(sds) {
		panic(fmt.Sprintf("%d columns, %d means, %d sds", c, len(means), len(sds)))
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if sds[j] == 0 {
				x.Set(i, j, 0)
			} else {
				x.Set(i, j, (x.At(i, j)-means[j])/sds[j])
			}
		}
	}
}
