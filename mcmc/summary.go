package mcmc

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Summary is a posterior summary of a single quantity.
type Summary struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	// Q025 and Q975 are the 2.5% and 97.5% quantiles.
	Q025 float64 `json:"q2.5"`
	Q50  float64 `json:"q50"`
	Q975 float64 `json:"q97.5"`
	MCSE float64 `json:"mcse"`
	Rhat float64 `json:"rhat"`
	ESS  float64 `json:"ess"`
}

// nullable returns nil for values JSON cannot represent.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// jsonSummary is Summary with undefined values as null.
type jsonSummary struct {
	Name string   `json:"name"`
	Mean *float64 `json:"mean"`
	SD   *float64 `json:"sd"`
	Q025 *float64 `json:"q2.5"`
	Q50  *float64 `json:"q50"`
	Q975 *float64 `json:"q97.5"`
	MCSE *float64 `json:"mcse"`
	Rhat *float64 `json:"rhat"`
	ESS  *float64 `json:"ess"`
}

// orNaN returns NaN for nil.
func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// MarshalJSON writes undefined diagnostics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonSummary{
		s.Name, nullable(s.Mean), nullable(s.SD),
		nullable(s.Q025), nullable(s.Q50), nullable(s.Q975),
		nullable(s.MCSE), nullable(s.Rhat), nullable(s.ESS),
	})
}

// UnmarshalJSON reads null values as NaN.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var js jsonSummary
	if err := json.Unmarshal(b, &js); err != nil {
		return err
	}
	*s = Summary{
		Name: js.Name, Mean: orNaN(js.Mean), SD: orNaN(js.SD),
		Q025: orNaN(js.Q025), Q50: orNaN(js.Q50), Q975: orNaN(js.Q975),
		MCSE: orNaN(js.MCSE), Rhat: orNaN(js.Rhat), ESS: orNaN(js.ESS),
	}
	return nil
}

// Summarize computes the summary of draws indexed by chain and draw.
func Summarize(name string, draws [][]float64) Summary {
	var pooled stats.Float64Data
	for _, c := range draws {
		pooled = append(pooled, c...)
	}
	s := Summary{Name: name}
	if len(pooled) == 0 {
		s.Mean, s.SD = math.NaN(), math.NaN()
		s.Q025, s.Q50, s.Q975 = math.NaN(), math.NaN(), math.NaN()
		s.MCSE, s.Rhat, s.ESS = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean, _ = stats.Mean(pooled)
	if len(pooled) > 1 {
		s.SD, _ = stats.StandardDeviationSample(pooled)
	}
	s.Q025 = quantile(pooled, 2.5)
	s.Q50 = quantile(pooled, 50)
	s.Q975 = quantile(pooled, 97.5)
	s.Rhat = SplitRhat(draws)
	s.ESS = ESS(draws)
	s.MCSE = MCSE(s.SD, s.ESS)
	return s
}

// quantile returns the percentile p of data.
func quantile(data stats.Float64Data, p float64) float64 {
	v, err := stats.Percentile(data, p)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Limits are convergence thresholds.
type Limits struct {
	RhatMin float64 `json:"rhatMin" yaml:"rhatMin"`
	RhatMax float64 `json:"rhatMax" yaml:"rhatMax"`
	MinESS  float64 `json:"minESS" yaml:"minESS"`
}

// DefaultLimits returns the default convergence thresholds.
func DefaultLimits() Limits {
	return Limits{
		RhatMin: 0.9,
		RhatMax: 1.1,
		MinESS:  100,
	}
}

// Warning kinds.
const (
	KindRhat       = "rhat"
	KindESS        = "ess"
	KindDegenerate = "degenerate"
)

// Warning is a convergence problem of a single quantity.
type Warning struct {
	Quantity string  `json:"quantity"`
	Kind     string  `json:"kind"`
	Value    float64 `json:"value,omitempty"`
	Message  string  `json:"message"`
}

func (w Warning) String() string {
	return w.Message
}

// Check returns warnings for all the summaries violating the limits.
func (l Limits) Check(summaries []Summary) (ws []Warning) {
	for _, s := range summaries {
		if math.IsNaN(s.Rhat) || math.IsNaN(s.ESS) {
			ws = append(ws, Warning{
				Quantity: s.Name,
				Kind:     KindDegenerate,
				Message:  fmt.Sprintf("%s: diagnostics undefined (constant or too few draws)", s.Name),
			})
			continue
		}
		if s.Rhat < l.RhatMin || s.Rhat > l.RhatMax {
			ws = append(ws, Warning{
				Quantity: s.Name,
				Kind:     KindRhat,
				Value:    s.Rhat,
				Message:  fmt.Sprintf("%s: R-hat=%.3f outside [%g, %g]", s.Name, s.Rhat, l.RhatMin, l.RhatMax),
			})
		}
		if s.ESS < l.MinESS {
			ws = append(ws, Warning{
				Quantity: s.Name,
				Kind:     KindESS,
				Value:    s.ESS,
				Message:  fmt.Sprintf("%s: ESS=%.1f below %g", s.Name, s.ESS, l.MinESS),
			})
		}
	}
	return
}
