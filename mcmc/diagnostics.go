package mcmc

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// split splits every chain in two halves. The middle draw of odd
// length chains is dropped.
func split(chains [][]float64) [][]float64 {
	res := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		h := len(c) / 2
		res = append(res, c[:h], c[len(c)-h:])
	}
	return res
}

// sameLength returns the common chain length or -1.
func sameLength(chains [][]float64) int {
	if len(chains) == 0 {
		return -1
	}
	n := len(chains[0])
	for _, c := range chains[1:] {
		if len(c) != n {
			return -1
		}
	}
	return n
}

// SplitRhat computes the split potential scale reduction factor. It
// returns NaN for constant draws or chains shorter than 4.
func SplitRhat(chains [][]float64) float64 {
	if n := sameLength(chains); n < 4 {
		return math.NaN()
	}
	sc := split(chains)
	n := float64(len(sc[0]))
	m := len(sc)

	means := make([]float64, m)
	var w float64
	for i, c := range sc {
		mean, v := stat.MeanVariance(c, nil)
		means[i] = mean
		w += v
	}
	w /= float64(m)
	if w == 0 {
		return math.NaN()
	}
	// B/n is the variance of the chain means
	bn := stat.Variance(means, nil)
	varPlus := (n-1)/n*w + bn
	return math.Sqrt(varPlus / w)
}

// autocovariance returns biased autocovariances of x for lags
// 0..len(x)-1.
func autocovariance(x []float64) []float64 {
	n := len(x)
	mean, _ := stat.MeanVariance(x, nil)
	v := 0.0
	padded := make([]float64, 2*n)
	for i, xi := range x {
		d := xi - mean
		padded[i] = d
		v += d * d
	}
	v /= float64(n)
	acov := make([]float64, n)
	if v == 0 {
		return acov
	}

	fft := fourier.NewFFT(len(padded))
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	seq := fft.Sequence(nil, coeff)
	// the transform is unnormalized, lag 0 is rescaled to the
	// variance
	for t := range acov {
		acov[t] = seq[t] / seq[0] * v
	}
	return acov
}

// ESS computes the effective sample size of split chains using
// Geyer's initial monotone sequence. It returns NaN for constant
// draws or chains shorter than 8.
func ESS(chains [][]float64) float64 {
	if n := sameLength(chains); n < 8 {
		return math.NaN()
	}
	sc := split(chains)
	m := len(sc)
	n := len(sc[0])

	acov := make([][]float64, m)
	means := make([]float64, m)
	var meanVar float64
	for i, c := range sc {
		acov[i] = autocovariance(c)
		means[i] = stat.Mean(c, nil)
		meanVar += acov[i][0] * float64(n) / float64(n-1)
	}
	meanVar /= float64(m)
	varPlus := meanVar * float64(n-1) / float64(n)
	if m > 1 {
		varPlus += stat.Variance(means, nil)
	}
	if varPlus == 0 || meanVar == 0 {
		return math.NaN()
	}

	meanAcov := func(t int) (s float64) {
		for _, a := range acov {
			s += a[t]
		}
		return s / float64(m)
	}

	rho := make([]float64, n)
	rhoEven := 1.0
	rhoOdd := 1 - (meanVar-meanAcov(1))/varPlus
	rho[0] = rhoEven
	rho[1] = rhoOdd

	t := 1
	for t < n-3 && rhoEven+rhoOdd > 0 {
		rhoEven = 1 - (meanVar-meanAcov(t+1))/varPlus
		rhoOdd = 1 - (meanVar-meanAcov(t+2))/varPlus
		if rhoEven+rhoOdd >= 0 {
			rho[t+1] = rhoEven
			rho[t+2] = rhoOdd
		}
		t += 2
	}
	maxT := t - 2
	if rhoEven > 0 {
		rho[maxT+1] = rhoEven
	}

	// initial monotone sequence
	for t := 1; t <= maxT-2; t += 2 {
		if rho[t+1]+rho[t+2] > rho[t-1]+rho[t] {
			rho[t+1] = (rho[t-1] + rho[t]) / 2
			rho[t+2] = rho[t+1]
		}
	}

	ess := float64(m * n)
	tau := -1 + rho[maxT+1]
	for _, r := range rho[:maxT+1] {
		tau += 2 * r
	}
	tau = math.Max(tau, 1/math.Log10(ess))
	return ess / tau
}

// MCSE returns the Monte Carlo standard error of the mean: the
// posterior standard deviation over the square root of the ESS.
func MCSE(sd, ess float64) float64 {
	if ess <= 0 || math.IsNaN(ess) {
		return math.NaN()
	}
	return sd / math.Sqrt(ess)
}
