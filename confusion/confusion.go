// Package confusion implements the 2x2 confusion matrix of a binary
// classifier.
package confusion

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned when predicted and actual labels
// have different lengths.
var ErrLengthMismatch = errors.New("length mismatch")

// ErrLabel is returned for labels other than 0 and 1.
var ErrLabel = errors.New("label is not binary")

// Matrix stores counts indexed by actual then predicted label.
type Matrix [2][2]int

// New counts predicted/actual pairs. On error the zero matrix is
// returned.
func New(predicted, actual []int) (Matrix, error) {
	var m Matrix
	if len(predicted) != len(actual) {
		return Matrix{}, fmt.Errorf("%w: %d predicted, %d actual labels",
			ErrLengthMismatch, len(predicted), len(actual))
	}
	for i, p := range predicted {
		a := actual[i]
		if (p != 0 && p != 1) || (a != 0 && a != 1) {
			return Matrix{}, fmt.Errorf("%w: predicted[%d]=%d, actual[%d]=%d", ErrLabel, i, p, i, a)
		}
		m[a][p]++
	}
	return m, nil
}

// Add returns the elementwise sum of two matrices.
func (m Matrix) Add(o Matrix) Matrix {
	for a := range m {
		for p := range m[a] {
			m[a][p] += o[a][p]
		}
	}
	return m
}

// Sum reduces matrices to their total.
func Sum(ms ...Matrix) (total Matrix) {
	for _, m := range ms {
		total = total.Add(m)
	}
	return
}

// Total returns the number of counted pairs.
func (m Matrix) Total() int {
	return m[0][0] + m[0][1] + m[1][0] + m[1][1]
}

// Trace returns the number of correct predictions.
func (m Matrix) Trace() int {
	return m[0][0] + m[1][1]
}

// Accuracy returns the share of correct predictions, 0 for an empty
// matrix.
func (m Matrix) Accuracy() float64 {
	t := m.Total()
	if t == 0 {
		return 0
	}
	return float64(m.Trace()) / float64(t)
}

// String formats the matrix as a table with actual labels in rows.
func (m Matrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%10s %8s %8s\n", "actual\\pred", "0", "1")
	for a := range m {
		fmt.Fprintf(&b, "%10d %8d %8d\n", a, m[a][0], m[a][1])
	}
	return b.String()
}
