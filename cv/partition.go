package cv

import (
	"errors"
	"fmt"
)

// ErrPartition is returned for fold partitions which are not a
// partition of the observation indices.
var ErrPartition = errors.New("invalid partition")

// Partition is a list of folds, each a list of observation indices.
type Partition [][]int

// DefaultSizes returns sizes of k consecutive folds over n
// observations. All the folds have n/k observations, the last one
// takes the remainder.
func DefaultSizes(n, k int) []int {
	if k < 1 || n < k {
		return nil
	}
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = n / k
	}
	sizes[k-1] += n % k
	return sizes
}

// Consecutive creates consecutive folds with the given sizes.
func Consecutive(n int, sizes []int) (Partition, error) {
	sum := 0
	for i, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("%w: fold %d has size %d", ErrPartition, i+1, s)
		}
		sum += s
	}
	if sum != n {
		return nil, fmt.Errorf("%w: fold sizes sum to %d, N=%d", ErrPartition, sum, n)
	}
	p := make(Partition, len(sizes))
	start := 0
	for i, s := range sizes {
		p[i] = make([]int, s)
		for j := range p[i] {
			p[i][j] = start + j
		}
		start += s
	}
	return p, nil
}

// Validate checks that folds are non-empty, disjoint and cover
// 0..n-1.
func (p Partition) Validate(n int) error {
	if len(p) < 2 {
		return fmt.Errorf("%w: at least 2 folds are required, got %d", ErrPartition, len(p))
	}
	seen := make([]int, n)
	for f, fold := range p {
		if len(fold) == 0 {
			return fmt.Errorf("%w: fold %d is empty", ErrPartition, f+1)
		}
		for _, i := range fold {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: index %d in fold %d is out of range [0, %d)", ErrPartition, i, f+1, n)
			}
			if seen[i] > 0 {
				return fmt.Errorf("%w: index %d is in folds %d and %d", ErrPartition, i, seen[i], f+1)
			}
			seen[i] = f + 1
		}
	}
	for i, f := range seen {
		if f == 0 {
			return fmt.Errorf("%w: index %d is not in any fold", ErrPartition, i)
		}
	}
	return nil
}

// Complement returns the indices of 0..n-1 not in fold f.
func (p Partition) Complement(f, n int) []int {
	in := make([]bool, n)
	for _, i := range p[f] {
		in[i] = true
	}
	res := make([]int, 0, n-len(p[f]))
	for i := 0; i < n; i++ {
		if !in[i] {
			res = append(res, i)
		}
	}
	return res
}

// Sizes returns the fold sizes.
func (p Partition) Sizes() []int {
	res := make([]int, len(p))
	for f, fold := range p {
		res[f] = len(fold)
	}
	return res
}
