package confusion

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(tst *testing.T) {
	m, err := New([]int{1, 0, 1, 1, 0}, []int{1, 0, 0, 1, 1})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if m != (Matrix{{1, 1}, {1, 2}}) {
		tst.Error("Unexpected matrix", m)
	}
	if m.Total() != 5 || m.Trace() != 3 {
		tst.Error("Expected total 5 and trace 3, got", m.Total(), m.Trace())
	}
	if a := m.Accuracy(); a != 0.6 {
		tst.Error("Expected accuracy 0.6, got", a)
	}
}

func TestLengthMismatch(tst *testing.T) {
	m, err := New([]int{1, 0, 1}, []int{1, 0})
	if !errors.Is(err, ErrLengthMismatch) {
		tst.Fatal("Expected ErrLengthMismatch, got", err)
	}
	if !strings.Contains(err.Error(), "3") || !strings.Contains(err.Error(), "2") {
		tst.Error("Expected both lengths in the message:", err)
	}
	if m != (Matrix{}) {
		tst.Error("Expected zero matrix, got", m)
	}
}

func TestLabel(tst *testing.T) {
	m, err := New([]int{1, 2}, []int{1, 0})
	if !errors.Is(err, ErrLabel) {
		tst.Error("Expected ErrLabel, got", err)
	}
	if m.Total() != 0 {
		tst.Error("Expected zero matrix, got", m)
	}
}

func TestSum(tst *testing.T) {
	a := Matrix{{1, 0}, {0, 1}}
	b := Matrix{{2, 1}, {0, 3}}
	s := Sum(a, b)
	if s != (Matrix{{3, 1}, {0, 4}}) {
		tst.Error("Unexpected sum", s)
	}
	if a != (Matrix{{1, 0}, {0, 1}}) {
		tst.Error("Add changed its receiver")
	}
	if s.Total() != a.Total()+b.Total() {
		tst.Error("Total is not additive")
	}
}

func TestAccuracyBounds(tst *testing.T) {
	if a := (Matrix{}).Accuracy(); a != 0 {
		tst.Error("Expected 0 for an empty matrix, got", a)
	}
	if a := (Matrix{{3, 0}, {0, 4}}).Accuracy(); a != 1 {
		tst.Error("Expected 1 for perfect predictions, got", a)
	}
	if a := (Matrix{{3, 1}, {0, 4}}).Accuracy(); a >= 1 || a <= 0 {
		tst.Error("Expected accuracy in (0, 1), got", a)
	}
}

func TestString(tst *testing.T) {
	s := Matrix{{12, 3}, {4, 32}}.String()
	if !strings.Contains(s, "32") || strings.Count(s, "\n") != 3 {
		tst.Error("Unexpected formatting:\n", s)
	}
}
