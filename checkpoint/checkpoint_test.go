package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.SetLevel(logging.WARNING, "checkpoint")
}

type foldResult struct {
	Fold  int       `json:"fold"`
	Probs []float64 `json:"probs"`
}

func TestRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cp.db"))
	require.NoError(t, err)
	defer db.Close()

	run, err := RunKey(map[string]interface{}{"variance": 5.0, "seed": 1})
	require.NoError(t, err)
	s := New(db, run)

	var r foldResult
	found, err := s.Load("fold/1", &r)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Save("fold/1", foldResult{Fold: 1, Probs: []float64{0.2, 0.9}}))
	found, err = s.Load("fold/1", &r)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, foldResult{Fold: 1, Probs: []float64{0.2, 0.9}}, r)

	// another run does not see the value
	other, err := RunKey(map[string]interface{}{"variance": 2.5, "seed": 1})
	require.NoError(t, err)
	require.NotEqual(t, run, other)
	found, err = New(db, other).Load("fold/1", &r)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRunKeyDeterministic(t *testing.T) {
	a, err := RunKey([]float64{1, 2, 3})
	require.NoError(t, err)
	b, err := RunKey([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestNilDB(t *testing.T) {
	s := New(nil, [16]byte{})
	require.NoError(t, s.Save("x", 1))
	var v int
	found, err := s.Load("x", &v)
	require.NoError(t, err)
	require.False(t, found)
}
