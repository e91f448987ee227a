package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

func init() {
	logging.SetLevel(logging.ERROR, "dataset")
}

const header = "state,votes20_Donald_Trump,votes20_Joe_Biden,cases,deaths,TotalPop," +
	"Hispanic,White,Black,Native,Asian,Pacific,Income," +
	"Professional,Service,Office,Construction,Production,Unemployment\n"

const counties = header +
	"Alpha,100,300,40,2,1000,10,60,20,1,5,0,50000,30,20,20,10,20,5\n" +
	"Alpha,200,100,30,1,3000,2,80,10,1,3,0,40000,20,20,20,20,20,7\n" +
	"\"Beta\",\"1,500\",500,10,1,2000,5,90,1,1,1,0,30000,25,25,25,15,10,4\n"

func TestAggregate(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader(counties))
	require.NoError(t, err)
	obs, err := Aggregate(tab)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	a := obs[0]
	require.Equal(t, "Alpha", a.State)
	require.Equal(t, 300.0, a.TrumpVotes)
	require.Equal(t, 400.0, a.BidenVotes)
	require.Equal(t, 1, a.Winner)
	require.Equal(t, 4000.0, a.TotalPop)
	require.InDelta(t, (10*1000+2*3000)/4000.0, a.Hispanic, 1e-12)
	require.InDelta(t, (50000*1000+40000*3000)/4000.0, a.Income, 1e-9)
	require.InDelta(t, 100*70/4000.0, a.CasesPct(), 1e-12)
	require.InDelta(t, 100*3/4000.0, a.DeathsPct(), 1e-12)

	b := obs[1]
	require.Equal(t, "Beta", b.State)
	require.Equal(t, 1500.0, b.TrumpVotes)
	require.Equal(t, 0, b.Winner)
}

func TestStateLevelPassThrough(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader(header +
		"Gamma,10,20,5,1,100,1,2,3,4,5,6,70000,1,2,3,4,5,6\n"))
	require.NoError(t, err)
	obs, err := Aggregate(tab)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	require.Equal(t, 70000.0, obs[0].Income)
	require.Equal(t, 6.0, obs[0].Pacific)
	require.Equal(t, 1, obs[0].Winner)
}

func TestMissing(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader(strings.Replace(counties, ",50000,", ",,", 1)))
	require.NoError(t, err)
	_, err = Aggregate(tab)
	require.ErrorIs(t, err, ErrMissing)
	require.Contains(t, err.Error(), "Income")

	tab, err = ReadCSV(strings.NewReader("state,cases\nAlpha,1\n"))
	require.NoError(t, err)
	_, err = Aggregate(tab)
	require.ErrorIs(t, err, ErrMissing)
}

func TestDesign(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader(counties))
	require.NoError(t, err)
	obs, err := Aggregate(tab)
	require.NoError(t, err)

	x, y, err := Design(obs, []string{"White", "CasesPct"})
	require.NoError(t, err)
	r, c := x.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	require.Equal(t, []int{1, 0}, y)
	require.Equal(t, 90.0, x.At(1, 0))

	_, _, err = Design(obs, []string{"Shoe size"})
	require.ErrorIs(t, err, ErrPredictor)
}

func TestStandardize(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})
	means, sds := Standardize(x, []string{"a", "b"})
	require.Equal(t, []float64{2, 5}, means)
	require.InDelta(t, 1, sds[0], 1e-12)
	require.InDelta(t, -1, x.At(0, 0), 1e-12)
	require.InDelta(t, 1, x.At(2, 0), 1e-12)
	for i := 0; i < 3; i++ {
		require.Equal(t, 0.0, x.At(i, 1))
	}
}

func TestApply(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{
		4, 7,
		0, 1,
	})
	Apply(x, []float64{2, 5}, []float64{2, 0})
	require.Equal(t, []float64{1, 0, -1, 0}, x.RawMatrix().Data)

	Apply(nil, []float64{2}, []float64{1})
	require.Panics(t, func() { Apply(x, []float64{1}, []float64{1}) })
}

func TestExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	lines := strings.Split(strings.TrimSpace(counties), "\n")
	for r, line := range lines {
		tab, err := ReadCSV(strings.NewReader(header + line + "\n"))
		require.NoError(t, err)
		cells := tab.Header
		if r > 0 {
			cells = tab.Rows[0]
		}
		for c, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	tab, err := ReadExcel(&buf)
	require.NoError(t, err)
	obs, err := Aggregate(tab)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	require.Equal(t, 400.0, obs[0].BidenVotes)

	path := filepath.Join(t.TempDir(), "counties.xlsx")
	require.NoError(t, f.SaveAs(path))
	obs, err = Load(path)
	require.NoError(t, err)
	require.Len(t, obs, 2)
}
