package visual

import (
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/processor"
	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTheme() config.Theme {
	return config.Theme{WidthInch: 4, HeightInch: 3, DPI: 50, Palette: []string{"#87ceeb", "#fa8072", "#90ee90"}}
}

// threeWeeks 21天、三个机场的合成数据集
func threeWeeks(t *testing.T) dataframe.DataFrame {
	t.Helper()
	records := [][]string{utils.RequiredColumns}
	origins := []string{"ATL", "DFW", "ORD"}
	start := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 21; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		n := 4
		if i%7 >= 5 {
			n = 2
		}
		for j := 0; j < n; j++ {
			cancelled := "0"
			if j == 1 && i%7 == 0 {
				cancelled = "1"
			}
			records = append(records, []string{
				date, origins[j%3], "900", "12", "915", "1030", "6",
				fmt.Sprint(60 + 10*j), fmt.Sprint(500 + 100*j), fmt.Sprint(j), fmt.Sprint(i % 5), cancelled,
			})
		}
	}
	types := map[string]series.Type{
		utils.ColFlightDate: series.String,
		utils.ColOrigin:     series.String,
		utils.ColCancelled:  series.String,
	}
	for _, col := range utils.FloatColumns {
		types[col] = series.Float
	}
	df := dataframe.LoadRecords(records, dataframe.WithTypes(types))
	require.NoError(t, df.Err)
	return df
}

func TestRenderAll(t *testing.T) {
	report, err := processor.NewDataProcessor(threeWeeks(t), config.DefaultDataConfig(), nil).CalculateMetrics()
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "outputs")
	r, err := NewRenderer(smallTheme(), dir, 10, nil)
	require.NoError(t, err)

	paths, err := r.RenderAll(report)
	require.NoError(t, err)

	want := []string{
		FileFlightsByDOW, FileFlightsByAirport, FileCancellation, FileAirportPerformance,
		FileMonthlyDelays, FileWeeklyPatterns, FileDurationDistance, FileDelayHeatmap,
	}
	for m := range report.Decompositions {
		want = append(want, DecompositionFile(m))
	}
	assert.Len(t, paths, len(want))
	for _, name := range want {
		path := filepath.Join(dir, name)
		assert.Contains(t, paths, path)

		f, err := os.Open(path)
		require.NoError(t, err, name)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, name)
		assert.Equal(t, 200, cfg.Width, name)
		assert.Equal(t, 150, cfg.Height, name)
	}
	assert.FileExists(t, filepath.Join(dir, "seasonal_decomp_flight_count_weekly.png"))
}

func TestRenderMissingTable(t *testing.T) {
	r, err := NewRenderer(smallTheme(), t.TempDir(), 5, nil)
	require.NoError(t, err)

	_, err = r.FlightsByAirport(processor.Analysis{})
	assert.ErrorIs(t, err, utils.ErrMissingColumn)

	_, err = r.DelayHeatmap(processor.Analysis{})
	assert.ErrorIs(t, err, utils.ErrMissingColumn)

	_, err = r.Decomposition(nil)
	assert.Error(t, err)
}

func TestStatGrid(t *testing.T) {
	g := statGrid{z: [][]float64{{1, 2, 3}, {4, math.NaN(), 6}}}
	c, rows := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 3, rows)
	// 表中第一行在最上方
	assert.Equal(t, 3.0, g.Z(0, 0))
	assert.Equal(t, 1.0, g.Z(0, 2))
	assert.Equal(t, 4.0, g.Z(1, 2))

	lo, hi := g.bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 6.0, hi)

	lo, hi = statGrid{z: [][]float64{{math.NaN()}}}.bounds()
	assert.Equal(t, [2]float64{0, 1}, [2]float64{lo, hi})
	lo, hi = statGrid{z: [][]float64{{5, 5}}}.bounds()
	assert.Equal(t, [2]float64{5, 6}, [2]float64{lo, hi})
}

func TestNewTheme(t *testing.T) {
	theme, err := NewTheme(config.DefaultDataConfig().Theme)
	require.NoError(t, err)
	assert.Equal(t, 150, theme.DPI)
	assert.Equal(t, color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}, theme.Color(0))
	assert.Equal(t, theme.Color(0), theme.Color(len(theme.Palette)))

	_, err = NewTheme(config.Theme{WidthInch: 1, HeightInch: 1, DPI: 72, Palette: []string{"blue"}})
	assert.Error(t, err)
	_, err = NewTheme(config.Theme{WidthInch: 0, HeightInch: 1, DPI: 72, Palette: []string{"#fff"}})
	assert.Error(t, err)
}

func TestParseHexAndTitle(t *testing.T) {
	c, err := ParseHex("#fff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, c)

	_, err = ParseHex("#12345g")
	assert.Error(t, err)

	assert.Equal(t, "Operational Efficiency", Title("operational_efficiency"))
	assert.Equal(t, []string{"Jan", "Dec", "13"}, monthNames([]string{"1", "12", "13"}))
}
