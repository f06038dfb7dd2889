package processor

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"FlightPatterns/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklySeries(weeks int, noise float64, seed int64) []float64 {
	pattern := []float64{120, 118, 121, 119, 125, 80, 90}
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, weeks*7)
	for i := range out {
		out[i] = pattern[i%7] + 0.3*float64(i) + noise*rng.NormFloat64()
	}
	return out
}

func TestDecomposeIdentity(t *testing.T) {
	values := weeklySeries(6, 2, 1)
	res, err := NewDecomposer(7).Decompose(MetricFlightCount, days(len(values)), values)
	require.NoError(t, err)

	require.Len(t, res.Trend, len(values))
	for i := range values {
		assert.InDelta(t, values[i], res.Trend[i]+res.Seasonal[i]+res.Residual[i], 1e-6, "index %d", i)
	}
	for i := 0; i+7 < len(values); i++ {
		assert.Equal(t, res.Seasonal[i], res.Seasonal[i+7])
	}
	assert.Equal(t, 0, countNaN(res.Trend))

	var sum float64
	for _, s := range res.Seasonal[:7] {
		sum += s
	}
	assert.InDelta(t, 0, sum, 1e-9)

	assert.Greater(t, res.SeasonalStrength, 0.8)
	assert.InDelta(t, 0.3, res.TrendSlope, 0.05)
}

func TestDecomposeNoiseHasWeakSeasonality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := make([]float64, 140)
	for i := range values {
		values[i] = 50 + rng.NormFloat64()
	}
	res, err := NewDecomposer(7).Decompose("noise", days(len(values)), values)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.SeasonalStrength, 0.0)
	assert.Less(t, res.SeasonalStrength, 0.2)
}

func TestDecomposeConstantSeries(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = 100
	}
	res, err := NewDecomposer(7).Decompose(MetricFlightCount, days(21), values)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.SeasonalStrength)
	for i := range values {
		assert.InDelta(t, 100, res.Trend[i], 1e-9)
	}
}

func TestDecomposeSpike(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = 100
	}
	values[14] = 500

	res, err := NewDecomposer(7).Decompose(MetricFlightCount, days(21), values)
	require.NoError(t, err)

	peak := 0
	for i, r := range res.Residual {
		if math.Abs(r) > math.Abs(res.Residual[peak]) {
			peak = i
		}
	}
	assert.Equal(t, 14, peak)
	assert.Greater(t, res.Residual[14], 200.0)

	// 峰值的移动平均窗口之外，趋势保持在100附近
	for i := 0; i <= 10; i++ {
		assert.InDelta(t, 100, res.Trend[i], 5, "index %d", i)
	}
}

func TestDecomposeExtrapolatesTrendOverOnePeriod(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = float64(i * i)
	}
	res, err := NewDecomposer(7).Decompose(MetricFlightCount, days(21), values)
	require.NoError(t, err)

	// 移动平均为 i*i+4，两端分别用下标 3..9 与 10..16 做直线拟合
	assert.InDelta(t, 13, res.Trend[3], 1e-9)
	assert.InDelta(t, -28, res.Trend[0], 1e-9)
	assert.InDelta(t, -16, res.Trend[1], 1e-9)
	assert.InDelta(t, 293, res.Trend[17], 1e-9)
	assert.InDelta(t, 307, res.Trend[18], 1e-9)
	assert.InDelta(t, 359, res.Trend[20], 1e-9)
}

func TestDecomposeInsufficientData(t *testing.T) {
	values := weeklySeries(2, 0, 1)[:13]
	_, err := NewDecomposer(7).Decompose(MetricFlightCount, days(13), values)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrInsufficientData))
	assert.Contains(t, err.Error(), MetricFlightCount)

	allMissing := make([]float64, 14)
	for i := range allMissing {
		allMissing[i] = math.NaN()
	}
	_, err = NewDecomposer(7).Decompose(MetricDelayIntensity, days(14), allMissing)
	assert.True(t, errors.Is(err, utils.ErrInsufficientData))

	_, err = NewDecomposer(7).Decompose(MetricFlightCount, days(3), values)
	assert.Error(t, err)
}

func TestDecomposeFillsMissingValues(t *testing.T) {
	values := weeklySeries(3, 0, 1)
	values[0] = math.NaN()
	values[10] = math.NaN()

	res, err := NewDecomposer(7).Decompose(MetricDelayIntensity, days(len(values)), values)
	require.NoError(t, err)
	assert.Equal(t, values[1], res.Observed[0])
	assert.Equal(t, values[9], res.Observed[10])
	assert.Equal(t, 0, countNaN(res.Residual))
	// 输入不被修改
	assert.True(t, math.IsNaN(values[0]))
}

func TestDecomposeAll(t *testing.T) {
	counts := make([]int, 28)
	for i := range counts {
		counts[i] = 100
		if i%7 >= 5 {
			counts[i] = 60
		}
	}
	daily := dailySeries(counts...)

	results, failures := NewDecomposer(7).DecomposeAll(daily, []string{MetricFlightCount, MetricAvgAirTime, "gate_delay"})
	require.Contains(t, results, MetricFlightCount)
	require.Contains(t, results, MetricAvgAirTime)
	assert.True(t, errors.Is(failures["gate_delay"], utils.ErrMissingColumn))

	assert.InDelta(t, 1.0, results[MetricFlightCount].SeasonalStrength, 1e-6)
	assert.Equal(t, 0.0, results[MetricAvgAirTime].SeasonalStrength)

	_, failures = NewDecomposer(7).DecomposeAll(daily[:10], []string{MetricFlightCount})
	assert.True(t, errors.Is(failures[MetricFlightCount], utils.ErrInsufficientData))
}

func TestSeasonalStrengthBounds(t *testing.T) {
	assert.Equal(t, 0.0, SeasonalStrength([]float64{0, 0, 0}, []float64{0, 0, 0}))
	assert.Equal(t, 1.0, SeasonalStrength([]float64{1, -1, 1, -1}, []float64{0, 0, 0, 0}))
	// 残差与季节项相互抵消时强度为负，截断到0
	assert.Equal(t, 0.0, SeasonalStrength([]float64{1, -1, 1, -1}, []float64{-1, 1, -1.5, 1.5}))
	// 季节项为0时残差方差等于总方差
	assert.Equal(t, 0.0, SeasonalStrength(make([]float64, 5), []float64{0.3, -1.2, 2.5, 0.1, -0.7}))
}

func TestGaps(t *testing.T) {
	assert.Empty(t, Gaps(days(10)))
	assert.Empty(t, Gaps(nil))
	gaps := Gaps([]time.Time{day(0), day(3), day(4)})
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, formatDates(gaps))
}
