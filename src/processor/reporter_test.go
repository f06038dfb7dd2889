package processor

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busyWeekends 工作日10班，周末20班
func busyWeekends(weeks int) DailyMetrics {
	counts := make([]int, weeks*7)
	for i := range counts {
		counts[i] = 10
		if i%7 >= 5 {
			counts[i] = 20
		}
	}
	return dailySeries(counts...)
}

func TestDayOfWeekMondayFirst(t *testing.T) {
	s, err := DayOfWeek(busyWeekends(2), MetricFlightCount)
	require.NoError(t, err)

	assert.Equal(t, [7]int{2, 2, 2, 2, 2, 2, 2}, s.Count)
	assert.Equal(t, 10.0, s.Mean[0])
	assert.Equal(t, 20.0, s.Mean[5])
	assert.Equal(t, 20.0, s.Mean[6])
	assert.Equal(t, time.Saturday, s.MaxDay)
	assert.Equal(t, time.Monday, s.MinDay)
	assert.Equal(t, 10.0, s.WeekdayAvg)
	assert.Equal(t, 20.0, s.WeekendAvg)
	require.NoError(t, s.PctDiffErr)
	assert.InDelta(t, -50.0, s.PctDiff, 1e-9)
	assert.Equal(t, "-50.0%", s.PctDiffString())
}

func TestDayOfWeekUndefinedDifference(t *testing.T) {
	daily := busyWeekends(1)
	for i := range daily {
		if daily[i].IsWeekend() {
			daily[i].CancellationRate = 0
		} else {
			daily[i].CancellationRate = 0.1
		}
	}
	s, err := DayOfWeek(daily, MetricCancellationRate)
	require.NoError(t, err)
	assert.True(t, errors.Is(s.PctDiffErr, utils.ErrDivisionUndefined))
	assert.True(t, math.IsNaN(s.PctDiff))
	assert.Equal(t, "undefined", s.PctDiffString())
}

func TestDayOfWeekSkipsMissingValues(t *testing.T) {
	daily := busyWeekends(1)
	for i := range daily {
		daily[i].DelayIntensity = math.NaN()
	}
	daily[2].DelayIntensity = 12

	s, err := DayOfWeek(daily, MetricDelayIntensity)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count[2])
	assert.Equal(t, 0, s.Count[0])
	assert.True(t, math.IsNaN(s.Mean[0]))
	assert.Equal(t, time.Wednesday, s.MaxDay)
	assert.True(t, errors.Is(s.PctDiffErr, utils.ErrDivisionUndefined))

	for i := range daily {
		daily[i].DelayIntensity = math.NaN()
	}
	_, err = DayOfWeek(daily, MetricDelayIntensity)
	assert.True(t, errors.Is(err, utils.ErrInsufficientData))
}

func TestDayOfWeekTable(t *testing.T) {
	df, err := DayOfWeekTable(busyWeekends(2), MetricNames)
	require.NoError(t, err)
	require.NoError(t, df.Err)

	assert.Equal(t, 7, df.Nrow())
	assert.Equal(t, "Monday", df.Col("day_name").Elem(0).String())
	assert.Equal(t, "Sunday", df.Col("day_name").Elem(6).String())
	assert.Equal(t, 20.0, df.Col("max_flight_count").Elem(6).Float())
	assert.Contains(t, df.Names(), "mean_operational_efficiency")
	assert.NotContains(t, df.Names(), "min_avg_air_time")
}

func TestSeasonalClassAndTrendLabel(t *testing.T) {
	r := NewReporter(config.DefaultDataConfig().Thresholds)

	for strength, want := range map[float64]string{
		0: "weak", 0.1: "weak", 0.2: "moderate", 0.3: "moderate",
		0.5: "strong", 0.6: "strong", 0.8: "very strong", 1: "very strong",
	} {
		assert.Equal(t, want, r.SeasonalClass(strength), "strength %v", strength)
	}

	assert.Equal(t, "increasing", r.TrendLabel(0.5))
	assert.Equal(t, "decreasing", r.TrendLabel(-0.02))
	assert.Equal(t, "stable", r.TrendLabel(0.01))
	assert.Equal(t, "stable", r.TrendLabel(-0.005))
}

func TestInsights(t *testing.T) {
	daily := busyWeekends(4)
	for i := range daily {
		daily[i].FlightCount += i
		if daily[i].Date.Weekday() == time.Friday {
			daily[i].CancellationRate = 0.5
		}
	}
	results, failures := NewDecomposer(7).DecomposeAll(daily, MetricNames)
	require.Empty(t, failures)

	r := NewReporter(config.DefaultDataConfig().Thresholds)
	insights, err := r.Insights(daily, results, MetricNames)
	require.NoError(t, err)

	text, ok := insights.Get(InsightVolumeTrend, "")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "Flight volume is increasing"), text)

	text, _ = insights.Get(InsightBusiestDay, "")
	assert.Equal(t, "Sunday", text)
	text, _ = insights.Get(InsightQuietestDay, "")
	assert.Equal(t, "Monday", text)

	text, _ = insights.Get(InsightReliability, "")
	assert.Contains(t, text, "Friday")

	text, ok = insights.Get(InsightSeasonality, MetricFlightCount)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "very strong"), text)

	text, ok = insights.Get(InsightTrend, MetricFlightCount)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "increasing"), text)

	var recs []string
	for _, in := range insights {
		if in.Category == InsightRecommendation {
			recs = append(recs, in.Text)
		}
	}
	require.NotEmpty(t, recs)
	assert.Contains(t, strings.Join(recs, "\n"), "weekends")
	assert.Contains(t, strings.Join(recs, "\n"), "Cancellation rate")

	assert.Contains(t, insights.String(), "seasonality[flight_count]: ")
}

func TestInsightsEmpty(t *testing.T) {
	_, err := NewReporter(config.DefaultDataConfig().Thresholds).Insights(nil, nil, MetricNames)
	assert.True(t, errors.Is(err, utils.ErrInsufficientData))
}

func TestInsightsQuietSchedule(t *testing.T) {
	daily := dailySeries(make([]int, 21)...)
	for i := range daily {
		daily[i].FlightCount = 50
	}
	results, _ := NewDecomposer(7).DecomposeAll(daily, MetricNames)
	insights, err := NewReporter(config.DefaultDataConfig().Thresholds).Insights(daily, results, MetricNames)
	require.NoError(t, err)

	text, _ := insights.Get(InsightRecommendation, "")
	assert.Equal(t, "No pronounced weekly or trend pattern; keep the current schedule", text)
	text, _ = insights.Get(InsightVolumeTrend, "")
	assert.True(t, strings.HasPrefix(text, "Flight volume is stable"), text)
}

func TestDayOfWeekTableEmptyMetric(t *testing.T) {
	daily := busyWeekends(1)
	for i := range daily {
		daily[i].DelayIntensity = math.NaN()
	}
	df, err := DayOfWeekTable(daily, MetricNames)
	require.NoError(t, err)
	assert.Equal(t, 7, countNaN(df.Col("mean_delay_intensity").Float()))
	assert.Equal(t, 10.0, df.Col("mean_flight_count").Elem(0).Float())
}
