package processor

import (
	"math"
	"testing"
	"time"

	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

// flight 测试用的一行数据，字段为空时取默认值
type flight struct {
	date      string
	origin    string
	depTime   string
	taxiOut   string
	airTime   string
	distance  string
	weather   string
	late      string
	cancelled string
}

func (f flight) record() []string {
	or := func(v, def string) string {
		if v == "-" {
			return ""
		}
		if v == "" {
			return def
		}
		return v
	}
	return []string{
		f.date,
		f.origin,
		or(f.depTime, "900"),
		or(f.taxiOut, "12"),
		"915",
		"1030",
		"6",
		or(f.airTime, "75"),
		or(f.distance, "500"),
		or(f.weather, "0"),
		or(f.late, "0"),
		or(f.cancelled, "0"),
	}
}

// frame 按读取器相同的列类型构造DataFrame；字段写 "-" 表示缺失
func frame(t *testing.T, rows ...flight) dataframe.DataFrame {
	t.Helper()
	records := [][]string{utils.RequiredColumns}
	for _, r := range rows {
		records = append(records, r.record())
	}

	types := map[string]series.Type{
		utils.ColFlightDate: series.String,
		utils.ColOrigin:     series.String,
		utils.ColCancelled:  series.String,
	}
	for _, col := range utils.FloatColumns {
		types[col] = series.Float
	}
	df := dataframe.LoadRecords(records,
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{""}),
	)
	require.NoError(t, df.Err)
	return df
}

// day 2024-01-01 是周一
func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

// dailySeries 按给定航班数构造日度序列，其余指标取固定值
func dailySeries(counts ...int) DailyMetrics {
	out := make(DailyMetrics, len(counts))
	for i, c := range counts {
		out[i] = DailyMetric{
			Date:                  day(i),
			FlightCount:           c,
			CancellationRate:      0,
			DelayIntensity:        5,
			OperationalEfficiency: 150,
			AvgAirTime:            75,
		}
	}
	return out
}

func countNaN(xs []float64) int {
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) {
			n++
		}
	}
	return n
}

func formatDates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format("2006-01-02")
	}
	return out
}
