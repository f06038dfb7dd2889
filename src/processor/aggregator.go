package processor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 日度指标列名
const (
	MetricFlightCount           = "flight_count"
	MetricCancellationRate      = "cancellation_rate"
	MetricDelayIntensity        = "delay_intensity"
	MetricOperationalEfficiency = "operational_efficiency"
	MetricAvgAirTime            = "avg_air_time"
)

// MetricNames 日度数值指标，顺序固定
var MetricNames = []string{
	MetricFlightCount,
	MetricCancellationRate,
	MetricDelayIntensity,
	MetricOperationalEfficiency,
	MetricAvgAirTime,
}

// 分组使用的辅助列
const (
	colDate = "date"
	colFlag = "cancelled_flag"
)

// DailyMetric 一个日历日的聚合结果
type DailyMetric struct {
	Date                  time.Time
	FlightCount           int
	CancellationRate      float64 // [0,1]
	DelayIntensity        float64 // 分钟，仅天气+前序航班晚到；无有效行时为NaN
	OperationalEfficiency float64 // 每1000英里空中分钟数；无 distance>0 的行时为NaN
	AvgAirTime            float64
}

func (d DailyMetric) DayOfWeek() time.Weekday { return d.Date.Weekday() }

func (d DailyMetric) IsWeekend() bool {
	wd := d.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Value 按指标名取值
func (d DailyMetric) Value(metric string) (float64, bool) {
	switch metric {
	case MetricFlightCount:
		return float64(d.FlightCount), true
	case MetricCancellationRate:
		return d.CancellationRate, true
	case MetricDelayIntensity:
		return d.DelayIntensity, true
	case MetricOperationalEfficiency:
		return d.OperationalEfficiency, true
	case MetricAvgAirTime:
		return d.AvgAirTime, true
	}
	return 0, false
}

// DailyMetrics 按日期升序且不重复
type DailyMetrics []DailyMetric

// Column 取一列指标
func (m DailyMetrics) Column(metric string) ([]float64, error) {
	out := make([]float64, len(m))
	for i, d := range m {
		v, ok := d.Value(metric)
		if !ok {
			return nil, utils.NewAnalysisError("daily metrics", metric, utils.ErrMissingColumn)
		}
		out[i] = v
	}
	return out, nil
}

func (m DailyMetrics) Dates() []time.Time {
	out := make([]time.Time, len(m))
	for i, d := range m {
		out[i] = d.Date
	}
	return out
}

// TotalFlights 各日航班数之和，等于原始行数
func (m DailyMetrics) TotalFlights() int {
	total := 0
	for _, d := range m {
		total += d.FlightCount
	}
	return total
}

// Frame 转为DataFrame，供导出与程序化使用
func (m DailyMetrics) Frame() dataframe.DataFrame {
	n := len(m)
	dates := make([]string, n)
	counts := make([]int, n)
	rates := make([]float64, n)
	delays := make([]float64, n)
	effs := make([]float64, n)
	air := make([]float64, n)
	dows := make([]string, n)
	weekend := make([]bool, n)
	for i, d := range m {
		dates[i] = d.Date.Format("2006-01-02")
		counts[i] = d.FlightCount
		rates[i] = d.CancellationRate
		delays[i] = d.DelayIntensity
		effs[i] = d.OperationalEfficiency
		air[i] = d.AvgAirTime
		dows[i] = d.DayOfWeek().String()
		weekend[i] = d.IsWeekend()
	}
	return dataframe.New(
		series.New(dates, series.String, colDate),
		series.New(counts, series.Int, MetricFlightCount),
		series.New(rates, series.Float, MetricCancellationRate),
		series.New(delays, series.Float, MetricDelayIntensity),
		series.New(effs, series.Float, MetricOperationalEfficiency),
		series.New(air, series.Float, MetricAvgAirTime),
		series.New(dows, series.String, "day_of_week"),
		series.New(weekend, series.Bool, "is_weekend"),
	)
}

// Aggregate 按日历日分组计算日度指标；没有航班的日期不补行
func Aggregate(df dataframe.DataFrame) (DailyMetrics, error) {
	if missing := utils.MissingColumns(df,
		utils.ColFlightDate, utils.ColCancelled, utils.ColAirTime, utils.ColDistance,
		utils.ColWeatherDelay, utils.ColLateAircraftDelay); len(missing) > 0 {
		return nil, utils.NewAnalysisError("aggregate", strings.Join(missing, ","), utils.ErrMissingColumn)
	}
	if df.Nrow() == 0 {
		return DailyMetrics{}, nil
	}

	keyed, err := withGroupKeys(df)
	if err != nil {
		return nil, err
	}

	grouped := keyed.GroupBy(colDate)
	if grouped.Err != nil {
		return nil, fmt.Errorf("aggregate: %w", grouped.Err)
	}
	groups := grouped.GetGroups()
	daily := make(DailyMetrics, 0, len(groups))
	for _, g := range groups {
		date, err := time.Parse("2006-01-02", g.Col(colDate).Elem(0).String())
		if err != nil {
			return nil, fmt.Errorf("aggregate: group key: %w", err)
		}
		daily = append(daily, aggregateDay(date, g))
	}

	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	return daily, nil
}

// withGroupKeys 追加规范化日期列与取消标志列
func withGroupKeys(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	rawDates := df.Col(utils.ColFlightDate).Records()
	rawFlags := df.Col(utils.ColCancelled).Records()

	dates := make([]string, len(rawDates))
	flags := make([]float64, len(rawFlags))
	for i := range rawDates {
		d, err := utils.ParseDate(rawDates[i])
		if err != nil {
			return dataframe.DataFrame{}, utils.NewAnalysisError("aggregate", fmt.Sprintf("%s row %d", utils.ColFlightDate, i), err)
		}
		dates[i] = d.Format("2006-01-02")

		f, err := parseFlag(rawFlags[i])
		if err != nil {
			return dataframe.DataFrame{}, utils.NewAnalysisError("aggregate", fmt.Sprintf("%s row %d", utils.ColCancelled, i), err)
		}
		flags[i] = f
	}

	out := df.Mutate(series.New(dates, series.String, colDate)).
		Mutate(series.New(flags, series.Float, colFlag))
	if out.Err != nil {
		return dataframe.DataFrame{}, out.Err
	}
	return out, nil
}

func aggregateDay(date time.Time, g dataframe.DataFrame) DailyMetric {
	flags := columnValues(g.Col(colFlag))
	airTime := columnValues(g.Col(utils.ColAirTime))
	distance := columnValues(g.Col(utils.ColDistance))
	weather := columnValues(g.Col(utils.ColWeatherDelay))
	late := columnValues(g.Col(utils.ColLateAircraftDelay))

	var delays, effs []float64
	for i := range flags {
		if !math.IsNaN(weather[i]) && !math.IsNaN(late[i]) {
			delays = append(delays, weather[i]+late[i])
		}
		// distance 为0的行不参与，避免除零
		if distance[i] > 0 && !math.IsNaN(airTime[i]) {
			effs = append(effs, airTime[i]/distance[i]*1000)
		}
	}

	return DailyMetric{
		Date:                  date,
		FlightCount:           g.Nrow(),
		CancellationRate:      mean(flags),
		DelayIntensity:        mean(delays),
		OperationalEfficiency: mean(effs),
		AvgAirTime:            mean(present(airTime)),
	}
}

// parseFlag 取消标志：0/1、0.0/1.0、true/false
func parseFlag(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || (f != 0 && f != 1) {
		return 0, fmt.Errorf("invalid cancellation flag %q", s)
	}
	return f, nil
}
