package processor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Analysis 分析名称 -> 结果表
type Analysis map[string]dataframe.DataFrame

// 描述性分析结果表名称
const (
	TableFlightsPerDOW        = "flights_per_dow"
	TableFlightsPerMonth      = "flights_per_month"
	TableFlightsPerAirport    = "flights_per_airport"
	TableCancellationRate     = "cancellation_rate"
	TableCancelByMonth        = "cancel_by_month"
	TableCancelByOrigin       = "cancel_by_origin"
	TableDurationDistance     = "duration_distance_summary"
	TableDelaySummary         = "delay_summary"
	TableDelayTotals          = "delay_totals"
	TableAirportPerformance   = "airport_performance"
	TableMonthlyDelays        = "monthly_delays"
	TableDailyMetrics         = "daily_metrics"
	TableDayOfWeekPatterns    = "day_of_week_patterns"
	TableDecompositionSummary = "decomposition_summary"
)

var describeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe 描述性分析：按时间、机场、取消、时长距离、延误
func Describe(df dataframe.DataFrame) (Analysis, error) {
	if missing := utils.MissingColumns(df, utils.RequiredColumns...); len(missing) > 0 {
		return nil, utils.NewAnalysisError("describe", strings.Join(missing, ","), utils.ErrMissingColumn)
	}
	keyed, err := withGroupKeys(df)
	if err != nil {
		return nil, err
	}
	keyed = keyed.Mutate(series.New(monthsOf(keyed), series.Int, "month_no")).
		Mutate(series.New(origins(keyed), series.String, utils.ColOrigin))
	if keyed.Err != nil {
		return nil, keyed.Err
	}

	out := Analysis{}
	out[TableFlightsPerDOW] = flightsPerDOW(keyed)
	out[TableFlightsPerMonth] = countBy(keyed, "month_no", "month", "flights", false)
	out[TableFlightsPerAirport] = countBy(keyed, utils.ColOrigin, "origin", "flights", true)

	flags := columnValues(keyed.Col(colFlag))
	out[TableCancellationRate] = dataframe.New(
		series.New([]float64{round(mean(flags)*100, 2)}, series.Float, "cancel_rate_pct"),
	)
	cancelled := keyed.Filter(dataframe.F{Colname: colFlag, Comparator: series.Eq, Comparando: 1.0})
	out[TableCancelByMonth] = countBy(cancelled, "month_no", "month", "cancellations", false)
	out[TableCancelByOrigin] = countBy(cancelled, utils.ColOrigin, "origin", "cancellations", true)

	out[TableDurationDistance] = summarize(keyed, []string{utils.ColAirTime, utils.ColTaxiOut, utils.ColTaxiIn, utils.ColDistance})
	delayCols := []string{utils.ColWeatherDelay, utils.ColLateAircraftDelay}
	out[TableDelaySummary] = summarize(keyed, delayCols)
	out[TableDelayTotals] = totals(keyed, delayCols)

	perf := groupMeans(keyed, utils.ColOrigin, "origin",
		[]string{utils.ColAirTime, utils.ColTaxiOut, utils.ColWeatherDelay, utils.ColLateAircraftDelay})
	out[TableAirportPerformance] = perf.Arrange(dataframe.RevSort(utils.ColWeatherDelay))
	out[TableMonthlyDelays] = groupMeans(keyed, "month_no", "month", delayCols).Arrange(dataframe.Sort("month"))

	for name, t := range out {
		if t.Err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, t.Err)
		}
	}
	return out, nil
}

func monthsOf(df dataframe.DataFrame) []int {
	dates := df.Col(colDate).Records()
	months := make([]int, len(dates))
	for i, d := range dates {
		t, _ := time.Parse("2006-01-02", d)
		months[i] = int(t.Month())
	}
	return months
}

// origins 缺失的机场代码记为 UNKNOWN，分组键不能为空
func origins(df dataframe.DataFrame) []string {
	col := df.Col(utils.ColOrigin)
	out := make([]string, col.Len())
	for i := range out {
		if e := col.Elem(i); e.IsNA() || strings.TrimSpace(e.String()) == "" {
			out[i] = "UNKNOWN"
		} else {
			out[i] = strings.TrimSpace(e.String())
		}
	}
	return out
}

func flightsPerDOW(df dataframe.DataFrame) dataframe.DataFrame {
	var counts [7]int
	for _, d := range df.Col(colDate).Records() {
		t, _ := time.Parse("2006-01-02", d)
		counts[(int(t.Weekday())+6)%7]++
	}
	names := make([]string, 7)
	for i, wd := range Weekdays {
		names[i] = wd.String()[:3]
	}
	return dataframe.New(
		series.New(names, series.String, "day_of_week"),
		series.New(counts[:], series.Int, "flights"),
	)
}

// countBy 分组计数；byCount 为true时按计数降序，否则按键升序
func countBy(df dataframe.DataFrame, col, keyName, countName string, byCount bool) dataframe.DataFrame {
	counts := map[string]int{}
	for _, k := range df.Col(col).Records() {
		counts[k]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if byCount && counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return lessKey(keys[i], keys[j])
	})

	values := make([]int, len(keys))
	for i, k := range keys {
		values[i] = counts[k]
	}
	keyType := series.String
	if col == "month_no" {
		keyType = series.Int
	}
	return dataframe.New(
		series.New(keys, keyType, keyName),
		series.New(values, series.Int, countName),
	)
}

// lessKey 数字键按数值比较
func lessKey(a, b string) bool {
	var x, y int
	if _, err := fmt.Sscan(a, &x); err == nil {
		if _, err := fmt.Sscan(b, &y); err == nil {
			return x < y
		}
	}
	return a < b
}

// summarize 等价于 describe()：每列一组统计量
func summarize(df dataframe.DataFrame, cols []string) dataframe.DataFrame {
	out := []series.Series{series.New(describeStats, series.String, "stat")}
	for _, col := range cols {
		xs := present(columnValues(df.Col(col)))
		lo, hi := minMax(xs)
		values := []float64{
			float64(len(xs)), mean(xs), stdDev(xs), lo,
			quantile(xs, 0.25), quantile(xs, 0.5), quantile(xs, 0.75), hi,
		}
		out = append(out, series.New(roundAll(values, 2), series.Float, col))
	}
	return dataframe.New(out...)
}

func totals(df dataframe.DataFrame, cols []string) dataframe.DataFrame {
	sums := make([]float64, len(cols))
	for i, col := range cols {
		for _, x := range present(columnValues(df.Col(col))) {
			sums[i] += x
		}
	}
	return dataframe.New(
		series.New(cols, series.String, "delay"),
		series.New(sums, series.Float, "total_minutes"),
	)
}

// groupMeans 按键分组，对每列取非缺失值均值
func groupMeans(df dataframe.DataFrame, key, keyName string, cols []string) dataframe.DataFrame {
	grouped := df.GroupBy(key)
	if grouped.Err != nil {
		return dataframe.DataFrame{Err: grouped.Err}
	}
	groups := grouped.GetGroups()
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	keyValues := make([]string, len(keys))
	means := make([][]float64, len(cols))
	for c := range cols {
		means[c] = make([]float64, len(keys))
	}
	for i, k := range keys {
		g := groups[k]
		keyValues[i] = g.Col(key).Elem(0).String()
		for c, col := range cols {
			means[c][i] = round(mean(present(columnValues(g.Col(col)))), 2)
		}
	}

	keyType := series.String
	if key == "month_no" {
		keyType = series.Int
	}
	out := []series.Series{series.New(keyValues, keyType, keyName)}
	for c, col := range cols {
		out = append(out, series.New(means[c], series.Float, col))
	}
	return dataframe.New(out...)
}

// DecompositionTable 每个指标一行：强度、斜率与残差最大值
func DecompositionTable(results map[string]*Decomposition, metrics []string) dataframe.DataFrame {
	var names []string
	var strength, slopes, maxResid []float64
	for _, m := range metrics {
		r, ok := results[m]
		if !ok {
			continue
		}
		names = append(names, m)
		strength = append(strength, round(r.SeasonalStrength, 4))
		slopes = append(slopes, round(r.TrendSlope, 6))
		peak := 0.0
		for _, x := range r.Residual {
			peak = math.Max(peak, math.Abs(x))
		}
		maxResid = append(maxResid, round(peak, 4))
	}
	return dataframe.New(
		series.New(names, series.String, "metric"),
		series.New(strength, series.Float, "seasonal_strength"),
		series.New(slopes, series.Float, "trend_slope"),
		series.New(maxResid, series.Float, "max_abs_residual"),
	)
}
