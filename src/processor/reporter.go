package processor

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Weekdays 周一开始
var Weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// 洞察类别
const (
	InsightVolumeTrend    = "volume_trend"
	InsightBusiestDay     = "busiest_day"
	InsightQuietestDay    = "quietest_day"
	InsightWeekendWeekday = "weekend_vs_weekday"
	InsightReliability    = "reliability"
	InsightSeasonality    = "seasonality"
	InsightTrend          = "trend"
	InsightRecommendation = "recommendation"
)

// DayOfWeekStats 单个指标按星期的统计，数组下标与 Weekdays 一致
type DayOfWeekStats struct {
	Metric     string
	Count      [7]int
	Mean       [7]float64 // 无数据的桶为NaN
	Std        [7]float64
	Min        [7]float64
	Max        [7]float64
	MaxDay     time.Weekday
	MinDay     time.Weekday
	WeekdayAvg float64
	WeekendAvg float64
	PctDiff    float64 // (weekday-weekend)/weekend*100
	PctDiffErr error   // 周末均值为0时为 ErrDivisionUndefined
}

// PctDiffString 不可计算时返回 "undefined"
func (s *DayOfWeekStats) PctDiffString() string {
	if s.PctDiffErr != nil {
		return "undefined"
	}
	return fmt.Sprintf("%+.1f%%", s.PctDiff)
}

// DayOfWeek 计算某指标按星期的均值，并比较工作日与周末
func DayOfWeek(daily DailyMetrics, metric string) (*DayOfWeekStats, error) {
	var buckets [7][]float64
	var weekday, weekend []float64
	for _, d := range daily {
		v, ok := d.Value(metric)
		if !ok {
			return nil, utils.NewAnalysisError("day of week", metric, utils.ErrMissingColumn)
		}
		if math.IsNaN(v) {
			continue
		}
		idx := (int(d.DayOfWeek()) + 6) % 7
		buckets[idx] = append(buckets[idx], v)
		if d.IsWeekend() {
			weekend = append(weekend, v)
		} else {
			weekday = append(weekday, v)
		}
	}

	s := &DayOfWeekStats{Metric: metric}
	maxIdx, minIdx := -1, -1
	for i, b := range buckets {
		s.Count[i] = len(b)
		s.Mean[i] = mean(b)
		s.Std[i] = stdDev(b)
		s.Min[i], s.Max[i] = minMax(b)
		if len(b) == 0 {
			continue
		}
		if maxIdx < 0 || s.Mean[i] > s.Mean[maxIdx] {
			maxIdx = i
		}
		if minIdx < 0 || s.Mean[i] < s.Mean[minIdx] {
			minIdx = i
		}
	}
	if maxIdx < 0 {
		return nil, utils.NewAnalysisError("day of week", metric, utils.ErrInsufficientData)
	}
	s.MaxDay, s.MinDay = Weekdays[maxIdx], Weekdays[minIdx]

	s.WeekdayAvg = mean(weekday)
	s.WeekendAvg = mean(weekend)
	s.PctDiff, s.PctDiffErr = pctDiff(s.WeekdayAvg, s.WeekendAvg)
	return s, nil
}

func pctDiff(weekdayAvg, weekendAvg float64) (float64, error) {
	if weekendAvg == 0 || math.IsNaN(weekendAvg) || math.IsNaN(weekdayAvg) {
		return math.NaN(), utils.NewAnalysisError("weekday vs weekend", "weekend_avg", utils.ErrDivisionUndefined)
	}
	return (weekdayAvg - weekendAvg) / weekendAvg * 100, nil
}

// DayOfWeekTable 星期统计表：flight_count 含 mean/std/min/max，其余指标含 mean/std
func DayOfWeekTable(daily DailyMetrics, metrics []string) (dataframe.DataFrame, error) {
	names := make([]string, 7)
	for i, wd := range Weekdays {
		names[i] = wd.String()
	}
	cols := []series.Series{series.New(names, series.String, "day_name")}

	for _, metric := range metrics {
		s, err := DayOfWeek(daily, metric)
		if errors.Is(err, utils.ErrInsufficientData) {
			// 整列无值时输出空列
			s = emptyDayOfWeek(metric)
		} else if err != nil {
			return dataframe.DataFrame{}, err
		}
		cols = append(cols,
			series.New(roundAll(s.Mean[:], 3), series.Float, "mean_"+metric),
			series.New(roundAll(s.Std[:], 3), series.Float, "std_"+metric),
		)
		if metric == MetricFlightCount {
			cols = append(cols,
				series.New(roundAll(s.Min[:], 3), series.Float, "min_"+metric),
				series.New(roundAll(s.Max[:], 3), series.Float, "max_"+metric),
			)
		}
	}
	return dataframe.New(cols...), nil
}

func emptyDayOfWeek(metric string) *DayOfWeekStats {
	s := &DayOfWeekStats{Metric: metric}
	for i := range Weekdays {
		s.Mean[i], s.Std[i], s.Min[i], s.Max[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	return s
}

func roundAll(xs []float64, places int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = round(x, places)
	}
	return out
}

// Insight 一条文字结论
type Insight struct {
	Category string
	Metric   string
	Text     string
}

// SummaryInsight 按生成顺序排列
type SummaryInsight []Insight

// Get 返回某类别(及指标)的第一条结论
func (s SummaryInsight) Get(category, metric string) (string, bool) {
	for _, in := range s {
		if in.Category == category && in.Metric == metric {
			return in.Text, true
		}
	}
	return "", false
}

// Reporter 根据配置阈值生成文字结论
type Reporter struct {
	Thresholds config.Thresholds
}

func NewReporter(t config.Thresholds) *Reporter {
	return &Reporter{Thresholds: t}
}

// SeasonalClass 季节强度分级
func (r *Reporter) SeasonalClass(strength float64) string {
	switch {
	case strength < r.Thresholds.WeakSeasonal:
		return "weak"
	case strength < r.Thresholds.ModerateSeasonal:
		return "moderate"
	case strength < r.Thresholds.StrongSeasonal:
		return "strong"
	default:
		return "very strong"
	}
}

// TrendLabel 斜率绝对值不超过 epsilon 视为平稳
func (r *Reporter) TrendLabel(slope float64) string {
	switch {
	case slope > r.Thresholds.TrendEpsilon:
		return "increasing"
	case slope < -r.Thresholds.TrendEpsilon:
		return "decreasing"
	default:
		return "stable"
	}
}

// Insights 汇总日度指标与分解结果生成结论
func (r *Reporter) Insights(daily DailyMetrics, results map[string]*Decomposition, metrics []string) (SummaryInsight, error) {
	if len(daily) == 0 {
		return nil, utils.NewAnalysisError("insights", MetricFlightCount, utils.ErrInsufficientData)
	}

	var out SummaryInsight
	add := func(category, metric, format string, args ...any) {
		out = append(out, Insight{Category: category, Metric: metric, Text: fmt.Sprintf(format, args...)})
	}

	counts, _ := daily.Column(MetricFlightCount)
	volume := r.TrendLabel(meanDiff(counts))
	add(InsightVolumeTrend, "", "Flight volume is %s (mean day-over-day change %+.2f flights)", volume, meanDiff(counts))

	volumeStats, err := DayOfWeek(daily, MetricFlightCount)
	if err != nil {
		return nil, err
	}
	add(InsightBusiestDay, "", "%s", volumeStats.MaxDay)
	add(InsightQuietestDay, "", "%s", volumeStats.MinDay)
	add(InsightWeekendWeekday, "", "weekday avg %.1f flights, weekend avg %.1f flights, difference %s",
		volumeStats.WeekdayAvg, volumeStats.WeekendAvg, volumeStats.PctDiffString())

	cancelStats, err := DayOfWeek(daily, MetricCancellationRate)
	if err != nil {
		return nil, err
	}
	rates, _ := daily.Column(MetricCancellationRate)
	overall := mean(present(rates))
	add(InsightReliability, "", "overall cancellation rate %.2f%%, highest on %s (%.2f%%)",
		overall*100, cancelStats.MaxDay, cancelStats.Mean[(int(cancelStats.MaxDay)+6)%7]*100)

	for _, metric := range metrics {
		res, ok := results[metric]
		if !ok {
			continue
		}
		add(InsightSeasonality, metric, "%s weekly seasonality (strength %.3f)",
			r.SeasonalClass(res.SeasonalStrength), res.SeasonalStrength)
		add(InsightTrend, metric, "%s (slope %+.4f per day)", r.TrendLabel(res.TrendSlope), res.TrendSlope)
	}

	for _, rec := range r.recommendations(volumeStats, overall, cancelStats, results) {
		add(InsightRecommendation, "", "%s", rec)
	}
	return out, nil
}

func (r *Reporter) recommendations(volume *DayOfWeekStats, cancelRate float64, cancel *DayOfWeekStats, results map[string]*Decomposition) []string {
	var recs []string
	t := r.Thresholds

	if res, ok := results[MetricFlightCount]; ok && res.SeasonalStrength >= t.WeakSeasonal {
		recs = append(recs, fmt.Sprintf("Plan staffing around the weekly cycle: %s peaks and %s is the lightest day",
			volume.MaxDay, volume.MinDay))
	}
	if volume.PctDiffErr == nil && math.Abs(volume.PctDiff) > t.WeekendGapPct {
		side := "weekdays"
		if volume.PctDiff < 0 {
			side = "weekends"
		}
		recs = append(recs, fmt.Sprintf("Traffic is concentrated on %s (%s); shift maintenance windows to the lighter period",
			side, volume.PctDiffString()))
	}
	if cancelRate > t.HighCancellation {
		recs = append(recs, fmt.Sprintf("Cancellation rate %.2f%% exceeds %.2f%%; review %s operations first",
			cancelRate*100, t.HighCancellation*100, cancel.MaxDay))
	}
	if res, ok := results[MetricDelayIntensity]; ok && r.TrendLabel(res.TrendSlope) == "increasing" {
		recs = append(recs, "Weather and late-aircraft delay per flight is rising; add turnaround buffer on affected rotations")
	}
	if res, ok := results[MetricOperationalEfficiency]; ok && r.TrendLabel(res.TrendSlope) == "increasing" {
		recs = append(recs, "Air minutes per 1000 miles are rising; check routing and congestion")
	}
	if len(recs) == 0 {
		recs = append(recs, "No pronounced weekly or trend pattern; keep the current schedule")
	}
	return recs
}

// meanDiff 相邻两日差值的均值
func meanDiff(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	diffs := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		diffs = append(diffs, xs[i]-xs[i-1])
	}
	return mean(present(diffs))
}

// String 每行一条结论
func (s SummaryInsight) String() string {
	var b strings.Builder
	for _, in := range s {
		label := in.Category
		if in.Metric != "" {
			label += "[" + in.Metric + "]"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, in.Text)
	}
	return b.String()
}
