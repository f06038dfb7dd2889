package visual

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/processor"
	"FlightPatterns/src/storage"
	"FlightPatterns/src/utils"

	"gonum.org/v1/plot"
)

// 输出文件名
const (
	FileFlightsByDOW       = "flights_by_dow.png"
	FileFlightsByAirport   = "flights_by_airport.png"
	FileCancellation       = "cancellation_analysis.png"
	FileAirportPerformance = "airport_performance.png"
	FileMonthlyDelays      = "monthly_delays_comparison.png"
	FileWeeklyPatterns     = "weekly_patterns_analysis.png"
	FileDurationDistance   = "duration_distance_heatmap.png"
	FileDelayHeatmap       = "delay_heatmap.png"
)

// DecompositionFile seasonal_decomp_<metric>_weekly.png
func DecompositionFile(metric string) string {
	return fmt.Sprintf("seasonal_decomp_%s_weekly.png", metric)
}

// Renderer 把分析结果画成PNG；所有样式来自 Theme
type Renderer struct {
	theme  Theme
	outDir string
	topN   int
	logger *storage.Logger
}

func NewRenderer(cfg config.Theme, outDir string, topN int, logger *storage.Logger) (*Renderer, error) {
	theme, err := NewTheme(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	if logger == nil {
		logger = storage.Discard()
	}
	return &Renderer{theme: theme, outDir: outDir, topN: topN, logger: logger}, nil
}

// RenderAll 输出全部图表。单张图失败不影响其他图，错误合并返回
func (r *Renderer) RenderAll(report *processor.Report) ([]string, error) {
	type chart struct {
		name string
		draw func() (string, error)
	}
	a := report.Analysis
	charts := []chart{
		{FileFlightsByDOW, func() (string, error) { return r.FlightsByDOW(a) }},
		{FileFlightsByAirport, func() (string, error) { return r.FlightsByAirport(a) }},
		{FileCancellation, func() (string, error) { return r.CancellationAnalysis(a) }},
		{FileAirportPerformance, func() (string, error) { return r.AirportPerformance(a) }},
		{FileMonthlyDelays, func() (string, error) { return r.MonthlyDelays(a) }},
		{FileWeeklyPatterns, func() (string, error) { return r.WeeklyPatterns(a) }},
		{FileDurationDistance, func() (string, error) { return r.DurationDistanceHeatmap(a) }},
		{FileDelayHeatmap, func() (string, error) { return r.DelayHeatmap(a) }},
	}

	metrics := make([]string, 0, len(report.Decompositions))
	for m := range report.Decompositions {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	for _, m := range metrics {
		d := report.Decompositions[m]
		charts = append(charts, chart{DecompositionFile(m), func() (string, error) { return r.Decomposition(d) }})
	}

	var (
		paths []string
		errs  []error
	)
	for _, c := range charts {
		start := time.Now()
		path, err := c.draw()
		if err != nil {
			r.logger.Error("render failed", "chart", c.name, "error", err)
			errs = append(errs, err)
			continue
		}
		r.logger.Debug("chart written", "path", path, "elapsed", time.Since(start))
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

// FlightsByDOW 左：按星期的航班数；右：按月的航班数
func (r *Renderer) FlightsByDOW(a processor.Analysis) (string, error) {
	days, counts, err := column(a[processor.TableFlightsPerDOW], processor.TableFlightsPerDOW, "day_of_week", "flights", 0)
	if err != nil {
		return "", err
	}
	months, monthly, err := column(a[processor.TableFlightsPerMonth], processor.TableFlightsPerMonth, "month", "flights", 0)
	if err != nil {
		return "", err
	}

	left, err := barPlot("Flights by Day of Week", "Day of Week", "Number of Flights", days,
		r.panelWidth(2), bar{values: counts, color: r.theme.Color(0)})
	if err != nil {
		return "", err
	}
	right, err := barPlot("Flights by Month", "Month", "Number of Flights", monthNames(months),
		r.panelWidth(2), bar{values: monthly, color: r.theme.Color(1)})
	if err != nil {
		return "", err
	}
	return r.save(FileFlightsByDOW, [][]*plot.Plot{{left, right}})
}

// FlightsByAirport 航班数最多的前N个机场
func (r *Renderer) FlightsByAirport(a processor.Analysis) (string, error) {
	airports, counts, err := column(a[processor.TableFlightsPerAirport], processor.TableFlightsPerAirport, "origin", "flights", r.topN)
	if err != nil {
		return "", err
	}
	p, err := barPlot(fmt.Sprintf("Top %d Origin Airports by Flight Count", r.topN), "Origin Airport", "Number of Flights",
		airports, r.panelWidth(1), bar{values: counts, color: r.theme.Color(0)})
	if err != nil {
		return "", err
	}
	return r.save(FileFlightsByAirport, [][]*plot.Plot{{p}})
}

// CancellationAnalysis 左：按月取消数；右：取消最多的前N个机场
func (r *Renderer) CancellationAnalysis(a processor.Analysis) (string, error) {
	months, byMonth, err := column(a[processor.TableCancelByMonth], processor.TableCancelByMonth, "month", "cancellations", 0)
	if err != nil {
		return "", err
	}
	airports, byOrigin, err := column(a[processor.TableCancelByOrigin], processor.TableCancelByOrigin, "origin", "cancellations", r.topN)
	if err != nil {
		return "", err
	}

	left, err := barPlot("Cancellations by Month", "Month", "Cancellations", monthNames(months),
		r.panelWidth(2), bar{values: byMonth, color: r.theme.Color(1)})
	if err != nil {
		return "", err
	}
	right, err := barPlot(fmt.Sprintf("Top %d Airports by Cancellations", r.topN), "Origin Airport", "Cancellations",
		airports, r.panelWidth(2), bar{values: byOrigin, color: r.theme.Color(3)})
	if err != nil {
		return "", err
	}
	return r.save(FileCancellation, [][]*plot.Plot{{left, right}})
}

// AirportPerformance 天气延误最高的前N个机场的四项均值
func (r *Renderer) AirportPerformance(a processor.Analysis) (string, error) {
	df := a[processor.TableAirportPerformance]
	cols := []string{utils.ColAirTime, utils.ColTaxiOut, utils.ColWeatherDelay, utils.ColLateAircraftDelay}

	plots := [][]*plot.Plot{make([]*plot.Plot, 2), make([]*plot.Plot, 2)}
	for i, col := range cols {
		airports, values, err := column(df, processor.TableAirportPerformance, "origin", col, r.topN)
		if err != nil {
			return "", err
		}
		p, err := barPlot("Average "+Title(col)+" by Airport", "Origin Airport", "Minutes",
			airports, r.panelWidth(2), bar{values: values, color: r.theme.Color(i)})
		if err != nil {
			return "", err
		}
		plots[i/2][i%2] = p
	}
	return r.save(FileAirportPerformance, plots)
}

// MonthlyDelays 每月两类延误的平均值并排比较
func (r *Renderer) MonthlyDelays(a processor.Analysis) (string, error) {
	df := a[processor.TableMonthlyDelays]
	months, weather, err := column(df, processor.TableMonthlyDelays, "month", utils.ColWeatherDelay, 0)
	if err != nil {
		return "", err
	}
	_, late, err := column(df, processor.TableMonthlyDelays, "month", utils.ColLateAircraftDelay, 0)
	if err != nil {
		return "", err
	}

	p, err := barPlot("Average Monthly Delays", "Month", "Average Delay (minutes)", monthNames(months), r.panelWidth(1),
		bar{name: Title(utils.ColWeatherDelay), values: weather, color: r.theme.Color(0)},
		bar{name: Title(utils.ColLateAircraftDelay), values: late, color: r.theme.Color(1)},
	)
	if err != nil {
		return "", err
	}
	return r.save(FileMonthlyDelays, [][]*plot.Plot{{p}})
}

// WeeklyPatterns 四个日度指标按星期的均值
func (r *Renderer) WeeklyPatterns(a processor.Analysis) (string, error) {
	df := a[processor.TableDayOfWeekPatterns]
	panels := []struct {
		metric string
		title  string
	}{
		{processor.MetricFlightCount, "Average Daily Flights by Day of Week"},
		{processor.MetricCancellationRate, "Average Cancellation Rate by Day of Week"},
		{processor.MetricOperationalEfficiency, "Operational Efficiency by Day of Week"},
		{processor.MetricDelayIntensity, "Average Delay Intensity by Day of Week"},
	}

	plots := [][]*plot.Plot{make([]*plot.Plot, 2), make([]*plot.Plot, 2)}
	for i, panel := range panels {
		days, values, err := column(df, processor.TableDayOfWeekPatterns, "day_name", "mean_"+panel.metric, 0)
		if err != nil {
			return "", err
		}
		for j := range days {
			if len(days[j]) > 3 {
				days[j] = days[j][:3]
			}
		}
		p, err := barPlot(panel.title, "", Title(panel.metric), days, r.panelWidth(2),
			bar{values: values, color: r.theme.Color(i)})
		if err != nil {
			return "", err
		}
		plots[i/2][i%2] = p
	}
	return r.save(FileWeeklyPatterns, plots)
}

// DurationDistanceHeatmap 时长与距离的描述统计
func (r *Renderer) DurationDistanceHeatmap(a processor.Analysis) (string, error) {
	cols := []string{utils.ColAirTime, utils.ColTaxiOut, utils.ColTaxiIn, utils.ColDistance}
	p, err := heatPlot("Flight Duration and Distance Statistics", "Metrics", "Statistics",
		a[processor.TableDurationDistance], processor.TableDurationDistance, "stat", cols)
	if err != nil {
		return "", err
	}
	return r.save(FileDurationDistance, [][]*plot.Plot{{p}})
}

// DelayHeatmap 两类延误的描述统计
func (r *Renderer) DelayHeatmap(a processor.Analysis) (string, error) {
	cols := []string{utils.ColWeatherDelay, utils.ColLateAircraftDelay}
	p, err := heatPlot("Delay Statistics Heatmap", "Delay Types", "Statistics",
		a[processor.TableDelaySummary], processor.TableDelaySummary, "stat", cols)
	if err != nil {
		return "", err
	}
	return r.save(FileDelayHeatmap, [][]*plot.Plot{{p}})
}

// Decomposition 原始序列、趋势、季节、残差四个子图上下排列
func (r *Renderer) Decomposition(d *processor.Decomposition) (string, error) {
	if d == nil {
		return "", fmt.Errorf("render decomposition: nil result")
	}
	xs := make([]float64, len(d.Dates))
	for i, t := range d.Dates {
		xs[i] = float64(t.Unix())
	}

	title := Title(d.Metric) + " - Weekly Patterns"
	panels := []struct {
		title  string
		ylabel string
		values []float64
	}{
		{title + " - Original", "Original", d.Observed},
		{"Trend Component", "Trend", d.Trend},
		{"Seasonal Component", "Seasonal", d.Seasonal},
		{"Residual Component", "Residual", d.Residual},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p, err := linePlot(panel.title, panel.ylabel, xs, panel.values, r.theme.Color(i))
		if err != nil {
			return "", err
		}
		plots[i] = []*plot.Plot{p}
	}
	return r.save(DecompositionFile(d.Metric), plots)
}

// monthNames 1 -> Jan
func monthNames(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		m, err := strconv.Atoi(k)
		if err != nil || m < 1 || m > 12 {
			out[i] = k
			continue
		}
		out[i] = time.Month(m).String()[:3]
	}
	return out
}
