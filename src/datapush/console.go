package datapush

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"FlightPatterns/src/processor"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ConsolePusher 把一次分析结果推送到终端
type ConsolePusher struct {
	out       io.Writer
	useColors bool
}

func NewConsolePusher(out io.Writer, useColors bool) *ConsolePusher {
	return &ConsolePusher{out: out, useColors: useColors}
}

// Push 输出概况、星期统计、分解摘要、结论与生成的文件
func (p *ConsolePusher) Push(report *processor.Report, artifacts []string) error {
	if report == nil || len(report.Daily) == 0 {
		return fmt.Errorf("push: empty report")
	}
	daily := report.Daily

	p.heading("Flight operations summary")
	fmt.Fprintf(p.out, "%d flights over %d days (%s to %s)\n", daily.TotalFlights(), len(daily),
		daily[0].Date.Format("2006-01-02"), daily[len(daily)-1].Date.Format("2006-01-02"))
	if len(report.Gaps) > 0 {
		p.warn("%d calendar days without flights", len(report.Gaps))
	}

	p.heading("Day of week")
	if err := p.table(dayOfWeekHeader, dayOfWeekRows(report)); err != nil {
		return err
	}

	p.heading("Weekly decomposition")
	if err := p.table(decompositionHeader, decompositionRows(report)); err != nil {
		return err
	}
	for _, metric := range sortedKeys(report.DecompositionErrors) {
		p.warn("%s: %v", metric, report.DecompositionErrors[metric])
	}

	p.heading("Insights")
	for _, in := range report.Insights {
		if in.Category == processor.InsightRecommendation {
			p.success("%s", in.Text)
			continue
		}
		label := in.Category
		if in.Metric != "" {
			label += "[" + in.Metric + "]"
		}
		fmt.Fprintf(p.out, "%-40s %s\n", label, in.Text)
	}

	if len(artifacts) > 0 {
		p.heading("Artifacts")
		for _, a := range artifacts {
			fmt.Fprintln(p.out, a)
		}
	}
	return nil
}

var dayOfWeekHeader = []string{"day", "flights", "cancel rate", "delay intensity", "efficiency", "air time"}

func dayOfWeekRows(report *processor.Report) [][]string {
	rows := make([][]string, 0, 9)
	for i, wd := range processor.Weekdays {
		row := []string{wd.String()}
		for _, metric := range processor.MetricNames {
			s, ok := report.DayOfWeek[metric]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, formatMetric(metric, s.Mean[i]))
		}
		rows = append(rows, row)
	}

	diff := []string{"weekday vs weekend"}
	for _, metric := range processor.MetricNames {
		if s, ok := report.DayOfWeek[metric]; ok {
			diff = append(diff, s.PctDiffString())
		} else {
			diff = append(diff, "-")
		}
	}
	return append(rows, diff)
}

var decompositionHeader = []string{"metric", "seasonal strength", "seasonality", "trend slope", "trend"}

func decompositionRows(report *processor.Report) [][]string {
	var rows [][]string
	for _, metric := range sortedKeys(report.Decompositions) {
		d := report.Decompositions[metric]
		class, _ := report.Insights.Get(processor.InsightSeasonality, metric)
		trend, _ := report.Insights.Get(processor.InsightTrend, metric)
		rows = append(rows, []string{
			metric,
			fmt.Sprintf("%.3f", d.SeasonalStrength),
			firstWords(class, " weekly"),
			fmt.Sprintf("%+.4f", d.TrendSlope),
			firstWords(trend, " ("),
		})
	}
	return rows
}

// firstWords 取 sep 之前的部分，"strong weekly seasonality (...)" -> "strong"
func firstWords(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

func formatMetric(metric string, v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	switch metric {
	case processor.MetricCancellationRate:
		return fmt.Sprintf("%.2f%%", v*100)
	case processor.MetricFlightCount:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func (p *ConsolePusher) table(header []string, rows [][]string) error {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignRight},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return table.Render()
}

func (p *ConsolePusher) heading(title string) {
	if p.useColors {
		color.New(color.FgCyan, color.Bold).Fprintf(p.out, "\n== %s ==\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n== %s ==\n", title)
}

func (p *ConsolePusher) warn(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.out, "! "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[WARN] "+format+"\n", args...)
}

func (p *ConsolePusher) success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "* "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[REC] "+format+"\n", args...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
