// data.go
package processor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/storage"
	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Report 一次完整分析的结果
type Report struct {
	Analysis            Analysis // 分析名称 -> 结果表
	Daily               DailyMetrics
	Decompositions      map[string]*Decomposition
	DecompositionErrors map[string]error
	DayOfWeek           map[string]*DayOfWeekStats
	Insights            SummaryInsight
	Gaps                []time.Time
}

// DataProcessor 预处理 -> 聚合 -> 分解 -> 报告
type DataProcessor struct {
	df     dataframe.DataFrame
	cfg    *config.DataConfig
	logger *storage.Logger
}

func NewDataProcessor(df dataframe.DataFrame, cfg *config.DataConfig, logger *storage.Logger) *DataProcessor {
	if logger == nil {
		logger = storage.Discard()
	}
	return &DataProcessor{df: df, cfg: cfg, logger: logger}
}

// CleanData 填充缺失值，返回新的DataFrame
func (p *DataProcessor) CleanData() (dataframe.DataFrame, error) {
	strategies := p.cfg.Imputations()
	before := MissingCounts(p.df)
	cleaned, skipped, err := Impute(p.df, strategies)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	after := MissingCounts(cleaned)

	cols := make([]string, 0, len(strategies))
	for col := range strategies {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		p.logger.Debug("imputed column", "column", col, "strategy", strategies[col],
			"missing_before", before[col], "missing_after", after[col])
	}
	for _, col := range skipped {
		p.logger.Warning("column has no values to impute from", "column", col)
	}
	return cleaned, nil
}

// CalculateMetrics 运行完整分析流程
func (p *DataProcessor) CalculateMetrics() (*Report, error) {
	if p.df.Nrow() == 0 {
		return nil, utils.NewAnalysisError("calculate metrics", "dataset", utils.ErrInsufficientData)
	}

	cleaned, err := p.CleanData()
	if err != nil {
		return nil, err
	}

	analysis, err := Describe(cleaned)
	if err != nil {
		return nil, err
	}

	daily, err := Aggregate(cleaned)
	if err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, utils.NewAnalysisError("calculate metrics", "daily series", utils.ErrInsufficientData)
	}
	if daily.TotalFlights() != cleaned.Nrow() {
		return nil, fmt.Errorf("aggregate: %d flights in daily series, %d rows loaded", daily.TotalFlights(), cleaned.Nrow())
	}
	p.logger.Info("daily series prepared", "days", len(daily),
		"from", daily[0].Date.Format("2006-01-02"), "to", daily[len(daily)-1].Date.Format("2006-01-02"))

	gaps := Gaps(daily.Dates())
	if len(gaps) > 0 {
		p.logger.Warning("daily series has calendar gaps, weekly phase is positional",
			"missing_days", len(gaps), "first_missing", gaps[0].Format("2006-01-02"))
	}

	decomposer := NewDecomposer(p.cfg.Period)
	results, failures := decomposer.DecomposeAll(daily, p.cfg.Metrics)
	for metric, ferr := range failures {
		level := storage.ERROR
		if errors.Is(ferr, utils.ErrInsufficientData) {
			level = storage.WARNING
		}
		p.logger.Log(level, "decomposition failed", "metric", metric, "error", ferr)
	}

	dow := make(map[string]*DayOfWeekStats, len(MetricNames))
	for _, metric := range MetricNames {
		s, err := DayOfWeek(daily, metric)
		if err != nil {
			p.logger.Warning("day-of-week summary skipped", "metric", metric, "error", err)
			continue
		}
		if s.PctDiffErr != nil {
			p.logger.Debug("weekday/weekend difference undefined", "metric", metric)
		}
		dow[metric] = s
	}

	dowTable, err := DayOfWeekTable(daily, MetricNames)
	if err != nil {
		return nil, err
	}

	insights, err := NewReporter(p.cfg.Thresholds).Insights(daily, results, p.cfg.Metrics)
	if err != nil {
		return nil, err
	}

	analysis[TableDailyMetrics] = daily.Frame()
	analysis[TableDayOfWeekPatterns] = dowTable
	analysis[TableDecompositionSummary] = DecompositionTable(results, p.cfg.Metrics)

	return &Report{
		Analysis:            analysis,
		Daily:               daily,
		Decompositions:      results,
		DecompositionErrors: failures,
		DayOfWeek:           dow,
		Insights:            insights,
		Gaps:                gaps,
	}, nil
}
