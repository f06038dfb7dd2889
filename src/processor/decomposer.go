package processor

import (
	"fmt"
	"math"
	"time"

	"FlightPatterns/src/utils"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Decomposition 单个指标的加法分解结果，各序列与 Dates 对齐
type Decomposition struct {
	Metric           string
	Dates            []time.Time
	Observed         []float64
	Trend            []float64
	Seasonal         []float64
	Residual         []float64
	SeasonalStrength float64 // [0,1]
	TrendSlope       float64 // 趋势每天的最小二乘斜率
}

// Decomposer 经典加法季节分解：中心移动平均趋势 + 按相位平均的季节项
type Decomposer struct {
	Period int
}

func NewDecomposer(period int) *Decomposer {
	return &Decomposer{Period: period}
}

// Decompose 对按日期升序排列的序列做分解。
// 周期按位置计算，不识别日历，日期有缺口时周相位会整体偏移，调用方用 Gaps 检查。
func (d *Decomposer) Decompose(metric string, dates []time.Time, values []float64) (*Decomposition, error) {
	period := d.Period
	if len(dates) != len(values) {
		return nil, utils.NewAnalysisError("decompose", metric,
			fmt.Errorf("%d dates for %d values", len(dates), len(values)))
	}
	if period < 2 || len(values) < 2*period {
		return nil, utils.NewAnalysisError("decompose", metric,
			fmt.Errorf("%w: need at least %d observations, got %d", utils.ErrInsufficientData, 2*period, len(values)))
	}

	observed, ok := fillMissing(values)
	if !ok {
		return nil, utils.NewAnalysisError("decompose", metric,
			fmt.Errorf("%w: no observed values", utils.ErrInsufficientData))
	}

	trend := movingAverage(observed, period)
	extrapolateTrend(trend, period)

	seasonal := seasonalComponent(observed, trend, period)

	n := len(observed)
	residual := make([]float64, n)
	for i := range residual {
		residual[i] = observed[i] - trend[i] - seasonal[i]
	}

	return &Decomposition{
		Metric:           metric,
		Dates:            append([]time.Time(nil), dates...),
		Observed:         observed,
		Trend:            trend,
		Seasonal:         seasonal,
		Residual:         residual,
		SeasonalStrength: SeasonalStrength(seasonal, residual),
		TrendSlope:       slope(trend),
	}, nil
}

// DecomposeAll 逐个指标分解，单个指标失败不影响其他指标
func (d *Decomposer) DecomposeAll(daily DailyMetrics, metrics []string) (map[string]*Decomposition, map[string]error) {
	results := make(map[string]*Decomposition, len(metrics))
	failures := make(map[string]error)
	dates := daily.Dates()

	for _, metric := range metrics {
		values, err := daily.Column(metric)
		if err != nil {
			failures[metric] = err
			continue
		}
		res, err := d.Decompose(metric, dates, values)
		if err != nil {
			failures[metric] = err
			continue
		}
		results[metric] = res
	}
	return results, failures
}

// 方差低于该值视为0，常数序列的舍入误差不计入强度
const varianceEpsilon = 1e-12

// SeasonalStrength 1 - Var(resid)/Var(seasonal+resid)，分母为0时为0，结果截断到[0,1]
func SeasonalStrength(seasonal, residual []float64) float64 {
	combined := make([]float64, len(seasonal))
	floats.AddTo(combined, seasonal, residual)

	denom := stat.Variance(combined, nil)
	if denom < varianceEpsilon || math.IsNaN(denom) {
		return 0
	}
	s := 1 - stat.Variance(residual, nil)/denom
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(1, s))
}

// Gaps 返回序列中缺失的日历日
func Gaps(dates []time.Time) []time.Time {
	var gaps []time.Time
	for i := 1; i < len(dates); i++ {
		for d := dates[i-1].AddDate(0, 0, 1); d.Before(dates[i]); d = d.AddDate(0, 0, 1) {
			gaps = append(gaps, d)
		}
	}
	return gaps
}

// fillMissing 先向前再向后填充NaN；全部缺失时返回false
func fillMissing(values []float64) ([]float64, bool) {
	out := append([]float64(nil), values...)
	first := -1
	for i, v := range out {
		if math.IsNaN(v) {
			if i > 0 {
				out[i] = out[i-1]
			}
		} else if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return nil, false
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out, true
}

// movingAverage 中心移动平均；偶数周期使用 2xperiod 加权窗口。两端无法计算的位置为NaN
func movingAverage(x []float64, period int) []float64 {
	var filt []float64
	if period%2 == 0 {
		filt = make([]float64, period+1)
		for i := range filt {
			filt[i] = 1 / float64(period)
		}
		filt[0] /= 2
		filt[period] /= 2
	} else {
		filt = make([]float64, period)
		for i := range filt {
			filt[i] = 1 / float64(period)
		}
	}

	half := len(filt) / 2
	n := len(x)
	trend := make([]float64, n)
	for i := range trend {
		if i < half || i >= n-half {
			trend[i] = math.NaN()
			continue
		}
		trend[i] = floats.Dot(filt, x[i-half:i-half+len(filt)])
	}
	return trend
}

// extrapolateTrend 用两端各 npoints 个趋势值做线性拟合，补齐NaN。
// 拟合窗口为 [front, front+npoints) 与 [back-npoints, back)
func extrapolateTrend(trend []float64, npoints int) {
	front, back := -1, -1
	for i, v := range trend {
		if !math.IsNaN(v) {
			if front < 0 {
				front = i
			}
			back = i
		}
	}
	if front < 0 {
		return
	}

	frontLast := min(front+npoints, back)
	alpha, beta := fitLine(trend, front, frontLast)
	for i := 0; i < front; i++ {
		trend[i] = alpha + beta*float64(i)
	}

	backFirst := max(front, back-npoints)
	alpha, beta = fitLine(trend, backFirst, back)
	for i := back + 1; i < len(trend); i++ {
		trend[i] = alpha + beta*float64(i)
	}
}

// fitLine 对下标 [from, to) 做最小二乘直线拟合
func fitLine(y []float64, from, to int) (alpha, beta float64) {
	if to-from < 2 {
		return y[from], 0
	}
	xs := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		xs = append(xs, float64(i))
	}
	return stat.LinearRegression(xs, y[from:to], nil, false)
}

// seasonalComponent 去趋势序列按相位取均值，中心化后平铺
func seasonalComponent(observed, trend []float64, period int) []float64 {
	n := len(observed)
	averages := make([]float64, period)
	for phase := 0; phase < period; phase++ {
		var sum float64
		var count int
		for i := phase; i < n; i += period {
			sum += observed[i] - trend[i]
			count++
		}
		averages[phase] = sum / float64(count)
	}
	floats.AddConst(-stat.Mean(averages, nil), averages)

	seasonal := make([]float64, n)
	for i := range seasonal {
		seasonal[i] = averages[i%period]
	}
	return seasonal
}

func slope(y []float64) float64 {
	if len(y) < 2 {
		return 0
	}
	_, beta := fitLine(y, 0, len(y))
	return beta
}
