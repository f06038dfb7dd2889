package processor

import (
	"fmt"
	"math"
	"sort"

	"FlightPatterns/src/config"
	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Impute 按列用均值或中位数填充缺失值。
// 输入DataFrame不会被修改，返回填充后的副本；未配置的列保持原样(包括缺失值)。
// 某列全部缺失时无法计算填充值，该列保持缺失并在 skipped 中返回。
func Impute(df dataframe.DataFrame, strategies map[string]config.Strategy) (out dataframe.DataFrame, skipped []string, err error) {
	cols := make([]string, 0, len(strategies))
	for col := range strategies {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		if !utils.HasColumn(df, col) {
			return dataframe.DataFrame{}, nil, utils.NewAnalysisError("impute", col, utils.ErrMissingColumn)
		}
	}

	out = df.Copy()
	for _, col := range cols {
		values := columnValues(out.Col(col))
		known := present(values)
		if len(known) == 0 {
			skipped = append(skipped, col)
			continue
		}

		var fill float64
		switch strategies[col] {
		case config.Mean:
			fill = mean(known)
		case config.Median:
			fill = median(known)
		default:
			return dataframe.DataFrame{}, nil, utils.NewAnalysisError("impute", col,
				fmt.Errorf("unknown strategy %q", strategies[col]))
		}

		filled := make([]float64, len(values))
		for i, v := range values {
			if math.IsNaN(v) {
				filled[i] = fill
			} else {
				filled[i] = v
			}
		}
		out = out.Mutate(series.New(filled, series.Float, col))
		if out.Err != nil {
			return dataframe.DataFrame{}, nil, fmt.Errorf("impute %s: %w", col, out.Err)
		}
	}
	return out, skipped, nil
}

// MissingCounts 每列缺失值个数
func MissingCounts(df dataframe.DataFrame) map[string]int {
	counts := make(map[string]int, df.Ncol())
	for _, name := range df.Names() {
		n := 0
		for _, na := range df.Col(name).IsNaN() {
			if na {
				n++
			}
		}
		counts[name] = n
	}
	return counts
}
