package utils

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// excel序列号日期，例如 45292 或 45292.5
var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	time.RFC3339,
}

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回df中不存在的列
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasColumn(df, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// ParseDate 解析日期并截断到日历日(UTC)
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" || s == "NA" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if excelSerial.MatchString(s) {
		return excelToTime(s)
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// excel时间类型转time.Time类型
func excelToTime(s string) (time.Time, error) {
	excelDays, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	// 1899-12-30 作为基准已经包含了1900年闰年错误的修正
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(math.Floor(excelDays))), nil
}

// SaveWorkbook 每个结果表写入一个工作表
func SaveWorkbook(tables map[string]dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		sheetName := sheetTitle(name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", sheetName, err)
		}
		if err := writeSheet(f, sheetName, tables[name]); err != nil {
			return err
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	// 写入数据，NaN 留空
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			elem := col.Elem(rowIdx)
			if elem.IsNA() {
				continue
			}
			if err := f.SetCellValue(sheetName, cell, elem.Val()); err != nil {
				return err
			}
		}
	}
	return nil
}

// excel 工作表名最长31个字符
func sheetTitle(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
