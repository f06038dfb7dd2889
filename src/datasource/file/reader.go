// reader.go
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// 视为缺失值的字段
var nanValues = []string{"", "NA", "NaN", "nan", "null"}

// Load 根据扩展名读取 csv 或 xlsx 数据集并校验列
func Load(filePath, sheetName string) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		df, err = ReadXLSX(filePath, sheetName)
	default:
		df, err = ReadCSV(filePath)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	if missing := utils.MissingColumns(df, utils.RequiredColumns...); len(missing) > 0 {
		return dataframe.DataFrame{}, utils.NewAnalysisError("load", strings.Join(missing, ","), utils.ErrMissingColumn)
	}
	return df, nil
}

// ReadCSV 读取分隔文本数据集
func ReadCSV(filePath string) (dataframe.DataFrame, error) {
	f, err := openDataset(filePath)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, loadOptions()...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse csv %s: %w", filePath, df.Err)
	}
	return df, nil
}

// ReadXLSX 读取xlsx数据集，第一行是标题行
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	if _, err := os.Stat(filePath); err != nil {
		return dataframe.DataFrame{}, missingFile(filePath, err)
	}

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表，找不到指定名称时使用第一个
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}

	// 3. 转换为Gota DataFrame
	records := sheetRecords(sheet)
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %s is empty", sheet.Name)
	}
	df := dataframe.LoadRecords(records, loadOptions()...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to convert sheet %s: %w", sheet.Name, df.Err)
	}
	return df, nil
}

// sheetRecords 将xlsx.Sheet转换为二维字符串，短行补齐
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)

	// 填充数据(从第二行开始)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				record[i] = cell.Value
				if cell.Value != "" {
					empty = false
				}
			}
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records
}

func loadOptions() []dataframe.LoadOption {
	types := map[string]series.Type{
		utils.ColFlightDate: series.String,
		utils.ColOrigin:     series.String,
		utils.ColCancelled:  series.String,
	}
	for _, col := range utils.FloatColumns {
		types[col] = series.Float
	}
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.WithTypes(types),
		dataframe.NaNValues(nanValues),
	}
}

func openDataset(filePath string) (*os.File, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, missingFile(filePath, err)
	}
	return f, nil
}

func missingFile(filePath string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return utils.NewAnalysisError("load", filePath, utils.ErrMissingFile)
	}
	return fmt.Errorf("failed to open dataset %s: %w", filePath, err)
}
