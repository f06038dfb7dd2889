package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 应用程序配置(config.json)
type Config struct {
	DataPath  string `json:"data_path"`  // 数据集路径，为空时自动探测
	SheetName string `json:"sheet_name"` // xlsx 数据集的工作表名称
	OutputDir string `json:"output_dir"` // 图片与工作簿输出目录
	Workbook  string `json:"workbook"`   // 汇总工作簿文件名

	Log struct {
		Name    string `json:"name"`     // 日志文件
		Level   string `json:"level"`    // debug|info|warn|error
		JSON    bool   `json:"json"`     // 是否输出JSON格式
		MaxSize string `json:"max_size"` // 轮转阈值，例如 "10 * 1024 * 1024"
	} `json:"log"`

	Schedule struct {
		Spec     string   `json:"spec"`     // cron表达式，为空则只运行一次
		Debounce Duration `json:"debounce"` // 监控模式下两次运行的最小间隔
	} `json:"schedule"`
}

// Strategy 缺失值填充策略
type Strategy string

const (
	Mean   Strategy = "mean"
	Median Strategy = "median"
)

// Thresholds 报告生成使用的阈值，属于展示逻辑
type Thresholds struct {
	TrendEpsilon     float64 `json:"trend_epsilon"`     // 趋势斜率小于该值视为平稳
	WeakSeasonal     float64 `json:"weak_seasonal"`     // < weak: weak
	ModerateSeasonal float64 `json:"moderate_seasonal"` // < moderate: moderate
	StrongSeasonal   float64 `json:"strong_seasonal"`   // < strong: strong，否则 very strong
	HighCancellation float64 `json:"high_cancellation"` // 取消率告警阈值
	WeekendGapPct    float64 `json:"weekend_gap_pct"`   // 工作日与周末差异超过该百分比时给出建议
}

// Theme 图表配置，显式传给渲染器
type Theme struct {
	WidthInch  float64  `json:"width_inch"`
	HeightInch float64  `json:"height_inch"`
	DPI        int      `json:"dpi"`
	Palette    []string `json:"palette"` // 十六进制颜色 #rrggbb
}

// DataConfig 分析配置(dataconfig.json)
type DataConfig struct {
	Imputation map[string]Strategy `json:"imputation"`
	Period     int                 `json:"period"`
	TopN       int                 `json:"top_n"`
	Metrics    []string            `json:"metrics"`
	Thresholds Thresholds          `json:"thresholds"`
	Theme      Theme               `json:"theme"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	loadErr            error
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次配置，后续调用返回同一实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataConfigInstance, loadErr = Load(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, loadErr
}

// Load 读取两个配置文件；文件不存在时使用默认值
func Load(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	if err := dcfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

// readFile 文件不存在返回nil，由默认值兜底
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			errChan <- fmt.Errorf("解析Config失败: %w", err)
			return
		}
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultDataConfig()
	if len(data) > 0 {
		// imputation 整体替换而不是与默认值合并
		dcfg.Imputation = nil
		if err := json.Unmarshal(data, dcfg); err != nil {
			errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
			return
		}
		if dcfg.Imputation == nil {
			dcfg.Imputation = DefaultDataConfig().Imputation
		}
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("配置加载遇到多个错误: %w", errors.Join(errs...))
}

// DefaultConfig 默认应用配置
func DefaultConfig() *Config {
	cfg := &Config{
		SheetName: "Sheet1",
		OutputDir: "outputs",
		Workbook:  "flight_analysis.xlsx",
	}
	cfg.Log.Name = "app.log"
	cfg.Log.Level = "info"
	cfg.Log.MaxSize = "10 * 1024 * 1024"
	cfg.Schedule.Debounce = Duration(2 * time.Second)
	return cfg
}

// DefaultDataConfig 默认分析配置，与原始预处理一致
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Imputation: map[string]Strategy{
			"dep_time":   Mean,
			"taxi_out":   Mean,
			"wheels_off": Mean,
			"wheels_on":  Mean,
			"taxi_in":    Mean,
			"air_time":   Median,
		},
		Period: 7,
		TopN:   10,
		Metrics: []string{
			"flight_count",
			"cancellation_rate",
			"delay_intensity",
			"operational_efficiency",
			"avg_air_time",
		},
		Thresholds: Thresholds{
			TrendEpsilon:     0.01,
			WeakSeasonal:     0.2,
			ModerateSeasonal: 0.5,
			StrongSeasonal:   0.8,
			HighCancellation: 0.05,
			WeekendGapPct:    10,
		},
		Theme: Theme{
			WidthInch:  15,
			HeightInch: 10,
			DPI:        150,
			Palette:    []string{"#87ceeb", "#fa8072", "#90ee90", "#ffa500", "#1f77b4", "#d62728"},
		},
	}
}

// Validate 校验分析配置
func (dc *DataConfig) Validate() error {
	if dc.Period != 7 {
		return fmt.Errorf("period must be 7 (weekly), got %d", dc.Period)
	}
	if dc.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", dc.TopN)
	}
	for col, s := range dc.Imputation {
		if s != Mean && s != Median {
			return fmt.Errorf("imputation strategy for %q must be mean or median, got %q", col, s)
		}
	}
	t := dc.Thresholds
	if !(0 <= t.WeakSeasonal && t.WeakSeasonal <= t.ModerateSeasonal &&
		t.ModerateSeasonal <= t.StrongSeasonal && t.StrongSeasonal <= 1) {
		return fmt.Errorf("seasonal strength thresholds must be ordered within [0,1]")
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Imputations 返回填充策略的副本，运行期间可与 SetImputation 并发调用
func (dc *DataConfig) Imputations() map[string]Strategy {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]Strategy, len(dc.Imputation))
	for col, s := range dc.Imputation {
		out[col] = s
	}
	return out
}

// SetImputation 覆盖单列的填充策略
func (dc *DataConfig) SetImputation(colName string, s Strategy) error {
	if s != Mean && s != Median {
		return fmt.Errorf("imputation strategy for %q must be mean or median, got %q", colName, s)
	}
	mu.Lock()
	defer mu.Unlock()
	if dc.Imputation == nil {
		dc.Imputation = make(map[string]Strategy)
	}
	dc.Imputation[colName] = s
	return nil
}
