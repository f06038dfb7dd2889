package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"FlightPatterns/src/config"
	"FlightPatterns/src/datapush"
	"FlightPatterns/src/datasource/file"
	"FlightPatterns/src/processor"
	"FlightPatterns/src/storage"
	"FlightPatterns/src/utils"
	"FlightPatterns/src/visual"

	"github.com/fatih/color"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

const (
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"
)

// options 命令行参数
type options struct {
	dataset   string
	configDir string
	outDir    string
	watch     bool
	verbose   bool
	impute    map[string]string // 列 -> mean|median，覆盖 dataconfig.json
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "flightpatterns [dataset]",
		Short: "Descriptive and weekly seasonal analysis of flight operations",
		Long: `flightpatterns loads a flight-operations dataset (csv or xlsx), fills missing
values, aggregates daily metrics, decomposes them into trend, weekly seasonal
and residual components, and writes charts, a workbook and a console report.

The dataset is taken from the argument, config.json data_path, the
FLIGHT_DATA_PATH environment variable or data/flight_data_2024.csv.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dataset = args[0]
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configDir, "config-dir", "./config", "directory holding config.json and dataconfig.json")
	flags.StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config.json)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "rerun the analysis whenever the dataset changes")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.StringToStringVar(&opts.impute, "impute", nil, "override imputation strategies, e.g. air_time=mean,taxi_in=median")
	return cmd
}

// app 一次运行所需的全部依赖
type app struct {
	cfg     *config.Config
	dcfg    *config.DataConfig
	logger  *storage.Logger
	dataset string
	outDir  string
	out     io.Writer
	colors  bool
	mu      sync.Mutex // 定时任务与文件监控不能同时运行分析
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	cfg, dcfg, err := config.LoadConfig(opts.configDir, jsonFile, dataJsonFile)
	if err != nil {
		return err
	}

	for col, s := range opts.impute {
		if err := dcfg.SetImputation(col, config.Strategy(s)); err != nil {
			return fmt.Errorf("--impute: %w", err)
		}
	}

	outDir := cfg.OutputDir
	if opts.outDir != "" {
		outDir = opts.outDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	logger, err := newLogger(cfg, outDir, opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	explicit := opts.dataset
	if explicit == "" {
		explicit = cfg.DataPath
	}
	dataset, err := file.NewLocator(explicit).Resolve()
	if err != nil {
		logger.Fatal("dataset not found", "error", err)
		return err
	}

	a := &app{
		cfg:     cfg,
		dcfg:    dcfg,
		logger:  logger,
		dataset: dataset,
		outDir:  outDir,
		out:     out,
		colors:  !color.NoColor,
	}

	if err := a.runOnce(); err != nil {
		if cfg.Schedule.Spec == "" && !opts.watch {
			logger.Fatal("analysis failed", "path", dataset, "error", err)
			return err
		}
		logger.Error("analysis failed", "error", err)
	}
	if cfg.Schedule.Spec == "" && !opts.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.Spec != "" {
		c := cron.New()
		if err := c.AddFunc(cfg.Schedule.Spec, a.scheduled); err != nil {
			return fmt.Errorf("创建定时任务失败: %w", err)
		}
		c.Start()
		defer c.Stop()
		logger.Info("schedule started", "spec", cfg.Schedule.Spec)
	}

	if opts.watch {
		monitor, err := file.NewFileMonitor(dataset, time.Duration(cfg.Schedule.Debounce))
		if err != nil {
			return fmt.Errorf("watch %s: %w", dataset, err)
		}
		logger.Info("watching dataset", "path", dataset)
		err = monitor.Watch(ctx, func(path string) {
			logger.Info("dataset changed", "path", path)
			a.scheduled()
		})
		logger.Info("shutting down")
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newLogger(cfg *config.Config, outDir string, verbose bool) (*storage.Logger, error) {
	maxLen, err := storage.ParseSize(cfg.Log.MaxSize)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}

	name := cfg.Log.Name
	if name != "" && !filepath.IsAbs(name) {
		name = filepath.Join(outDir, name)
	}
	return storage.NewLogger(name, storage.Options{
		Level:  level,
		JSON:   cfg.Log.JSON,
		Echo:   os.Stderr,
		MaxLen: maxLen,
	})
}

// scheduled 定时或监控触发，错误只记录
func (a *app) scheduled() {
	if err := a.runOnce(); err != nil {
		a.logger.Error("analysis failed", "error", err)
	}
}

// runOnce 读取 -> 分析 -> 图表 -> 工作簿 -> 终端报告
func (a *app) runOnce() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t1 := time.Now()
	df, err := file.Load(a.dataset, a.cfg.SheetName)
	if err != nil {
		return err
	}
	a.logger.Info("dataset loaded", "path", a.dataset, "rows", df.Nrow(), "columns", df.Ncol())

	report, err := processor.NewDataProcessor(df, a.dcfg, a.logger).CalculateMetrics()
	if err != nil {
		return err
	}

	renderer, err := visual.NewRenderer(a.dcfg.Theme, a.outDir, a.dcfg.TopN, a.logger)
	if err != nil {
		return err
	}
	artifacts, renderErr := renderer.RenderAll(report)

	workbook := filepath.Join(a.outDir, a.cfg.Workbook)
	if err := utils.SaveWorkbook(report.Analysis, workbook); err != nil {
		return err
	}
	artifacts = append(artifacts, workbook)

	if err := datapush.NewConsolePusher(a.out, a.colors).Push(report, artifacts); err != nil {
		return err
	}

	if err := a.logger.CheckRotate(); err != nil {
		a.logger.Warning("log rotation failed", "error", err)
	}
	a.logger.Info("analysis finished", "elapsed", time.Since(t1), "artifacts", len(artifacts))
	return renderErr
}
