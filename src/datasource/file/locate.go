package file

import (
	"fmt"
	"os"
	"path/filepath"

	"FlightPatterns/src/utils"
)

// EnvDataPath 指定数据集路径的环境变量
const EnvDataPath = "FLIGHT_DATA_PATH"

// DefaultCandidates 未指定路径时依次探测
var DefaultCandidates = []string{
	"data/flight_data_2024.csv",
	"flight_data_2024.csv",
	"../data/flight_data_2024.csv",
}

// Locator 数据集路径解析策略，启动时解析一次后注入Loader
type Locator struct {
	Explicit   string              // 命令行或配置给出的路径
	Getenv     func(string) string // 默认 os.Getenv
	Candidates []string            // 相对于工作目录和可执行文件目录
	Executable func() (string, error)
}

// NewLocator 使用进程环境的默认策略
func NewLocator(explicit string) *Locator {
	return &Locator{
		Explicit:   explicit,
		Getenv:     os.Getenv,
		Candidates: DefaultCandidates,
		Executable: os.Executable,
	}
}

// Resolve 返回第一个存在的数据集路径
func (l *Locator) Resolve() (string, error) {
	if l.Explicit != "" {
		return l.Explicit, nil
	}
	if l.Getenv != nil {
		if p := l.Getenv(EnvDataPath); p != "" {
			return p, nil
		}
	}

	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	if l.Executable != nil {
		if exe, err := l.Executable(); err == nil {
			roots = append(roots, filepath.Dir(exe))
		}
	}

	for _, root := range roots {
		for _, c := range l.Candidates {
			p := c
			if !filepath.IsAbs(p) {
				p = filepath.Join(root, c)
			}
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}
	return "", utils.NewAnalysisError("resolve dataset", fmt.Sprint(l.Candidates), utils.ErrMissingFile)
}
