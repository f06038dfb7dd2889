package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// Options 日志配置
type Options struct {
	Level  string    // debug|info|warn|error
	JSON   bool      // JSON 格式输出
	Echo   io.Writer // 同时输出到该writer，通常是 os.Stderr
	MaxLen int64     // 轮转阈值(字节)，0 表示不轮转
}

// Logger 日志记录器结构体
type Logger struct {
	filename string
	file     *os.File   // 日志文件句柄
	mu       sync.Mutex // 互斥锁，保证并发安全
	opts     Options
	slog     *slog.Logger
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径，为空时只输出到 Echo
//	opts: 级别、格式与轮转配置
func NewLogger(filename string, opts Options) (*Logger, error) {
	l := &Logger{filename: filename, opts: opts}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// Discard 返回不输出任何内容的记录器，测试使用
func Discard() *Logger {
	l := &Logger{opts: Options{Level: "error"}}
	l.slog = slog.New(slog.NewTextHandler(io.Discard, nil))
	return l
}

func (l *Logger) open() error {
	var writers []io.Writer
	if l.filename != "" {
		// 打开或创建日志文件，权限设置为0644
		file, err := os.OpenFile(l.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		l.file = file
		writers = append(writers, file)
	}
	if l.opts.Echo != nil {
		writers = append(writers, l.opts.Echo)
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(l.opts.Level).slogLevel()}
	var handler slog.Handler
	if l.opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	l.slog = slog.New(handler)
	return nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
//	args: slog 键值对
func (l *Logger) Log(level LogLevel, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level == FATAL {
		args = append(args, "fatal", true)
	}
	l.slog.Log(context.Background(), level.slogLevel(), message, args...)
}

// CheckRotate 文件超过阈值时轮转
func (l *Logger) CheckRotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.opts.MaxLen <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() <= l.opts.MaxLen {
		return nil
	}
	return l.rotateLog()
}

func (l *Logger) rotateLog() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	rotated := strings.TrimSuffix(l.filename, ".log") +
		fmt.Sprintf(".%s.log", time.Now().Format("20060102150405"))
	if err := os.Rename(l.filename, rotated); err != nil {
		return err
	}
	return l.open()
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARNING:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseSize 解析 "10 * 1024 * 1024" 形式的大小表达式
func ParseSize(expr string) (int64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, nil
	}
	var result int64 = 1
	for _, part := range strings.Split(expr, "*") {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size expression %q: %w", expr, err)
		}
		result *= num
	}
	return result, nil
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, args ...any)   { l.Log(DEBUG, msg, args...) }   // 记录调试信息
func (l *Logger) Info(msg string, args ...any)    { l.Log(INFO, msg, args...) }    // 记录普通信息
func (l *Logger) Warning(msg string, args ...any) { l.Log(WARNING, msg, args...) } // 记录警告信息
func (l *Logger) Error(msg string, args ...any)   { l.Log(ERROR, msg, args...) }   // 记录错误信息
func (l *Logger) Fatal(msg string, args ...any)   { l.Log(FATAL, msg, args...) }   // 记录致命错误，由调用方结束运行
