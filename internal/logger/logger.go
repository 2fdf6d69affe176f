package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "courtline"

// Options 日志输出配置，零值字段使用默认值
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Level      string
	Stdout     bool
}

func (o Options) withDefaults() Options {
	o.Dir = strings.TrimSpace(o.Dir)
	o.Filename = strings.TrimSpace(o.Filename)
	if o.Filename == "" {
		o.Filename = "app.log"
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 100
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 7
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = 30
	}
	return o
}

// L 全局日志实例，Init 之前为 nil
var L *zap.Logger

var (
	consoleOnce sync.Once
	consoleLog  *zap.Logger
)

// Init 创建并替换全局日志
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New 创建日志实例：debug 模式输出彩色控制台，其余模式写入滚动 JSON 文件
func New(mode string, options Options) *zap.Logger {
	options = options.withDefaults()
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	level := parseLevel(options.Level, debug)

	var core zapcore.Core
	if debug {
		enc := encoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), level)
	} else {
		sink, err := rollingFile(options)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file unavailable, writing to stdout: %v\n", err)
			sink = zapcore.Lock(os.Stdout)
		} else if options.Stdout {
			sink = zapcore.NewMultiWriteSyncer(sink, zapcore.Lock(os.Stdout))
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level)
	}
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.DPanicLevel)).
		With(zap.String("service", serviceName))
}

// parseLevel 解析日志级别，未配置时 debug 模式为 debug，其余为 info
func parseLevel(raw string, debug bool) zap.AtomicLevel {
	fallback := zapcore.InfoLevel
	if debug {
		fallback = zapcore.DebugLevel
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zap.NewAtomicLevelAt(fallback)
	}
	lvl, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zap.NewAtomicLevelAt(fallback)
	}
	return zap.NewAtomicLevelAt(lvl)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// rollingFile 创建日志目录并返回 lumberjack 滚动写入器
func rollingFile(options Options) (zapcore.WriteSyncer, error) {
	path, err := logFilePath(options)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    options.MaxSizeMB,
		MaxBackups: options.MaxBackups,
		MaxAge:     options.MaxAgeDays,
		Compress:   options.Compress,
	}), nil
}

// logFilePath 目录为空时使用 ./logs，并确认文件可写
func logFilePath(options Options) (string, error) {
	dir := options.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(wd, "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, options.Filename)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	return path, f.Close()
}

// Z 返回全局日志，未初始化时退回控制台日志
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	consoleOnce.Do(func() {
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), zapcore.InfoLevel)
		consoleLog = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	})
	return consoleLog
}

// S 全局 SugaredLogger
func S() *zap.SugaredLogger { return Z().Sugar() }

// SW 附带键值字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	return S().With(kv...)
}

// Named 带 component 字段的 SugaredLogger，供 asynq 等组件使用
func Named(component string) *zap.SugaredLogger {
	if component = strings.TrimSpace(component); component == "" {
		return S()
	}
	return SW("component", component)
}

// StdLogger 适配标准库 log.Logger，供 http.Server 等使用
func StdLogger() *log.Logger { return zap.NewStdLog(Z()) }

func Debugw(msg string, kv ...interface{}) { S().Debugw(msg, kv...) }
func Infow(msg string, kv ...interface{})  { S().Infow(msg, kv...) }
func Warnw(msg string, kv ...interface{})  { S().Warnw(msg, kv...) }
func Errorw(msg string, kv ...interface{}) { S().Errorw(msg, kv...) }
