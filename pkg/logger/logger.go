package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	FormatJSON   = "json"
	// FormatConsole is the human-readable encoder for local runs.
	FormatConsole = "console"

	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultMaxAgeDays = 7
	logDirPerm        = 0o755

	errFilePathRequiredFmt = "log file path is required when output is %q"
	errCreateLogDirFmt     = "create log directory: %w"
)

type Config struct {
	Level      string
	Format     string
	Output     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (c *Config) applyDefaults() error {
	if c.Output != OutputFile {
		return nil
	}
	if c.File == "" {
		return fmt.Errorf(errFilePathRequiredFmt, OutputFile)
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = defaultMaxSizeMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = defaultMaxBackups
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = defaultMaxAgeDays
	}
	return nil
}

// New builds the process logger. File output rotates through lumberjack.
func New(cfg Config) (*zap.Logger, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case OutputFile:
		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, fmt.Errorf(errCreateLogDirFmt, err)
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	default:
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if strings.EqualFold(format, FormatConsole) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// ParseLevel is case-insensitive and falls back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
