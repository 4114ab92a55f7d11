package util

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// FileOptions enables a rotating log file next to stdout when Path is set.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the global logger based on environment
func Init(environment, level, format string) *zap.Logger {
	return InitWithFile(environment, level, format, FileOptions{})
}

// InitWithFile initializes the global logger and tees output into a lumberjack-rotated file.
func InitWithFile(environment, level, format string, file FileOptions) *zap.Logger {
	once.Do(func() {
		var encCfg zapcore.EncoderConfig

		if environment == "production" {
			encCfg = zap.NewProductionEncoderConfig()
			encCfg.TimeKey = "timestamp"
			encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			encCfg = zap.NewDevelopmentEncoderConfig()
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		var encoder zapcore.Encoder
		if format == "json" {
			encoder = zapcore.NewJSONEncoder(encCfg)
		} else {
			encoder = zapcore.NewConsoleEncoder(encCfg)
		}

		lvl := zap.NewAtomicLevelAt(parseLogLevel(level))

		// Always log to stdout for Docker
		cores := []zapcore.Core{
			zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lvl),
		}

		if file.Path != "" {
			fileEnc := encCfg
			fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder
			rotator := &lumberjack.Logger{
				Filename:   file.Path,
				MaxSize:    file.MaxSizeMB,
				MaxBackups: file.MaxBackups,
				MaxAge:     file.MaxAgeDays,
				Compress:   true,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotator), lvl))
		}

		core := zapcore.NewTee(cores...)
		opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1), zap.ErrorOutput(zapcore.Lock(os.Stderr))}

		if environment == "production" {
			// Production optimizations
			core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
		} else {
			opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
		}

		globalLogger = zap.New(core, opts...)

		// Replace global logger
		zap.ReplaceGlobals(globalLogger)
	})

	return globalLogger
}

// Get returns the global logger instance
func Get() *zap.Logger {
	if globalLogger == nil {
		// Fallback to production logger if not initialized
		return Init("production", "info", "json")
	}
	return globalLogger
}

// Sync flushes any buffered log entries
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	case "panic":
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}

// Convenience methods
func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

// Error function for logging error messages
func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

// Common field helpers
func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

// ErrorField creates an error field (renamed to avoid conflict)
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

func Any(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}
