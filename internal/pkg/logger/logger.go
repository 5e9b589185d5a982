package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *slog.Logger // глобальный slog логгер, пишет в zap после Init
	zapBase      *zap.Logger
)

// ParseLevel maps a config level string to a slog level, defaulting to INFO.
func ParseLevel(levelStr string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Init builds the zap logger and routes the global slog logger through it via slog-zap.
// The returned zap logger is what infrastructure clients receive (Named per client).
func Init(levelStr string, development bool) (*zap.Logger, error) {
	level, ok := ParseLevel(levelStr)

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	handler := slogzap.Option{Level: level, Logger: zl}.NewZapHandler()
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	zapBase = zl

	if !ok {
		globalLogger.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zl, nil
}

func toZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// InitSlog initializes the global slog logger with a JSON handler on stdout.
// Used when zap is not wanted, e.g. in short-lived tools.
func InitSlog(levelStr string) {
	level, _ := ParseLevel(levelStr)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// Zap returns the zap logger built by Init, or a no-op logger.
func Zap() *zap.Logger {
	if zapBase == nil {
		return zap.NewNop()
	}
	return zapBase
}

func ensureInitialized() {
	if globalLogger == nil {
		InitSlog("INFO")
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	if globalLogger.Enabled(context.Background(), slog.LevelDebug) {
		globalLogger.Debug(msg, args...)
	}
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
	if zapBase != nil {
		_ = zapBase.Sync()
	}
	os.Exit(1)
}
