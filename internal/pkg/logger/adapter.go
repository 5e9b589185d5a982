package logger

import (
	"io"
	"log/slog"

	"portfolio_tracker/internal/app/port"
)

// slogAdapter реализует интерфейс port.Logger.
// Без собственного логгера пишет через глобальные функции пакета logger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter создает адаптер поверх глобального логгера.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewSlogAdapterWith создает адаптер поверх переданного slog логгера.
func NewSlogAdapterWith(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

// NewNopAdapter returns a port.Logger that discards everything. Handy in tests.
func NewNopAdapter() port.Logger {
	return &slogAdapter{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	if a.l != nil {
		a.l.Info(msg, args...)
		return
	}
	Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	if a.l != nil {
		a.l.Debug(msg, args...)
		return
	}
	Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	if a.l != nil {
		a.l.Warn(msg, args...)
		return
	}
	Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	if a.l != nil {
		a.l.Error(msg, args...)
		return
	}
	Error(msg, args...)
}
