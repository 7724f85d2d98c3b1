package logger

import (
	"io"
	"log/slog"
	"os"

	"gestion-optica-api/internal/config"
)

var Logger *slog.Logger

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) {
	Logger = New(cfg, os.Stdout)

	if cfg.IsProduction() {
		Logger.Info("Structured logging initialized", "environment", cfg.Environment)
	} else {
		Logger.Debug("Structured logging initialized", "environment", cfg.Environment)
	}
}

// New builds a JSON logger writing to w. Debug level and source locations are
// enabled outside production.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: !cfg.IsProduction(),
	}

	return slog.New(slog.NewJSONHandler(w, opts)).With("version", cfg.Version)
}

// L returns the process logger, or a discard logger before InitLogger ran.
func L() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper functions for common log operations
func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
