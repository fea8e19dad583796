// Package logging provides config-driven categorized logging for GORA Workspace.
// Each category is a named child of one zap logger. When debug_mode is off and
// no log file is configured, every logger is a no-op so the TUI stays clean.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gora/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Boot/initialization
	CategorySession Category = "session" // Session store operations
	CategoryAPI     Category = "api"     // Remote model calls
	CategoryContext Category = "context" // Context assembly
	CategoryExtract Category = "extract" // PDF/DOCX extraction
	CategoryTurn    Category = "turn"    // Turn protocol state changes
	CategoryLab     Category = "lab"     // Scratch interpreter
	CategoryExport  Category = "export"  // Download surface
	CategoryUI      Category = "ui"      // Presentation shell
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Initialize builds the root logger from the logging config.
// Safe to call more than once; the previous logger is synced and replaced.
func Initialize(lc config.LoggingConfig) error {
	logger, err := build(lc)
	if err != nil {
		return err
	}

	mu.Lock()
	old := root
	root = logger
	cfg = lc
	loggers = make(map[Category]*zap.Logger)
	mu.Unlock()

	_ = old.Sync()

	root.Named(string(CategoryBoot)).Info("logging initialized",
		zap.String("level", lc.Level),
		zap.String("file", lc.File),
		zap.Bool("debug_mode", lc.DebugMode))
	return nil
}

func build(lc config.LoggingConfig) (*zap.Logger, error) {
	if lc.File == "" && !lc.DebugMode {
		return zap.NewNop(), nil
	}

	var zc zap.Config
	if lc.DebugMode {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if lc.DebugMode {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	// Never write to stdout/stderr: the terminal belongs to the UI.
	if lc.File == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	zc.OutputPaths = []string{lc.File}
	zc.ErrorOutputPaths = []string{lc.File}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Get returns the logger for a category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var l *zap.Logger
	if cfg.IsCategoryEnabled(string(category)) {
		l = root.Named(string(category))
	} else {
		l = zap.NewNop()
	}
	loggers[category] = l
	return l
}

// Use installs an externally built logger, typically zaptest's in tests.
func Use(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	cfg = config.LoggingConfig{}
	loggers = make(map[Category]*zap.Logger)
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
