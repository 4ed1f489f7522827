// Package logging provides config-driven categorized logging for Meebo.
// Each subsystem logs to its own named category; categories can be enabled
// or disabled individually, and the global level can be changed at runtime
// (the config watcher uses this for live level changes).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	// Core categories
	CategoryBoot   Category = "boot"   // Startup/initialization
	CategoryLoop   Category = "loop"   // Robot control loop cycles
	CategoryConfig Category = "config" // Config loading, watcher reloads

	// Brain categories
	CategoryBrain    Category = "brain"    // LLM turn orchestration
	CategoryStream   Category = "stream"   // Streaming protocol client
	CategoryParse    Category = "parse"    // Incremental action parsing
	CategoryDispatch Category = "dispatch" // Action dispatch/deduplication
	CategoryTools    Category = "tools"    // Capability registry

	// Hardware categories
	CategoryMotors  Category = "motors"
	CategorySensors Category = "sensors"
	CategoryAudio   Category = "audio"
	CategoryCamera  Category = "camera"

	// Persistence
	CategoryStore Category = "store" // Turn transcript store
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// Dir, if set, adds a file sink at Dir/meebo.log alongside stderr.
	Dir string
	// Categories maps category name to enabled flag. Nil enables all.
	Categories map[string]bool
	// JSONFormat selects the JSON encoder for the file sink.
	JSONFormat bool
}

var (
	mu         sync.RWMutex
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*zap.SugaredLogger)
	logFile    *os.File
)

// Initialize builds the zap backend. Safe to call once at startup; before it
// runs, all logging is a no-op.
func Initialize(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	level.SetLevel(parseLevel(opts.Level))
	categories = opts.Categories

	consoleEnc := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		path := filepath.Join(opts.Dir, "meebo.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		logFile = f
		var fileEnc zapcore.Encoder
		if opts.JSONFormat {
			fileEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			fileEnc = zapcore.NewConsoleEncoder(consoleEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(f), level))
	}

	root = zap.New(zapcore.NewTee(cores...))
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel changes the global level at runtime.
func SetLevel(s string) {
	level.SetLevel(parseLevel(s))
}

// IsCategoryEnabled reports whether a category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a sugared logger named after the category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop().Sugar()
	}

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
	l := root.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries and closes the file sink.
// Call at shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = root.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Loop logs to the loop category
func Loop(format string, args ...interface{}) {
	Get(CategoryLoop).Infof(format, args...)
}

// LoopDebug logs debug to the loop category
func LoopDebug(format string, args ...interface{}) {
	Get(CategoryLoop).Debugf(format, args...)
}

// LoopWarn logs a warning to the loop category
func LoopWarn(format string, args ...interface{}) {
	Get(CategoryLoop).Warnf(format, args...)
}

// LoopError logs an error to the loop category
func LoopError(format string, args ...interface{}) {
	Get(CategoryLoop).Errorf(format, args...)
}

// Config logs to the config category
func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Infof(format, args...)
}

// ConfigWarn logs a warning to the config category
func ConfigWarn(format string, args ...interface{}) {
	Get(CategoryConfig).Warnf(format, args...)
}

// Brain logs to the brain category
func Brain(format string, args ...interface{}) {
	Get(CategoryBrain).Infof(format, args...)
}

// BrainDebug logs debug to the brain category
func BrainDebug(format string, args ...interface{}) {
	Get(CategoryBrain).Debugf(format, args...)
}

// BrainWarn logs a warning to the brain category
func BrainWarn(format string, args ...interface{}) {
	Get(CategoryBrain).Warnf(format, args...)
}

// BrainError logs an error to the brain category
func BrainError(format string, args ...interface{}) {
	Get(CategoryBrain).Errorf(format, args...)
}

// Stream logs to the stream category
func Stream(format string, args ...interface{}) {
	Get(CategoryStream).Infof(format, args...)
}

// StreamDebug logs debug to the stream category
func StreamDebug(format string, args ...interface{}) {
	Get(CategoryStream).Debugf(format, args...)
}

// StreamWarn logs a warning to the stream category
func StreamWarn(format string, args ...interface{}) {
	Get(CategoryStream).Warnf(format, args...)
}

// StreamError logs an error to the stream category
func StreamError(format string, args ...interface{}) {
	Get(CategoryStream).Errorf(format, args...)
}

// Parse logs to the parse category
func Parse(format string, args ...interface{}) {
	Get(CategoryParse).Infof(format, args...)
}

// ParseDebug logs debug to the parse category
func ParseDebug(format string, args ...interface{}) {
	Get(CategoryParse).Debugf(format, args...)
}

// ParseWarn logs a warning to the parse category
func ParseWarn(format string, args ...interface{}) {
	Get(CategoryParse).Warnf(format, args...)
}

// Dispatch logs to the dispatch category
func Dispatch(format string, args ...interface{}) {
	Get(CategoryDispatch).Infof(format, args...)
}

// DispatchDebug logs debug to the dispatch category
func DispatchDebug(format string, args ...interface{}) {
	Get(CategoryDispatch).Debugf(format, args...)
}

// DispatchWarn logs a warning to the dispatch category
func DispatchWarn(format string, args ...interface{}) {
	Get(CategoryDispatch).Warnf(format, args...)
}

// DispatchError logs an error to the dispatch category
func DispatchError(format string, args ...interface{}) {
	Get(CategoryDispatch).Errorf(format, args...)
}

// Tools logs to the tools category
func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Infof(format, args...)
}

// ToolsDebug logs debug to the tools category
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debugf(format, args...)
}

// ToolsWarn logs a warning to the tools category
func ToolsWarn(format string, args ...interface{}) {
	Get(CategoryTools).Warnf(format, args...)
}

// Motors logs to the motors category
func Motors(format string, args ...interface{}) {
	Get(CategoryMotors).Infof(format, args...)
}

// MotorsDebug logs debug to the motors category
func MotorsDebug(format string, args ...interface{}) {
	Get(CategoryMotors).Debugf(format, args...)
}

// Sensors logs to the sensors category
func Sensors(format string, args ...interface{}) {
	Get(CategorySensors).Infof(format, args...)
}

// SensorsDebug logs debug to the sensors category
func SensorsDebug(format string, args ...interface{}) {
	Get(CategorySensors).Debugf(format, args...)
}

// Audio logs to the audio category
func Audio(format string, args ...interface{}) {
	Get(CategoryAudio).Infof(format, args...)
}

// AudioDebug logs debug to the audio category
func AudioDebug(format string, args ...interface{}) {
	Get(CategoryAudio).Debugf(format, args...)
}

// Camera logs to the camera category
func Camera(format string, args ...interface{}) {
	Get(CategoryCamera).Infof(format, args...)
}

// CameraDebug logs debug to the camera category
func CameraDebug(format string, args ...interface{}) {
	Get(CategoryCamera).Debugf(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Errorf(format, args...)
}
