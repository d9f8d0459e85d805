// Package logging provides config-driven, categorized, file-based logging
// for the ori retrieval core. Logs are written to <root>/.ori/logs/ and are
// silent no-ops unless debug mode is enabled, so hot retrieval paths never
// pay I/O cost in normal operation.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryReader     Category = "reader"
	CategoryGraph      Category = "graph"
	CategoryVitality   Category = "vitality"
	CategoryEmbedding  Category = "embedding"
	CategoryBM25       Category = "bm25"
	CategoryIntent     Category = "intent"
	CategoryComposite  Category = "composite"
	CategoryFusion     Category = "fusion"
	CategoryPropensity Category = "propensity"
	CategoryStore      Category = "store"
	CategoryEngine     Category = "engine"
)

// Logger wraps a standard logger scoped to one category and log file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	debugMode bool
	initMu    sync.Mutex
)

// Init enables debug-mode file logging under <root>/.ori/logs.
// Calling it is optional; without it every logger is a silent no-op.
func Init(root string, debug bool) error {
	initMu.Lock()
	defer initMu.Unlock()

	debugMode = debug
	if !debug {
		return nil
	}

	logsDir = filepath.Join(root, ".ori", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}

// IsDebugMode reports whether file logging is active.
func IsDebugMode() bool {
	return debugMode
}

// Get returns (or lazily creates) the logger for a category. When debug
// mode is off this returns a logger with no backing file, and every method
// on it is a no-op.
func Get(category Category) *Logger {
	if !debugMode || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	logPath := filepath.Join(logsDir, string(category)+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[DEBUG] "+format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[INFO] "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[WARN] "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] "+format, args...)
}

// Timer measures and logs operation duration at debug level.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation within a category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
