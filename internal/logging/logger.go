// Package logging provides categorized logging for docscout built on zap.
// Each subsystem logs through a named child of one root logger so a single
// level configuration applies everywhere. The root defaults to a no-op
// logger; the CLI installs a real one at startup and tests install
// zaptest loggers.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and configuration
	CategorySession  Category = "session"  // Conversation controller turns
	CategoryProtocol Category = "protocol" // Tool request parsing/validation
	CategoryRouter   Category = "router"   // Retrieval strategy selection
	CategoryDocument Category = "document" // Section trees, structure cache
	CategoryGlossary Category = "glossary" // Query expansion, acronym lookup
	CategoryBackend  Category = "backend"  // Search backend transport
	CategoryAnswer   Category = "answer"   // Answer synthesis
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the root logger from the given level string
// ("debug", "info", "warn", "error"). verbose forces debug level.
func Initialize(level string, verbose bool) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(l)
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the root logger. Tests use this with zaptest.NewLogger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	sugared = make(map[Category]*zap.SugaredLogger)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[cat]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[cat]; ok {
		return s
	}
	s := root.Named(string(cat)).Sugar()
	sugared[cat] = s
	return s
}

// Printf-style helpers per category, mirroring call sites like
// logging.Session("Processing query: %d chars", n).

func Session(format string, args ...any)  { Get(CategorySession).Infof(format, args...) }
func Protocol(format string, args ...any) { Get(CategoryProtocol).Infof(format, args...) }
func Router(format string, args ...any)   { Get(CategoryRouter).Infof(format, args...) }
func Document(format string, args ...any) { Get(CategoryDocument).Infof(format, args...) }
func Glossary(format string, args ...any) { Get(CategoryGlossary).Infof(format, args...) }
func Backend(format string, args ...any)  { Get(CategoryBackend).Infof(format, args...) }
func Answer(format string, args ...any)   { Get(CategoryAnswer).Infof(format, args...) }

func SessionDebug(format string, args ...any)  { Get(CategorySession).Debugf(format, args...) }
func ProtocolDebug(format string, args ...any) { Get(CategoryProtocol).Debugf(format, args...) }
func RouterDebug(format string, args ...any)   { Get(CategoryRouter).Debugf(format, args...) }
func DocumentDebug(format string, args ...any) { Get(CategoryDocument).Debugf(format, args...) }
func BackendDebug(format string, args ...any)  { Get(CategoryBackend).Debugf(format, args...) }
