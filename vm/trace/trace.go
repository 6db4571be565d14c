// Package trace provides the optional "[VM DEBUG]" stderr stream (spec
// §6 Debug stream: "format is not part of the contract"), grounded on
// the teacher's engine.Logger()/debugf pattern: a lazily-built zap logger
// that is a no-op until enabled.
package trace

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	enabled    bool
)

// Enable turns on the "[VM DEBUG]" stderr stream for the remainder of the
// process.
func Enable() {
	enabled = true
}

// Logger returns the trace sink, building a stderr-backed zap logger the
// first time it's needed and a no-op logger otherwise.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if !enabled {
			logger = zap.NewNop()
			return
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.EncoderConfig.TimeKey = ""
		l, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
			return
		}
		logger = l
	})
	return logger
}

// Debugf emits a "[VM DEBUG]" line when tracing is enabled; it is a
// no-op otherwise.
func Debugf(format string, args ...any) {
	if !enabled {
		return
	}
	Logger().Sugar().Debugf("[VM DEBUG] "+format, args...)
}
