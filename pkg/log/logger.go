// Package log provides the shared structured logger for the autofixture
// library. Capture failures are reported here instead of being surfaced to
// the test client, so the logger must always be available.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once       sync.Once
	logger     *zap.SugaredLogger
	syncLogger = func() error { return nil }
)

// Logger returns a lazily initialised structured logger named "autofixture".
func Logger() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.MessageKey = "msg"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		base, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		logger = base.Named("autofixture").Sugar()
		syncLogger = base.Sync
	})

	return logger
}

// Sync flushes any buffered log entries. Errors from syncing stderr are
// discarded since they occur routinely at test-process exit.
func Sync() {
	_ = syncLogger()
}
