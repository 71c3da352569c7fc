package engine

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's default logger instance.
// It uses a no-op logger unless SetLogger was called first.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs the default logger for engines that are created
// without WithLogger. Must be called before the first engine is
// created to take effect.
func SetLogger(l *zap.Logger) {
	logger = l
}
