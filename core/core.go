package core

import "github.com/hupe1980/deepresearch/logging"

// runLogger carries the logger of a run. Records written through it are
// tagged with the run's identifiers so that the concurrent stages of a
// research run can be told apart in the logs.
type runLogger struct {
	logger logging.Logger
}

// newRunLogger scopes l with the given key/value pairs. A nil logger becomes
// a NoOpLogger.
func newRunLogger(l logging.Logger, args ...any) *runLogger {
	if l == nil {
		return &runLogger{logger: logging.NoOpLogger{}}
	}
	if len(args) > 0 {
		l = logging.With(l, args...)
	}
	return &runLogger{logger: l}
}

// Logger returns the scoped logger.
func (l *runLogger) Logger() logging.Logger { return l.logger }

// LogDebug logs a debug message.
func (l *runLogger) LogDebug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// LogInfo logs an info message.
func (l *runLogger) LogInfo(msg string, args ...any) { l.logger.Info(msg, args...) }

// LogWarn logs a warning message.
func (l *runLogger) LogWarn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// LogError logs an error message.
func (l *runLogger) LogError(msg string, args ...any) { l.logger.Error(msg, args...) }
