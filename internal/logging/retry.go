package logging

import (
	"github.com/rs/zerolog"
)

// RetryLogger adapts Logger to retryablehttp.LeveledLogger.
// Retry chatter is demoted: Info and Debug go to debug level.
type RetryLogger struct {
	l *Logger
}

// NewRetryLogger returns a RetryLogger backed by l.
func NewRetryLogger(l *Logger) *RetryLogger {
	return &RetryLogger{l: l}
}

func (r *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Error(), keysAndValues).Msg("[retry] " + msg)
}

func (r *RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Debug(), keysAndValues).Msg("[retry] " + msg)
}

func (r *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Debug(), keysAndValues).Msg("[retry] " + msg)
}

func (r *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(r.l.Warn(), keysAndValues).Msg("[retry] " + msg)
}

// withFields attaches alternating key/value pairs to ev.
func withFields(ev *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}
