package logger

import "time"

// LogThrottle logs a throttle pause for the given window.
func LogThrottle(l Logger, window time.Duration, count, limit int, pause time.Duration) {
	l.WarnWithFields("action budget exhausted, pausing", map[string]interface{}{
		"window": window.String(),
		"count":  count,
		"limit":  limit,
		"pause":  pause.String(),
	})
}

// LogAction logs the outcome of a live action.
func LogAction(l Logger, verb, target, outcome string) {
	l.InfoWithFields("action performed", map[string]interface{}{
		"verb":    verb,
		"target":  target,
		"outcome": outcome,
	})
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
