package announcer

// Logger is the printf-style logging interface used throughout the
// announcer. Messages follow a "What happened: key=value, ..." layout.
// See adapters/zaplog for a zap backed implementation.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NoopLogger discards everything. Useful in tests.
type NoopLogger struct{}

func (*NoopLogger) Debugf(string, ...interface{}) {}
func (*NoopLogger) Infof(string, ...interface{})  {}
func (*NoopLogger) Warnf(string, ...interface{})  {}
func (*NoopLogger) Errorf(string, ...interface{}) {}
