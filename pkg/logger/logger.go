// Package logger defines the logging contract the SDK emits through.
// The SDK is silent by default (Nop); callers inject a Zap-backed logger
// or any implementation of Logger to observe request and cache activity.
package logger

type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	With(keysAndValues ...any) Logger
}

type nopLogger struct{}

// Nop returns a logger that discards everything. It is the default for
// clients constructed without WithLogger.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debugw(string, ...any) {}
func (nopLogger) Infow(string, ...any)  {}
func (nopLogger) Warnw(string, ...any)  {}
func (nopLogger) Errorw(string, ...any) {}

func (n nopLogger) With(...any) Logger { return n }
