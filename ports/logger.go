package ports

// Logger is the injected logging sink. Construction, teardown and
// diagnostics reports go through it; sampling results never depend on it.
type Logger interface {
	Error(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
}
