package logger

// Instance defines the interface for logging backends.
type Instance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds one or more logging backends and dispatches log calls to all
// of them. A Logger is constructed once per run and handed to each component,
// so its lifecycle is scoped to the run rather than the process.
type Logger struct {
	instances []Instance
	keyvals   []any
}

// New creates a Logger that dispatches to the given backends.
func New(instances ...Instance) *Logger {
	return &Logger{instances: instances}
}

// Nop returns a Logger with no backends. Useful in tests.
func Nop() *Logger {
	return &Logger{}
}

// With returns a Logger that prepends the given key-value pairs to every
// message. The receiver is not modified.
func (l *Logger) With(keyvals ...any) *Logger {
	if l == nil {
		return nil
	}
	merged := make([]any, 0, len(l.keyvals)+len(keyvals))
	merged = append(merged, l.keyvals...)
	merged = append(merged, keyvals...)
	return &Logger{instances: l.instances, keyvals: merged}
}

func (l *Logger) dispatch(fn func(Instance, string, ...any), message string, keyvals []any) {
	if l == nil {
		return
	}
	kv := keyvals
	if len(l.keyvals) > 0 {
		kv = make([]any, 0, len(l.keyvals)+len(keyvals))
		kv = append(kv, l.keyvals...)
		kv = append(kv, keyvals...)
	}
	for _, instance := range l.instances {
		fn(instance, message, kv...)
	}
}

// Log writes a message at the default log level to all configured backends.
func (l *Logger) Log(message string, keyvals ...any) {
	l.dispatch(Instance.Log, message, keyvals)
}

// Debug writes a message at DEBUG level to all configured backends.
func (l *Logger) Debug(message string, keyvals ...any) {
	l.dispatch(Instance.Debug, message, keyvals)
}

// Info writes a message at INFO level to all configured backends.
func (l *Logger) Info(message string, keyvals ...any) {
	l.dispatch(Instance.Info, message, keyvals)
}

// Warn writes a message at WARN level to all configured backends.
func (l *Logger) Warn(message string, keyvals ...any) {
	l.dispatch(Instance.Warn, message, keyvals)
}

// Error writes a message at ERROR level to all configured backends.
func (l *Logger) Error(message string, keyvals ...any) {
	l.dispatch(Instance.Error, message, keyvals)
}

// Fatal writes a message at FATAL level and terminates the program.
func (l *Logger) Fatal(message string, keyvals ...any) {
	l.dispatch(Instance.Fatal, message, keyvals)
}
