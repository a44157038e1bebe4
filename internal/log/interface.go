// Package log wraps seelog behind a small interface so the rest of the
// module never imports seelog directly.
package log

// BasicT is the subset of seelog.LoggerInterface the module needs.
type BasicT interface {
	Tracef(format string, params ...interface{})
	Debugf(format string, params ...interface{})
	Infof(format string, params ...interface{})
	Warnf(format string, params ...interface{}) error
	Errorf(format string, params ...interface{}) error

	Trace(v ...interface{})
	Debug(v ...interface{})
	Info(v ...interface{})
	Warn(v ...interface{}) error
	Error(v ...interface{}) error

	Flush()
	Close()
}

// T adds context tagging to BasicT: WithContext returns a logger whose
// messages carry the given tags, so a component (the reactor logs under
// "session") need not format its identity into every call.
type T interface {
	BasicT
	WithContext(context ...string) T
}
