package log

// NewNop returns a T that discards everything, for tests and examples that
// don't care about log output but need a non-nil logger to pass around.
func NewNop() T {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Tracef(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{})  {}
func (nopLogger) Infof(string, ...interface{})   {}
func (nopLogger) Warnf(string, ...interface{}) error { return nil }
func (nopLogger) Errorf(string, ...interface{}) error { return nil }
func (nopLogger) Trace(...interface{})           {}
func (nopLogger) Debug(...interface{})           {}
func (nopLogger) Info(...interface{})            {}
func (nopLogger) Warn(...interface{}) error      { return nil }
func (nopLogger) Error(...interface{}) error     { return nil }
func (nopLogger) Flush()                         {}
func (nopLogger) Close()                         {}
func (n nopLogger) WithContext(...string) T      { return n }
