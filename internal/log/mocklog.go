package log

import "github.com/stretchr/testify/mock"

// Mock is a testify mock for T, for tests that want to assert on which log
// calls a component made rather than just discarding them.
type Mock struct {
	mock.Mock
}

// NewMock returns a Mock with the usual no-op expectations pre-registered,
// so tests only need to add On() calls for the assertions they actually
// care about.
func NewMock() *Mock {
	m := new(Mock)
	m.On("Close").Return()
	m.On("Flush").Return()
	m.On("Debug", mock.Anything).Return()
	m.On("Info", mock.Anything).Return()
	m.On("Trace", mock.Anything).Return()
	m.On("Warn", mock.Anything).Return(nil)
	m.On("Error", mock.Anything).Return(nil)
	m.On("Debugf", mock.Anything, mock.Anything).Return()
	m.On("Infof", mock.Anything, mock.Anything).Return()
	m.On("Tracef", mock.Anything, mock.Anything).Return()
	m.On("Warnf", mock.Anything, mock.Anything).Return(nil)
	m.On("Errorf", mock.Anything, mock.Anything).Return(nil)
	return m
}

func (m *Mock) Tracef(format string, params ...interface{}) { m.Called(format, params) }
func (m *Mock) Debugf(format string, params ...interface{}) { m.Called(format, params) }
func (m *Mock) Infof(format string, params ...interface{})  { m.Called(format, params) }

func (m *Mock) Warnf(format string, params ...interface{}) error {
	ret := m.Called(format, params)
	return ret.Error(0)
}

func (m *Mock) Errorf(format string, params ...interface{}) error {
	ret := m.Called(format, params)
	return ret.Error(0)
}

func (m *Mock) Trace(v ...interface{}) { m.Called(v) }
func (m *Mock) Debug(v ...interface{}) { m.Called(v) }
func (m *Mock) Info(v ...interface{})  { m.Called(v) }

func (m *Mock) Warn(v ...interface{}) error {
	ret := m.Called(v)
	return ret.Error(0)
}

func (m *Mock) Error(v ...interface{}) error {
	ret := m.Called(v)
	return ret.Error(0)
}

func (m *Mock) Flush() { m.Called() }
func (m *Mock) Close() { m.Called() }

func (m *Mock) WithContext(context ...string) T {
	args := make([]interface{}, len(context))
	for i, c := range context {
		args[i] = c
	}
	m.Called(args)
	return m
}
