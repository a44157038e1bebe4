package log

import (
	"sync"

	"github.com/cihub/seelog"
)

// New builds a T backed by seelog, configured from cfg (a seelog XML
// document) or DefaultConfig if cfg fails to parse.
func New(cfg []byte) T {
	logger, err := seelog.LoggerFromConfigAsBytes(cfg)
	if err != nil {
		logger, _ = seelog.LoggerFromConfigAsBytes(DefaultConfig())
	}
	_ = seelog.ReplaceLogger(logger)
	return &wrapper{base: logger, mu: &sync.Mutex{}}
}

// wrapper adapts a seelog.LoggerInterface (which already satisfies BasicT
// structurally) into T, prefixing every message with the context tags
// accumulated by WithContext.
type wrapper struct {
	base    seelog.LoggerInterface
	mu      *sync.Mutex
	context []string
}

func (w *wrapper) WithContext(context ...string) T {
	next := make([]string, 0, len(w.context)+len(context))
	next = append(next, w.context...)
	next = append(next, context...)
	return &wrapper{base: w.base, mu: w.mu, context: next}
}

func (w *wrapper) prefix(format string) string {
	if len(w.context) == 0 {
		return format
	}
	p := "["
	for i, c := range w.context {
		if i > 0 {
			p += " "
		}
		p += c
	}
	return p + "] " + format
}

func (w *wrapper) Tracef(format string, params ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Tracef(w.prefix(format), params...)
}

func (w *wrapper) Debugf(format string, params ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Debugf(w.prefix(format), params...)
}

func (w *wrapper) Infof(format string, params ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Infof(w.prefix(format), params...)
}

func (w *wrapper) Warnf(format string, params ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.base.Warnf(w.prefix(format), params...)
}

func (w *wrapper) Errorf(format string, params ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.base.Errorf(w.prefix(format), params...)
}

func (w *wrapper) Trace(v ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Trace(v...)
}

func (w *wrapper) Debug(v ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Debug(v...)
}

func (w *wrapper) Info(v ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Info(v...)
}

func (w *wrapper) Warn(v ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.base.Warn(v...)
}

func (w *wrapper) Error(v ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.base.Error(v...)
}

func (w *wrapper) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Flush()
}

func (w *wrapper) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base.Close()
}
