package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNopLoggerDiscardsEverything(t *testing.T) {
	var l T = NewNop()
	l.Info("anything")
	assert.NoError(t, l.Warn("anything"))
	assert.NoError(t, l.Error("anything"))
	assert.NoError(t, l.Errorf("anything %d", 1))
	l.Flush()
	l.Close()

	ctx := l.WithContext("reactor")
	assert.NotNil(t, ctx)
}

func TestMockRecordsCalls(t *testing.T) {
	m := NewMock()
	m.On("WithContext", mock.Anything).Return(m)

	m.Info("hello")
	m.WithContext("pipe-1")

	m.AssertCalled(t, "Info", mock.Anything)
	m.AssertCalled(t, "WithContext", mock.Anything)
}

func TestMockWarnfReturnsConfiguredError(t *testing.T) {
	m := NewMock()
	assert.NoError(t, m.Warnf("disk at %d%%", 90))
}

func TestLoadConfigEmbedsDirAndFilenames(t *testing.T) {
	dir := filepath.Join(os.TempDir(), "sptest")
	cfg := string(LoadConfig(dir, "custom.log"))
	assert.True(t, strings.Contains(cfg, dir))
	assert.True(t, strings.Contains(cfg, "custom.log"))
	assert.True(t, strings.Contains(cfg, ErrorFile))
}

func TestNewFallsBackOnBadConfig(t *testing.T) {
	l := New([]byte("not valid seelog xml"))
	assert.NotNil(t, l)
	l.Info("still works after falling back to the default config")
	l.Close()
}

func TestWithContextAccumulatesTags(t *testing.T) {
	l := New(DefaultConfig())
	defer l.Close()

	tagged := l.WithContext("session").WithContext("reactor")
	assert.NotNil(t, tagged)
	tagged.Info("nested context should not panic")
}
