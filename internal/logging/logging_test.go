package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// bufferCore builds a console-encoded core writing into buf with the given
// level encoder, mirroring the real console setup without stdout.
func bufferCore(buf *bytes.Buffer, levelEnc zapcore.LevelEncoder) zapcore.Core {
	return zapcore.NewCore(consoleEncoder(levelEnc), zapcore.AddSync(buf), zapcore.DebugLevel)
}

func TestSeverityTags(t *testing.T) {
	var std, success bytes.Buffer
	log := NewForCores(
		bufferCore(&std, stdLevelEncoder(true)),
		bufferCore(&success, successLevelEncoder(true)),
	)

	log.Info("probing host")
	log.Error("installation failed")
	log.Success("client installed")
	log.Sync()

	lines := strings.Split(strings.TrimRight(std.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO")
	assert.Contains(t, lines[0], "probing host")
	assert.Contains(t, lines[1], "ERROR")
	assert.Contains(t, lines[1], "installation failed")

	assert.Contains(t, success.String(), "SUCCESS")
	assert.Contains(t, success.String(), "client installed")
}

func TestSuccessTagOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewForCores(
		bufferCore(&bytes.Buffer{}, stdLevelEncoder(true)),
		bufferCore(&buf, successLevelEncoder(true)),
	)

	log.Success("done")
	log.Sync()

	assert.Contains(t, buf.String(), "SUCCESS")
	assert.NotContains(t, buf.String(), "INFO")
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installer.log")
	log, err := New(Options{LogFile: path, NoColor: true})
	require.NoError(t, err)

	log.Info("hello")
	log.Success("world")
	log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hello")
	assert.Contains(t, string(raw), "SUCCESS")
	assert.Contains(t, string(raw), "world")
}

func TestNewReportsUnopenableLogFile(t *testing.T) {
	log, err := New(Options{LogFile: filepath.Join(t.TempDir(), "missing", "installer.log"), NoColor: true})
	require.Error(t, err)
	require.NotNil(t, log)

	// Console-only operation still works.
	log.Info("still logging")
	log.Sync()
}

func TestVerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installer.log")

	log, err := New(Options{LogFile: path, Verbose: false, NoColor: true})
	require.NoError(t, err)
	log.Debug("suppressed")
	log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "suppressed")

	log, err = New(Options{LogFile: path, Verbose: true, NoColor: true})
	require.NoError(t, err)
	log.Debug("emitted")
	log.Sync()

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "emitted")
}
