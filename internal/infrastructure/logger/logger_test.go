package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "json stdout", cfg: Config{Level: "info", Format: "json", Output: "stdout"}},
		{name: "console stderr", cfg: Config{Level: "debug", Format: "console", Output: "stderr"}},
		{name: "file output", cfg: Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")}},
		{name: "unwritable file", cfg: Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestConfigForEnvironment(t *testing.T) {
	assert.Equal(t, "console", ConfigForEnvironment("development").Format)
	assert.Equal(t, "json", ConfigForEnvironment("production").Format)
	assert.Equal(t, "info", ConfigForEnvironment("staging").Level)
}
