package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ParseDeployConfig
// ---------------------------------------------------------------------------

func TestParseDeployConfig_Full(t *testing.T) {
	data := []byte(`
log-level: debug
deploy:
  command: rsync
  args: ["-az", "./", "pi@192.168.1.25:/srv/app"]
  dir: /tmp
  env:
    B: "2"
    A: "1"
  timeout: 2m
`)

	cfg, err := ParseDeployConfig(data)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "rsync", cfg.Command)
	assert.Len(t, cfg.Args, 3)
	assert.Equal(t, "/tmp", cfg.Dir)
	assert.Equal(t, []string{"A=1", "B=2"}, cfg.EnvList())
	assert.Equal(t, "2m", cfg.Timeout)
}

func TestParseDeployConfig_Absent(t *testing.T) {
	cfg, err := ParseDeployConfig([]byte("log-level: info\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestParseDeployConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"malformed yaml", "deploy: [unclosed", "parsing deploy config"},
		{"bad timeout", "deploy:\n  command: x\n  timeout: forever\n", "invalid timeout"},
		{"negative timeout", "deploy:\n  command: x\n  timeout: -1s\n", "must not be negative"},
		{"args without command", "deploy:\n  args: [a]\n", "without a command"},
		{"bad env name", "deploy:\n  command: x\n  env:\n    \"A=B\": c\n", "invalid environment variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeployConfig([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDeployConfig_MissingFile(t *testing.T) {
	_, err := LoadDeployConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadDeployConfig_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".syncwatch.yaml")
	require.NoError(t, os.WriteFile(p, []byte("deploy:\n  command: ./go.sh\n"), 0o600))

	cfg, err := LoadDeployConfig(p)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "./go.sh", cfg.Command)
}

// ---------------------------------------------------------------------------
// EffectiveDeploy
// ---------------------------------------------------------------------------

func TestEffectiveDeploy_Default(t *testing.T) {
	spec := Default().EffectiveDeploy()
	assert.Equal(t, DefaultDeployCommand, spec.Command)
	assert.Empty(t, spec.Args)
	assert.Zero(t, spec.Timeout)
}

func TestEffectiveDeploy_FlagOverridesBlock(t *testing.T) {
	cfg := Default()
	cfg.Deploy = &DeployConfig{Command: "rsync", Args: []string{"-az"}, Timeout: "1m"}
	cfg.DeployCommand = "make deploy"
	cfg.DeployTimeout = 10 * time.Second

	spec := cfg.EffectiveDeploy()
	assert.Equal(t, "make deploy", spec.Command)
	assert.Nil(t, spec.Args)
	assert.Equal(t, 10*time.Second, spec.Timeout)
}

func TestEffectiveDeploy_BlockTimeout(t *testing.T) {
	cfg := Default()
	cfg.Deploy = &DeployConfig{Command: "rsync", Timeout: "45s"}

	spec := cfg.EffectiveDeploy()
	assert.Equal(t, "rsync", spec.Command)
	assert.Equal(t, 45*time.Second, spec.Timeout)
}
