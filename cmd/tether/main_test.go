package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("checks:\n  - {name: redis, type: tcp, target: '127.0.0.1:6379'}\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("node:\n  role: leader\n"), 0o644))

	out, err := execute(t, "config", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (1 health checks)")

	_, err = execute(t, "config", "validate", bad)
	assert.ErrorContains(t, err, "unknown role")
}

func TestConfigDefault(t *testing.T) {
	out, err := execute(t, "config", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "refresh: 30s")
	assert.Contains(t, out, "127.0.0.1:9090")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Tether version dev")
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\nmetrics:\n  addr: ':9999'\n"), 0o644))

	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(agentCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--log-level", "debug", "--json"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}
