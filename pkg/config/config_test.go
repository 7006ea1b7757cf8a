package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/tether/pkg/health"
	"github.com/cuemby/tether/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log:
  level: debug
  json: true
metrics:
  addr: ":9191"
node:
  name: edge-1
  role: manager
  labels:
    zone: eu-1
  refresh: 10s
checks:
  - name: api
    type: http
    target: http://127.0.0.1:8080/health
    interval: 5s
  - name: redis
    type: tcp
    target: 127.0.0.1:6379
    timeout: 2s
    retries: 5
  - name: disk
    type: exec
    command: ["test", "-w", "/var/lib"]
    start_period: 1m
restart:
  initial: 500ms
  max: 30s
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
	assert.Equal(t, "edge-1", cfg.Node.Name)
	assert.Equal(t, types.NodeRoleManager, cfg.Node.Role)
	assert.Equal(t, "eu-1", cfg.Node.Labels["zone"])
	assert.Equal(t, 10*time.Second, cfg.Node.Refresh)
	assert.Equal(t, 500*time.Millisecond, cfg.Restart.Initial)

	require.Len(t, cfg.Checks, 3)
	api := cfg.Checks[0]
	assert.Equal(t, health.CheckTypeHTTP, api.Type)
	assert.Equal(t, 5*time.Second, api.Interval)
	assert.Equal(t, health.DefaultConfig().Timeout, api.Timeout)
	assert.Equal(t, health.DefaultConfig().Retries, api.Retries)

	redis := cfg.Checks[1].HealthConfig()
	assert.Equal(t, 2*time.Second, redis.Timeout)
	assert.Equal(t, 5, redis.Retries)

	assert.Equal(t, []string{"test", "-w", "/var/lib"}, cfg.Checks[2].Command)
	assert.Equal(t, time.Minute, cfg.Checks[2].StartPeriod)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("node:\n  name: edge-2\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "edge-2", cfg.Node.Name)
	assert.Equal(t, def.Node.Refresh, cfg.Node.Refresh)
	assert.Equal(t, def.Node.Role, cfg.Node.Role)
	assert.Equal(t, def.Metrics.Addr, cfg.Metrics.Addr)
	assert.Equal(t, def.Restart, cfg.Restart)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad role", "node:\n  role: leader\n", `node.role: unknown role "leader"`},
		{"zero refresh", "node:\n  refresh: 0s\n", "node.refresh: must be positive"},
		{"restart max below initial", "restart:\n  initial: 10s\n  max: 1s\n", "restart.max"},
		{"check without name", "checks:\n  - type: tcp\n    target: x:1\n", "checks[0]: name is required"},
		{"http without target", "checks:\n  - name: api\n    type: http\n", `http check "api" needs a target`},
		{"exec without command", "checks:\n  - name: disk\n    type: exec\n", `exec check "disk" needs a command`},
		{"unknown type", "checks:\n  - name: x\n    type: grpc\n", `unsupported type "grpc"`},
		{"duplicate names", "checks:\n  - {name: a, type: tcp, target: 'x:1'}\n  - {name: a, type: tcp, target: 'x:2'}\n", `duplicate name "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("node: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Checks, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestMarshalLoadsBack(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	data, err := cfg.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
