package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/tether/pkg/health"
	"github.com/cuemby/tether/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is the agent configuration file
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Node    NodeConfig    `yaml:"node"`
	Checks  []CheckConfig `yaml:"checks,omitempty"`
	Restart RestartConfig `yaml:"restart"`
}

// LogConfig configures pkg/log
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the metrics and health HTTP listener
type MetricsConfig struct {
	// Addr is the listen address; empty disables the listener
	Addr string `yaml:"addr"`
}

// NodeConfig configures the node info worker
type NodeConfig struct {
	ID      string            `yaml:"id,omitempty"`
	Name    string            `yaml:"name,omitempty"`
	Role    types.NodeRole    `yaml:"role"`
	Labels  map[string]string `yaml:"labels,omitempty"`
	Refresh time.Duration     `yaml:"refresh"`
}

// CheckConfig configures one health check worker
type CheckConfig struct {
	Name        string           `yaml:"name"`
	Type        health.CheckType `yaml:"type"`
	Target      string           `yaml:"target,omitempty"`
	Command     []string         `yaml:"command,omitempty"`
	Interval    time.Duration    `yaml:"interval"`
	Timeout     time.Duration    `yaml:"timeout"`
	Retries     int              `yaml:"retries"`
	StartPeriod time.Duration    `yaml:"start_period,omitempty"`
}

// RestartConfig configures worker restart backoff
type RestartConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
		},
		Node: NodeConfig{
			Role:    types.NodeRoleWorker,
			Refresh: 30 * time.Second,
		},
		Restart: RestartConfig{
			Initial: time.Second,
			Max:     time.Minute,
		},
	}
}

// Load reads and validates a config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML config data on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyCheckDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyCheckDefaults() {
	defaults := health.DefaultConfig()
	for i := range c.Checks {
		check := &c.Checks[i]
		if check.Interval == 0 {
			check.Interval = defaults.Interval
		}
		if check.Timeout == 0 {
			check.Timeout = defaults.Timeout
		}
		if check.Retries == 0 {
			check.Retries = defaults.Retries
		}
	}
}

// Validate checks the config for errors, reporting all of them
func (c *Config) Validate() error {
	var errs []error

	switch c.Node.Role {
	case types.NodeRoleManager, types.NodeRoleWorker:
	default:
		errs = append(errs, fmt.Errorf("node.role: unknown role %q", c.Node.Role))
	}
	if c.Node.Refresh <= 0 {
		errs = append(errs, errors.New("node.refresh: must be positive"))
	}

	if c.Restart.Initial <= 0 {
		errs = append(errs, errors.New("restart.initial: must be positive"))
	}
	if c.Restart.Max < c.Restart.Initial {
		errs = append(errs, errors.New("restart.max: must not be less than restart.initial"))
	}

	names := make(map[string]bool)
	for i, check := range c.Checks {
		if err := check.validate(); err != nil {
			errs = append(errs, fmt.Errorf("checks[%d]: %w", i, err))
		}
		if names[check.Name] {
			errs = append(errs, fmt.Errorf("checks[%d]: duplicate name %q", i, check.Name))
		}
		names[check.Name] = true
	}

	return errors.Join(errs...)
}

func (c CheckConfig) validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}

	switch c.Type {
	case health.CheckTypeHTTP, health.CheckTypeTCP:
		if c.Target == "" {
			return fmt.Errorf("%s check %q needs a target", c.Type, c.Name)
		}
	case health.CheckTypeExec:
		if len(c.Command) == 0 {
			return fmt.Errorf("exec check %q needs a command", c.Name)
		}
	default:
		return fmt.Errorf("check %q: unsupported type %q", c.Name, c.Type)
	}

	if c.Interval <= 0 || c.Timeout <= 0 || c.Retries <= 0 {
		return fmt.Errorf("check %q: interval, timeout and retries must be positive", c.Name)
	}
	return nil
}

// HealthConfig converts the check timing settings to a health.Config
func (c CheckConfig) HealthConfig() health.Config {
	return health.Config{
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		Retries:     c.Retries,
		StartPeriod: c.StartPeriod,
	}
}

// Marshal encodes the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
