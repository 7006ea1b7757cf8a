package health

import (
	"context"
	"fmt"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result represents the outcome of a single health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// NewChecker builds a checker of the given type. target is the URL of an http
// check or the address of a tcp check; command is the argv of an exec check.
func NewChecker(checkType CheckType, target string, command []string, timeout time.Duration) (Checker, error) {
	switch checkType {
	case CheckTypeHTTP:
		if target == "" {
			return nil, fmt.Errorf("http check needs a URL")
		}
		return NewHTTPChecker(target).WithTimeout(timeout), nil
	case CheckTypeTCP:
		if target == "" {
			return nil, fmt.Errorf("tcp check needs an address")
		}
		return NewTCPChecker(target).WithTimeout(timeout), nil
	case CheckTypeExec:
		if len(command) == 0 {
			return nil, fmt.Errorf("exec check needs a command")
		}
		return NewExecChecker(command).WithTimeout(timeout), nil
	default:
		return nil, fmt.Errorf("unsupported health check type: %s", checkType)
	}
}

// Config contains common configuration for all health checks
type Config struct {
	// Interval is the time between health checks
	Interval time.Duration

	// Timeout is the maximum time to wait for a health check to complete
	Timeout time.Duration

	// Retries is the number of consecutive failures before marking as unhealthy
	Retries int

	// StartPeriod is a grace period during which the status stays unknown
	StartPeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
		Retries:  3,
	}
}

// Status is the health of one check as published to observers. It is a plain
// value: each update publishes a new copy.
type Status struct {
	Check                string
	Type                 CheckType
	Healthy              bool
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result
	StartedAt            time.Time
}

// NewStatus creates a Status for check. It is healthy until Retries
// consecutive failures say otherwise.
func NewStatus(check string, checkType CheckType) Status {
	return Status{
		Check:     check,
		Type:      checkType,
		Healthy:   true,
		StartedAt: time.Now(),
	}
}

// Update returns the status after result
func (s Status) Update(result Result, config Config) Status {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0
		if s.ConsecutiveFailures >= config.Retries {
			s.Healthy = false
		}
	}
	return s
}

// InStartPeriod returns true if we're still in the startup grace period
func (s Status) InStartPeriod(config Config, now time.Time) bool {
	if config.StartPeriod == 0 {
		return false
	}
	return now.Sub(s.StartedAt) < config.StartPeriod
}
