package health

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const maxOutput = 100

// ExecChecker runs a command on the host; exit status 0 is healthy
type ExecChecker struct {
	// Command is the argv to run (e.g., ["pg_isready", "-U", "postgres"])
	Command []string

	// Timeout bounds the command run (default: 10 seconds)
	Timeout time.Duration
}

// NewExecChecker creates a new exec health checker
func NewExecChecker(command []string) *ExecChecker {
	return &ExecChecker{
		Command: command,
		Timeout: 10 * time.Second,
	}
}

// Check runs the command
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := func(healthy bool, message string) Result {
		return Result{Healthy: healthy, Message: message, CheckedAt: start, Duration: time.Since(start)}
	}

	if len(e.Command) == 0 {
		return result(false, "no command specified")
	}

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, e.Command[0], e.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	message := fmt.Sprintf("command %v", e.Command)
	if err := cmd.Run(); err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
		if stderr.Len() > 0 {
			message = fmt.Sprintf("%s: %s", message, truncate(stderr.String()))
		}
		return result(false, message)
	}

	if stdout.Len() > 0 {
		message = fmt.Sprintf("%s: %s", message, truncate(stdout.String()))
	}
	return result(true, message)
}

func truncate(s string) string {
	if len(s) > maxOutput {
		return s[:maxOutput] + "..."
	}
	return s
}

// Type returns the health check type
func (e *ExecChecker) Type() CheckType {
	return CheckTypeExec
}

// WithTimeout sets the execution timeout
func (e *ExecChecker) WithTimeout(timeout time.Duration) *ExecChecker {
	if timeout > 0 {
		e.Timeout = timeout
	}
	return e
}
