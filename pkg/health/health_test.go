package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChecker(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		healthy bool
		message string
	}{
		{"ok", http.StatusOK, true, "HTTP 200 OK"},
		{"redirect in range", http.StatusFound, true, "HTTP 302 Found"},
		{"server error", http.StatusInternalServerError, false, "expected 200-399"},
		{"not found", http.StatusNotFound, false, "HTTP 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			result := NewHTTPChecker(server.URL).Check(context.Background())
			assert.Equal(t, tt.healthy, result.Healthy, result.Message)
			assert.Contains(t, result.Message, tt.message)
			assert.False(t, result.CheckedAt.IsZero())
		})
	}
}

func TestHTTPCheckerOptions(t *testing.T) {
	var gotMethod, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL).
		WithMethod(http.MethodHead).
		WithHeader("X-Probe", "tether").
		WithStatusRange(204, 204)

	result := checker.Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "tether", gotHeader)
	assert.Equal(t, CheckTypeHTTP, checker.Type())
}

func TestHTTPCheckerTimeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(done)

	result := NewHTTPChecker(server.URL).WithTimeout(50 * time.Millisecond).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "request failed")
}

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	checker := NewTCPChecker(addr).WithTimeout(time.Second)
	result := checker.Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Contains(t, result.Message, "dial "+addr+": connected in")
	assert.Equal(t, CheckTypeTCP, checker.Type())

	require.NoError(t, ln.Close())
	result = checker.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "dial "+addr+":")
	assert.Contains(t, result.Message, "refused")
}

func TestTCPCheckerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewTCPChecker("127.0.0.1:1").Check(ctx)
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "canceled")
}

func TestExecChecker(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	result := NewExecChecker([]string{"sh", "-c", "echo ready"}).Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Contains(t, result.Message, "ready")

	result = NewExecChecker([]string{"sh", "-c", "echo broken >&2; exit 3"}).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "broken")

	result = NewExecChecker(nil).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, "no command specified", result.Message)

	slow := NewExecChecker([]string{"sleep", "5"}).WithTimeout(50 * time.Millisecond)
	result = slow.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Less(t, result.Duration, 5*time.Second)
}

func TestNewChecker(t *testing.T) {
	checker, err := NewChecker(CheckTypeTCP, "127.0.0.1:1", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, CheckTypeTCP, checker.Type())
	assert.Equal(t, time.Second, checker.(*TCPChecker).Timeout)

	checker, err = NewChecker(CheckTypeExec, "", []string{"true"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, checker.(*ExecChecker).Timeout)

	_, err = NewChecker(CheckTypeHTTP, "", nil, time.Second)
	assert.Error(t, err)
	_, err = NewChecker(CheckTypeExec, "", nil, time.Second)
	assert.Error(t, err)
	_, err = NewChecker("grpc", "x", nil, time.Second)
	assert.ErrorContains(t, err, "unsupported health check type")
}

func TestStatusUpdate(t *testing.T) {
	config := Config{Retries: 2}
	status := NewStatus("api", CheckTypeHTTP)
	assert.True(t, status.Healthy)

	fail := Result{Healthy: false, Message: "down", CheckedAt: time.Now()}
	pass := Result{Healthy: true, Message: "up", CheckedAt: time.Now()}

	status = status.Update(fail, config)
	assert.True(t, status.Healthy, "one failure is below the retry threshold")
	assert.Equal(t, 1, status.ConsecutiveFailures)

	before := status
	status = status.Update(fail, config)
	assert.False(t, status.Healthy)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Equal(t, 1, before.ConsecutiveFailures, "update returns a copy")

	status = status.Update(pass, config)
	assert.True(t, status.Healthy)
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Equal(t, 1, status.ConsecutiveSuccesses)
	assert.Equal(t, "up", status.LastResult.Message)
}

func TestInStartPeriod(t *testing.T) {
	status := NewStatus("api", CheckTypeHTTP)

	assert.False(t, status.InStartPeriod(Config{}, time.Now()))
	assert.True(t, status.InStartPeriod(Config{StartPeriod: time.Minute}, status.StartedAt.Add(time.Second)))
	assert.False(t, status.InStartPeriod(Config{StartPeriod: time.Minute}, status.StartedAt.Add(2*time.Minute)))
}
