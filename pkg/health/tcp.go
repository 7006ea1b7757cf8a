package health

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPChecker is healthy when Address accepts a connection within Timeout
type TCPChecker struct {
	Address string
	Timeout time.Duration
}

// NewTCPChecker creates a TCP checker with a 5 second dial timeout
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{Address: address, Timeout: 5 * time.Second}
}

// Check dials Address and closes the connection right away
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := func(err error) Result {
		r := Result{Healthy: err == nil, CheckedAt: start, Duration: time.Since(start)}
		if err != nil {
			r.Message = fmt.Sprintf("dial %s: %v", t.Address, err)
		} else {
			r.Message = fmt.Sprintf("dial %s: connected in %s", t.Address, r.Duration.Round(time.Microsecond))
		}
		return r
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", t.Address)
	if err != nil {
		return result(err)
	}
	return result(conn.Close())
}

// Type returns CheckTypeTCP
func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the dial timeout; non-positive values are ignored
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	if timeout > 0 {
		t.Timeout = timeout
	}
	return t
}
