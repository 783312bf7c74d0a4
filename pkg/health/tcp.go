package health

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPChecker probes a VPN endpoint container's listening port directly,
// used for protocols with no HTTP health surface (§4.F HealthCheckType::Tcp,
// e.g. a bare wireguard-go UDP forwarder fronted by a TCP control port).
type TCPChecker struct {
	// Address is the TCP address to dial (e.g. "127.0.0.1:51820").
	Address string

	// Timeout is the connection timeout (default: 5 seconds)
	Timeout time.Duration
}

// NewTCPChecker creates a TCP health checker for address.
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{
		Address: address,
		Timeout: 5 * time.Second,
	}
}

// Check dials Address and reports healthy iff the connection succeeds; it
// never reads or writes to the socket, since endpoint protocols rarely speak
// a probe-friendly line protocol on their control port.
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{
		Timeout: t.Timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("connection failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer conn.Close()

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("tcp dial to %s succeeded", t.Address),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the connection timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
