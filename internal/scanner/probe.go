package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// dialFunc matches net.Dialer.DialContext so tests can substitute the network.
type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// probePort performs one TCP connect attempt bounded by timeout and returns
// its classification. The socket is closed on every path.
func probePort(dial dialFunc, ip string, port int, timeout time.Duration) PortResult {
	result := PortResult{
		Port:    port,
		Service: ServiceName(port),
	}

	if port < minPort || port > maxPort {
		result.Status = StatusError
		result.ErrorDetail = fmt.Sprintf("port %d out of range", port)
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	address := net.JoinHostPort(ip, strconv.Itoa(port))
	start := time.Now()
	conn, err := dial(ctx, "tcp", address)
	elapsed := time.Since(start)

	if err == nil {
		_ = conn.Close()
		ms := elapsed.Milliseconds()
		result.Status = StatusOpen
		result.ResponseTimeMs = &ms
		return result
	}

	result.Status = classifyDialError(err)
	if result.Status == StatusError {
		result.ErrorDetail = err.Error()
	}
	return result
}

// classifyDialError maps a failed connect to closed (actively refused),
// filtered (no answer before the deadline) or error (anything else, e.g.
// host or network unreachable).
func classifyDialError(err error) PortStatus {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return StatusClosed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return StatusFiltered
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusFiltered
	}
	// Some platforms surface refusals without a matching errno.
	if strings.Contains(err.Error(), "connection refused") {
		return StatusClosed
	}
	return StatusError
}
