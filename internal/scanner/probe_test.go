package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbePortOpen(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	res := probePort(realDial, "127.0.0.1", listenerPort(t, l), time.Second)

	assert.Equal(t, StatusOpen, res.Status)
	require.NotNil(t, res.ResponseTimeMs)
	assert.GreaterOrEqual(t, *res.ResponseTimeMs, int64(0))
	assert.Empty(t, res.ErrorDetail)
}

func TestProbePortClosed(t *testing.T) {
	res := probePort(realDial, "127.0.0.1", closedPort(t), time.Second)

	assert.Equal(t, StatusClosed, res.Status)
	assert.Nil(t, res.ResponseTimeMs)
	assert.Empty(t, res.ErrorDetail)
}

func TestProbePortTimeoutIsFiltered(t *testing.T) {
	blackhole := func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	timeout := 150 * time.Millisecond
	start := time.Now()
	res := probePort(blackhole, "10.255.255.1", 80, timeout)
	elapsed := time.Since(start)

	assert.Equal(t, StatusFiltered, res.Status)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Equal(t, "HTTP", res.Service)
	assert.Nil(t, res.ResponseTimeMs)
}

func TestProbePortUnreachableIsError(t *testing.T) {
	unreachable := func(_ context.Context, network, _ string) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)}
	}

	res := probePort(unreachable, "192.0.2.1", 22, time.Second)

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorDetail, syscall.EHOSTUNREACH.Error())
	assert.Equal(t, "SSH", res.Service)
}

func TestProbePortOutOfRangeSkipsNetwork(t *testing.T) {
	mustNotDial := func(context.Context, string, string) (net.Conn, error) {
		t.Fatal("dial must not be called for an out-of-range port")
		return nil, nil
	}

	for _, port := range []int{0, -1, 65536} {
		res := probePort(mustNotDial, "127.0.0.1", port, time.Second)
		assert.Equal(t, StatusError, res.Status, "port %d", port)
		assert.Contains(t, res.ErrorDetail, "out of range")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want PortStatus
	}{
		{"refused errno", os.NewSyscallError("connect", syscall.ECONNREFUSED), StatusClosed},
		{"refused text", errors.New("dial tcp 1.2.3.4:80: connection refused"), StatusClosed},
		{"context deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), StatusFiltered},
		{"os deadline", os.ErrDeadlineExceeded, StatusFiltered},
		{"net timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}, StatusFiltered},
		{"host unreachable", os.NewSyscallError("connect", syscall.EHOSTUNREACH), StatusError},
		{"network unreachable", os.NewSyscallError("connect", syscall.ENETUNREACH), StatusError},
		{"other", errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDialError(tt.err))
		})
	}
}
