package scanner

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var testLogger = zap.NewNop().Sugar()

var realDial dialFunc = (&net.Dialer{}).DialContext

// refusedDial fails every attempt the way a closed port does.
func refusedDial(_ context.Context, network, address string) (net.Conn, error) {
	return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

// closedPort returns a loopback port that nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func listenerPort(t *testing.T, l net.Listener) int {
	t.Helper()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestProber(dial dialFunc) *prober {
	return &prober{
		dial:    dial,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  testLogger,
	}
}
