package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reports []*ScanReport
	err     error
}

func (p *recordingPublisher) PublishScanCompleted(report *ScanReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return p.err
}

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		Timeout:                500,
		BatchSize:              10,
		FingerprintConcurrency: 2,
	}
}

func TestScanClosedPort(t *testing.T) {
	port := closedPort(t)
	s := New(testScannerConfig(), nil, testLogger)

	report, err := s.Scan(ScanRequest{
		TargetAddress:    "127.0.0.1",
		Ports:            []int{port},
		PerPortTimeoutMs: 500,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, "127.0.0.1", report.TargetAddress)
	require.Len(t, report.Ports, 1)
	assert.Equal(t, port, report.Ports[0].Port)
	assert.Equal(t, StatusClosed, report.Ports[0].Status)
	assert.Equal(t, Summary{TotalScanned: 1, Closed: 1}, report.Summary)
	assert.False(t, report.Firewall.FirewallDetected)
	assert.Equal(t, []int{port}, report.Firewall.ClosedPorts)
}

func TestScanRejectsInvalidAddress(t *testing.T) {
	s := New(testScannerConfig(), nil, testLogger)
	s.prober.dial = func(context.Context, string, string) (net.Conn, error) {
		t.Fatal("no connection may be attempted for an invalid target")
		return nil, nil
	}

	for _, addr := range []string{"", "localhost", "256.1.1.1", "::1"} {
		report, err := s.Scan(ScanRequest{TargetAddress: addr, Ports: []int{80}})
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, ErrInvalidAddress), "address %q", addr)
	}
	assert.Zero(t, testutil.ToFloat64(s.metrics.scans))
}

func TestScanOpenHTTPPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "recon-test")
		fmt.Fprint(w, "<title>Status</title>")
	}))
	defer srv.Close()

	ip, open := hostPort(t, srv.URL)
	closed := closedPort(t)
	pub := &recordingPublisher{}
	s := New(testScannerConfig(), pub, testLogger)

	var progress []Progress
	report, err := s.Scan(ScanRequest{
		TargetAddress: ip,
		Ports:         []int{closed, open},
		BatchSize:     1,
	}, WithScanID("scan-42"), WithProgress(func(p Progress) {
		progress = append(progress, p)
	}))

	require.NoError(t, err)
	assert.Equal(t, "scan-42", report.ScanID)
	require.Len(t, report.Ports, 2)
	assert.Equal(t, closed, report.Ports[0].Port)
	assert.Equal(t, StatusClosed, report.Ports[0].Status)
	assert.Nil(t, report.Ports[0].HTTPInfo)

	openResult := report.Ports[1]
	assert.Equal(t, StatusOpen, openResult.Status)
	require.NotNil(t, openResult.ResponseTimeMs)
	require.NotNil(t, openResult.HTTPInfo)
	assert.Equal(t, "http", openResult.HTTPInfo.Scheme)
	assert.Equal(t, "recon-test", openResult.HTTPInfo.ServerHeader)
	assert.Equal(t, "Status", openResult.HTTPInfo.PageTitle)

	assert.Equal(t, Summary{TotalScanned: 2, Open: 1, Closed: 1}, report.Summary)

	require.Len(t, progress, 2)
	for _, p := range progress {
		assert.Equal(t, "scan-42", p.ScanID)
	}
	assert.Equal(t, 1, progress[1].Open)

	require.Len(t, pub.reports, 1)
	assert.Same(t, report, pub.reports[0])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.scans))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.portsProbed))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.openPorts))
}

func TestScanPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := New(testScannerConfig(), pub, testLogger)

	report, err := s.Scan(ScanRequest{TargetAddress: "127.0.0.1", Ports: []int{closedPort(t)}})

	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Len(t, pub.reports, 1)
}

func TestWithDefaults(t *testing.T) {
	bare := New(config.ScannerConfig{}, nil, testLogger)
	req := bare.withDefaults(ScanRequest{TargetAddress: "127.0.0.1", PerPortTimeoutMs: -5})
	assert.Equal(t, 1000, req.PerPortTimeoutMs)
	assert.Equal(t, 500, req.BatchSize)
	require.NotNil(t, req.ScanFullRange)
	assert.True(t, *req.ScanFullRange, "no ports and no configured flag means the full range")
	assert.Len(t, BuildPortPlan(req.Ports, *req.ScanFullRange), maxPort)

	off := false
	configured := New(config.ScannerConfig{Timeout: 250, BatchSize: 20, ScanFullRange: &off}, nil, testLogger)
	req = configured.withDefaults(ScanRequest{})
	assert.Equal(t, 250, req.PerPortTimeoutMs)
	assert.Equal(t, 20, req.BatchSize)
	assert.False(t, *req.ScanFullRange)
	assert.Equal(t, WellKnownPorts(), BuildPortPlan(req.Ports, *req.ScanFullRange))

	on := true
	req = configured.withDefaults(ScanRequest{PerPortTimeoutMs: 75, BatchSize: 3, ScanFullRange: &on})
	assert.Equal(t, 75, req.PerPortTimeoutMs)
	assert.Equal(t, 3, req.BatchSize)
	assert.True(t, *req.ScanFullRange)
}

func TestScanDialsCanonicalAddress(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := listenerPort(t, l)

	s := New(testScannerConfig(), nil, testLogger)

	for _, addr := range []string{"127.0.0.01", "127.000.000.001"} {
		t.Run(addr, func(t *testing.T) {
			report, err := s.Scan(ScanRequest{TargetAddress: addr, Ports: []int{port}})

			require.NoError(t, err)
			assert.Equal(t, addr, report.TargetAddress)
			require.Len(t, report.Ports, 1)
			assert.Equal(t, StatusOpen, report.Ports[0].Status, report.Ports[0].ErrorDetail)
			assert.Empty(t, report.Ports[0].ErrorDetail)
		})
	}
}
