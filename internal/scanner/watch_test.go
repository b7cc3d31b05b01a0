package scanner

import (
	"errors"
	"testing"
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatcherLifecycle(t *testing.T) {
	s := New(testScannerConfig(), nil, testLogger)
	w := NewWatcher(s, config.WatchConfig{
		Target:   "127.0.0.1",
		Ports:    []int{closedPort(t)},
		Interval: 50 * time.Millisecond,
	}, testLogger)

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start())

	require.Eventually(t, func() bool { return testutil.ToFloat64(s.metrics.scans) >= 2 }, 5*time.Second, 10*time.Millisecond)
	report := w.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Summary.Closed)

	w.Stop()
	assert.False(t, w.IsRunning())

	// Stopping twice is harmless, and the watcher can be restarted.
	w.Stop()
	require.NoError(t, w.Start())
	w.Stop()
}

func TestWatcherRejectsInvalidTarget(t *testing.T) {
	w := NewWatcher(New(testScannerConfig(), nil, testLogger), config.WatchConfig{Target: "example.com"}, testLogger)

	err := w.Start()

	assert.True(t, errors.Is(err, ErrInvalidAddress))
	assert.False(t, w.IsRunning())
}

func TestWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(New(testScannerConfig(), nil, testLogger), config.WatchConfig{}, testLogger)
	assert.Equal(t, 30*time.Minute, w.Interval())
}

func TestLogFindings(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core).Sugar()

	report := &ScanReport{
		TargetAddress: "10.0.0.9",
		Ports: []PortResult{
			{Port: 443, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{Certificate: &CertificateInfo{IsExpired: true}}},
			{Port: 8443, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{Certificate: &CertificateInfo{IsExpiringSoon: true, DaysUntilExpiry: 3}}},
			{Port: 9443, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{Certificate: &CertificateInfo{AnalysisError: "bad der"}}},
			{Port: 80, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{}},
		},
		Firewall: FirewallVerdict{SuspiciousPorts: []int{31337}},
	}

	logFindings(logger, report)

	messages := make([]string, 0, logs.Len())
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{
		"Suspicious open ports",
		"Certificate expired",
		"Certificate expiring soon",
		"Certificate could not be analyzed",
	}, messages)
}

func TestLogFindingsSecurityHeaders(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core).Sugar()

	report := &ScanReport{
		TargetAddress: "10.0.0.9",
		Ports: []PortResult{
			{Port: 443, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{
				Scheme: "https",
				Headers: map[string]string{
					"strict-transport-security": "max-age=31536000",
					"x-frame-options":           "DENY",
					"server":                    "nginx",
				},
			}},
			{Port: 80, Status: StatusOpen, HTTPInfo: &HTTPServiceInfo{
				Scheme:  "http",
				Headers: map[string]string{"server": "nginx"},
			}},
		},
	}

	logFindings(logger, report)

	entries := logs.FilterMessage("Security headers").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 443, fields["port"])
	assert.Equal(t, map[string]string{
		"strict-transport-security": "max-age=31536000",
		"x-frame-options":           "DENY",
	}, fields["headers"])
}
