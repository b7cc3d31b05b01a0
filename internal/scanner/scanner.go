// Package scanner implements the port reconnaissance engine: TCP port
// classification, HTTP/HTTPS fingerprinting, certificate analysis and
// firewall inference for a single IPv4 target.
package scanner

import (
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Publisher delivers finished reports to downstream consumers.
type Publisher interface {
	PublishScanCompleted(report *ScanReport) error
}

// Scanner runs scans. It holds no per-scan state and is safe for
// concurrent use.
type Scanner struct {
	config        config.ScannerConfig
	publisher     Publisher
	logger        *zap.SugaredLogger
	prober        *prober
	fingerprinter *Fingerprinter
	metrics       *scanMetrics
}

// ScanOption customizes a single Scan call.
type ScanOption func(*scanOptions)

type scanOptions struct {
	scanID     string
	onProgress func(Progress)
}

// WithScanID sets the report's scan ID instead of generating one.
func WithScanID(id string) ScanOption {
	return func(o *scanOptions) { o.scanID = id }
}

// WithProgress registers fn to be called after every batch.
func WithProgress(fn func(Progress)) ScanOption {
	return func(o *scanOptions) { o.onProgress = fn }
}

// New creates a new Scanner. pub may be nil to skip report delivery.
func New(cfg config.ScannerConfig, pub Publisher, logger *zap.SugaredLogger) *Scanner {
	return &Scanner{
		config:        cfg,
		publisher:     pub,
		logger:        logger,
		prober:        newProber(cfg.RateLimit, logger),
		fingerprinter: NewFingerprinter(cfg.FingerprintConcurrency, logger),
		metrics:       newScanMetrics(),
	}
}

// Scan validates the target, sweeps the port plan, fingerprints open ports
// and returns the assembled report. The only error is ErrInvalidAddress,
// raised before any network activity; per-port failures are reported in
// the result list.
func (s *Scanner) Scan(req ScanRequest, opts ...ScanOption) (*ScanReport, error) {
	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.scanID == "" {
		o.scanID = uuid.New().String()
	}

	dialAddr, err := validateAddress(req.TargetAddress)
	if err != nil {
		return nil, err
	}
	req = s.withDefaults(req)

	timeout := time.Duration(req.PerPortTimeoutMs) * time.Millisecond
	plan := BuildPortPlan(req.Ports, *req.ScanFullRange)

	s.logger.Infow("Starting port scan",
		"scan_id", o.scanID,
		"target", req.TargetAddress,
		"ports", len(plan),
		"timeout_ms", req.PerPortTimeoutMs,
		"batch_size", req.BatchSize,
	)
	started := time.Now()

	var onBatch func(Progress)
	if o.onProgress != nil {
		onBatch = func(p Progress) {
			p.ScanID = o.scanID
			o.onProgress(p)
		}
	}
	results := s.prober.run(dialAddr, plan, timeout, req.BatchSize, onBatch)

	s.fingerprinter.IdentifyAll(dialAddr, results, s.httpTimeout(timeout))

	report := buildReport(o.scanID, req.TargetAddress, time.Now(), results)

	s.metrics.observe(report.Summary)

	s.logger.Infow("Port scan finished",
		"scan_id", report.ScanID,
		"target", report.TargetAddress,
		"duration", time.Since(started),
		"open", report.Summary.Open,
		"closed", report.Summary.Closed,
		"filtered", report.Summary.Filtered,
		"errors", report.Summary.Errors,
		"firewall_detected", report.Firewall.FirewallDetected,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishScanCompleted(report); err != nil {
			s.logger.Errorw("Failed to publish scan report", "scan_id", report.ScanID, "error", err)
		}
	}

	return report, nil
}

// Registry returns the Prometheus registry holding the scanner's counters.
func (s *Scanner) Registry() *prometheus.Registry {
	return s.metrics.registry
}

// withDefaults fills unset or non-positive request fields from the scanner config.
func (s *Scanner) withDefaults(req ScanRequest) ScanRequest {
	if req.PerPortTimeoutMs <= 0 {
		req.PerPortTimeoutMs = s.config.Timeout
	}
	if req.PerPortTimeoutMs <= 0 {
		req.PerPortTimeoutMs = 1000
	}
	if req.BatchSize < 1 {
		req.BatchSize = s.config.BatchSize
	}
	if req.BatchSize < 1 {
		req.BatchSize = 500
	}
	if req.ScanFullRange == nil {
		full := s.config.FullRange()
		req.ScanFullRange = &full
	}
	return req
}

func (s *Scanner) httpTimeout(portTimeout time.Duration) time.Duration {
	if s.config.HTTPTimeout > 0 {
		return time.Duration(s.config.HTTPTimeout) * time.Millisecond
	}
	return portTimeout
}
