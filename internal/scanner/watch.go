package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"go.uber.org/zap"
)

const defaultWatchInterval = 30 * time.Minute

// securityHeaders are reported per HTTP service when present.
var securityHeaders = []string{
	"x-frame-options",
	"x-content-type-options",
	"strict-transport-security",
	"content-security-policy",
}

// Watcher rescans one target on a fixed interval.
type Watcher struct {
	scanner *Scanner
	config  config.WatchConfig
	logger  *zap.SugaredLogger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex

	lastReport *ScanReport
}

// NewWatcher creates a stopped watcher.
func NewWatcher(s *Scanner, cfg config.WatchConfig, logger *zap.SugaredLogger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultWatchInterval
	}
	return &Watcher{
		scanner: s,
		config:  cfg,
		logger:  logger,
	}
}

// Start scans the target immediately and then once per interval.
func (w *Watcher) Start() error {
	if !IsValidIPv4(w.config.Target) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, w.config.Target)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.logger.Infow("Starting watcher",
		"target", w.config.Target,
		"interval", w.config.Interval,
	)

	w.wg.Add(1)
	go w.run(w.ctx)

	return nil
}

// Stop ends the schedule. An in-flight scan is allowed to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.logger.Info("Stopping watcher")
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.logger.Info("Watcher stopped")
}

// IsRunning returns whether the watcher is scheduled.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// LastReport returns the most recent report, or nil before the first scan completes.
func (w *Watcher) LastReport() *ScanReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastReport
}

// Interval returns the configured scan interval.
func (w *Watcher) Interval() time.Duration {
	return w.config.Interval
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		w.scanOnce()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) scanOnce() {
	full := w.config.ScanFullRange
	report, err := w.scanner.Scan(ScanRequest{
		TargetAddress: w.config.Target,
		Ports:         w.config.Ports,
		ScanFullRange: &full,
	})
	if err != nil {
		w.logger.Errorw("Scheduled scan failed", "target", w.config.Target, "error", err)
		return
	}

	w.mu.Lock()
	w.lastReport = report
	w.mu.Unlock()

	logFindings(w.logger, report)
}

// logFindings writes the notable parts of a report: suspicious ports, the
// security headers each HTTP service sends, and certificates that are
// expired or about to expire.
func logFindings(logger *zap.SugaredLogger, report *ScanReport) {
	if len(report.Firewall.SuspiciousPorts) > 0 {
		logger.Warnw("Suspicious open ports",
			"target", report.TargetAddress,
			"ports", report.Firewall.SuspiciousPorts,
		)
	}

	for _, p := range report.Ports {
		if p.HTTPInfo == nil {
			continue
		}
		if found := presentSecurityHeaders(p.HTTPInfo.Headers); len(found) > 0 {
			logger.Infow("Security headers",
				"target", report.TargetAddress,
				"port", p.Port,
				"scheme", p.HTTPInfo.Scheme,
				"headers", found,
			)
		}
		if p.HTTPInfo.Certificate == nil {
			continue
		}
		cert := p.HTTPInfo.Certificate
		switch {
		case cert.AnalysisError != "":
			logger.Warnw("Certificate could not be analyzed",
				"target", report.TargetAddress,
				"port", p.Port,
				"error", cert.AnalysisError,
			)
		case cert.IsExpired:
			logger.Warnw("Certificate expired",
				"target", report.TargetAddress,
				"port", p.Port,
				"subject", cert.Subject,
				"valid_to", cert.ValidTo,
			)
		case cert.IsExpiringSoon:
			logger.Warnw("Certificate expiring soon",
				"target", report.TargetAddress,
				"port", p.Port,
				"subject", cert.Subject,
				"days_until_expiry", cert.DaysUntilExpiry,
			)
		}
	}
}

func presentSecurityHeaders(headers map[string]string) map[string]string {
	found := make(map[string]string)
	for _, name := range securityHeaders {
		if v := headers[name]; v != "" {
			found[name] = v
		}
	}
	return found
}
