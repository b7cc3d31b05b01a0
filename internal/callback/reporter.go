// Package callback reports scan progress and completion to caller-supplied URLs.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/scanner"
	"go.uber.org/zap"
)

const collectorName = "port-recon"

// Reporter sends progress and completion callbacks for one scan.
// Either URL may be empty, in which case that callback is skipped.
type Reporter struct {
	scanID         string
	progressURL    string
	completeURL    string
	apiKey         string
	logger         *zap.SugaredLogger
	client         *http.Client
	sequence       int64 // Monotonic counter for idempotency
	discoveryCount int64
}

// Progress represents a progress update.
type Progress struct {
	ScanID         string `json:"scan_id"`
	Collector      string `json:"collector"`
	Sequence       int    `json:"sequence"`
	Phase          string `json:"phase,omitempty"`
	Progress       int    `json:"progress"`
	DiscoveryCount int    `json:"discovery_count"`
	Message        string `json:"message,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Completion represents a scan completion.
type Completion struct {
	ScanID         string           `json:"scan_id"`
	Collector      string           `json:"collector"`
	Status         string           `json:"status"` // completed, failed
	DiscoveryCount int              `json:"discovery_count"`
	Summary        *scanner.Summary `json:"summary,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	Timestamp      string           `json:"timestamp"`
}

// NewReporter creates a new callback reporter.
func NewReporter(scanID, progressURL, completeURL, apiKey string, logger *zap.SugaredLogger) *Reporter {
	return &Reporter{
		scanID:      scanID,
		progressURL: progressURL,
		completeURL: completeURL,
		apiKey:      apiKey,
		logger:      logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ReportBatch sends a progress update for a finished batch. It matches the
// signature expected by scanner.WithProgress.
func (r *Reporter) ReportBatch(p scanner.Progress) {
	atomic.StoreInt64(&r.discoveryCount, int64(p.Open))

	progress := p.Percent()
	if progress > 99 {
		progress = 99 // Reserve 100 for completion
	}
	msg := fmt.Sprintf("Batch %d/%d: scanned %d/%d ports, %d open", p.Batch, p.TotalBatches, p.Scanned, p.Total, p.Open)
	if err := r.ReportProgress("port_scanning", progress, msg); err != nil {
		r.logger.Warnw("Failed to report progress", "scan_id", r.scanID, "error", err)
	}
}

// ReportProgress sends a progress update.
func (r *Reporter) ReportProgress(phase string, progress int, message string) error {
	if r.progressURL == "" {
		return nil
	}

	seq := atomic.AddInt64(&r.sequence, 1)
	count := atomic.LoadInt64(&r.discoveryCount)

	payload := Progress{
		ScanID:         r.scanID,
		Collector:      collectorName,
		Sequence:       int(seq),
		Phase:          phase,
		Progress:       progress,
		DiscoveryCount: int(count),
		Message:        message,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	return r.sendCallback(r.progressURL, payload)
}

// ReportComplete sends a completion callback. report is nil when the scan failed.
func (r *Reporter) ReportComplete(report *scanner.ScanReport, scanErr error) error {
	if r.completeURL == "" {
		return nil
	}

	payload := Completion{
		ScanID:    r.scanID,
		Collector: collectorName,
		Status:    "completed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if scanErr != nil {
		payload.Status = "failed"
		payload.ErrorMessage = scanErr.Error()
	}
	if report != nil {
		payload.DiscoveryCount = report.Summary.Open
		payload.Summary = &report.Summary
	}

	return r.sendCallback(r.completeURL, payload)
}

// GetDiscoveryCount returns the number of open ports reported so far.
func (r *Reporter) GetDiscoveryCount() int {
	return int(atomic.LoadInt64(&r.discoveryCount))
}

// GetScanID returns the scan ID.
func (r *Reporter) GetScanID() string {
	return r.scanID
}

func (r *Reporter) sendCallback(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warnw("Callback failed", "url", url, "error", err)
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		r.logger.Warnw("Callback returned error", "url", url, "status", resp.StatusCode)
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	r.logger.Debugw("Callback sent", "url", url, "status", resp.StatusCode)
	return nil
}
