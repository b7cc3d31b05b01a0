// Package api provides the HTTP API for the reconnaissance service.
package api

import "github.com/aiforce-discovery-agent/collectors/port-recon/internal/scanner"

// ScanTargetRequest represents the request body for scanning one host.
// Fields other than the callback URLs map one to one onto scanner.ScanRequest.
type ScanTargetRequest struct {
	TargetAddress    string `json:"targetAddress" binding:"required"`
	Ports            []int  `json:"ports"`
	PerPortTimeoutMs int    `json:"perPortTimeoutMs" binding:"omitempty,min=1"`
	BatchSize        int    `json:"batchSize" binding:"omitempty,min=1"`
	ScanFullRange    *bool  `json:"scanFullRange"`
	ProgressURL      string `json:"progressUrl" binding:"omitempty,url"`
	CompleteURL      string `json:"completeUrl" binding:"omitempty,url"`
}

func (r ScanTargetRequest) toScanRequest() scanner.ScanRequest {
	return scanner.ScanRequest{
		TargetAddress:    r.TargetAddress,
		Ports:            r.Ports,
		PerPortTimeoutMs: r.PerPortTimeoutMs,
		BatchSize:        r.BatchSize,
		ScanFullRange:    r.ScanFullRange,
	}
}

// WatchStatus represents the watcher state returned by the status endpoint.
type WatchStatus struct {
	Status     string              `json:"status"`
	Running    bool                `json:"running"`
	Interval   string              `json:"interval"`
	LastReport *scanner.ScanReport `json:"last_report,omitempty"`
}
