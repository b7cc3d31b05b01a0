package scanner

import "time"

// PortStatus is the terminal classification of a single TCP probe.
type PortStatus string

const (
	StatusOpen     PortStatus = "open"
	StatusClosed   PortStatus = "closed"
	StatusFiltered PortStatus = "filtered"
	StatusError    PortStatus = "error"
)

// ScanRequest describes one reconnaissance run against a single IPv4 host.
// Zero values are replaced by the scanner configuration.
type ScanRequest struct {
	TargetAddress    string `json:"targetAddress"`
	Ports            []int  `json:"ports,omitempty"`
	PerPortTimeoutMs int    `json:"perPortTimeoutMs,omitempty"`
	BatchSize        int    `json:"batchSize,omitempty"`
	ScanFullRange    *bool  `json:"scanFullRange,omitempty"`
}

// PortResult is the outcome of probing one port.
type PortResult struct {
	Port           int              `json:"port"`
	Status         PortStatus       `json:"status"`
	Service        string           `json:"service,omitempty"`
	ResponseTimeMs *int64           `json:"responseTimeMs,omitempty"`
	ErrorDetail    string           `json:"errorDetail,omitempty"`
	HTTPInfo       *HTTPServiceInfo `json:"httpInfo,omitempty"`
}

// HTTPServiceInfo holds what an HTTP or HTTPS service disclosed on GET /.
type HTTPServiceInfo struct {
	Scheme          string            `json:"scheme"`
	StatusCode      int               `json:"statusCode"`
	StatusMessage   string            `json:"statusMessage,omitempty"`
	ServerHeader    string            `json:"serverHeader,omitempty"`
	PoweredByHeader string            `json:"poweredByHeader,omitempty"`
	ContentType     string            `json:"contentType,omitempty"`
	PageTitle       string            `json:"pageTitle,omitempty"`
	RedirectTarget  string            `json:"redirectTarget,omitempty"`
	Headers         map[string]string `json:"headers"`
	Certificate     *CertificateInfo  `json:"certificate,omitempty"`
}

// CertificateInfo summarizes the peer certificate presented during a TLS handshake.
type CertificateInfo struct {
	Subject            string   `json:"subject"`
	Issuer             string   `json:"issuer"`
	ValidFrom          string   `json:"validFrom"`
	ValidTo            string   `json:"validTo"`
	DaysUntilExpiry    int      `json:"daysUntilExpiry"`
	IsExpired          bool     `json:"isExpired"`
	IsExpiringSoon     bool     `json:"isExpiringSoon"`
	Fingerprint        string   `json:"fingerprint"`
	SerialNumber       string   `json:"serialNumber"`
	SignatureAlgorithm string   `json:"signatureAlgorithm,omitempty"`
	KeyBitLength       int      `json:"keyBitLength,omitempty"`
	SubjectAltNames    []string `json:"subjectAltNames"`
	AnalysisError      string   `json:"analysisError,omitempty"`
}

// FirewallVerdict is the output of the firewall heuristic.
type FirewallVerdict struct {
	FirewallDetected bool  `json:"firewallDetected"`
	FilteredPorts    []int `json:"filteredPorts"`
	OpenPorts        []int `json:"openPorts"`
	ClosedPorts      []int `json:"closedPorts"`
	SuspiciousPorts  []int `json:"suspiciousPorts,omitempty"`
}

// Summary counts partition ScanReport.Ports by status.
type Summary struct {
	TotalScanned int `json:"totalScanned"`
	Open         int `json:"open"`
	Closed       int `json:"closed"`
	Filtered     int `json:"filtered"`
	Errors       int `json:"errors"`
}

// ScanReport is the self-contained result of one scan.
type ScanReport struct {
	ScanID        string          `json:"scanId"`
	TargetAddress string          `json:"targetAddress"`
	ScanTimestamp time.Time       `json:"scanTimestamp"`
	Ports         []PortResult    `json:"ports"`
	Firewall      FirewallVerdict `json:"firewall"`
	Summary       Summary         `json:"summary"`
}

// Progress is emitted after every completed batch.
type Progress struct {
	ScanID       string
	Batch        int
	TotalBatches int
	Scanned      int
	Total        int
	Open         int
}

// Percent returns scan completion in [0, 100].
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return p.Scanned * 100 / p.Total
}
