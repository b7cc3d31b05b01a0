package scanner

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"
)

const (
	// maxBodyBytes caps how much of a response body is read for title extraction.
	maxBodyBytes = 10000

	userAgent = "Mozilla/5.0 (compatible; PortRecon/1.0)"
)

var titlePattern = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

// Fingerprinter identifies HTTP and HTTPS services on open ports.
// HTTPS is always attempted first, then plain HTTP.
type Fingerprinter struct {
	concurrency int
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// NewFingerprinter creates a fingerprinter that probes at most concurrency
// ports at a time.
func NewFingerprinter(concurrency int, logger *zap.SugaredLogger) *Fingerprinter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fingerprinter{
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Identify probes one port. It returns nil when neither scheme produced an
// HTTP response.
func (f *Fingerprinter) Identify(ip string, port int, timeout time.Duration) *HTTPServiceInfo {
	for _, scheme := range []string{"https", "http"} {
		info, err := f.probe(scheme, ip, port, timeout)
		if err == nil {
			return info
		}
		f.logger.Debugw("Service probe failed",
			"target", ip,
			"port", port,
			"scheme", scheme,
			"error", err,
		)
	}
	return nil
}

// IdentifyAll fingerprints every open port in results in place.
func (f *Fingerprinter) IdentifyAll(ip string, results []PortResult, timeout time.Duration) {
	swg := sizedwaitgroup.New(f.concurrency)
	for i := range results {
		if results[i].Status != StatusOpen {
			continue
		}
		swg.Add()
		go func(r *PortResult) {
			defer swg.Done()
			r.HTTPInfo = f.Identify(ip, r.Port, timeout)
			if r.HTTPInfo != nil {
				f.logger.Infow("HTTP service detected",
					"target", ip,
					"port", r.Port,
					"scheme", r.HTTPInfo.Scheme,
					"server", r.HTTPInfo.ServerHeader,
				)
			}
		}(&results[i])
	}
	swg.Wait()
}

func (f *Fingerprinter) probe(scheme, ip string, port int, timeout time.Duration) (*HTTPServiceInfo, error) {
	client := newProbeClient(timeout)
	defer client.CloseIdleConnections()

	url := fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(ip, strconv.Itoa(port)))
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	info := &HTTPServiceInfo{
		Scheme:          scheme,
		StatusCode:      resp.StatusCode,
		StatusMessage:   statusMessage(resp),
		ServerHeader:    resp.Header.Get("Server"),
		PoweredByHeader: resp.Header.Get("X-Powered-By"),
		ContentType:     resp.Header.Get("Content-Type"),
		Headers:         flattenHeaders(resp.Header),
	}

	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		cert := AnalyzeCertificate(resp.TLS.PeerCertificates[0].Raw, f.now())
		info.Certificate = &cert
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if location := resp.Header.Get("Location"); location != "" {
			info.RedirectTarget = location
			return info, nil
		}
	}

	// A read error after a partial body (timeout, reset) still leaves usable bytes.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	info.PageTitle = extractTitle(body)

	return info, nil
}

func newProbeClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // reconnaissance, not trust validation
			MinVersion:         tls.VersionTLS10,
		},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// statusMessage strips the numeric code from resp.Status ("404 Not Found" -> "Not Found").
func statusMessage(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// flattenHeaders lower-cases header names and joins repeated values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if existing, ok := headers[key]; ok {
			values = append([]string{existing}, values...)
		}
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}

func extractTitle(body []byte) string {
	m := titlePattern.FindSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}
