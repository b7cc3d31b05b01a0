package scanner

import "github.com/prometheus/client_golang/prometheus"

// scanMetrics holds the lifetime counters exported on /metrics. Each Scanner
// owns its registry so independent scanners never collide on registration.
type scanMetrics struct {
	registry    *prometheus.Registry
	scans       prometheus.Counter
	portsProbed prometheus.Counter
	openPorts   prometheus.Counter
}

func newScanMetrics() *scanMetrics {
	m := &scanMetrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_scans_total",
			Help: "Completed scans.",
		}),
		portsProbed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_ports_probed_total",
			Help: "Ports probed across all scans.",
		}),
		openPorts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_open_ports_total",
			Help: "Ports classified open across all scans.",
		}),
	}
	m.registry.MustRegister(m.scans, m.portsProbed, m.openPorts)
	return m
}

func (m *scanMetrics) observe(summary Summary) {
	m.scans.Inc()
	m.portsProbed.Add(float64(summary.TotalScanned))
	m.openPorts.Add(float64(summary.Open))
}
