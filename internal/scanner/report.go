package scanner

import "time"

// Summarize tallies results by status. Every result lands in exactly one
// counter, so the counters always add up to TotalScanned.
func Summarize(results []PortResult) Summary {
	summary := Summary{TotalScanned: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOpen:
			summary.Open++
		case StatusClosed:
			summary.Closed++
		case StatusFiltered:
			summary.Filtered++
		default:
			summary.Errors++
		}
	}
	return summary
}

func buildReport(scanID, target string, scannedAt time.Time, results []PortResult) *ScanReport {
	if results == nil {
		results = []PortResult{}
	}
	return &ScanReport{
		ScanID:        scanID,
		TargetAddress: target,
		ScanTimestamp: scannedAt.UTC(),
		Ports:         results,
		Firewall:      InferFirewall(results),
		Summary:       Summarize(results),
	}
}
