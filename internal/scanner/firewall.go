package scanner

// InferFirewall classifies the sweep and guesses whether a stateful firewall
// sits in front of the target.
//
// The guess is a heuristic: firewalls usually drop probes silently, so a
// filtered-heavy distribution suggests one. A host that is merely slow or
// lossy can trip it, and a firewall that rejects probes will not.
func InferFirewall(results []PortResult) FirewallVerdict {
	verdict := FirewallVerdict{
		FilteredPorts: []int{},
		OpenPorts:     []int{},
		ClosedPorts:   []int{},
	}

	for _, r := range results {
		switch r.Status {
		case StatusOpen:
			verdict.OpenPorts = append(verdict.OpenPorts, r.Port)
			if IsSuspicious(r.Port) {
				verdict.SuspiciousPorts = append(verdict.SuspiciousPorts, r.Port)
			}
		case StatusClosed:
			verdict.ClosedPorts = append(verdict.ClosedPorts, r.Port)
		case StatusFiltered:
			verdict.FilteredPorts = append(verdict.FilteredPorts, r.Port)
		}
	}

	verdict.FirewallDetected = firewallLikely(
		len(verdict.OpenPorts),
		len(verdict.ClosedPorts),
		len(verdict.FilteredPorts),
	)
	return verdict
}

// firewallLikely reports filtered > open + closed/2.
func firewallLikely(open, closed, filtered int) bool {
	return float64(filtered) > float64(open)+float64(closed)/2
}
