package scanner

const (
	minPort = 1
	maxPort = 65535
)

// BuildPortPlan resolves the ports to probe. An explicit list is used
// verbatim, duplicates and order included.
func BuildPortPlan(explicit []int, fullRange bool) []int {
	if len(explicit) > 0 {
		plan := make([]int, len(explicit))
		copy(plan, explicit)
		return plan
	}
	if fullRange {
		plan := make([]int, 0, maxPort)
		for p := minPort; p <= maxPort; p++ {
			plan = append(plan, p)
		}
		return plan
	}
	return WellKnownPorts()
}

// chunk splits ports into consecutive batches of at most size elements.
func chunk(ports []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	batches := make([][]int, 0, (len(ports)+size-1)/size)
	for start := 0; start < len(ports); start += size {
		end := start + size
		if end > len(ports) {
			end = len(ports)
		}
		batches = append(batches, ports[start:end])
	}
	return batches
}
