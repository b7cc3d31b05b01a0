package scanner

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// prober sweeps a port plan one batch at a time. Every probe in a batch runs
// concurrently and the next batch starts only after all of them resolved, so
// at most batchSize sockets are open at once.
type prober struct {
	dial    dialFunc
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

func newProber(rateLimit int, logger *zap.SugaredLogger) *prober {
	limit := rate.Inf
	burst := 1
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
		burst = rateLimit
	}
	// The per-probe context carries the deadline.
	dialer := &net.Dialer{}
	return &prober{
		dial:    dialer.DialContext,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// run probes ports in plan order. Results are stored by plan index, so the
// output order never depends on which probe finishes first.
func (p *prober) run(ip string, ports []int, timeout time.Duration, batchSize int, onBatch func(Progress)) []PortResult {
	results := make([]PortResult, len(ports))
	batches := chunk(ports, batchSize)

	offset := 0
	open := 0
	for i, batch := range batches {
		p.logger.Debugw("Probing batch",
			"batch", i+1,
			"total_batches", len(batches),
			"first_port", batch[0],
			"last_port", batch[len(batch)-1],
		)

		var wg sync.WaitGroup
		for j, port := range batch {
			// Wait never fails with a background context and an unbounded deadline.
			_ = p.limiter.Wait(context.Background())

			wg.Add(1)
			go func(idx, port int) {
				defer wg.Done()
				results[idx] = probePort(p.dial, ip, port, timeout)
			}(offset+j, port)
		}
		wg.Wait()

		for _, r := range results[offset : offset+len(batch)] {
			if r.Status == StatusOpen {
				open++
			}
		}
		offset += len(batch)

		p.logger.Infow("Batch complete",
			"target", ip,
			"batch", i+1,
			"total_batches", len(batches),
			"scanned", offset,
			"total", len(ports),
			"open", open,
		)
		if onBatch != nil {
			onBatch(Progress{
				Batch:        i + 1,
				TotalBatches: len(batches),
				Scanned:      offset,
				Total:        len(ports),
				Open:         open,
			})
		}
	}

	return results
}
