package processor

import (
	"context"
	"sync"
	"time"

	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/metrics"
	"voice-rewards-go/internal/types"
)

const (
	DefaultPublishQueue   = 256
	DefaultPublishWorkers = 2
	DefaultPublishTimeout = 30 * time.Second
)

type publishJob struct {
	ctx context.Context
	ev  types.Evaluation
}

// handoff publishes evaluations off the scoring path on a fixed pool of
// workers. Enqueue never blocks; a full queue drops the evaluation.
type handoff struct {
	pub     Publisher
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan publishJob
	wg     sync.WaitGroup
}

func newHandoff(pub Publisher, queue, workers int, timeout time.Duration, log *logger.Logger) *handoff {
	if queue <= 0 {
		queue = DefaultPublishQueue
	}
	if workers <= 0 {
		workers = DefaultPublishWorkers
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	h := &handoff{pub: pub, timeout: timeout, log: log, jobs: make(chan publishJob, queue)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go h.work()
	}
	return h
}

func (h *handoff) work() {
	defer h.wg.Done()
	for job := range h.jobs {
		ctx, cancel := context.WithTimeout(job.ctx, h.timeout)
		if err := h.pub.Publish(ctx, job.ev); err != nil {
			h.log.WithError(err).WithField("session_id", job.ev.SessionID).Error("ledger hand-off failed")
		}
		cancel()
	}
}

// enqueue detaches ctx from the caller's cancellation but keeps its values.
func (h *handoff) enqueue(ctx context.Context, ev types.Evaluation) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		metrics.LedgerPublishTotal.WithLabelValues("dropped").Inc()
		h.log.WithField("session_id", ev.SessionID).Warn("ledger hand-off after close, dropped")
		return
	}
	select {
	case h.jobs <- publishJob{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		metrics.LedgerPublishTotal.WithLabelValues("dropped").Inc()
		h.log.WithField("session_id", ev.SessionID).Warn("ledger hand-off queue full, dropped")
	}
}

func (h *handoff) close(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.jobs)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
