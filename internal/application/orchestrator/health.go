package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/dago-workflow/internal/application/workers"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"go.uber.org/zap"
)

// HealthReport describes coordinator load and worker pool capacity
type HealthReport struct {
	Healthy          bool                          `json:"healthy"`
	Stopping         bool                          `json:"stopping"`
	ActiveExecutions int                           `json:"active_executions"`
	PendingRequests  int                           `json:"pending_requests"`
	Executing        []string                      `json:"executing_workflows"`
	Workflows        map[domain.WorkflowStatus]int `json:"workflows"`
	Pool             workers.Snapshot              `json:"pool"`
	Error            string                        `json:"error,omitempty"`
	Timestamp        time.Time                     `json:"timestamp"`
}

// Health reports the coordinator state. A coordinator that is stopping,
// stopped or does not answer before ctx ends is unhealthy, as is a pool
// with stopped workers.
func (c *Coordinator) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{
		PendingRequests: len(c.requests),
		Pool:            c.pool.Snapshot(),
		Timestamp:       c.now(),
	}

	err := c.do(ctx, func() {
		report.Stopping = c.stopping
		report.ActiveExecutions = c.active
		report.Executing = c.registry.Executing()
		report.Workflows = c.registry.Counts()
	})
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if report.Executing == nil {
		report.Executing = []string{}
	}

	report.Healthy = !report.Stopping &&
		report.Pool.Workers > 0 &&
		report.Pool.Stopped == 0
	return report
}

// HealthMonitor periodically logs the coordinator health report and
// records worker pool gauges
type HealthMonitor struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewHealthMonitor creates a monitor checking c every interval. A
// non-positive interval disables the periodic check.
func NewHealthMonitor(c *Coordinator, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		coordinator: c,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start starts the monitor loop
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.interval <= 0 {
		return
	}
	h.running = true
	go h.run()
}

// Stop stops the monitor loop
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.stopCh)
}

func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.Check()
		}
	}
}

// Check takes one health report, records it and logs anything abnormal
func (h *HealthMonitor) Check() *HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), h.checkTimeout())
	defer cancel()

	report := h.coordinator.Health(ctx)
	pool := report.Pool
	h.coordinator.metrics.RecordWorkerPoolStatus(pool.Idle, pool.Busy, pool.Stopped)

	h.logger.Debug("coordinator health check",
		zap.Bool("healthy", report.Healthy),
		zap.Int("active_executions", report.ActiveExecutions),
		zap.Int("pending_requests", report.PendingRequests),
		zap.Int("busy_workers", pool.Busy),
		zap.Int("queued_jobs", pool.Queued))

	if !report.Healthy {
		h.logger.Warn("coordinator is unhealthy",
			zap.Bool("stopping", report.Stopping),
			zap.Int("stopped_workers", pool.Stopped),
			zap.String("error", report.Error))
	}

	if pool.Saturated() {
		h.logger.Warn("all workers are busy, workflow executions are queueing",
			zap.Int("workers", pool.Workers),
			zap.Int("queued_jobs", pool.Queued),
			zap.Strings("executing_workflows", report.Executing))
	}

	return report
}

func (h *HealthMonitor) checkTimeout() time.Duration {
	if h.interval > 0 && h.interval < 5*time.Second {
		return h.interval
	}
	return 5 * time.Second
}
