package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned when submitting to a pool that is shut down
var ErrPoolStopped = errors.New("worker pool stopped")

// Job is a unit of work. ctx is cancelled when the pool shuts down.
type Job func(ctx context.Context)

// Pool manages a pool of worker goroutines
type Pool struct {
	size   int
	queue  chan Job
	logger *zap.Logger

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(size, queueSize int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		queue:   make(chan Job, queueSize),
		logger:  logger,
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,
	}

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit queues job, blocking while the queue is full
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.ctx.Err() != nil {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool. Jobs still queued are run
// with the cancelled pool context so their waiters are released.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.drain()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

func (p *Pool) drain() {
	for {
		select {
		case job := <-p.queue:
			job(p.ctx)
		default:
			return
		}
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// Snapshot is a point-in-time view of pool capacity
type Snapshot struct {
	Workers       int `json:"workers"`
	Idle          int `json:"idle"`
	Busy          int `json:"busy"`
	Stopped       int `json:"stopped"`
	Queued        int `json:"queued"`
	QueueCapacity int `json:"queue_capacity"`
}

// Snapshot counts workers by status and reports queued jobs
func (p *Pool) Snapshot() Snapshot {
	snap := Snapshot{
		Queued:        len(p.queue),
		QueueCapacity: cap(p.queue),
	}
	for _, status := range p.GetStatus() {
		snap.Workers++
		switch status {
		case WorkerStatusIdle:
			snap.Idle++
		case WorkerStatusBusy:
			snap.Busy++
		case WorkerStatusStopped:
			snap.Stopped++
		}
	}
	return snap
}

// Saturated reports whether every worker is busy and jobs are waiting
func (s Snapshot) Saturated() bool {
	return s.Workers > 0 && s.Busy == s.Workers && s.Queued > 0
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.setStatus(WorkerStatusStopped)
			w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
			return
		case job := <-w.pool.queue:
			w.execute(ctx, job)
		}
	}
}

// execute runs one job, recovering from panics so the worker survives
func (w *worker) execute(ctx context.Context, job Job) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error("worker job panicked",
				zap.String("worker_id", w.id),
				zap.Any("panic", r))
		}
		w.setStatus(WorkerStatusIdle)
	}()

	job(ctx)
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}
