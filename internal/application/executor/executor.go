package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dago-workflow/internal/application/instructions"
	"github.com/aescanero/dago-workflow/internal/tracing"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/ports"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long successful results stay cached
const DefaultCacheTTL = time.Hour

// Outcome describes one instruction execution
type Outcome struct {
	Hash     string
	Result   map[string]interface{}
	Cached   bool
	Attempts int
}

// Executor dispatches instructions and caches their results
type Executor struct {
	cache    ports.InstructionCache
	handlers map[domain.InstructionType]Handler
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	cacheTTL time.Duration
	retry    RetryConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// Config holds executor configuration
type Config struct {
	Cache      ports.InstructionCache
	Substrates map[domain.InstructionType]ports.Substrate
	Metrics    ports.MetricsCollector
	Logger     *zap.Logger
	CacheTTL   time.Duration
	Retry      RetryConfig
}

// NewExecutor creates a new instruction executor
func NewExecutor(cfg *Config) *Executor {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	retry := cfg.Retry
	if retry.BaseDelay <= 0 {
		retry = DefaultRetryConfig
	}

	return &Executor{
		cache:    cfg.Cache,
		handlers: buildHandlers(cfg.Substrates),
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		cacheTTL: ttl,
		retry:    retry,
		sleep:    sleepContext,
	}
}

// Execute runs one instruction on behalf of callerID
func (e *Executor) Execute(ctx context.Context, inst *domain.Instruction, callerID string) (out *Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "instruction.execute")
	span.WithAttributes(map[string]string{
		"instruction_id": inst.ID,
		"type":           string(inst.Type),
		"action":         inst.Action,
	})
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()

	hash, err := instructions.Hash(inst)
	if err != nil {
		return nil, err
	}

	result, hit, lookupErr := e.cache.Lookup(ctx, hash)
	if lookupErr != nil {
		e.logger.Warn("cache lookup failed, dispatching",
			zap.String("instruction_id", inst.ID),
			zap.String("hash", hash),
			zap.Error(lookupErr))
	}
	e.metrics.RecordCacheLookup(hit)
	if hit {
		span.AddEvent("cache.hit")
		e.metrics.RecordInstructionExecuted(string(inst.Type), "cached", time.Since(start))
		e.logger.Debug("instruction served from cache",
			zap.String("instruction_id", inst.ID),
			zap.String("caller_id", callerID),
			zap.String("hash", hash))
		return &Outcome{Hash: hash, Result: result, Cached: true}, nil
	}

	result, attempts, err := e.dispatchWithRetry(ctx, inst)
	if err != nil {
		e.metrics.RecordInstructionExecuted(string(inst.Type), string(domain.WorkflowStatusFailed), time.Since(start))
		e.logger.Warn("instruction failed",
			zap.String("instruction_id", inst.ID),
			zap.String("caller_id", callerID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, &DispatchError{InstructionID: inst.ID, Attempts: attempts, Err: err}
	}

	if err := e.cache.Store(ctx, hash, result, e.cacheTTL); err != nil {
		e.logger.Warn("failed to cache instruction result",
			zap.String("instruction_id", inst.ID),
			zap.String("hash", hash),
			zap.Error(err))
	}

	e.metrics.RecordInstructionExecuted(string(inst.Type), string(domain.WorkflowStatusCompleted), time.Since(start))
	e.logger.Debug("instruction executed",
		zap.String("instruction_id", inst.ID),
		zap.String("caller_id", callerID),
		zap.String("hash", hash),
		zap.Int("attempts", attempts))

	return &Outcome{Hash: hash, Result: result, Attempts: attempts}, nil
}

// Compensate dispatches the compensation declared on inst. Compensations
// bypass the cache and are attempted once.
func (e *Executor) Compensate(ctx context.Context, inst *domain.Instruction, callerID string) (map[string]interface{}, error) {
	if inst.Compensation == nil {
		return nil, fmt.Errorf("instruction %s declares no compensation", inst.ID)
	}

	comp := &domain.Instruction{
		ID:         inst.ID,
		Type:       inst.Type,
		Action:     instructions.CanonicalAction(inst.Compensation.Action),
		Parameters: inst.Compensation.Parameters,
		Timeout:    inst.Timeout,
	}
	if comp.Parameters == nil {
		comp.Parameters = map[string]interface{}{}
	}

	e.logger.Info("dispatching compensation",
		zap.String("instruction_id", inst.ID),
		zap.String("caller_id", callerID),
		zap.String("action", comp.Action))

	return e.dispatch(ctx, comp)
}

func (e *Executor) dispatchWithRetry(ctx context.Context, inst *domain.Instruction) (map[string]interface{}, int, error) {
	maxRetries := 0
	backoff := domain.BackoffExponential
	if inst.RetryPolicy != nil {
		if inst.RetryPolicy.MaxRetries > 0 {
			maxRetries = inst.RetryPolicy.MaxRetries
		}
		if inst.RetryPolicy.Backoff != "" {
			backoff = inst.RetryPolicy.Backoff
		}
	}

	var lastErr error
	attempt := 0
	for attempt <= maxRetries {
		attempt++

		result, err := e.dispatch(ctx, inst)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		// The caller gave up; further attempts would be discarded.
		if ctx.Err() != nil || attempt > maxRetries {
			break
		}

		e.metrics.RecordInstructionRetry(string(inst.Type))
		delay := e.retry.Delay(backoff, attempt)
		e.logger.Debug("retrying instruction",
			zap.String("instruction_id", inst.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := e.sleep(ctx, delay); err != nil {
			break
		}
	}

	return nil, attempt, lastErr
}

// dispatch runs the handler for inst. A panicking handler is reported as
// an ErrHandlerPanic failure of this attempt.
func (e *Executor) dispatch(ctx context.Context, inst *domain.Instruction) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("instruction handler panicked",
				zap.String("instruction_id", inst.ID),
				zap.String("action", inst.Action),
				zap.Any("panic", r))
			result, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	if timeout := inst.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	handler, ok := e.handlers[inst.Type]
	if !ok {
		handler = genericHandler
	}
	return handler(ctx, inst)
}
