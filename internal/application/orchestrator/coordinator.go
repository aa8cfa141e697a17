package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dago-workflow/internal/application/executor"
	"github.com/aescanero/dago-workflow/internal/application/instructions"
	"github.com/aescanero/dago-workflow/internal/application/optimizer"
	"github.com/aescanero/dago-workflow/internal/application/resolver"
	"github.com/aescanero/dago-workflow/internal/application/workers"
	"github.com/aescanero/dago-workflow/internal/tracing"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultQueueSize bounds the number of pending coordinator requests
const DefaultQueueSize = 64

// Config holds coordinator dependencies
type Config struct {
	Normalizer *instructions.Normalizer
	Executor   *executor.Executor
	Optimizer  *optimizer.Optimizer
	Cache      ports.InstructionCache
	Pool       *workers.Pool
	EventBus   ports.EventBus
	Metrics    ports.MetricsCollector
	Logger     *zap.Logger

	QueueSize int
	// WorkflowTimeout bounds a whole execution; zero means unbounded
	WorkflowTimeout time.Duration
}

// InstructionOutcome is the result of processing a single instruction
type InstructionOutcome struct {
	Instruction *domain.Instruction    `json:"instruction"`
	Hash        string                 `json:"hash"`
	Result      map[string]interface{} `json:"result"`
	Cached      bool                   `json:"cached"`
	Attempts    int                    `json:"attempts"`
}

// Coordinator owns every registered workflow. Requests that read or change
// workflow state are closures run one at a time on the coordinator
// goroutine; instruction execution happens on the worker pool.
type Coordinator struct {
	normalizer *instructions.Normalizer
	executor   *executor.Executor
	optimizer  *optimizer.Optimizer
	validator  *Validator
	cache      ports.InstructionCache
	pool       *workers.Pool
	eventBus   ports.EventBus
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	workflowTimeout time.Duration
	now             func() time.Time

	requests chan func()
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup

	// Owned by the coordinator goroutine
	registry *Registry
	active   int
	stopping bool
}

type executionOutcome struct {
	result *domain.ExecutionResult
	err    error
}

// NewCoordinator creates a coordinator and starts its request loop
func NewCoordinator(cfg *Config) *Coordinator {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	c := &Coordinator{
		normalizer:      cfg.Normalizer,
		executor:        cfg.Executor,
		optimizer:       cfg.Optimizer,
		validator:       NewValidator(),
		cache:           cfg.Cache,
		pool:            cfg.Pool,
		eventBus:        cfg.EventBus,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		workflowTimeout: cfg.WorkflowTimeout,
		now:             time.Now,
		requests:        make(chan func(), queueSize),
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
		registry:        NewRegistry(),
	}

	go c.loop()
	return c
}

func (c *Coordinator) loop() {
	defer close(c.done)
	for {
		select {
		case req := <-c.requests:
			req()
		case <-c.stopCh:
			return
		}
	}
}

// do runs fn on the coordinator goroutine and waits for it. Once fn is
// queued the caller waits for it regardless of ctx, so fn never runs
// unobserved.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	req := func() {
		defer close(ran)
		fn()
	}

	select {
	case c.requests <- req:
	case <-c.done:
		return errStopped()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-c.done:
		select {
		case <-ran:
			return nil
		default:
			return errStopped()
		}
	}
}

func errStopped() error {
	return &domain.Error{Kind: domain.ErrCoordinatorStopped}
}

// NormalizeInstruction canonicalizes a raw instruction without executing it
func (c *Coordinator) NormalizeInstruction(raw map[string]interface{}) (*domain.Instruction, error) {
	return c.normalizer.Normalize(raw)
}

// ProcessInstruction normalizes and executes a single instruction outside
// of any workflow
func (c *Coordinator) ProcessInstruction(ctx context.Context, raw map[string]interface{}, callerID string) (*InstructionOutcome, error) {
	inst, err := c.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	out, err := c.executor.Execute(ctx, inst, callerID)
	if err != nil {
		return nil, err
	}

	return &InstructionOutcome{
		Instruction: inst,
		Hash:        out.Hash,
		Result:      out.Result,
		Cached:      out.Cached,
		Attempts:    out.Attempts,
	}, nil
}

// GetCachedInstruction returns the cached result stored under hash
func (c *Coordinator) GetCachedInstruction(ctx context.Context, hash string) (map[string]interface{}, error) {
	result, found, err := c.cache.Lookup(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	c.metrics.RecordCacheLookup(found)
	if !found {
		return nil, domain.Errorf(domain.ErrNotCached, hash, "%s", hash)
	}
	return result, nil
}

// Compose validates spec, normalizes its instructions, resolves their order
// and registers the workflow in ready. Nothing is registered on error.
func (c *Coordinator) Compose(ctx context.Context, spec *domain.WorkflowSpec) (string, error) {
	wf, err := c.build(spec)
	if err != nil {
		c.metrics.RecordWorkflowComposed(string(domain.WorkflowStatusFailed))
		c.logger.Warn("workflow composition rejected",
			zap.String("code", domain.Code(err)),
			zap.Error(err))
		return "", err
	}

	var regErr error
	if err := c.do(ctx, func() {
		if c.stopping {
			regErr = errStopped()
			return
		}
		c.registry.Add(wf)
	}); err != nil {
		return "", err
	}
	if regErr != nil {
		return "", regErr
	}

	c.metrics.RecordWorkflowComposed(string(domain.WorkflowStatusReady))
	c.logger.Info("workflow composed",
		zap.String("workflow_id", wf.ID),
		zap.String("name", wf.Name),
		zap.Int("instructions", len(wf.Instructions)))

	c.publish(domain.EventTypeWorkflowComposed, wf.ID, "", "", map[string]interface{}{
		"name":            wf.Name,
		"execution_order": append([]string(nil), wf.ExecutionOrder...),
	})

	return wf.ID, nil
}

func (c *Coordinator) build(spec *domain.WorkflowSpec) (*domain.Workflow, error) {
	if err := c.validator.Validate(spec); err != nil {
		return nil, err
	}

	insts := make([]*domain.Instruction, 0, len(spec.Instructions))
	for i, raw := range spec.Instructions {
		inst, err := c.normalizer.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		insts = append(insts, inst)
	}

	order, err := resolver.Order(insts)
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &domain.Workflow{
		ID:             uuid.New().String(),
		Name:           spec.Name,
		Instructions:   insts,
		ExecutionOrder: order,
		Status:         domain.WorkflowStatusReady,
		CreatedAt:      now,
		UpdatedAt:      now,
		Metadata:       domain.CopyMap(spec.Metadata),
	}, nil
}

// Execute runs a ready workflow to completion on the worker pool and waits
// for the result. On failure and cancellation the returned result carries
// the instruction results collected so far alongside the error.
func (c *Coordinator) Execute(ctx context.Context, workflowID, callerID string) (*domain.ExecutionResult, error) {
	base, cancel := context.WithCancelCause(context.Background())

	var snapshot *domain.Workflow
	var beginErr error
	if err := c.do(ctx, func() {
		if c.stopping {
			beginErr = errStopped()
			return
		}
		wf, err := c.registry.Begin(workflowID, cancel, c.now())
		if err != nil {
			beginErr = err
			return
		}
		snapshot = wf.Clone()
		c.active++
		c.metrics.SetActiveExecutions(c.active)
		c.inflight.Add(1)
	}); err != nil {
		cancel(nil)
		return nil, err
	}
	if beginErr != nil {
		cancel(nil)
		return nil, beginErr
	}

	c.logger.Info("workflow execution started",
		zap.String("workflow_id", workflowID),
		zap.String("caller_id", callerID))
	c.publish(domain.EventTypeWorkflowStarted, workflowID, "", callerID, nil)

	resultCh := make(chan executionOutcome, 1)
	job := func(workerCtx context.Context) {
		defer c.inflight.Done()
		defer cancel(nil)
		stop := context.AfterFunc(workerCtx, func() { cancel(domain.ErrCoordinatorStopped) })
		defer stop()

		execCtx := context.Context(base)
		if c.workflowTimeout > 0 {
			var cancelTimeout context.CancelFunc
			execCtx, cancelTimeout = context.WithTimeout(base, c.workflowTimeout)
			defer cancelTimeout()
		}

		res, err := c.runGuarded(execCtx, snapshot, callerID)
		c.finish(res, callerID)
		resultCh <- executionOutcome{result: res, err: err}
	}

	if err := c.pool.Submit(ctx, job); err != nil {
		cancel(nil)
		c.abandon(workflowID)
		c.inflight.Done()
		return nil, fmt.Errorf("failed to schedule workflow %s: %w", workflowID, err)
	}

	select {
	case out := <-resultCh:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runGuarded runs wf and turns a panic into a failed result, so the
// workflow always leaves running.
func (c *Coordinator) runGuarded(ctx context.Context, wf *domain.Workflow, callerID string) (res *domain.ExecutionResult, err error) {
	startedAt := c.now()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		c.logger.Error("workflow execution panicked",
			zap.String("workflow_id", wf.ID),
			zap.String("caller_id", callerID),
			zap.Any("panic", r))
		res = &domain.ExecutionResult{
			WorkflowID:         wf.ID,
			Status:             domain.WorkflowStatusFailed,
			InstructionResults: map[string]map[string]interface{}{},
			Error:              fmt.Sprintf("panic: %v", r),
			StartedAt:          startedAt,
			CompletedAt:        c.now(),
		}
		err = fmt.Errorf("workflow %s execution panicked: %v", wf.ID, r)
	}()
	return c.run(ctx, wf, callerID)
}

// run executes the instructions of wf sequentially in execution order
func (c *Coordinator) run(ctx context.Context, wf *domain.Workflow, callerID string) (res *domain.ExecutionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.execute")
	span.WithAttributes(map[string]string{
		"workflow_id": wf.ID,
		"caller_id":   callerID,
	})
	defer func() { tracing.EndSpan(span, err) }()

	res = &domain.ExecutionResult{
		WorkflowID:         wf.ID,
		Status:             domain.WorkflowStatusRunning,
		InstructionResults: make(map[string]map[string]interface{}, len(wf.ExecutionOrder)),
		StartedAt:          c.now(),
	}
	completed := make([]*domain.Instruction, 0, len(wf.ExecutionOrder))

	for _, id := range wf.ExecutionOrder {
		inst, ok := wf.Instruction(id)
		if !ok {
			return c.fail(ctx, wf, res, id, completed, callerID,
				fmt.Errorf("instruction %s is not part of the workflow", id))
		}
		if ctx.Err() != nil {
			return c.interrupt(ctx, wf, res, id, completed, callerID)
		}

		out, err := c.executor.Execute(ctx, inst, callerID)
		if err != nil {
			if ctx.Err() != nil {
				return c.interrupt(ctx, wf, res, id, completed, callerID)
			}
			return c.fail(ctx, wf, res, id, completed, callerID, err)
		}

		res.InstructionResults[id] = out.Result
		completed = append(completed, inst)
		c.publish(domain.EventTypeInstructionCompleted, wf.ID, id, callerID, map[string]interface{}{
			"hash":   out.Hash,
			"cached": out.Cached,
		})
	}

	res.Status = domain.WorkflowStatusCompleted
	res.CompletedAt = c.now()
	return res, nil
}

// interrupt ends a run whose context is done before instruction id
// finished. Cancellation yields a cancelled result; timeouts and shutdown
// fail the workflow.
func (c *Coordinator) interrupt(ctx context.Context, wf *domain.Workflow, res *domain.ExecutionResult, id string, completed []*domain.Instruction, callerID string) (*domain.ExecutionResult, error) {
	cause := context.Cause(ctx)
	if !errors.Is(cause, domain.ErrWorkflowCancelled) {
		return c.fail(ctx, wf, res, id, completed, callerID, cause)
	}

	res.Status = domain.WorkflowStatusCancelled
	res.CompletedAt = c.now()
	c.logger.Info("workflow execution cancelled",
		zap.String("workflow_id", wf.ID),
		zap.String("instruction_id", id),
		zap.Int("completed", len(completed)))
	return res, domain.Errorf(domain.ErrWorkflowCancelled, wf.ID, "%s cancelled before %s finished", wf.ID, id)
}

func (c *Coordinator) fail(ctx context.Context, wf *domain.Workflow, res *domain.ExecutionResult, id string, completed []*domain.Instruction, callerID string, cause error) (*domain.ExecutionResult, error) {
	res.Status = domain.WorkflowStatusFailed
	res.FailedInstruction = id
	res.Error = cause.Error()

	c.logger.Warn("workflow instruction failed",
		zap.String("workflow_id", wf.ID),
		zap.String("instruction_id", id),
		zap.String("caller_id", callerID),
		zap.Error(cause))
	c.publish(domain.EventTypeInstructionFailed, wf.ID, id, callerID, map[string]interface{}{
		"error": cause.Error(),
	})

	res.Compensations = c.compensate(ctx, wf, completed, callerID)
	res.CompletedAt = c.now()
	return res, domain.Wrap(domain.ErrInstructionFailed, id, cause)
}

// compensate dispatches declared compensations of completed instructions in
// reverse completion order. Failures are recorded and logged only.
func (c *Coordinator) compensate(ctx context.Context, wf *domain.Workflow, completed []*domain.Instruction, callerID string) []domain.CompensationResult {
	ctx = context.WithoutCancel(ctx)

	var out []domain.CompensationResult
	for i := len(completed) - 1; i >= 0; i-- {
		inst := completed[i]
		if inst.Compensation == nil {
			continue
		}

		r := domain.CompensationResult{
			InstructionID: inst.ID,
			Action:        instructions.CanonicalAction(inst.Compensation.Action),
		}
		result, err := c.executor.Compensate(ctx, inst, callerID)
		if err != nil {
			c.logger.Error("compensation failed",
				zap.String("workflow_id", wf.ID),
				zap.String("instruction_id", inst.ID),
				zap.Error(err))
			r.Error = err.Error()
		} else {
			r.Result = result
		}
		out = append(out, r)

		c.publish(domain.EventTypeInstructionCompensate, wf.ID, inst.ID, callerID, map[string]interface{}{
			"action": r.Action,
			"error":  r.Error,
		})
	}
	return out
}

// finish stores the outcome of an execution. A workflow cancelled while
// its last instruction ran keeps its cancelled status.
func (c *Coordinator) finish(res *domain.ExecutionResult, callerID string) {
	stored := res.Status
	if err := c.do(context.Background(), func() {
		stored = c.registry.Finish(res.WorkflowID, res.Status, c.now())
		c.active--
		c.metrics.SetActiveExecutions(c.active)
	}); err != nil {
		c.logger.Error("failed to record workflow outcome",
			zap.String("workflow_id", res.WorkflowID),
			zap.Error(err))
	}

	c.metrics.RecordWorkflowExecuted(string(res.Status), res.CompletedAt.Sub(res.StartedAt))
	c.logger.Info("workflow execution finished",
		zap.String("workflow_id", res.WorkflowID),
		zap.String("caller_id", callerID),
		zap.String("status", string(res.Status)),
		zap.String("stored_status", string(stored)),
		zap.Int("instruction_results", len(res.InstructionResults)))

	data := map[string]interface{}{
		"instruction_results": len(res.InstructionResults),
	}
	switch res.Status {
	case domain.WorkflowStatusCompleted:
		c.publish(domain.EventTypeWorkflowCompleted, res.WorkflowID, "", callerID, data)
	case domain.WorkflowStatusFailed:
		data["failed_instruction"] = res.FailedInstruction
		data["error"] = res.Error
		c.publish(domain.EventTypeWorkflowFailed, res.WorkflowID, res.FailedInstruction, callerID, data)
	}
}

// abandon reverts a workflow whose execution never reached the pool
func (c *Coordinator) abandon(workflowID string) {
	if err := c.do(context.Background(), func() {
		c.registry.Reset(workflowID, c.now())
		c.active--
		c.metrics.SetActiveExecutions(c.active)
	}); err != nil {
		c.logger.Error("failed to reset workflow",
			zap.String("workflow_id", workflowID),
			zap.Error(err))
	}
}

// Optimize rewrites the stored workflow with the optimizer rules. The
// stored workflow is replaced only when every rule succeeds.
func (c *Coordinator) Optimize(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	var out *domain.Workflow
	var report *optimizer.Report
	var optErr error
	if err := c.do(ctx, func() {
		wf, err := c.registry.Get(workflowID)
		if err != nil {
			optErr = err
			return
		}
		optimized, rep, err := c.optimizer.Optimize(wf)
		if err != nil {
			optErr = err
			return
		}
		if err := c.registry.Replace(optimized, c.now()); err != nil {
			optErr = err
			return
		}
		out = optimized.Clone()
		report = rep
	}); err != nil {
		return nil, err
	}
	if optErr != nil {
		return nil, optErr
	}

	c.metrics.RecordWorkflowOptimized(len(report.Removed))
	c.logger.Info("workflow optimized",
		zap.String("workflow_id", workflowID),
		zap.Strings("removed", report.Removed))
	c.publish(domain.EventTypeWorkflowOptimized, workflowID, "", "", map[string]interface{}{
		"removed": report.Removed,
		"rules":   report.Applied,
	})

	return out, nil
}

// Cancel moves the workflow to cancelled from any state and signals its
// running execution to stop before the next instruction
func (c *Coordinator) Cancel(ctx context.Context, workflowID string) error {
	var signalled bool
	var cancelErr error
	if err := c.do(ctx, func() {
		signalled, cancelErr = c.registry.Cancel(workflowID, c.now())
	}); err != nil {
		return err
	}
	if cancelErr != nil {
		return cancelErr
	}

	c.metrics.RecordWorkflowCancelled()
	c.logger.Info("workflow cancelled",
		zap.String("workflow_id", workflowID),
		zap.Bool("execution_signalled", signalled))
	c.publish(domain.EventTypeWorkflowCancelled, workflowID, "", "", nil)

	return nil
}

// Status returns the lifecycle state of a workflow
func (c *Coordinator) Status(ctx context.Context, workflowID string) (domain.WorkflowStatus, error) {
	var status domain.WorkflowStatus
	var getErr error
	if err := c.do(ctx, func() {
		wf, err := c.registry.Get(workflowID)
		if err != nil {
			getErr = err
			return
		}
		status = wf.Status
	}); err != nil {
		return "", err
	}
	return status, getErr
}

// Get returns a copy of a registered workflow
func (c *Coordinator) Get(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	var out *domain.Workflow
	var getErr error
	if err := c.do(ctx, func() {
		wf, err := c.registry.Get(workflowID)
		if err != nil {
			getErr = err
			return
		}
		out = wf.Clone()
	}); err != nil {
		return nil, err
	}
	return out, getErr
}

// List returns copies of all registered workflows in composition order
func (c *Coordinator) List(ctx context.Context) ([]*domain.Workflow, error) {
	var out []*domain.Workflow
	if err := c.do(ctx, func() {
		for _, wf := range c.registry.List() {
			out = append(out, wf.Clone())
		}
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// publish emits a lifecycle event. Publishing never fails an operation.
func (c *Coordinator) publish(eventType domain.EventType, workflowID, instructionID, callerID string, data map[string]interface{}) {
	if c.eventBus == nil {
		return
	}

	event := domain.Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		WorkflowID:    workflowID,
		InstructionID: instructionID,
		CallerID:      callerID,
		Timestamp:     c.now(),
		Data:          data,
	}

	if err := c.eventBus.Publish(context.Background(), domain.WorkflowEventsTopic, event); err != nil {
		c.logger.Error("failed to publish event",
			zap.String("workflow_id", workflowID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// Shutdown stops accepting executions, cancels running ones and waits for
// them to record their outcome before stopping the request loop
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.logger.Info("shutting down coordinator")

	var aborted int
	if err := c.do(ctx, func() {
		c.stopping = true
		aborted = c.registry.Abort(domain.ErrCoordinatorStopped)
	}); err != nil {
		if errors.Is(err, domain.ErrCoordinatorStopped) {
			return nil
		}
		return err
	}

	waited := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(waited)
	}()

	defer c.stopOnce.Do(func() { close(c.stopCh) })

	select {
	case <-waited:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}

	c.logger.Info("coordinator shut down complete", zap.Int("aborted_executions", aborted))
	return nil
}
