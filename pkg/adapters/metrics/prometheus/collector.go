package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	workflowsComposed    *prometheus.CounterVec
	workflowsExecuted    *prometheus.CounterVec
	workflowsCancelled   prometheus.Counter
	workflowsOptimized   prometheus.Counter
	instructionsRemoved  prometheus.Counter
	instructionsExecuted *prometheus.CounterVec
	instructionRetries   *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
	activeExecutions     prometheus.Gauge
	workerPoolIdle       prometheus.Gauge
	workerPoolBusy       prometheus.Gauge
	workerPoolStopped    prometheus.Gauge
	workflowDuration     *prometheus.HistogramVec
	instructionDuration  *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered with
// reg. A nil reg registers with the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		workflowsComposed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dago_workflows_composed_total",
				Help: "Total number of workflow composition requests",
			},
			[]string{"status"},
		),
		workflowsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dago_workflows_executed_total",
				Help: "Total number of workflow executions by final status",
			},
			[]string{"status"},
		),
		workflowsCancelled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dago_workflows_cancelled_total",
				Help: "Total number of workflow cancellations",
			},
		),
		workflowsOptimized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dago_workflows_optimized_total",
				Help: "Total number of optimizer passes",
			},
		),
		instructionsRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dago_optimizer_instructions_removed_total",
				Help: "Total number of redundant instructions removed by the optimizer",
			},
		),
		instructionsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dago_instructions_executed_total",
				Help: "Total number of instruction executions",
			},
			[]string{"type", "status"},
		),
		instructionRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dago_instruction_retries_total",
				Help: "Total number of instruction retry attempts",
			},
			[]string{"type"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dago_cache_lookups_total",
				Help: "Total number of instruction cache lookups",
			},
			[]string{"hit"},
		),
		activeExecutions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dago_active_executions",
				Help: "Number of currently running workflows",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dago_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dago_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dago_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dago_workflow_duration_seconds",
				Help:    "Workflow execution duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		instructionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dago_instruction_duration_seconds",
				Help:    "Instruction execution duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"type"},
		),
	}
}

// RecordWorkflowComposed records a composition attempt
func (c *Collector) RecordWorkflowComposed(status string) {
	c.workflowsComposed.WithLabelValues(status).Inc()
}

// RecordWorkflowExecuted records a finished workflow execution
func (c *Collector) RecordWorkflowExecuted(status string, duration time.Duration) {
	c.workflowsExecuted.WithLabelValues(status).Inc()
	c.workflowDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordWorkflowCancelled records a cancellation
func (c *Collector) RecordWorkflowCancelled() {
	c.workflowsCancelled.Inc()
}

// RecordWorkflowOptimized records an optimizer pass and how many
// instructions it removed
func (c *Collector) RecordWorkflowOptimized(removed int) {
	c.workflowsOptimized.Inc()
	c.instructionsRemoved.Add(float64(removed))
}

// RecordInstructionExecuted records one dispatched or cached instruction
func (c *Collector) RecordInstructionExecuted(instructionType, status string, duration time.Duration) {
	c.instructionsExecuted.WithLabelValues(instructionType, status).Inc()
	c.instructionDuration.WithLabelValues(instructionType).Observe(duration.Seconds())
}

// RecordInstructionRetry records a retry attempt
func (c *Collector) RecordInstructionRetry(instructionType string) {
	c.instructionRetries.WithLabelValues(instructionType).Inc()
}

// RecordCacheLookup records a cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	c.cacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

// SetActiveExecutions sets the number of currently running workflows
func (c *Collector) SetActiveExecutions(count int) {
	c.activeExecutions.Set(float64(count))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
