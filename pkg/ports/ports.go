package ports

import (
	"context"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// CacheEntry is a stored instruction result
type CacheEntry struct {
	Result   map[string]interface{} `json:"result"`
	CachedAt time.Time              `json:"cached_at"`
	TTL      time.Duration          `json:"ttl"`
}

// Expired reports whether the entry is no longer valid at now
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.CachedAt.Add(e.TTL))
}

// InstructionCache is the content-addressed result cache.
// Lookup returns found=false for absent and expired entries alike.
type InstructionCache interface {
	Lookup(ctx context.Context, hash string) (map[string]interface{}, bool, error)
	Store(ctx context.Context, hash string, result map[string]interface{}, ttl time.Duration) error
}

// EventHandler receives published events
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes lifecycle events to topic subscribers
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// Substrate is the black box that performs the effect of one instruction
// type. It returns a result map or an error.
type Substrate interface {
	Execute(ctx context.Context, action string, parameters map[string]interface{}) (map[string]interface{}, error)
}

// MetricsCollector records coordinator, executor, cache and worker metrics
type MetricsCollector interface {
	RecordWorkflowComposed(status string)
	RecordWorkflowExecuted(status string, duration time.Duration)
	RecordWorkflowCancelled()
	RecordWorkflowOptimized(removed int)
	RecordInstructionExecuted(instructionType, status string, duration time.Duration)
	RecordInstructionRetry(instructionType string)
	RecordCacheLookup(hit bool)
	SetActiveExecutions(count int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
