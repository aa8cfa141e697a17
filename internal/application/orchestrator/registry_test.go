package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registered(status domain.WorkflowStatus) (*Registry, string) {
	r := NewRegistry()
	r.Add(&domain.Workflow{ID: "wf", Status: status})
	return r, "wf"
}

func TestRegistry_BeginTransitions(t *testing.T) {
	tests := []struct {
		status domain.WorkflowStatus
		kind   error
	}{
		{domain.WorkflowStatusReady, nil},
		{domain.WorkflowStatusRunning, domain.ErrWorkflowAlreadyRunning},
		{domain.WorkflowStatusCompleted, domain.ErrWorkflowAlreadyCompleted},
		{domain.WorkflowStatusFailed, domain.ErrWorkflowPreviouslyFailed},
		{domain.WorkflowStatusCancelled, domain.ErrWorkflowCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r, id := registered(tt.status)
			wf, err := r.Begin(id, nil, time.Now())
			if tt.kind == nil {
				require.NoError(t, err)
				assert.Equal(t, domain.WorkflowStatusRunning, wf.Status)
				return
			}
			assert.ErrorIs(t, err, tt.kind)
			stored, _ := r.Get(id)
			assert.Equal(t, tt.status, stored.Status)
		})
	}
}

func TestRegistry_CancelSignalsExecution(t *testing.T) {
	r, id := registered(domain.WorkflowStatusReady)
	ctx, cancel := context.WithCancelCause(context.Background())

	_, err := r.Begin(id, cancel, time.Now())
	require.NoError(t, err)

	signalled, err := r.Cancel(id, time.Now())
	require.NoError(t, err)
	assert.True(t, signalled)
	assert.True(t, errors.Is(context.Cause(ctx), domain.ErrWorkflowCancelled))

	assert.Equal(t, domain.WorkflowStatusCancelled, r.Finish(id, domain.WorkflowStatusCompleted, time.Now()))
	wf, _ := r.Get(id)
	assert.Equal(t, domain.WorkflowStatusCancelled, wf.Status)
}

func TestRegistry_CancelWithoutExecution(t *testing.T) {
	for _, status := range []domain.WorkflowStatus{
		domain.WorkflowStatusReady,
		domain.WorkflowStatusCompleted,
		domain.WorkflowStatusFailed,
	} {
		r, id := registered(status)
		signalled, err := r.Cancel(id, time.Now())
		require.NoError(t, err)
		assert.False(t, signalled)
		wf, _ := r.Get(id)
		assert.Equal(t, domain.WorkflowStatusCancelled, wf.Status)
	}

	_, err := NewRegistry().Cancel("missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestRegistry_ResetAndAbort(t *testing.T) {
	r, id := registered(domain.WorkflowStatusReady)
	ctx, cancel := context.WithCancelCause(context.Background())
	_, err := r.Begin(id, cancel, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Abort(domain.ErrCoordinatorStopped))
	assert.True(t, errors.Is(context.Cause(ctx), domain.ErrCoordinatorStopped))

	r.Reset(id, time.Now())
	wf, _ := r.Get(id)
	assert.Equal(t, domain.WorkflowStatusReady, wf.Status)
	assert.Equal(t, 0, r.Abort(domain.ErrCoordinatorStopped))
}

func TestRegistry_ListKeepsCompositionOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		r.Add(&domain.Workflow{ID: id})
	}

	var ids []string
	for _, wf := range r.List() {
		ids = append(ids, wf.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Equal(t, 3, r.Len())
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&domain.WorkflowSpec{})
	require.Error(t, err)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []string{"name", "instructions"}, de.Fields)

	err = v.Validate(&domain.WorkflowSpec{Name: "x", Instructions: []map[string]interface{}{nil}})
	assert.ErrorIs(t, err, domain.ErrInvalidInstruction)

	assert.NoError(t, v.Validate(&domain.WorkflowSpec{
		Name:         "x",
		Instructions: []map[string]interface{}{{"action": "a"}},
	}))
}
