package instructions

import (
	"errors"
	"testing"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestCanonicalAction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Do.Thing", "do.thing"},
		{"send-Email now", "send_email_now"},
		{"already.canonical_1", "already.canonical_1"},
		{"Ünïcode!", "_n_code_"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalAction(tt.in))
			assert.Equal(t, tt.want, CanonicalAction(CanonicalAction(tt.in)))
		})
	}
}

func TestNormalize_AppliesDefaults(t *testing.T) {
	n := NewNormalizer(WithDefaultTimeout(5*time.Second), WithClock(fixedClock))

	inst, err := n.Normalize(map[string]interface{}{
		"type":       "skill_invocation",
		"action":     "Do.Thing",
		"parameters": map[string]interface{}{"skill_id": "s1"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, domain.InstructionTypeSkillInvocation, inst.Type)
	assert.Equal(t, "do.thing", inst.Action)
	assert.Equal(t, int64(5000), inst.Timeout)
	require.NotNil(t, inst.RetryPolicy)
	assert.Equal(t, 3, inst.RetryPolicy.MaxRetries)
	assert.Equal(t, domain.BackoffExponential, inst.RetryPolicy.Backoff)
	assert.Equal(t, []string{}, inst.Dependencies)
	assert.Equal(t, fixedClock(), inst.CreatedAt)
}

func TestNormalize_KeepsDeclaredValues(t *testing.T) {
	n := NewNormalizer()

	inst, err := n.Normalize(map[string]interface{}{
		"id":           "i-1",
		"type":         "data_operation",
		"action":       "db.read",
		"parameters":   map[string]interface{}{"table": "users"},
		"dependencies": []interface{}{"i-0"},
		"timeout":      1500,
		"retry_policy": map[string]interface{}{"max_retries": 1, "backoff": "fixed"},
		"compensation": map[string]interface{}{"action": "db.rollback"},
	})
	require.NoError(t, err)

	assert.Equal(t, "i-1", inst.ID)
	assert.Equal(t, []string{"i-0"}, inst.Dependencies)
	assert.Equal(t, int64(1500), inst.Timeout)
	assert.Equal(t, &domain.RetryPolicy{MaxRetries: 1, Backoff: domain.BackoffFixed}, inst.RetryPolicy)
	require.NotNil(t, inst.Compensation)
	assert.Equal(t, "db.rollback", inst.Compensation.Action)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer()

	first, err := n.Normalize(map[string]interface{}{
		"type":   "communication",
		"action": "Notify User!",
		"parameters": map[string]interface{}{
			"channel": "email",
			"count":   2,
			"nested":  map[string]interface{}{"a": []interface{}{1, "b"}},
		},
	})
	require.NoError(t, err)

	raw, err := first.Raw()
	require.NoError(t, err)

	second, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestNormalize_UniqueIDs(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]interface{}{
		"type":       "other",
		"action":     "x",
		"parameters": map[string]interface{}{},
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		inst, err := n.Normalize(raw)
		require.NoError(t, err)
		assert.NotEmpty(t, inst.ID)
		assert.False(t, seen[inst.ID], "duplicate id %s", inst.ID)
		seen[inst.ID] = true
	}
	_, hasID := raw["id"]
	assert.False(t, hasID, "input map must not be modified")
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(map[string]interface{}{"action": ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingRequiredFields))

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []string{"type", "action", "parameters"}, de.Fields)
	assert.Equal(t, "missing_required_fields", domain.Code(err))
}

func TestNormalize_InvalidFieldType(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(map[string]interface{}{
		"type":       "other",
		"action":     "x",
		"parameters": "not-a-map",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInstruction))
}

func TestNormalizer_RuleOrder(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, []string{
		"assign_id", "default_timeout", "canonical_action",
		"default_retry_policy", "default_dependencies", "created_at",
	}, n.Rules())
}
