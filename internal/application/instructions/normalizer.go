package instructions

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries is assigned when an instruction declares no retry policy
	DefaultMaxRetries = 3
	// DefaultTimeout is used when the normalizer is built without one
	DefaultTimeout = 30 * time.Second
)

// Rule is one idempotent normalization step applied to a raw instruction map
type Rule struct {
	Name  string
	Apply func(raw map[string]interface{})
}

// Normalizer canonicalizes raw instruction maps
type Normalizer struct {
	rules     []Rule
	validator *Validator
}

// Option customizes a Normalizer
type Option func(*config)

type config struct {
	defaultTimeout time.Duration
	newID          func() string
	now            func() time.Time
}

// WithDefaultTimeout sets the timeout assigned to instructions that declare none
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(fn func() string) Option {
	return func(c *config) { c.newID = fn }
}

// WithClock replaces the time source used for created_at
func WithClock(fn func() time.Time) Option {
	return func(c *config) { c.now = fn }
}

// NewNormalizer creates a normalizer with the standard rule set
func NewNormalizer(opts ...Option) *Normalizer {
	cfg := &config{
		defaultTimeout: DefaultTimeout,
		newID:          func() string { return uuid.New().String() },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Normalizer{
		rules:     standardRules(cfg),
		validator: NewValidator(),
	}
}

// Rules returns the names of the rules in application order
func (n *Normalizer) Rules() []string {
	names := make([]string, len(n.rules))
	for i, r := range n.rules {
		names[i] = r.Name
	}
	return names
}

// Normalize applies every rule to a copy of raw, validates the result and
// decodes it into an Instruction. raw is never modified.
func (n *Normalizer) Normalize(raw map[string]interface{}) (*domain.Instruction, error) {
	working := domain.CopyMap(raw)
	if working == nil {
		working = make(map[string]interface{})
	}

	for _, rule := range n.rules {
		rule.Apply(working)
	}

	if err := n.validator.Validate(working); err != nil {
		return nil, err
	}

	return decode(working)
}

func standardRules(cfg *config) []Rule {
	return []Rule{
		{
			Name: "assign_id",
			Apply: func(raw map[string]interface{}) {
				if isBlank(raw["id"]) {
					raw["id"] = cfg.newID()
				}
			},
		},
		{
			Name: "default_timeout",
			Apply: func(raw map[string]interface{}) {
				if !isPositiveNumber(raw["timeout"]) {
					raw["timeout"] = cfg.defaultTimeout.Milliseconds()
				}
			},
		},
		{
			Name: "canonical_action",
			Apply: func(raw map[string]interface{}) {
				if action, ok := raw["action"].(string); ok {
					raw["action"] = CanonicalAction(action)
				}
			},
		},
		{
			Name: "default_retry_policy",
			Apply: func(raw map[string]interface{}) {
				if raw["retry_policy"] == nil {
					raw["retry_policy"] = map[string]interface{}{
						"max_retries": DefaultMaxRetries,
						"backoff":     string(domain.BackoffExponential),
					}
				}
			},
		},
		{
			Name: "default_dependencies",
			Apply: func(raw map[string]interface{}) {
				if raw["dependencies"] == nil {
					raw["dependencies"] = []interface{}{}
				}
			},
		},
		{
			Name: "created_at",
			Apply: func(raw map[string]interface{}) {
				if isBlank(raw["created_at"]) {
					raw["created_at"] = cfg.now().UTC().Format(time.RFC3339Nano)
				}
			},
		},
	}
}

// CanonicalAction lower-cases action and replaces every character outside
// [a-z0-9_.] with '_'.
func CanonicalAction(action string) string {
	lower := strings.ToLower(action)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func decode(raw map[string]interface{}) (*domain.Instruction, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidInstruction, "", "failed to encode instruction: %v", err)
	}

	var inst domain.Instruction
	if err := json.Unmarshal(data, &inst); err != nil {
		id, _ := raw["id"].(string)
		return nil, domain.Errorf(domain.ErrInvalidInstruction, id, "%v", err)
	}

	if inst.Parameters == nil {
		return nil, domain.MissingFields(domain.ErrMissingRequiredFields, []string{"parameters"})
	}
	if inst.Dependencies == nil {
		inst.Dependencies = []string{}
	}
	return &inst, nil
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func isPositiveNumber(v interface{}) bool {
	switch n := v.(type) {
	case int:
		return n > 0
	case int32:
		return n > 0
	case int64:
		return n > 0
	case float32:
		return n > 0
	case float64:
		return n > 0
	case json.Number:
		f, err := n.Float64()
		return err == nil && f > 0
	default:
		return false
	}
}

// String describes the rule set, used in debug logs
func (n *Normalizer) String() string {
	return fmt.Sprintf("normalizer(%s)", strings.Join(n.Rules(), ","))
}
