package optimizer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aescanero/dago-workflow/internal/application/resolver"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"go.uber.org/zap"
)

const (
	RuleRemoveRedundant = "remove_redundant_instructions"
	RuleParallelize     = "parallelize_independent_instructions"
	RuleExecutionOrder  = "optimize_execution_order"

	// MetadataParallelGroups holds the dependency levels of the workflow
	MetadataParallelGroups = "parallel_groups"
	// MetadataRemovedInstructions holds the ids dropped by deduplication
	MetadataRemovedInstructions = "removed_instructions"
)

// Rule rewrites a workflow in place
type Rule struct {
	Name  string
	Apply func(wf *domain.Workflow, report *Report) error
}

// Report describes what an optimization pass changed
type Report struct {
	Removed []string `json:"removed"`
	Applied []string `json:"applied"`
}

// Optimizer applies its rules in order
type Optimizer struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates an optimizer with the default rule set
func New(logger *zap.Logger) *Optimizer {
	return &Optimizer{
		rules: []Rule{
			{Name: RuleRemoveRedundant, Apply: removeRedundant},
			{Name: RuleParallelize, Apply: parallelize},
			{Name: RuleExecutionOrder, Apply: reorder},
		},
		logger: logger,
	}
}

// Rules returns the rule names in application order
func (o *Optimizer) Rules() []string {
	names := make([]string, len(o.rules))
	for i, r := range o.rules {
		names[i] = r.Name
	}
	return names
}

// Optimize returns a rewritten copy of wf. wf itself is never modified.
func (o *Optimizer) Optimize(wf *domain.Workflow) (*domain.Workflow, *Report, error) {
	out := wf.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]interface{})
	}
	report := &Report{}

	for _, rule := range o.rules {
		if err := rule.Apply(out, report); err != nil {
			o.logger.Warn("optimization rule failed",
				zap.String("workflow_id", wf.ID),
				zap.String("rule", rule.Name),
				zap.Error(err))
			return nil, nil, err
		}
		report.Applied = append(report.Applied, rule.Name)
	}

	o.logger.Debug("workflow optimized",
		zap.String("workflow_id", wf.ID),
		zap.Strings("removed", report.Removed))

	return out, report, nil
}

type dedupKey struct {
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters"`
}

func removeRedundant(wf *domain.Workflow, report *Report) error {
	kept := make(map[string]string, len(wf.Instructions)) // dedup key -> kept id
	redirect := make(map[string]string)                   // removed id -> kept id
	instructions := make([]*domain.Instruction, 0, len(wf.Instructions))
	byID := make(map[string]*domain.Instruction, len(wf.Instructions))
	var removed []*domain.Instruction

	for _, inst := range wf.Instructions {
		data, err := json.Marshal(dedupKey{Action: inst.Action, Parameters: inst.Parameters})
		if err != nil {
			return fmt.Errorf("failed to encode instruction %s: %w", inst.ID, err)
		}
		key := string(data)
		if keptID, ok := kept[key]; ok {
			redirect[inst.ID] = keptID
			removed = append(removed, inst)
			continue
		}
		kept[key] = inst.ID
		byID[inst.ID] = inst
		instructions = append(instructions, inst)
	}

	if len(redirect) == 0 {
		return nil
	}

	// The kept twin inherits the ordering constraints of what it replaces.
	for _, r := range removed {
		twin := byID[redirect[r.ID]]
		deps := make([]string, 0, len(twin.Dependencies)+len(r.Dependencies))
		deps = append(deps, twin.Dependencies...)
		twin.Dependencies = append(deps, r.Dependencies...)
	}

	for _, inst := range instructions {
		inst.Dependencies = redirectDependencies(inst.ID, inst.Dependencies, redirect)
	}

	order, err := resolver.Order(instructions)
	if err != nil {
		return err
	}

	wf.Instructions = instructions
	wf.ExecutionOrder = order
	for removed := range redirect {
		report.Removed = append(report.Removed, removed)
	}
	sort.Strings(report.Removed)
	wf.Metadata[MetadataRemovedInstructions] = append([]string(nil), report.Removed...)
	return nil
}

// redirectDependencies rewrites dependencies on removed instructions to
// their kept twin, dropping duplicates and self references.
func redirectDependencies(id string, deps []string, redirect map[string]string) []string {
	out := make([]string, 0, len(deps))
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		if target, ok := redirect[dep]; ok {
			dep = target
		}
		if dep == id || seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
	}
	return out
}

func parallelize(wf *domain.Workflow, _ *Report) error {
	levels, err := resolver.Levels(wf.Instructions)
	if err != nil {
		return err
	}
	wf.Metadata[MetadataParallelGroups] = levels
	return nil
}

func reorder(wf *domain.Workflow, _ *Report) error {
	order, err := resolver.Order(wf.Instructions)
	if err != nil {
		return err
	}
	wf.ExecutionOrder = order
	return nil
}
