package workflowspec

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Bootstrap is a document of workflow specs composed at startup
type Bootstrap struct {
	Workflows []domain.WorkflowSpec `yaml:"workflows"`
}

// Parse decodes a single workflow spec. JSON is accepted since it is a
// subset of YAML.
func Parse(data []byte) (*domain.WorkflowSpec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("workflowspec: spec payload is empty")
	}
	var spec domain.WorkflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("workflowspec: decode spec: %w", err)
	}
	return &spec, nil
}

// ParseBootstrap decodes a bootstrap document
func ParseBootstrap(data []byte) ([]domain.WorkflowSpec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc Bootstrap
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("workflowspec: decode bootstrap: %w", err)
	}
	return doc.Workflows, nil
}

// LoadBootstrapReader reads a bootstrap document from r
func LoadBootstrapReader(r io.Reader) ([]domain.WorkflowSpec, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("workflowspec: read bootstrap: %w", err)
	}
	return ParseBootstrap(content)
}

// LoadBootstrapFile reads a bootstrap document from path
func LoadBootstrapFile(path string) ([]domain.WorkflowSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflowspec: read %s: %w", path, err)
	}
	specs, err := ParseBootstrap(content)
	if err != nil {
		return nil, fmt.Errorf("workflowspec: %s: %w", path, err)
	}
	return specs, nil
}
