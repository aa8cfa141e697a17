package instructions

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// hashInput holds the effect-relevant fields. id, timestamps and
// dependencies are left out so identical work shares one cache entry.
type hashInput struct {
	Type       domain.InstructionType `json:"type"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Hash returns the deterministic cache key of an instruction.
// encoding/json writes map keys in sorted order, which makes the encoding
// canonical for nested parameter maps too.
func Hash(inst *domain.Instruction) (string, error) {
	data, err := json.Marshal(hashInput{
		Type:       inst.Type,
		Action:     inst.Action,
		Parameters: inst.Parameters,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode instruction for hashing: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
