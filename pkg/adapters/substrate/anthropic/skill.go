package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 1024
)

// SkillSubstrate answers skill invocations with the Anthropic Messages API
type SkillSubstrate struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// NewSkillSubstrate creates a skill substrate. Extra request options are
// appended after the API key, which lets tests point at a local server.
func NewSkillSubstrate(apiKey, model string, maxTokens int64, logger *zap.Logger, opts ...option.RequestOption) (*SkillSubstrate, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &SkillSubstrate{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Execute sends the skill prompt and returns the text answer
func (s *SkillSubstrate) Execute(ctx context.Context, action string, parameters map[string]interface{}) (map[string]interface{}, error) {
	prompt, err := buildPrompt(action, parameters)
	if err != nil {
		return nil, err
	}

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("skill completion failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	s.logger.Debug("skill completion received",
		zap.String("action", action),
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return map[string]interface{}{
		"output":        text.String(),
		"model":         string(msg.Model),
		"stop_reason":   string(msg.StopReason),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
	}, nil
}

// buildPrompt uses parameters.prompt when given, otherwise describes the
// skill call from the action and parameters.
func buildPrompt(action string, parameters map[string]interface{}) (string, error) {
	if p, ok := parameters["prompt"].(string); ok && p != "" {
		return p, nil
	}

	args, err := json.Marshal(parameters)
	if err != nil {
		return "", fmt.Errorf("failed to encode skill parameters: %w", err)
	}
	return fmt.Sprintf("Perform the skill %q with these parameters and reply with the result only:\n%s", action, args), nil
}
