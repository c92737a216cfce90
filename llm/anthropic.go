package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = string(anthropic.ModelClaude_3_5_Sonnet_20240620)

// Anthropic implements Completer on top of the Anthropic Messages API.
type Anthropic struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
	logger      Logger
}

// AnthropicOption configures an Anthropic client.
type AnthropicOption func(*Anthropic)

// WithModel overrides the model identifier.
func WithModel(model string) AnthropicOption {
	return func(a *Anthropic) {
		if model != "" {
			a.model = anthropic.Model(model)
		}
	}
}

// WithMaxTokens overrides the completion token budget.
func WithMaxTokens(n int64) AnthropicOption {
	return func(a *Anthropic) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLogger attaches an optional logger.
func WithLogger(l Logger) AnthropicOption {
	return func(a *Anthropic) { a.logger = l }
}

// NewAnthropic creates a Completer backed by the Anthropic API.
// The key must be non-empty; callers are expected to have resolved it from
// the environment at startup.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	a := &Anthropic{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       anthropic.Model(DefaultModel),
		maxTokens:   1024,
		temperature: 0.1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Complete returns a plain-text completion for the message sequence.
func (a *Anthropic) Complete(ctx context.Context, messages []Message) (string, error) {
	params := a.baseParams(messages)
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyErr(err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrNoCompletion
	}
	return text.String(), nil
}

// CompleteWithTool forces a tool-call completion for the given tool. When
// the model answers conversationally instead, the text is returned with a
// nil ToolUse.
func (a *Anthropic) CompleteWithTool(ctx context.Context, messages []Message, tool ToolSpec) (*ToolUse, string, error) {
	params := a.baseParams(messages)
	params.Tools = anthropic.F([]anthropic.ToolUnionUnionParam{
		anthropic.ToolParam{
			Name:        anthropic.F(tool.Name),
			Description: anthropic.F(tool.Description),
			InputSchema: anthropic.F[interface{}](tool.InputSchema),
		},
	})
	params.ToolChoice = anthropic.F[anthropic.ToolChoiceUnionParam](anthropic.ToolChoiceToolParam{
		Type: anthropic.F(anthropic.ToolChoiceToolTypeTool),
		Name: anthropic.F(tool.Name),
	})

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, "", classifyErr(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			var args map[string]any
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return nil, "", fmt.Errorf("llm: decoding tool arguments: %w", err)
				}
			}
			if a.logger != nil {
				a.logger.Logf("model proposed call to %s", b.Name)
			}
			return &ToolUse{Name: b.Name, Args: args}, text.String(), nil
		}
	}
	if text.Len() == 0 {
		return nil, "", ErrNoCompletion
	}
	return nil, text.String(), nil
}

func (a *Anthropic) baseParams(messages []Message) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var history []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, anthropic.NewTextBlock(m.Content))
		case "assistant":
			history = append(history, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			// user and tool messages both travel as user turns.
			history = append(history, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(a.model),
		MaxTokens:   anthropic.Int(a.maxTokens),
		Messages:    anthropic.F(history),
		Temperature: anthropic.Float(a.temperature),
	}
	if len(system) > 0 {
		params.System = anthropic.F(system)
	}
	return params
}

// classifyErr maps API failures onto the package's sentinel errors so
// callers can drive the retry policy with errors.Is.
func classifyErr(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode == 429 {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "rate_limit_error") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
