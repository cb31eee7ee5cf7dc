package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Generator turns an enriched task context into a structured payload.
// Implementations are treated as black boxes with unspecified latency and a
// possible error outcome.
type Generator interface {
	Complete(ctx context.Context, prompt string) (map[string]any, error)
}

const generatorSystemPrompt = `You are one specialist on a production team
building a multi-part deliverable. Respond with a single JSON object and
nothing else: no prose before or after, no code fences. The object must
contain a "summary" field (one or two sentences) plus whatever fields the
task calls for.`

// AnthropicGenerator implements Generator on top of the Anthropic client.
type AnthropicGenerator struct {
	client *Client
}

// NewGenerator creates a Generator backed by the given client.
func NewGenerator(client *Client) *AnthropicGenerator {
	return &AnthropicGenerator{client: client}
}

// Complete sends the prompt and parses the structured JSON payload out of the
// response text.
func (g *AnthropicGenerator) Complete(ctx context.Context, prompt string) (map[string]any, error) {
	resp, err := g.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.client.Model(),
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: generatorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	g.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	payload, err := parsePayload(text.String())
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// parsePayload extracts the first JSON object from model output. Models
// occasionally wrap JSON in code fences despite instructions, so fences are
// stripped before parsing.
func parsePayload(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parse response payload: %w", err)
	}
	return payload, nil
}
