package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider serves Claude models through the official SDK.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider creates the provider. baseURL overrides the API
// endpoint when non-empty (proxy deployments).
func NewAnthropicProvider(apiKey, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{client: &client}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// SupportsModel returns true for Claude models.
func (p *AnthropicProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Complete generates a full response in one call.
func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (string, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// Stream generates a response as a delta stream. The returned channel
// is buffered and closed by the streaming goroutine after the final
// usage or error event.
func (p *AnthropicProvider) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	eventChan := make(chan StreamEvent, 10) // Buffered to prevent blocking

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

		// Accumulator for final message metadata
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				eventChan <- StreamEvent{Err: fmt.Errorf("accumulate event: %w", err)}
				return
			}

			text, ok := textDelta(event)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- StreamEvent{Err: ctx.Err()}
				return
			case eventChan <- StreamEvent{Text: text}:
			}
		}

		if err := stream.Err(); err != nil {
			eventChan <- StreamEvent{Err: fmt.Errorf("anthropic streaming error: %w", err)}
			return
		}

		eventChan <- StreamEvent{Usage: &Usage{
			Model:        string(message.Model),
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			StopReason:   string(message.StopReason),
		}}
	}()

	return eventChan, nil
}

// textDelta extracts the text content of a stream event, if any.
// Message lifecycle events (start, block boundaries, stop) carry no
// text and are skipped.
func textDelta(event anthropic.MessageStreamEventUnion) (string, bool) {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type == "text_delta" {
			return e.Delta.Text, true
		}
		return "", false
	default:
		return "", false
	}
}

func (p *AnthropicProvider) buildParams(req *Request) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: req.System},
		}
	}

	return params
}
