package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// OpenAIProvider serves any OpenAI-compatible chat-completions
// endpoint (OpenAI, DeepSeek, Doubao and similar gateways). Streams
// are parsed from raw SSE; reasoning_content deltas emitted by
// reasoning models are dropped, only answer content is forwarded.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates the provider for the given endpoint.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("openai base URL is required")
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// No overall timeout: streams are long-lived, cancellation
		// comes from the request context.
		client: &http.Client{Timeout: 0},
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// SupportsModel matches the model families commonly served over the
// chat-completions protocol.
func (p *OpenAIProvider) SupportsModel(model string) bool {
	for _, prefix := range []string{"gpt-", "o1", "o3", "deepseek", "doubao"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

// Complete generates a full response in one call.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (string, error) {
	resp, err := p.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return gjson.GetBytes(body, "choices.0.message.content").String(), nil
}

// Stream generates a response as a delta stream over SSE.
func (p *OpenAIProvider) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	resp, err := p.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan StreamEvent, 10)

	go func() {
		defer close(eventChan)
		defer resp.Body.Close()

		usage := &Usage{Model: req.Model}
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				break
			}

			delta := gjson.Get(data, "choices.0.delta")
			// reasoning_content (DeepSeek/Doubao thinking) is not part
			// of the answer text.
			text := delta.Get("content").String()
			if reason := gjson.Get(data, "choices.0.finish_reason"); reason.Exists() && reason.String() != "" {
				usage.StopReason = reason.String()
			}
			if u := gjson.Get(data, "usage"); u.Exists() {
				usage.InputTokens = int(u.Get("prompt_tokens").Int())
				usage.OutputTokens = int(u.Get("completion_tokens").Int())
			}
			if text == "" {
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- StreamEvent{Err: ctx.Err()}
				return
			case eventChan <- StreamEvent{Text: text}:
			}
		}

		if err := scanner.Err(); err != nil {
			eventChan <- StreamEvent{Err: fmt.Errorf("openai streaming error: %w", err)}
			return
		}

		eventChan <- StreamEvent{Usage: usage}
	}()

	return eventChan, nil
}

func (p *OpenAIProvider) send(ctx context.Context, req *Request, stream bool) (*http.Response, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("openai API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}
