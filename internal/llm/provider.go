// Package llm is the boundary to text-generation providers. Services
// hand a prompt in and consume a token stream out; everything
// provider-specific stays behind the Provider interface.
package llm

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/domain"
)

// Request is a single generation call. Prompt is the full user-turn
// text; System is optional.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Usage is the final stream metadata.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// StreamEvent is one item on a provider stream. Exactly one field is
// meaningful: a text delta, the final usage, or a terminal error.
// The channel closes after the usage or error event.
type StreamEvent struct {
	Text  string
	Usage *Usage
	Err   error
}

// Provider generates text. Implementations must honor ctx cancellation
// on both calls and must close the stream channel when done.
type Provider interface {
	Name() string
	SupportsModel(model string) bool
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
	Complete(ctx context.Context, req *Request) (string, error)
}

// Registry holds the configured providers and resolves which one
// serves a given model.
type Registry struct {
	providers   []Provider
	defaultName string
}

// NewRegistry creates a registry. The default provider is used when a
// model matches nothing.
func NewRegistry(defaultName string, providers ...Provider) *Registry {
	return &Registry{providers: providers, defaultName: defaultName}
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (Provider, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("provider %q not configured: %w", name, domain.ErrUnavailable)
}

// ForModel resolves the provider serving a model, falling back to the
// default provider for unrecognized model names.
func (r *Registry) ForModel(model string) (Provider, error) {
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}
	return r.Get(r.defaultName)
}

// Collect drains a stream into the accumulated text. A context
// cancellation mid-stream returns the text emitted so far and nil:
// user aborts keep partial output. Any other stream error is returned
// with the partial text.
func Collect(ctx context.Context, events <-chan StreamEvent) (string, error) {
	var b strings.Builder
	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				return b.String(), nil
			}
			return b.String(), ev.Err
		}
		b.WriteString(ev.Text)
	}
	return b.String(), nil
}
