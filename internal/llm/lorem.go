package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"
)

// LoremProvider is a mock provider that generates lorem ipsum text.
// Used for development and tests without real API keys.
type LoremProvider struct {
	generator *loremgen.Lorem
	// Delay between streamed chunks; zero streams as fast as the
	// consumer reads.
	ChunkDelay time.Duration
}

// NewLoremProvider creates a new lorem ipsum provider.
func NewLoremProvider() *LoremProvider {
	return &LoremProvider{
		generator:  loremgen.New(),
		ChunkDelay: 30 * time.Millisecond,
	}
}

// Name returns the provider name.
func (p *LoremProvider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-test"
func (p *LoremProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Complete generates a few paragraphs of lorem ipsum.
func (p *LoremProvider) Complete(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.text(), nil
}

// Stream emits the generated text sentence by sentence.
func (p *LoremProvider) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	eventChan := make(chan StreamEvent, 10)

	go func() {
		defer close(eventChan)

		text := p.text()
		outputTokens := 0
		for _, sentence := range strings.SplitAfter(text, ". ") {
			if sentence == "" {
				continue
			}
			if p.ChunkDelay > 0 {
				select {
				case <-time.After(p.ChunkDelay):
				case <-ctx.Done():
					eventChan <- StreamEvent{Err: ctx.Err()}
					return
				}
			}
			select {
			case <-ctx.Done():
				eventChan <- StreamEvent{Err: ctx.Err()}
				return
			case eventChan <- StreamEvent{Text: sentence}:
				outputTokens += len(strings.Fields(sentence))
			}
		}

		eventChan <- StreamEvent{Usage: &Usage{
			Model:        "lorem",
			OutputTokens: outputTokens,
			StopReason:   "end_turn",
		}}
	}()

	return eventChan, nil
}

func (p *LoremProvider) text() string {
	paragraphs := make([]string, 3)
	for i := range paragraphs {
		paragraphs[i] = p.generator.Paragraph(3, 5)
	}
	return fmt.Sprintf("# %s\n\n%s", p.generator.Sentence(2, 5), strings.Join(paragraphs, "\n\n"))
}
