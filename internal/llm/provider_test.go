package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fixedProvider struct {
	name   string
	prefix string
	chunks []string
	err    error
}

func (p *fixedProvider) Name() string { return p.name }

func (p *fixedProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, p.prefix)
}

func (p *fixedProvider) Complete(ctx context.Context, req *Request) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return strings.Join(p.chunks, ""), nil
}

func (p *fixedProvider) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	events := make(chan StreamEvent, len(p.chunks)+1)
	for _, c := range p.chunks {
		events <- StreamEvent{Text: c}
	}
	if p.err != nil {
		events <- StreamEvent{Err: p.err}
	} else {
		events <- StreamEvent{Usage: &Usage{Model: req.Model, StopReason: "end_turn"}}
	}
	close(events)
	return events, nil
}

func TestRegistryForModel(t *testing.T) {
	anthropic := &fixedProvider{name: "anthropic", prefix: "claude-"}
	openai := &fixedProvider{name: "openai", prefix: "gpt-"}
	registry := NewRegistry("anthropic", anthropic, openai)

	tests := []struct {
		model string
		want  string
	}{
		{"claude-haiku-4-5-20251001", "anthropic"},
		{"gpt-4o", "openai"},
		{"unknown-model", "anthropic"},
	}
	for _, tt := range tests {
		p, err := registry.ForModel(tt.model)
		if err != nil {
			t.Fatalf("ForModel(%q): %v", tt.model, err)
		}
		if p.Name() != tt.want {
			t.Errorf("ForModel(%q) = %q, want %q", tt.model, p.Name(), tt.want)
		}
	}
}

func TestRegistryMissingDefault(t *testing.T) {
	registry := NewRegistry("anthropic", &fixedProvider{name: "lorem", prefix: "lorem-"})

	if _, err := registry.ForModel("claude-something"); err == nil {
		t.Error("expected error for unconfigured default provider")
	}
	if _, err := registry.Get("lorem"); err != nil {
		t.Errorf("Get(lorem): %v", err)
	}
}

func TestCollect(t *testing.T) {
	p := &fixedProvider{name: "x", chunks: []string{"foo ", "bar"}}
	events, _ := p.Stream(context.Background(), &Request{Model: "m"})

	text, err := Collect(context.Background(), events)
	if err != nil {
		t.Fatal(err)
	}
	if text != "foo bar" {
		t.Errorf("text = %q", text)
	}
}

func TestCollectStreamError(t *testing.T) {
	streamErr := errors.New("upstream broke")
	p := &fixedProvider{name: "x", chunks: []string{"partial"}, err: streamErr}
	events, _ := p.Stream(context.Background(), &Request{Model: "m"})

	text, err := Collect(context.Background(), events)
	if !errors.Is(err, streamErr) {
		t.Fatalf("err = %v", err)
	}
	if text != "partial" {
		t.Errorf("partial text = %q", text)
	}
}

func TestCollectCancelKeepsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan StreamEvent, 2)
	events <- StreamEvent{Text: "so far"}
	events <- StreamEvent{Err: context.Canceled}
	close(events)

	text, err := Collect(ctx, events)
	if err != nil {
		t.Fatalf("cancellation should not surface as error, got %v", err)
	}
	if text != "so far" {
		t.Errorf("text = %q", text)
	}
}

func TestLoremStream(t *testing.T) {
	p := NewLoremProvider()
	p.ChunkDelay = 0

	events, err := p.Stream(context.Background(), &Request{Model: "lorem-test"})
	if err != nil {
		t.Fatal(err)
	}

	var text string
	var usage *Usage
	for ev := range events {
		if ev.Err != nil {
			t.Fatal(ev.Err)
		}
		if ev.Usage != nil {
			usage = ev.Usage
		}
		text += ev.Text
	}

	if text == "" {
		t.Error("empty stream")
	}
	if !strings.HasPrefix(text, "# ") {
		t.Errorf("text should start with a heading, got %q", text[:min(20, len(text))])
	}
	if usage == nil || usage.StopReason != "end_turn" {
		t.Errorf("usage = %+v", usage)
	}
	if !p.SupportsModel("lorem-fast") || p.SupportsModel("claude-x") {
		t.Error("model matching")
	}
}

func TestBuildPrompt(t *testing.T) {
	template := "项目：{projectName}\n愿景：{projectVision}\n补充：{userInput}\n状态：{currentStates}"
	got := BuildPrompt(template, PromptVars{
		ProjectName:   "商城",
		ProjectVision: "做最好的商城",
		CurrentStates: "- 订单状态：待支付",
	})

	for _, want := range []string{"项目：商城", "愿景：做最好的商城", "补充：（用户未提供额外输入）", "状态：- 订单状态：待支付"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q in %q", want, got)
		}
	}
}

func TestBuildFollowUpPrompt(t *testing.T) {
	got := BuildFollowUpPrompt("# 文档\n\n正文。", "增加一节错误码")

	if !strings.Contains(got, "# 文档") {
		t.Error("missing current content")
	}
	if !strings.Contains(got, "增加一节错误码") {
		t.Error("missing instruction")
	}
	if !strings.Contains(got, "输出完整的修改后文档") {
		t.Error("missing full-document requirement")
	}
}
