package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/agrocampo/internal/ai"
	"github.com/xelth-com/agrocampo/internal/utils"
)

// Describer turns a finding into the alert description text
type Describer interface {
	Describe(ctx context.Context, f Finding) (string, error)
}

// TemplateDescriber returns the rule's own template text
type TemplateDescriber struct{}

func (TemplateDescriber) Describe(_ context.Context, f Finding) (string, error) {
	return f.Template, nil
}

// TextGenerator is the part of the generative model client the describer uses
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiDescriber asks a text generation model for a readable description.
// Every call is bounded by Timeout
type GeminiDescriber struct {
	gen     TextGenerator
	timeout time.Duration
}

func NewGeminiDescriber(gen TextGenerator, timeout time.Duration) *GeminiDescriber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GeminiDescriber{gen: gen, timeout: timeout}
}

func (d *GeminiDescriber) Describe(ctx context.Context, f Finding) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := d.gen.GenerateContent(ctx, ai.AlertPrompt(f.Type, f.Severity, f.Template))
		ch <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		text := utils.StripCodeFence(r.text)
		if text == "" {
			return "", errors.New("empty description")
		}
		return text, nil
	}
}
