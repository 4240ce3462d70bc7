package capitolato

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "Sei un geometra che redige capitolati per ristrutturazioni residenziali in Italia. Rispondi solo con JSON valido."

const responseSchema = `{"summary": string, "sections": [{"title": string, "description": string, "works": [string]}], "min_estimate": number, "max_estimate": number}`

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicSynthesizer struct {
	Messages  AnthropicMessager
	Model     string
	MaxTokens int64
}

func NewAnthropicSynthesizer(apiKey, model string) (*AnthropicSynthesizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSynthesizer{Messages: &c.Messages, Model: model}, nil
}

func (a *AnthropicSynthesizer) Synthesize(ctx context.Context, req Request) (Capitolato, int64, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return Capitolato{}, 0, err
	}
	model := anthropic.Model(a.Model)
	if strings.TrimSpace(a.Model) == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	start := time.Now()
	resp, err := a.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Capitolato{}, elapsed, fmt.Errorf("anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	raw := stripCodeFences(strings.TrimSpace(sb.String()))
	if raw == "" {
		return Capitolato{}, elapsed, errors.New("empty model response")
	}

	var body responseBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return Capitolato{}, elapsed, fmt.Errorf("decode model response: %w", err)
	}
	if body.MinEstimate.IsNegative() || body.MaxEstimate.LessThan(body.MinEstimate) {
		return Capitolato{}, elapsed, fmt.Errorf("model range %s-%s is not valid", body.MinEstimate, body.MaxEstimate)
	}
	if body.ModelVersion == "" {
		body.ModelVersion = string(model)
	}
	return Capitolato(body), elapsed, nil
}

func buildPrompt(req Request) (string, error) {
	scope, err := json.Marshal(req.Scope)
	if err != nil {
		return "", fmt.Errorf("serialize scope: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Località: %s\n", req.Geo)
	fmt.Fprintf(&b, "Livello di finitura: %s\n", req.QualityTier)
	fmt.Fprintf(&b, "Urgenza: %s\n", req.Urgency)
	fmt.Fprintf(&b, "Ambito dei lavori (JSON):\n%s\n\n", scope)
	fmt.Fprintf(&b, "Redigi il capitolato e stima un intervallo di costo in euro. Schema della risposta: %s", responseSchema)
	return b.String(), nil
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
