package capitolato

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func newMockMessage(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func sampleRequest() Request {
	return Request{
		Scope:       models.ScopeDocument{"bagno": map[string]any{"piastrelle": 18}, "cucina": "pensili"},
		Geo:         "Milano 20100",
		QualityTier: "standard",
		Urgency:     "normale",
	}
}

func TestAnthropicSynthesizerParsesFencedJSON(t *testing.T) {
	mock := &mockMessager{response: newMockMessage("```json\n" + `{
		"summary": "Rifacimento bagno e cucina",
		"sections": [{"title": "Bagno", "description": "Posa piastrelle", "works": ["demolizione", "posa"]}],
		"min_estimate": 9000,
		"max_estimate": 12000
	}` + "\n```")}
	s := &AnthropicSynthesizer{Messages: mock}

	got, _, err := s.Synthesize(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "Rifacimento bagno e cucina" || len(got.Sections) != 1 {
		t.Fatalf("unexpected capitolato %+v", got)
	}
	if !got.MaxEstimate.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("expected max 12000, got %s", got.MaxEstimate)
	}
	if got.ModelVersion != string(anthropic.ModelClaudeSonnet4_20250514) {
		t.Fatalf("expected default model version, got %s", got.ModelVersion)
	}
	if mock.params.MaxTokens != 4096 {
		t.Fatalf("expected default max tokens, got %d", mock.params.MaxTokens)
	}
}

func TestAnthropicSynthesizerErrors(t *testing.T) {
	cases := map[string]*mockMessager{
		"transport":      {err: errors.New("connection reset")},
		"empty":          {response: &anthropic.Message{Content: []anthropic.ContentBlockUnion{}}},
		"not json":       {response: newMockMessage("Ecco il capitolato richiesto.")},
		"inverted range": {response: newMockMessage(`{"summary": "x", "min_estimate": 9000, "max_estimate": 100}`)},
	}
	for name, mock := range cases {
		s := &AnthropicSynthesizer{Messages: mock, Model: "claude-test"}
		if _, _, err := s.Synthesize(context.Background(), sampleRequest()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewAnthropicSynthesizerRequiresKey(t *testing.T) {
	if _, err := NewAnthropicSynthesizer("  ", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestBuildPromptCarriesRequest(t *testing.T) {
	prompt, err := buildPrompt(sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Milano 20100", "standard", `"piastrelle":18`, "min_estimate"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestHTTPAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capitolato" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Geo != "Milano 20100" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"summary": "ok", "sections": [], "min_estimate": "8000", "max_estimate": "10000", "model_version": "remote-1"}`))
	}))
	defer srv.Close()

	got, _, err := HTTPAdapter{BaseURL: srv.URL + "/"}.Synthesize(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ModelVersion != "remote-1" || !got.MinEstimate.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("unexpected capitolato %+v", got)
	}
}

func TestHTTPAdapterNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, _, err := (HTTPAdapter{BaseURL: srv.URL}).Synthesize(context.Background(), sampleRequest()); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestMockSynthesizerIsStable(t *testing.T) {
	m := MockSynthesizer{ModelVersion: "mock-v1"}
	first, _, err := m.Synthesize(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, _ := m.Synthesize(context.Background(), sampleRequest())
	if !first.MinEstimate.Equal(second.MinEstimate) || len(first.Sections) != 2 {
		t.Fatalf("expected stable capitolato, got %+v and %+v", first, second)
	}
	if first.Sections[0].Title != "Bagno" {
		t.Fatalf("expected sections in key order, got %s", first.Sections[0].Title)
	}
	if first.MaxEstimate.LessThan(first.MinEstimate) {
		t.Fatalf("inverted mock range")
	}
}

func TestCompare(t *testing.T) {
	c := Capitolato{MinEstimate: decimal.NewFromInt(10000), MaxEstimate: decimal.NewFromInt(14000)}

	got := Compare(c, models.EstimateResult{BaseCost: decimal.NewFromInt(10000)})
	if !got.Midpoint.Equal(decimal.NewFromInt(12000)) || !got.DivergencePct.Equal(decimal.NewFromInt(20)) || !got.Consistent {
		t.Fatalf("unexpected comparison %+v", got)
	}

	got = Compare(c, models.EstimateResult{BaseCost: decimal.NewFromInt(5000)})
	if got.Consistent {
		t.Fatalf("expected 140%% divergence to be inconsistent, got %+v", got)
	}

	got = Compare(c, models.EstimateResult{})
	if got.Consistent || !got.DivergencePct.IsZero() {
		t.Fatalf("expected no divergence without a base cost, got %+v", got)
	}
}
