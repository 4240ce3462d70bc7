package capitolato

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPAdapter calls an external capitolato service at BaseURL/capitolato.
type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
}

type responseBody struct {
	Summary      string          `json:"summary"`
	Sections     []Section       `json:"sections"`
	MinEstimate  decimal.Decimal `json:"min_estimate"`
	MaxEstimate  decimal.Decimal `json:"max_estimate"`
	ModelVersion string          `json:"model_version"`
}

func (h HTTPAdapter) Synthesize(ctx context.Context, r Request) (Capitolato, int64, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 30 * time.Second}
	}

	b, err := json.Marshal(r)
	if err != nil {
		return Capitolato{}, 0, err
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(h.BaseURL, "/")+"/capitolato", bytes.NewReader(b))
	if err != nil {
		return Capitolato{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return Capitolato{}, time.Since(start).Milliseconds(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Capitolato{}, time.Since(start).Milliseconds(), fmt.Errorf("capitolato service error: %s", resp.Status)
	}

	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Capitolato{}, time.Since(start).Milliseconds(), err
	}
	return Capitolato(body), time.Since(start).Milliseconds(), nil
}
