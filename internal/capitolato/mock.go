package capitolato

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MockSynthesizer derives a stable capitolato from the scope keys. Used when
// no model is configured.
type MockSynthesizer struct {
	ModelVersion string
}

func (m MockSynthesizer) Synthesize(ctx context.Context, req Request) (Capitolato, int64, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Capitolato{}, 0, err
	}

	keys := make([]string, 0, len(req.Scope))
	for k := range req.Scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(keys, "|")))
	_, _ = h.Write([]byte(req.Geo))
	sum := h.Sum64()

	sections := make([]Section, 0, len(keys))
	for _, k := range keys {
		sections = append(sections, Section{
			Title:       sectionTitle(k),
			Description: fmt.Sprintf("Opere previste per %s secondo capitolato standard.", k),
		})
	}

	base := decimal.NewFromInt(int64(4000 + (sum%12)*500))
	return Capitolato{
		Summary:      fmt.Sprintf("Capitolato sintetico per %d ambienti a %s.", len(keys), strings.TrimSpace(req.Geo)),
		Sections:     sections,
		MinEstimate:  base,
		MaxEstimate:  base.Mul(decimal.RequireFromString("1.4")).Round(0),
		ModelVersion: m.ModelVersion,
	}, time.Since(start).Milliseconds(), nil
}

func sectionTitle(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if size == 0 {
		return "Generale"
	}
	return string(unicode.ToUpper(r)) + key[size:]
}
