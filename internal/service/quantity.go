package service

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

const (
	QuantityMeasurement = "measurement"
	QuantityHashed      = "hashed"
)

// QuantityStrategy estimates how many units of a matched item the scope needs.
// blob is the lowercased scope text, keyword the one that matched the item.
type QuantityStrategy interface {
	Name() string
	Quantity(blob string, item models.PriceItem, keyword string) decimal.Decimal
}

func NewQuantityStrategy(name string) (QuantityStrategy, error) {
	switch normalizeKey(name) {
	case "", QuantityMeasurement:
		return MeasurementQuantity{Window: defaultMeasurementWindow}, nil
	case QuantityHashed:
		return HashedQuantity{}, nil
	default:
		return nil, fmt.Errorf("unknown quantity strategy %q", name)
	}
}

const (
	defaultMeasurementWindow = 48
	maxMeasuredQuantity      = 1000
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// MeasurementQuantity takes the number closest to the first mention of the
// keyword, within Window bytes on either side. Without one the quantity is 1.
type MeasurementQuantity struct {
	Window int
}

func (MeasurementQuantity) Name() string { return QuantityMeasurement }

func (m MeasurementQuantity) Quantity(blob string, item models.PriceItem, keyword string) decimal.Decimal {
	one := decimal.NewFromInt(1)
	idx := strings.Index(blob, keyword)
	if idx < 0 || keyword == "" {
		return one
	}
	window := m.Window
	if window <= 0 {
		window = defaultMeasurementWindow
	}
	kwStart, kwEnd := idx, idx+len(keyword)
	from := max(0, kwStart-window)
	to := min(len(blob), kwEnd+window)

	best := decimal.Decimal{}
	bestDist := -1
	// numbers are found on the whole blob so one cut by the window edge is
	// dropped, never shortened
	for _, loc := range numberPattern.FindAllStringIndex(blob, -1) {
		start, end := loc[0], loc[1]
		if start < from || end > to {
			continue
		}
		if start < kwEnd && end > kwStart {
			continue
		}
		if start > 0 && isWordByte(blob[start-1]) {
			continue
		}
		raw := blob[start:end]
		if len(raw) == 5 && !strings.ContainsAny(raw, ".,") {
			// postal codes are never quantities
			continue
		}
		v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if err != nil || !v.IsPositive() || v.GreaterThan(decimal.NewFromInt(maxMeasuredQuantity)) {
			continue
		}
		dist := kwStart - end
		if start >= kwEnd {
			dist = start - kwEnd
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = v, dist
		}
	}
	if bestDist < 0 {
		return one
	}
	if isPieceUnit(item.Unit) {
		return best.Ceil()
	}
	return best
}

// HashedQuantity keeps the historical 1..10 range but derives it from the
// scope text and item code, so equal inputs yield equal quantities.
type HashedQuantity struct{}

func (HashedQuantity) Name() string { return QuantityHashed }

func (HashedQuantity) Quantity(blob string, item models.PriceItem, _ string) decimal.Decimal {
	h := fnv.New64a()
	_, _ = h.Write([]byte(blob))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(item.ItemCode))
	return decimal.NewFromInt(int64(h.Sum64()%10) + 1)
}

func isPieceUnit(unit string) bool {
	switch strings.TrimSuffix(normalizeKey(unit), ".") {
	case "cad", "cadauno", "nr", "n", "pz", "pezzo", "pezzi":
		return true
	default:
		return false
	}
}

// isWordByte rejects numbers glued to a preceding word, e.g. "h24" or "wc2".
func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
