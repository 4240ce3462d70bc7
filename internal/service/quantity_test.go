package service

import (
	"strings"
	"testing"

	"github.com/ristrutturami/backend/internal/models"
)

func TestNewQuantityStrategy(t *testing.T) {
	for name, want := range map[string]string{"": QuantityMeasurement, "Measurement": QuantityMeasurement, " hashed ": QuantityHashed} {
		q, err := NewQuantityStrategy(name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if q.Name() != want {
			t.Fatalf("%q: expected %s, got %s", name, want, q.Name())
		}
	}
	if _, err := NewQuantityStrategy("random"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestMeasurementQuantity(t *testing.T) {
	q := MeasurementQuantity{Window: 48}
	mq := models.PriceItem{Unit: "mq"}
	cases := []struct {
		name string
		blob string
		item models.PriceItem
		want string
	}{
		{"no number", `{"bagno":"piastrelle"}`, mq, "1"},
		{"number after keyword", `{"piastrelle":24}`, mq, "24"},
		{"decimal comma", `{"piastrelle":"12,5 mq"}`, mq, "12.5"},
		{"nearest wins", `{"a":300,"b":"x","piastrelle":7}`, mq, "7"},
		{"postal code skipped", `{"cap":"20100","piastrelle":"si"}`, mq, "1"},
		{"glued to word skipped", `{"piastrelle":"h24"}`, mq, "1"},
		{"too large skipped", `{"piastrelle":5000}`, mq, "1"},
		{"zero skipped", `{"piastrelle":0}`, mq, "1"},
		{"pieces round up", `{"piastrelle":2.5}`, models.PriceItem{Unit: "Cad."}, "3"},
	}
	for _, tc := range cases {
		got := q.Quantity(tc.blob, tc.item, "piastrelle")
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestMeasurementQuantityOutsideWindow(t *testing.T) {
	blob := `{"mq":40,"descrizione":"rifacimento completo con posa di piastrelle"}`
	got := MeasurementQuantity{Window: 8}.Quantity(blob, models.PriceItem{Unit: "mq"}, "piastrelle")
	assertDecimal(t, "1", got)
}

func TestMeasurementQuantityIgnoresNumbersCutByWindow(t *testing.T) {
	q := MeasurementQuantity{Window: 48}
	mq := models.PriceItem{Unit: "mq"}
	// the postal code straddles the right edge of the window for these paddings
	for _, pad := range []int{44, 45, 46} {
		blob := "piastrelle " + strings.Repeat("x", pad) + " 20100 milano"
		assertDecimal(t, "1", q.Quantity(blob, mq, "piastrelle"))
	}

	blob := "piastrelle " + strings.Repeat("x", 45) + " 120 mq"
	assertDecimal(t, "1", q.Quantity(blob, mq, "piastrelle"))

	blob = "piastrelle " + strings.Repeat("x", 30) + " 120 mq"
	assertDecimal(t, "120", q.Quantity(blob, mq, "piastrelle"))
}

func TestHashedQuantityRangeAndStability(t *testing.T) {
	q := HashedQuantity{}
	for _, code := range []string{"A_001", "B_002", "C_003", "D_004", "E_005"} {
		item := models.PriceItem{ItemCode: code}
		first := q.Quantity(`{"bagno":"piastrelle"}`, item, "")
		second := q.Quantity(`{"bagno":"piastrelle"}`, item, "")
		if !first.Equal(second) {
			t.Fatalf("%s: expected stable quantity, got %s and %s", code, first, second)
		}
		if first.LessThan(dec("1")) || first.GreaterThan(dec("10")) {
			t.Fatalf("%s: quantity %s out of range", code, first)
		}
	}
}
