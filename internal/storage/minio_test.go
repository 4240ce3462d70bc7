package storage

import (
	"testing"

	"github.com/google/uuid"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("3f1c2a8e-4b7d-4e0f-9a51-2c6d8e9f0a1b")
	cases := map[string]string{
		"Lombardia":             "pricelists/lombardia/3f1c2a8e-4b7d-4e0f-9a51-2c6d8e9f0a1b.csv",
		"  Valle d'Aosta ":      "pricelists/valle-d-aosta/3f1c2a8e-4b7d-4e0f-9a51-2c6d8e9f0a1b.csv",
		"Friuli-Venezia Giulia": "pricelists/friuli-venezia-giulia/3f1c2a8e-4b7d-4e0f-9a51-2c6d8e9f0a1b.csv",
		"":                      "pricelists/nazionale/3f1c2a8e-4b7d-4e0f-9a51-2c6d8e9f0a1b.csv",
	}
	for region, want := range cases {
		if got := ObjectKey(region, "Prezzario.CSV", id); got != want {
			t.Fatalf("ObjectKey(%q) = %q, want %q", region, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("listino.csv"); got != "text/csv" {
		t.Fatalf("expected text/csv, got %s", got)
	}
	if got := ContentType("listino"); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream, got %s", got)
	}
}
