package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

func TestUnitConverter_Normalize(t *testing.T) {
	c := NewUnitConverter()
	tests := []struct {
		in, want string
	}{
		{"KG", "kg"},
		{" 千克 ", "kg"},
		{"公斤", "kg"},
		{"吨", "ton"},
		{"Tons", "ton"},
		{"毫升", "ml"},
		{"Bucket", "bucket"},
	}
	for _, tt := range tests {
		if got := c.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestUnitConverter_Convert(t *testing.T) {
	c := NewUnitConverter()
	tests := []struct {
		name     string
		qty      float64
		from, to string
		want     float64
		ok       bool
	}{
		{"same unit", 5, "kg", "公斤", 5, true},
		{"kg to ton", 2000, "kg", "ton", 2, true},
		{"ton to kg", 1.5, "吨", "kg", 1500, true},
		{"g to kg", 250, "克", "kg", 0.25, true},
		{"m3 to l", 2, "m3", "升", 2000, true},
		{"mass to volume", 3, "kg", "l", 3, false},
		{"unknown unit", 7, "bucket", "kg", 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Convert(entities.Qty(tt.qty), tt.from, tt.to)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !got.Equal(entities.Qty(tt.want)) {
				t.Errorf("Expected %v, got %s", tt.want, got)
			}
		})
	}
}

func TestUnitConverter_RoundTrip(t *testing.T) {
	c := NewUnitConverter()
	tolerance := decimal.New(1, -9)
	x := entities.Qty(123.456)
	units := map[Dimension][]string{
		Mass:   {"kg", "ton", "g", "mg", "lb"},
		Volume: {"l", "ml", "m3"},
	}
	for _, group := range units {
		for _, a := range group {
			for _, b := range group {
				there, ok := c.Convert(x, a, b)
				if !ok {
					t.Fatalf("Expected rule %s -> %s", a, b)
				}
				back, _ := c.Convert(there, b, a)
				if back.Sub(x).Abs().GreaterThan(tolerance) {
					t.Errorf("%s -> %s -> %s: expected %s, got %s", a, b, a, x, back)
				}
			}
		}
	}
}

func TestUnitConverter_AddUnit(t *testing.T) {
	c := NewUnitConverter()
	err := c.Apply(UnitTable{Units: []UnitDefinition{
		{Name: "drum", Dimension: Mass, Factor: 200, Aliases: []string{"桶"}},
	}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got, ok := c.Convert(entities.Qty(3), "桶", "ton")
	if !ok || !got.Equal(entities.Qty(0.6)) {
		t.Errorf("Expected 0.6 ton, got %s (ok=%v)", got, ok)
	}

	if err := c.AddUnit(UnitDefinition{Name: "bad", Dimension: Mass, Factor: 0}); err == nil {
		t.Error("Expected zero factor to be rejected")
	}
	if err := c.AddUnit(UnitDefinition{Name: "bad", Dimension: "time", Factor: 1}); err == nil {
		t.Error("Expected unknown dimension to be rejected")
	}
}
