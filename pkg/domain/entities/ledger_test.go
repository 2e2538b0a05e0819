package entities

import (
	"testing"
	"time"
)

func TestLedgerEntry_Delta(t *testing.T) {
	tests := []struct {
		name     string
		typ      MovementType
		noEffect bool
		want     Quantity
	}{
		{"in", MovementIn, false, Qty(5)},
		{"produce", MovementProduceIn, false, Qty(5)},
		{"return", MovementReturnIn, false, Qty(5)},
		{"adjust in", MovementAdjustIn, false, Qty(5)},
		{"out", MovementOut, false, Qty(-5)},
		{"consume", MovementConsumeOut, false, Qty(-5)},
		{"adjust out", MovementAdjustOut, false, Qty(-5)},
		{"water consume", MovementConsumeOut, true, Qty(0)},
		{"unknown", MovementType("transfer"), false, Qty(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &LedgerEntry{Type: tt.typ, Quantity: Qty(5), NoStockEffect: tt.noEffect}
			if got := e.Delta(); !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLedgerEntry_MarkVoided(t *testing.T) {
	e := &LedgerEntry{Type: MovementConsumeOut, Quantity: Qty(1)}
	if e.Voided() {
		t.Fatal("Expected fresh entry to be live")
	}
	e.MarkVoided(7, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if !e.Voided() || *e.VoidedByID != 7 {
		t.Errorf("Expected entry voided by 7, got %v", e.VoidedByID)
	}
	if !e.Delta().Equal(Qty(-1)) {
		t.Errorf("Expected voided entry to keep its delta, got %s", e.Delta())
	}
}
