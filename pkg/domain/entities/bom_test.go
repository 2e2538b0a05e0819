package entities

import (
	"testing"
	"time"
)

func TestBOMLine_Validation(t *testing.T) {
	line, err := NewBOMLine(RawMaterialItem, 3, "Resin A", Qty(600), "kg", "A")
	if err != nil {
		t.Fatalf("Expected valid line creation to succeed: %v", err)
	}
	if line.Ref() != (ItemRef{Type: RawMaterialItem, ID: 3}) {
		t.Errorf("Expected ref raw_material:3, got %s", line.Ref())
	}

	testCases := []struct {
		name        string
		itemType    ItemType
		itemID      int
		qty         Quantity
		expectError string
	}{
		{"unknown type", "solvent", 1, Qty(1), `unknown item type "solvent"`},
		{"zero id", ProductItem, 0, Qty(1), "item id must be positive, got 0"},
		{"zero qty", ProductItem, 1, Qty(0), "line quantity must be positive, got 0"},
		{"negative qty", RawMaterialItem, 1, Qty(-2.5), "line quantity must be positive, got -2.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(tc.itemType, tc.itemID, "", tc.qty, "kg", "")
			if err == nil {
				t.Fatalf("Expected error containing '%s', got nil", tc.expectError)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOM_OutputName(t *testing.T) {
	withCode, _ := NewBOM("P01", "Glue", "adhesive")
	if got := withCode.OutputName(); got != "P01-Glue" {
		t.Errorf("Expected P01-Glue, got %s", got)
	}
	noCode, _ := NewBOM("", "Glue", "adhesive")
	if got := noCode.OutputName(); got != "Glue" {
		t.Errorf("Expected Glue, got %s", got)
	}
	if _, err := NewBOM("P01", "", ""); err == nil {
		t.Error("Expected empty name to be rejected")
	}
}

func TestBOMVersion_Usable(t *testing.T) {
	line := BOMLine{ItemType: RawMaterialItem, ItemID: 1, Qty: Qty(1)}
	tests := []struct {
		status VersionStatus
		lines  []BOMLine
		want   bool
	}{
		{VersionLegacy, []BOMLine{line}, true},
		{VersionApproved, []BOMLine{line}, true},
		{VersionPending, []BOMLine{line}, false},
		{VersionRejected, []BOMLine{line}, false},
		{VersionApproved, nil, false},
	}
	for _, tt := range tests {
		v := &BOMVersion{Status: tt.status, Lines: tt.lines}
		if got := v.Usable(); got != tt.want {
			t.Errorf("status %s with %d lines: expected usable=%v, got %v", tt.status, len(tt.lines), tt.want, got)
		}
	}
}

func TestBOMVersion_EffectiveYieldBase(t *testing.T) {
	def := Qty(1000)
	tests := []struct {
		yield Quantity
		want  Quantity
	}{
		{Qty(500), Qty(500)},
		{Qty(0), def},
		{Qty(-10), def},
	}
	for _, tt := range tests {
		v := &BOMVersion{YieldBase: tt.yield}
		if got := v.EffectiveYieldBase(def); !got.Equal(tt.want) {
			t.Errorf("yield %s: expected %s, got %s", tt.yield, tt.want, got)
		}
	}
}

func TestBOMVersion_EffectiveOn(t *testing.T) {
	from := NewDate(2024, time.January, 1)
	v := &BOMVersion{EffectiveFrom: &from}
	if !v.EffectiveOn(NewDate(2024, time.January, 1)) {
		t.Error("Expected version effective on its start day")
	}
	if v.EffectiveOn(NewDate(2023, time.December, 31)) {
		t.Error("Expected version not effective before its start day")
	}
	undated := &BOMVersion{}
	if undated.EffectiveOn(NewDate(2030, time.January, 1)) {
		t.Error("Expected undated version to never be effective by date")
	}
}

func TestVersionStatus_Transitions(t *testing.T) {
	if !VersionPending.CanTransitionTo(VersionApproved) {
		t.Error("Expected pending -> approved")
	}
	if !VersionRejected.CanTransitionTo(VersionPending) {
		t.Error("Expected rejected -> pending")
	}
	if VersionApproved.CanTransitionTo(VersionPending) {
		t.Error("Expected approved to be final")
	}
}
