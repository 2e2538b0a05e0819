package services

import (
	"testing"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

func TestBOMValidator_DetectsCycles(t *testing.T) {
	validator := NewBOMValidator()

	result := validator.ValidateStructure(map[int][]int{
		1: {2},
		2: {3},
		3: {1},
	})
	if !result.HasCycles {
		t.Fatal("Expected cycle to be detected")
	}
	if len(result.CyclePaths) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(result.CyclePaths))
	}
	if got := result.CyclePaths[0]; len(got) != 4 || got[0] != got[3] {
		t.Errorf("Expected closed cycle path, got %v", got)
	}
	if result.Err() == nil {
		t.Error("Expected cycle to produce an error")
	}

	acyclic := validator.ValidateStructure(map[int][]int{1: {2, 3}, 2: {3}})
	if acyclic.HasCycles || !acyclic.Valid() {
		t.Errorf("Expected acyclic graph to validate, got %v", acyclic.Errors)
	}
}

func TestBOMValidator_SelfReference(t *testing.T) {
	result := NewBOMValidator().ValidateStructure(map[int][]int{4: {4}})
	if !result.HasCycles {
		t.Error("Expected self reference to be a cycle")
	}
}

func TestBOMValidator_Lines(t *testing.T) {
	validator := NewBOMValidator()
	resin := entities.BOMLine{ItemType: entities.RawMaterialItem, ItemID: 1, Qty: entities.Qty(10), Phase: "A"}

	if r := validator.ValidateLines([]entities.BOMLine{resin}); !r.Valid() {
		t.Errorf("Expected single line to validate, got %v", r.Errors)
	}

	dup := validator.ValidateLines([]entities.BOMLine{resin, resin})
	if len(dup.DuplicateLines) != 2 {
		t.Errorf("Expected duplicate pair, got %d lines", len(dup.DuplicateLines))
	}

	samePhaseDifferent := resin
	samePhaseDifferent.Phase = "B"
	if r := validator.ValidateLines([]entities.BOMLine{resin, samePhaseDifferent}); !r.Valid() {
		t.Errorf("Expected same item in another phase to validate, got %v", r.Errors)
	}

	bad := validator.ValidateLines([]entities.BOMLine{{ItemType: "x", ItemID: 0, Qty: entities.Qty(0)}})
	if len(bad.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %v", bad.Errors)
	}
	if !entities.IsValidation(bad.Err()) {
		t.Error("Expected validation error")
	}
}
