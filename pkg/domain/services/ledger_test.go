package services

import (
	"errors"
	"testing"
	"time"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

func newLedgerDoc() *entities.Document {
	doc := entities.NewDocument()
	doc.RawMaterials = append(doc.RawMaterials,
		&entities.RawMaterial{ID: 1, Name: "Resin", Unit: "kg"},
		&entities.RawMaterial{ID: 2, Name: "Water", Unit: "kg", IsWaterLike: true},
	)
	doc.ProductInventory = append(doc.ProductInventory, &entities.ProductStock{ID: 1, Name: "Glue", Unit: "ton"})
	return doc
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
}

func TestLedger_AppendMaintainsBalance(t *testing.T) {
	doc := newLedgerDoc()
	ledger := NewLedger(doc, fixedClock)
	resin := entities.ItemRef{Type: entities.RawMaterialItem, ID: 1}

	steps := []struct {
		typ  entities.MovementType
		qty  float64
		want float64
	}{
		{entities.MovementIn, 1000, 1000},
		{entities.MovementConsumeOut, 125, 875},
		{entities.MovementReturnIn, 125, 1000},
		{entities.MovementAdjustOut, 10, 990},
	}
	for i, step := range steps {
		e, err := ledger.Append(&entities.LedgerEntry{Item: resin, Type: step.typ, Quantity: entities.Qty(step.qty)})
		if err != nil {
			t.Fatalf("step %d: append failed: %v", i, err)
		}
		if e.ID != i+1 {
			t.Errorf("step %d: expected id %d, got %d", i, i+1, e.ID)
		}
		if !e.SnapshotStock.Equal(entities.Qty(step.want)) {
			t.Errorf("step %d: expected snapshot %v, got %s", i, step.want, e.SnapshotStock)
		}
		if !doc.RawMaterial(1).StockQuantity.Equal(ledger.Balance(resin)) {
			t.Errorf("step %d: cached stock %s differs from ledger %s", i, doc.RawMaterial(1).StockQuantity, ledger.Balance(resin))
		}
	}
	if e := doc.InventoryRecords[0]; e.Unit != "kg" || e.ItemName != "Resin" || !e.Timestamp.Equal(fixedClock()) {
		t.Errorf("Expected defaults filled from item, got %+v", e)
	}
	if len(ledger.Drifts()) != 0 {
		t.Errorf("Expected no drift, got %v", ledger.Drifts())
	}
}

func TestLedger_NoStockEffectKeepsBalance(t *testing.T) {
	doc := newLedgerDoc()
	ledger := NewLedger(doc, fixedClock)
	water := entities.ItemRef{Type: entities.RawMaterialItem, ID: 2}

	if _, err := ledger.Append(&entities.LedgerEntry{Item: water, Type: entities.MovementAdjustIn, Quantity: entities.Qty(50)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	e, err := ledger.Append(&entities.LedgerEntry{Item: water, Type: entities.MovementConsumeOut, Quantity: entities.Qty(30), NoStockEffect: true})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if !e.SnapshotStock.Equal(entities.Qty(50)) || !doc.RawMaterial(2).StockQuantity.Equal(entities.Qty(50)) {
		t.Errorf("Expected water stock pinned at 50, got snapshot %s stock %s", e.SnapshotStock, doc.RawMaterial(2).StockQuantity)
	}
}

func TestLedger_AppendRejects(t *testing.T) {
	ledger := NewLedger(newLedgerDoc(), fixedClock)

	_, err := ledger.Append(&entities.LedgerEntry{Item: entities.ItemRef{Type: entities.RawMaterialItem, ID: 99}, Type: entities.MovementIn, Quantity: entities.Qty(1)})
	if !errors.Is(err, entities.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	_, err = ledger.Append(&entities.LedgerEntry{Item: entities.ItemRef{Type: entities.RawMaterialItem, ID: 1}, Type: "transfer", Quantity: entities.Qty(1)})
	if !entities.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}

	_, err = ledger.Append(&entities.LedgerEntry{Item: entities.ItemRef{Type: entities.RawMaterialItem, ID: 1}, Type: entities.MovementIn, Quantity: entities.Qty(-1)})
	if !entities.IsValidation(err) {
		t.Errorf("Expected validation error for negative quantity, got %v", err)
	}
}

func TestLedger_DriftAndRematerialize(t *testing.T) {
	doc := newLedgerDoc()
	ledger := NewLedger(doc, fixedClock)
	glue := entities.ItemRef{Type: entities.ProductItem, ID: 1}
	if _, err := ledger.Append(&entities.LedgerEntry{Item: glue, Type: entities.MovementProduceIn, Quantity: entities.Qty(2)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	doc.Product(1).StockQuantity = entities.Qty(7)

	drifts := ledger.Drifts()
	if len(drifts) != 1 || drifts[0].Item != glue {
		t.Fatalf("Expected one drift on glue, got %v", drifts)
	}
	ledger.Rematerialize()
	if !doc.Product(1).StockQuantity.Equal(entities.Qty(2)) {
		t.Errorf("Expected stock rewritten to 2, got %s", doc.Product(1).StockQuantity)
	}
}

func TestLedger_Void(t *testing.T) {
	doc := newLedgerDoc()
	ledger := NewLedger(doc, fixedClock)
	e, _ := ledger.Append(&entities.LedgerEntry{Item: entities.ItemRef{Type: entities.RawMaterialItem, ID: 1}, Type: entities.MovementConsumeOut, Quantity: entities.Qty(1)})
	if err := ledger.Void(e, 2); err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if err := ledger.Void(e, 3); !entities.IsState(err) {
		t.Errorf("Expected state error on second void, got %v", err)
	}
}
