package entities

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDocument_NextIDs(t *testing.T) {
	doc := NewDocument()
	if doc.NextBOMID() != 1 {
		t.Errorf("Expected first bom id 1, got %d", doc.NextBOMID())
	}
	doc.BOMs = append(doc.BOMs, &BOM{ID: 4}, &BOM{ID: 2})
	if doc.NextBOMID() != 5 {
		t.Errorf("Expected next bom id 5, got %d", doc.NextBOMID())
	}
	doc.RemoveBOM(4)
	if doc.NextBOMID() != 3 {
		t.Errorf("Expected next bom id 3 after removal, got %d", doc.NextBOMID())
	}
}

func TestDocument_NextIDsSkipLedgerReferences(t *testing.T) {
	doc := NewDocument()
	doc.ProductInventory = append(doc.ProductInventory, &ProductStock{ID: 1})
	doc.AppendEntry(&LedgerEntry{ID: 1, Item: ItemRef{Type: ProductItem, ID: 2}, Type: MovementAdjustIn, Quantity: Qty(3)})
	doc.AppendEntry(&LedgerEntry{ID: 1, Item: ItemRef{Type: RawMaterialItem, ID: 1}, Type: MovementOut, Quantity: Qty(1),
		RelatedDocType: DocIssue, RelatedDocID: 4})
	doc.AppendEntry(&LedgerEntry{ID: 2, Item: ItemRef{Type: RawMaterialItem, ID: 1}, Type: MovementIn, Quantity: Qty(1),
		RelatedDocType: DocIssueCancel, RelatedDocID: 6})
	doc.AppendEntry(&LedgerEntry{ID: 2, Item: ItemRef{Type: ProductItem, ID: 1}, Type: MovementProduceIn, Quantity: Qty(1),
		RelatedDocType: DocOrder, RelatedDocID: 9})

	if got := doc.NextProductID(); got != 3 {
		t.Errorf("Expected next product id 3 past removed row 2, got %d", got)
	}
	if got := doc.NextRawMaterialID(); got != 2 {
		t.Errorf("Expected next raw material id 2, got %d", got)
	}
	if got := doc.NextIssueID(); got != 7 {
		t.Errorf("Expected next issue id 7, got %d", got)
	}
	if got := doc.NextOrderID(); got != 10 {
		t.Errorf("Expected next order id 10, got %d", got)
	}
}

func TestDocument_EntriesRouteByItemType(t *testing.T) {
	doc := NewDocument()
	raw := ItemRef{Type: RawMaterialItem, ID: 1}
	prod := ItemRef{Type: ProductItem, ID: 1}
	doc.AppendEntry(&LedgerEntry{ID: 1, Item: raw, Type: MovementIn, Quantity: Qty(1)})
	doc.AppendEntry(&LedgerEntry{ID: 1, Item: prod, Type: MovementProduceIn, Quantity: Qty(2)})

	if len(doc.InventoryRecords) != 1 || len(doc.ProductInventoryRecords) != 1 {
		t.Fatalf("Expected one entry per ledger, got %d/%d", len(doc.InventoryRecords), len(doc.ProductInventoryRecords))
	}
	if got := doc.EntriesFor(prod); len(got) != 1 || !got[0].Quantity.Equal(Qty(2)) {
		t.Errorf("Expected product entry, got %v", got)
	}
	if doc.NextEntryID(RawMaterialItem) != 2 {
		t.Errorf("Expected next raw entry id 2, got %d", doc.NextEntryID(RawMaterialItem))
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.RawMaterials = append(doc.RawMaterials, &RawMaterial{ID: 1, Name: "Resin", Unit: "kg", StockQuantity: Qty(10)})

	clone, err := doc.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	clone.RawMaterials[0].Name = "Changed"
	if doc.RawMaterials[0].Name != "Resin" {
		t.Error("Expected clone mutation not to leak into original")
	}
	if !clone.RawMaterials[0].StockQuantity.Equal(Qty(10)) {
		t.Errorf("Expected quantity 10 in clone, got %s", clone.RawMaterials[0].StockQuantity)
	}
}

func TestDocument_EmptyCollectionsEncodeAsArrays(t *testing.T) {
	raw, err := json.Marshal(NewDocument())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `"materialIssues":[]`) {
		t.Errorf("Expected empty array for materialIssues, got %s", raw)
	}
}

func TestDocument_ReferencedBy(t *testing.T) {
	doc := NewDocument()
	ref := ItemRef{Type: RawMaterialItem, ID: 9}
	if doc.ReferencedBy(ref) {
		t.Fatal("Expected unreferenced item")
	}
	doc.BOMVersions = append(doc.BOMVersions, &BOMVersion{ID: 1, Lines: []BOMLine{{ItemType: RawMaterialItem, ItemID: 9, Qty: Qty(1)}}})
	if !doc.ReferencedBy(ref) {
		t.Error("Expected item referenced by bom line")
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Resin   A "); got != "resin a" {
		t.Errorf("Expected 'resin a', got '%s'", got)
	}
}
