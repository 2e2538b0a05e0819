package entities

import (
	"encoding/json"
	"fmt"
)

// Document is the complete persisted state of one lab: recipes, orders,
// issues, stock rows and both movement ledgers. Revision increases by one on
// every successful save.
type Document struct {
	Revision                int64              `json:"revision"`
	BOMs                    []*BOM             `json:"boms"`
	BOMVersions             []*BOMVersion      `json:"bomVersions"`
	ProductionOrders        []*ProductionOrder `json:"productionOrders"`
	MaterialIssues          []*MaterialIssue   `json:"materialIssues"`
	RawMaterials            []*RawMaterial     `json:"rawMaterials"`
	ProductInventory        []*ProductStock    `json:"productInventory"`
	InventoryRecords        []*LedgerEntry     `json:"inventoryRecords"`
	ProductInventoryRecords []*LedgerEntry     `json:"productInventoryRecords"`
	ItemAliases             []*ItemAlias       `json:"itemAliases"`
}

// NewDocument returns an empty document
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize replaces nil collections with empty ones so they encode as []
func (d *Document) Normalize() {
	if d.BOMs == nil {
		d.BOMs = []*BOM{}
	}
	if d.BOMVersions == nil {
		d.BOMVersions = []*BOMVersion{}
	}
	if d.ProductionOrders == nil {
		d.ProductionOrders = []*ProductionOrder{}
	}
	if d.MaterialIssues == nil {
		d.MaterialIssues = []*MaterialIssue{}
	}
	if d.RawMaterials == nil {
		d.RawMaterials = []*RawMaterial{}
	}
	if d.ProductInventory == nil {
		d.ProductInventory = []*ProductStock{}
	}
	if d.InventoryRecords == nil {
		d.InventoryRecords = []*LedgerEntry{}
	}
	if d.ProductInventoryRecords == nil {
		d.ProductInventoryRecords = []*LedgerEntry{}
	}
	if d.ItemAliases == nil {
		d.ItemAliases = []*ItemAlias{}
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	out.Normalize()
	return &out, nil
}

func nextID[T any](rows []T, id func(T) int) int {
	max := 0
	for _, row := range rows {
		if v := id(row); v > max {
			max = v
		}
	}
	return max + 1
}

func (d *Document) NextBOMID() int {
	return nextID(d.BOMs, func(b *BOM) int { return b.ID })
}

func (d *Document) NextVersionID() int {
	return nextID(d.BOMVersions, func(v *BOMVersion) int { return v.ID })
}

// NextOrderID skips ids still carried by issues or ledger entries of deleted
// orders.
func (d *Document) NextOrderID() int {
	next := nextID(d.ProductionOrders, func(o *ProductionOrder) int { return o.ID })
	next = max(next, nextID(d.MaterialIssues, func(i *MaterialIssue) int { return i.ProductionOrderID }))
	return max(next, d.nextDocID(DocOrder))
}

// NextIssueID skips ids still carried by ledger entries of deleted issues.
func (d *Document) NextIssueID() int {
	next := nextID(d.MaterialIssues, func(i *MaterialIssue) int { return i.ID })
	return max(next, d.nextDocID(DocIssue, DocIssueCancel))
}

// NextRawMaterialID never hands out an id that still has ledger history, so
// a merged-away row's entries stay attached to that row alone.
func (d *Document) NextRawMaterialID() int {
	next := nextID(d.RawMaterials, func(m *RawMaterial) int { return m.ID })
	return max(next, d.nextItemID(RawMaterialItem))
}

func (d *Document) NextProductID() int {
	next := nextID(d.ProductInventory, func(p *ProductStock) int { return p.ID })
	return max(next, d.nextItemID(ProductItem))
}

func (d *Document) nextItemID(t ItemType) int {
	return nextID(d.Entries(t), func(e *LedgerEntry) int {
		if e.Item.Type != t {
			return 0
		}
		return e.Item.ID
	})
}

func (d *Document) nextDocID(types ...DocType) int {
	next := 1
	for _, ledger := range [][]*LedgerEntry{d.InventoryRecords, d.ProductInventoryRecords} {
		next = max(next, nextID(ledger, func(e *LedgerEntry) int {
			for _, t := range types {
				if e.RelatedDocType == t {
					return e.RelatedDocID
				}
			}
			return 0
		}))
	}
	return next
}

// NextEntryID returns the next id in the ledger that holds entries for t
func (d *Document) NextEntryID(t ItemType) int {
	return nextID(d.Entries(t), func(e *LedgerEntry) int { return e.ID })
}

func (d *Document) BOM(id int) *BOM {
	for _, b := range d.BOMs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (d *Document) Version(id int) *BOMVersion {
	for _, v := range d.BOMVersions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// VersionsOf returns the versions of bomID in stored order
func (d *Document) VersionsOf(bomID int) []*BOMVersion {
	var out []*BOMVersion
	for _, v := range d.BOMVersions {
		if v.BOMID == bomID {
			out = append(out, v)
		}
	}
	return out
}

func (d *Document) Order(id int) *ProductionOrder {
	for _, o := range d.ProductionOrders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (d *Document) Issue(id int) *MaterialIssue {
	for _, i := range d.MaterialIssues {
		if i.ID == id {
			return i
		}
	}
	return nil
}

// IssuesOf returns the issues generated for orderID
func (d *Document) IssuesOf(orderID int) []*MaterialIssue {
	var out []*MaterialIssue
	for _, i := range d.MaterialIssues {
		if i.ProductionOrderID == orderID {
			out = append(out, i)
		}
	}
	return out
}

func (d *Document) RawMaterial(id int) *RawMaterial {
	for _, m := range d.RawMaterials {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (d *Document) Product(id int) *ProductStock {
	for _, p := range d.ProductInventory {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Item returns the stock row behind ref, or nil
func (d *Document) Item(ref ItemRef) StockItem {
	switch ref.Type {
	case RawMaterialItem:
		if m := d.RawMaterial(ref.ID); m != nil {
			return m
		}
	case ProductItem:
		if p := d.Product(ref.ID); p != nil {
			return p
		}
	}
	return nil
}

// Items returns every stock row of type t
func (d *Document) Items(t ItemType) []StockItem {
	var out []StockItem
	switch t {
	case RawMaterialItem:
		for _, m := range d.RawMaterials {
			out = append(out, m)
		}
	case ProductItem:
		for _, p := range d.ProductInventory {
			out = append(out, p)
		}
	}
	return out
}

// Entries returns the ledger that holds entries for items of type t
func (d *Document) Entries(t ItemType) []*LedgerEntry {
	if t == ProductItem {
		return d.ProductInventoryRecords
	}
	return d.InventoryRecords
}

// AppendEntry adds e to the ledger matching its item type
func (d *Document) AppendEntry(e *LedgerEntry) {
	if e.Item.Type == ProductItem {
		d.ProductInventoryRecords = append(d.ProductInventoryRecords, e)
		return
	}
	d.InventoryRecords = append(d.InventoryRecords, e)
}

// EntriesFor returns the entries of one item in ledger order
func (d *Document) EntriesFor(ref ItemRef) []*LedgerEntry {
	var out []*LedgerEntry
	for _, e := range d.Entries(ref.Type) {
		if e.Item == ref {
			out = append(out, e)
		}
	}
	return out
}

// EntriesForDoc returns the entries caused by one related document
func (d *Document) EntriesForDoc(docType DocType, docID int) []*LedgerEntry {
	var out []*LedgerEntry
	for _, ledger := range [][]*LedgerEntry{d.InventoryRecords, d.ProductInventoryRecords} {
		for _, e := range ledger {
			if e.RelatedDocType == docType && e.RelatedDocID == docID {
				out = append(out, e)
			}
		}
	}
	return out
}

// Alias returns the alias row for a normalized name, or nil
func (d *Document) Alias(name string) *ItemAlias {
	key := NormalizeName(name)
	for _, a := range d.ItemAliases {
		if a.Alias == key {
			return a
		}
	}
	return nil
}

// ReferencedBy reports whether any BOM line or issue line points at ref
func (d *Document) ReferencedBy(ref ItemRef) bool {
	for _, v := range d.BOMVersions {
		for _, l := range v.Lines {
			if l.Ref() == ref {
				return true
			}
		}
	}
	for _, i := range d.MaterialIssues {
		for _, l := range i.Lines {
			if l.Ref() == ref {
				return true
			}
		}
	}
	return false
}

// RemoveItem deletes the stock row behind ref
func (d *Document) RemoveItem(ref ItemRef) {
	switch ref.Type {
	case RawMaterialItem:
		d.RawMaterials = removeWhere(d.RawMaterials, func(m *RawMaterial) bool { return m.ID == ref.ID })
	case ProductItem:
		d.ProductInventory = removeWhere(d.ProductInventory, func(p *ProductStock) bool { return p.ID == ref.ID })
	}
}

func (d *Document) RemoveBOM(id int) {
	d.BOMs = removeWhere(d.BOMs, func(b *BOM) bool { return b.ID == id })
}

func (d *Document) RemoveVersion(id int) {
	d.BOMVersions = removeWhere(d.BOMVersions, func(v *BOMVersion) bool { return v.ID == id })
}

func (d *Document) RemoveOrder(id int) {
	d.ProductionOrders = removeWhere(d.ProductionOrders, func(o *ProductionOrder) bool { return o.ID == id })
}

func (d *Document) RemoveIssue(id int) {
	d.MaterialIssues = removeWhere(d.MaterialIssues, func(i *MaterialIssue) bool { return i.ID == id })
}

func removeWhere[T any](rows []T, match func(T) bool) []T {
	out := rows[:0]
	for _, row := range rows {
		if !match(row) {
			out = append(out, row)
		}
	}
	return out
}
