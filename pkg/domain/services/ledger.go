package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// Ledger appends stock movements to a document and keeps every item's cached
// stock equal to the signed sum of its entries.
type Ledger struct {
	doc *entities.Document
	now func() time.Time
}

// NewLedger wraps doc. A nil clock uses time.Now.
func NewLedger(doc *entities.Document, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{doc: doc, now: now}
}

// Append assigns id, timestamp and snapshotStock to e, stores it and updates
// the item's cached stock. Entries without stock effect snapshot the current balance.
func (l *Ledger) Append(e *entities.LedgerEntry) (*entities.LedgerEntry, error) {
	if !e.Type.Valid() {
		return nil, entities.Invalid("type", "unknown movement type %q", e.Type)
	}
	if e.Quantity.IsNegative() {
		return nil, entities.Invalid("quantity", "must not be negative, got %s", e.Quantity)
	}
	item := l.doc.Item(e.Item)
	if item == nil {
		return nil, entities.NotFound(string(e.Item.Type), e.Item.ID, entities.ErrItemNotFound)
	}

	e.ID = l.doc.NextEntryID(e.Item.Type)
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.ItemName == "" {
		e.ItemName = item.ItemName()
	}
	if e.Unit == "" {
		e.Unit = item.StockUnit()
	}

	after := l.Balance(e.Item).Add(e.Delta())
	e.SnapshotStock = after
	l.doc.AppendEntry(e)
	item.SetStock(after, e.Timestamp)
	return e, nil
}

// Void marks original as reversed by the entry with id reversalID
func (l *Ledger) Void(original *entities.LedgerEntry, reversalID int) error {
	if original.Voided() {
		return &entities.StateError{Entity: "ledger entry", ID: original.ID, From: "voided", Op: "void"}
	}
	original.MarkVoided(reversalID, l.now())
	return nil
}

// Balance is the signed sum of every entry recorded for ref
func (l *Ledger) Balance(ref entities.ItemRef) entities.Quantity {
	sum := decimal.Zero
	for _, e := range l.doc.EntriesFor(ref) {
		sum = sum.Add(e.Delta())
	}
	return sum
}

// History returns the entries of ref ordered by id
func (l *Ledger) History(ref entities.ItemRef) []*entities.LedgerEntry {
	entries := l.doc.EntriesFor(ref)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Drift describes an item whose cached stock disagrees with its ledger sum
type Drift struct {
	Item     entities.ItemRef  `json:"item"`
	Name     string            `json:"name"`
	Cached   entities.Quantity `json:"cached"`
	Computed entities.Quantity `json:"computed"`
}

func (d Drift) String() string {
	return fmt.Sprintf("%s %q cached=%s ledger=%s", d.Item, d.Name, d.Cached, d.Computed)
}

// Drifts lists every item whose cached stock differs from its ledger sum
func (l *Ledger) Drifts() []Drift {
	var out []Drift
	for _, t := range []entities.ItemType{entities.RawMaterialItem, entities.ProductItem} {
		for _, item := range l.doc.Items(t) {
			computed := l.Balance(item.Ref())
			if !computed.Equal(item.Stock()) {
				out = append(out, Drift{Item: item.Ref(), Name: item.ItemName(), Cached: item.Stock(), Computed: computed})
			}
		}
	}
	return out
}

// Rematerialize rewrites the cached stock of every drifted item from its ledger sum
func (l *Ledger) Rematerialize() []Drift {
	drifts := l.Drifts()
	at := l.now()
	for _, d := range drifts {
		l.doc.Item(d.Item).SetStock(d.Computed, at)
	}
	return drifts
}
