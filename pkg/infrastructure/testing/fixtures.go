package testing

import (
	"fmt"
	"time"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/repositories/memory"
)

// Now is the fixed clock used by fixtures: 2024-07-01 09:00 UTC
var Now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

// Clock returns Now
func Clock() time.Time { return Now }

// Lab builds a ledger document row by row. Opening stock is written through the
// ledger so every row starts in sync with its entries.
type Lab struct {
	Doc    *entities.Document
	ledger *services.Ledger
}

func NewLab() *Lab {
	doc := entities.NewDocument()
	return &Lab{Doc: doc, ledger: services.NewLedger(doc, Clock)}
}

// RawMaterial adds a raw material with an opening balance of stock
func (l *Lab) RawMaterial(name, unit string, stock float64) *entities.RawMaterial {
	m := &entities.RawMaterial{
		ID:            l.Doc.NextRawMaterialID(),
		Name:          name,
		StockQuantity: entities.Qty(0),
		Unit:          unit,
	}
	l.Doc.RawMaterials = append(l.Doc.RawMaterials, m)
	l.open(m, stock)
	return m
}

// WaterLike adds an unmetered raw material pinned at stock
func (l *Lab) WaterLike(name, unit string, stock float64) *entities.RawMaterial {
	m := l.RawMaterial(name, unit, stock)
	m.IsWaterLike = true
	return m
}

func (l *Lab) Product(name, productType, unit string, stock float64) *entities.ProductStock {
	p := &entities.ProductStock{
		ID:            l.Doc.NextProductID(),
		Name:          name,
		Type:          productType,
		StockQuantity: entities.Qty(0),
		Unit:          unit,
	}
	l.Doc.ProductInventory = append(l.Doc.ProductInventory, p)
	l.open(p, stock)
	return p
}

func (l *Lab) open(item entities.StockItem, stock float64) {
	if stock <= 0 {
		return
	}
	_, err := l.ledger.Append(&entities.LedgerEntry{
		Item:           item.Ref(),
		Type:           entities.MovementAdjustIn,
		Quantity:       entities.Qty(stock),
		Reason:         "opening balance",
		RelatedDocType: entities.DocOpening,
	})
	if err != nil {
		panic(err)
	}
}

func (l *Lab) AddBOM(code, name, bomType string) *entities.BOM {
	b, err := entities.NewBOM(code, name, bomType)
	if err != nil {
		panic(err)
	}
	b.ID = l.Doc.NextBOMID()
	b.Status = entities.BOMActive
	b.CreatedAt = Now
	l.Doc.BOMs = append(l.Doc.BOMs, b)
	return b
}

// AddVersion adds a version of bomID. A nil effective date leaves it undated.
func (l *Lab) AddVersion(bomID int, label string, status entities.VersionStatus, effective *entities.Date, yieldBase float64, lines ...entities.BOMLine) *entities.BOMVersion {
	v := &entities.BOMVersion{
		ID:            l.Doc.NextVersionID(),
		BOMID:         bomID,
		Version:       label,
		EffectiveFrom: effective,
		YieldBase:     entities.Qty(yieldBase),
		Lines:         lines,
		Status:        status,
		CreatedAt:     Now,
	}
	l.Doc.BOMVersions = append(l.Doc.BOMVersions, v)
	return v
}

// Line is a BOM line consuming qty uom of item
func Line(item entities.StockItem, qty float64, uom string) entities.BOMLine {
	ref := item.Ref()
	return entities.BOMLine{ItemType: ref.Type, ItemID: ref.ID, ItemName: item.ItemName(), Qty: entities.Qty(qty), UOM: uom}
}

// Day returns a pointer to the given date
func Day(year int, month time.Month, day int) *entities.Date {
	d := entities.NewDate(year, month, day)
	return &d
}

func (l *Lab) Order(bomID, versionID int, planQty float64, unit string) *entities.ProductionOrder {
	o, err := entities.NewProductionOrder("", bomID, versionID, entities.Qty(planQty), unit)
	if err != nil {
		panic(err)
	}
	o.ID = l.Doc.NextOrderID()
	o.OrderCode = fmt.Sprintf("MO-FIXTURE-%03d", o.ID)
	o.CreatedAt = Now
	l.Doc.ProductionOrders = append(l.Doc.ProductionOrders, o)
	return o
}

// DraftIssue adds a draft issue for orderID with the given lines
func (l *Lab) DraftIssue(orderID int, lines ...entities.IssueLine) *entities.MaterialIssue {
	id := l.Doc.NextIssueID()
	issue := &entities.MaterialIssue{
		ID:                id,
		IssueCode:         fmt.Sprintf("ISS-FIXTURE-%03d", id),
		ProductionOrderID: orderID,
		Status:            entities.IssueDraft,
		Lines:             lines,
		CreatedAt:         Now,
	}
	l.Doc.MaterialIssues = append(l.Doc.MaterialIssues, issue)
	return issue
}

// IssueLine requires qty uom of item
func IssueLine(item entities.StockItem, qty float64, uom string) entities.IssueLine {
	ref := item.Ref()
	return entities.IssueLine{ItemType: ref.Type, ItemID: ref.ID, ItemName: item.ItemName(), RequiredQty: entities.Qty(qty), UOM: uom}
}

// Repository returns an in-memory repository seeded with the document
func (l *Lab) Repository() *memory.DocumentRepository {
	return memory.NewDocumentRepository(l.Doc)
}

// AcceleratorLab is a small accelerator lab: one approved recipe consuming
// aluminium sulfate, diethanolamine and process water.
type AcceleratorLab struct {
	*Lab
	Sulfate *entities.RawMaterial
	DEA     *entities.RawMaterial
	Water   *entities.RawMaterial
	BOM     *entities.BOM
	Version *entities.BOMVersion
}

// BuildAcceleratorLab returns the standard fixture. Per 1000 kg of output the
// approved version needs 500 kg sulfate, 50 kg DEA and 450 kg water.
func BuildAcceleratorLab() *AcceleratorLab {
	lab := NewLab()
	f := &AcceleratorLab{Lab: lab}
	f.Sulfate = lab.RawMaterial("aluminium sulfate", "kg", 1000)
	f.DEA = lab.RawMaterial("diethanolamine", "kg", 200)
	f.Water = lab.WaterLike("water", "kg", 0)
	f.BOM = lab.AddBOM("WJSNJ", "alkali-free accelerator", "accelerator")
	f.Version = lab.AddVersion(f.BOM.ID, "V1", entities.VersionApproved, Day(2024, 1, 1), 1000,
		Line(f.Sulfate, 500, "kg"),
		Line(f.DEA, 50, "kg"),
		Line(f.Water, 450, "kg"),
	)
	return f
}
