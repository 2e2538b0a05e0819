package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quantity is an exact decimal amount of material in some unit
type Quantity = decimal.Decimal

// Qty builds a Quantity from a float literal. Intended for fixtures and tests.
func Qty(v float64) Quantity {
	return decimal.NewFromFloat(v)
}

// ItemType distinguishes the two kinds of stock-keeping items
type ItemType string

const (
	RawMaterialItem ItemType = "raw_material"
	ProductItem     ItemType = "product"
)

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	return t == RawMaterialItem || t == ProductItem
}

// ItemRef identifies a stock item across the raw material and product arrays
type ItemRef struct {
	Type ItemType `json:"itemType" validate:"required,oneof=raw_material product"`
	ID   int      `json:"itemId" validate:"gt=0"`
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// StockItem is the shared view over RawMaterial and ProductStock rows.
// The stock quantity is a cached materialization of the item's ledger sum.
type StockItem interface {
	Ref() ItemRef
	ItemName() string
	StockUnit() string
	WaterLike() bool
	Stock() Quantity
	SetStock(q Quantity, at time.Time)
}

// RawMaterial is a purchased input tracked in stock
type RawMaterial struct {
	ID              int        `json:"id"`
	Name            string     `json:"name" validate:"required"`
	StockQuantity   Quantity   `json:"stockQuantity"`
	Unit            string     `json:"unit" validate:"required"`
	IsWaterLike     bool       `json:"isWaterLike"`
	LastStockUpdate *time.Time `json:"lastStockUpdate,omitempty"`
}

func (m *RawMaterial) Ref() ItemRef      { return ItemRef{Type: RawMaterialItem, ID: m.ID} }
func (m *RawMaterial) ItemName() string  { return m.Name }
func (m *RawMaterial) StockUnit() string { return m.Unit }
func (m *RawMaterial) WaterLike() bool   { return m.IsWaterLike }
func (m *RawMaterial) Stock() Quantity   { return m.StockQuantity }

func (m *RawMaterial) SetStock(q Quantity, at time.Time) {
	m.StockQuantity = q
	m.LastStockUpdate = &at
}

// ProductStock is a finished or intermediate product tracked in stock
type ProductStock struct {
	ID            int        `json:"id"`
	Name          string     `json:"name" validate:"required"`
	Type          string     `json:"type"`
	StockQuantity Quantity   `json:"stockQuantity"`
	Unit          string     `json:"unit" validate:"required"`
	LastUpdate    *time.Time `json:"lastUpdate,omitempty"`
}

func (p *ProductStock) Ref() ItemRef      { return ItemRef{Type: ProductItem, ID: p.ID} }
func (p *ProductStock) ItemName() string  { return p.Name }
func (p *ProductStock) StockUnit() string { return p.Unit }
func (p *ProductStock) WaterLike() bool   { return false }
func (p *ProductStock) Stock() Quantity   { return p.StockQuantity }

func (p *ProductStock) SetStock(q Quantity, at time.Time) {
	p.StockQuantity = q
	p.LastUpdate = &at
}

// ItemAlias maps an alternative spelling of an item name onto one stable item
type ItemAlias struct {
	Alias string  `json:"alias" validate:"required"`
	Item  ItemRef `json:"item"`
}

// NormalizeName folds an item name or alias for lookup
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
