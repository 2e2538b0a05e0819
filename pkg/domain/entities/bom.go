package entities

import (
	"fmt"
	"time"
)

// BOMStatus is the lifecycle state of a BOM header
type BOMStatus string

const (
	BOMDraft    BOMStatus = "draft"
	BOMActive   BOMStatus = "active"
	BOMArchived BOMStatus = "archived"
)

// VersionStatus is the approval state of a BOM version.
// The empty status marks legacy versions created before approvals existed.
type VersionStatus string

const (
	VersionLegacy   VersionStatus = ""
	VersionPending  VersionStatus = "pending"
	VersionApproved VersionStatus = "approved"
	VersionRejected VersionStatus = "rejected"
)

var versionTransitions = map[VersionStatus][]VersionStatus{
	VersionLegacy:   {VersionApproved, VersionRejected},
	VersionPending:  {VersionApproved, VersionRejected},
	VersionRejected: {VersionPending},
	VersionApproved: {},
}

// CanTransitionTo reports whether a version may move from s to next
func (s VersionStatus) CanTransitionTo(next VersionStatus) bool {
	for _, allowed := range versionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s VersionStatus) String() string {
	if s == VersionLegacy {
		return "legacy"
	}
	return string(s)
}

// BOM is the recipe header for one product
type BOM struct {
	ID           int        `json:"id"`
	Code         string     `json:"code,omitempty"`
	Name         string     `json:"name"`
	Type         string     `json:"type,omitempty"`
	Status       BOMStatus  `json:"status,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// NewBOM creates a validated BOM header in draft state
func NewBOM(code, name, bomType string) (*BOM, error) {
	if name == "" {
		return nil, fmt.Errorf("bom name cannot be empty")
	}
	return &BOM{
		Code:   code,
		Name:   name,
		Type:   bomType,
		Status: BOMDraft,
	}, nil
}

// OutputName is the product name a finished order credits: "code-name" or just name
func (b *BOM) OutputName() string {
	if b.Code == "" {
		return b.Name
	}
	return b.Code + "-" + b.Name
}

// BOMLine is one ingredient of a BOM version, expressed per yield base
type BOMLine struct {
	ItemType    ItemType `json:"itemType"`
	ItemID      int      `json:"itemId"`
	ItemName    string   `json:"itemName,omitempty"`
	Qty         Quantity `json:"qty"`
	UOM         string   `json:"uom,omitempty"`
	Phase       string   `json:"phase,omitempty"`
	Substitutes string   `json:"substitutes,omitempty"`
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(itemType ItemType, itemID int, itemName string, qty Quantity, uom, phase string) (*BOMLine, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}
	if itemID <= 0 {
		return nil, fmt.Errorf("item id must be positive, got %d", itemID)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("line quantity must be positive, got %s", qty)
	}
	return &BOMLine{
		ItemType: itemType,
		ItemID:   itemID,
		ItemName: itemName,
		Qty:      qty,
		UOM:      uom,
		Phase:    phase,
	}, nil
}

// Ref returns the stock item the line points at
func (l BOMLine) Ref() ItemRef {
	return ItemRef{Type: l.ItemType, ID: l.ItemID}
}

// BOMVersion is one dated, approvable revision of a recipe
type BOMVersion struct {
	ID            int           `json:"id"`
	BOMID         int           `json:"bomId"`
	Version       string        `json:"version"`
	EffectiveFrom *Date         `json:"effectiveFrom,omitempty"`
	YieldBase     Quantity      `json:"yieldBase"`
	Lines         []BOMLine     `json:"lines"`
	Status        VersionStatus `json:"status,omitempty"`
	Description   string        `json:"description,omitempty"`
	CreatedBy     string        `json:"createdBy,omitempty"`
	ReviewedBy    string        `json:"reviewedBy,omitempty"`
	ReviewNote    string        `json:"reviewNote,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReviewedAt    *time.Time    `json:"reviewedAt,omitempty"`
}

// Usable reports whether the version may drive production:
// not pending, not rejected, and has at least one line
func (v *BOMVersion) Usable() bool {
	if v.Status == VersionPending || v.Status == VersionRejected {
		return false
	}
	return len(v.Lines) > 0
}

// EffectiveOn reports whether the version is in force on day
func (v *BOMVersion) EffectiveOn(day Date) bool {
	return v.EffectiveFrom != nil && !v.EffectiveFrom.After(day.Time)
}

// EffectiveYieldBase returns the yield base, substituting def when unset or non-positive
func (v *BOMVersion) EffectiveYieldBase(def Quantity) Quantity {
	if v.YieldBase.IsPositive() {
		return v.YieldBase
	}
	return def
}
