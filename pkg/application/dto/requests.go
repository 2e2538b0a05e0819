package dto

import "github.com/vsinha/labledger/pkg/domain/entities"

// BOMRequest creates or updates a BOM header
type BOMRequest struct {
	Code   string             `json:"code"`
	Name   string             `json:"name" validate:"required"`
	Type   string             `json:"type"`
	Status entities.BOMStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// BOMLineRequest is one line of a version request
type BOMLineRequest struct {
	ItemType    entities.ItemType `json:"itemType" validate:"required,oneof=raw_material product"`
	ItemID      int               `json:"itemId" validate:"gt=0"`
	ItemName    string            `json:"itemName"`
	Qty         entities.Quantity `json:"qty" validate:"qtypos"`
	UOM         string            `json:"uom"`
	Phase       string            `json:"phase"`
	Substitutes string            `json:"substitutes"`
}

// VersionRequest creates or updates a BOM version
type VersionRequest struct {
	BOMID         int                    `json:"bomId" validate:"gt=0"`
	Version       string                 `json:"version" validate:"required"`
	EffectiveFrom *entities.Date         `json:"effectiveFrom"`
	YieldBase     entities.Quantity      `json:"yieldBase" validate:"qtynonneg"`
	Lines         []BOMLineRequest       `json:"lines" validate:"dive"`
	Status        entities.VersionStatus `json:"status" validate:"omitempty,oneof=pending approved"`
	Description   string                 `json:"description"`
	CreatedBy     string                 `json:"createdBy"`
}

// BOMLines converts the request lines into entity lines
func (r VersionRequest) BOMLines() []entities.BOMLine {
	lines := make([]entities.BOMLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, entities.BOMLine{
			ItemType:    l.ItemType,
			ItemID:      l.ItemID,
			ItemName:    l.ItemName,
			Qty:         l.Qty,
			UOM:         l.UOM,
			Phase:       l.Phase,
			Substitutes: l.Substitutes,
		})
	}
	return lines
}

// ReviewRequest approves, rejects or resubmits a version
type ReviewRequest struct {
	Reviewer string `json:"reviewer" validate:"required"`
	Note     string `json:"note"`
}

// OrderRequest creates a production order. A zero BOMVersionID selects the
// version in force on StartDate (today when unset).
type OrderRequest struct {
	OrderCode    string            `json:"orderCode"`
	BOMID        int               `json:"bomId" validate:"gt=0"`
	BOMVersionID int               `json:"bomVersionId" validate:"gte=0"`
	PlanQty      entities.Quantity `json:"planQty" validate:"qtypos"`
	Unit         string            `json:"unit"`
	StartDate    *entities.Date    `json:"startDate"`
}

// ItemRequest registers a raw material or product stock row
type ItemRequest struct {
	Name         string            `json:"name" validate:"required"`
	Type         string            `json:"type"`
	Unit         string            `json:"unit" validate:"required"`
	OpeningStock entities.Quantity `json:"openingStock" validate:"qtynonneg"`
	WaterLike    *bool             `json:"waterLike"`
	Operator     string            `json:"operator"`
}

// MovementRequest records a manual receipt, withdrawal or stocktake adjustment
type MovementRequest struct {
	Item     entities.ItemRef      `json:"item"`
	Type     entities.MovementType `json:"type" validate:"required,oneof=in out adjust_in adjust_out"`
	Quantity entities.Quantity     `json:"quantity" validate:"qtypos"`
	Unit     string                `json:"unit"`
	Reason   string                `json:"reason"`
	Operator string                `json:"operator"`
}

// AliasRequest maps an alternative name onto an item
type AliasRequest struct {
	Alias string           `json:"alias" validate:"required"`
	Item  entities.ItemRef `json:"item"`
}

// PlanRequest asks which recipes can be produced from current raw material stock
type PlanRequest struct {
	BatchQty entities.Quantity `json:"batchQty" validate:"qtypos"`
	BOMTypes []string          `json:"bomTypes"`
}
