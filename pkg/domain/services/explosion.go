package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// DefaultYieldBase applies to versions whose yield base is missing or non-positive
var DefaultYieldBase = decimal.NewFromInt(1000)

// DefaultLineUnit applies to BOM lines without a unit
const DefaultLineUnit = "kg"

// ExplodedLine is one BOM line scaled to a target output quantity
type ExplodedLine struct {
	ItemType    entities.ItemType `json:"itemType"`
	ItemID      int               `json:"itemId"`
	ItemName    string            `json:"itemName,omitempty"`
	RequiredQty entities.Quantity `json:"requiredQty"`
	UOM         string            `json:"uom"`
	Phase       string            `json:"phase,omitempty"`
}

// IssueLine converts the exploded line into a material issue line
func (l ExplodedLine) IssueLine() entities.IssueLine {
	return entities.IssueLine{
		ItemType:    l.ItemType,
		ItemID:      l.ItemID,
		ItemName:    l.ItemName,
		RequiredQty: l.RequiredQty,
		UOM:         l.UOM,
		Phase:       l.Phase,
	}
}

// ExplosionEngine scales BOM versions to target quantities. It never touches stock.
type ExplosionEngine struct {
	defaultYieldBase entities.Quantity
}

// NewExplosionEngine creates an engine; a non-positive default falls back to DefaultYieldBase
func NewExplosionEngine(defaultYieldBase entities.Quantity) *ExplosionEngine {
	if !defaultYieldBase.IsPositive() {
		defaultYieldBase = DefaultYieldBase
	}
	return &ExplosionEngine{defaultYieldBase: defaultYieldBase}
}

// YieldBase returns the yield base the engine uses for v
func (e *ExplosionEngine) YieldBase(v *entities.BOMVersion) entities.Quantity {
	return v.EffectiveYieldBase(e.defaultYieldBase)
}

// Explode returns requiredQty = line.qty * (target / yieldBase) for every line of v.
// A nil version or a version without lines yields an empty result.
func (e *ExplosionEngine) Explode(v *entities.BOMVersion, target entities.Quantity) []ExplodedLine {
	if v == nil || len(v.Lines) == 0 {
		return []ExplodedLine{}
	}

	ratio := target.Div(e.YieldBase(v))
	lines := make([]ExplodedLine, 0, len(v.Lines))
	for _, l := range v.Lines {
		uom := l.UOM
		if uom == "" {
			uom = DefaultLineUnit
		}
		lines = append(lines, ExplodedLine{
			ItemType:    l.ItemType,
			ItemID:      l.ItemID,
			ItemName:    l.ItemName,
			RequiredQty: l.Qty.Mul(ratio),
			UOM:         uom,
			Phase:       l.Phase,
		})
	}
	return lines
}

// SelectEffectiveVersion picks the usable version in force on asOf: the latest
// (effectiveFrom, id) among usable versions with effectiveFrom <= asOf. When no
// version qualifies by date it falls back to the usable version with the highest
// id and reports fallback=true. Returns nil when nothing is usable.
func SelectEffectiveVersion(versions []*entities.BOMVersion, asOf entities.Date) (selected *entities.BOMVersion, fallback bool) {
	var dated, usable []*entities.BOMVersion
	for _, v := range versions {
		if !v.Usable() {
			continue
		}
		usable = append(usable, v)
		if v.EffectiveOn(asOf) {
			dated = append(dated, v)
		}
	}

	if len(dated) > 0 {
		sort.Slice(dated, func(i, j int) bool {
			a, b := dated[i], dated[j]
			if !a.EffectiveFrom.Equal(b.EffectiveFrom.Time) {
				return a.EffectiveFrom.After(b.EffectiveFrom.Time)
			}
			return a.ID > b.ID
		})
		return dated[0], false
	}

	for _, v := range usable {
		if selected == nil || v.ID > selected.ID {
			selected = v
		}
	}
	return selected, selected != nil
}
