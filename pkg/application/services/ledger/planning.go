package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

// scarcityFloor stands in for non-positive availability in the scarcity score
var scarcityFloor = decimal.New(1, -9)

var diffTolerance = decimal.New(1, -6)

// BOMTree expands a BOM's effective version recursively through product lines
// produced by other BOMs. A BOM already on the current path is marked as a loop.
func (s *Service) BOMTree(ctx context.Context, bomID int) (*dto.BOMTreeNode, error) {
	var root *dto.BOMTreeNode
	err := s.view(ctx, func(doc *entities.Document) error {
		bom := doc.BOM(bomID)
		if bom == nil {
			return entities.NotFound("bom", bomID, entities.ErrBOMNotFound)
		}
		root = s.expandTree(doc, bom, entities.DateOf(s.now()), map[int]bool{})
		return nil
	})
	return root, err
}

func (s *Service) expandTree(doc *entities.Document, bom *entities.BOM, asOf entities.Date, path map[int]bool) *dto.BOMTreeNode {
	node := &dto.BOMTreeNode{BOMID: bom.ID, Code: bom.Code, Name: bom.Name}
	v := s.effectiveVersion(doc, bom.ID, asOf)
	if v == nil {
		return node
	}
	node.VersionID = v.ID

	path[bom.ID] = true
	defer delete(path, bom.ID)

	for _, line := range v.Lines {
		qty := line.Qty
		child := &dto.BOMTreeNode{
			Name:     line.ItemName,
			ItemType: line.ItemType,
			ItemID:   line.ItemID,
			Qty:      &qty,
			UOM:      line.UOM,
			Phase:    line.Phase,
		}
		if sub := subBOM(doc, line); sub != nil {
			if path[sub.ID] {
				child.BOMID = sub.ID
				child.Loop = true
			} else {
				expanded := s.expandTree(doc, sub, asOf, path)
				child.BOMID = expanded.BOMID
				child.Code = expanded.Code
				child.VersionID = expanded.VersionID
				child.Children = expanded.Children
			}
		}
		node.Children = append(node.Children, child)
	}
	return node
}

// PlanProduction evaluates, for every BOM of the requested types, how many
// batches of batchQty current raw material stock allows. Lower scarcity is better.
func (s *Service) PlanProduction(ctx context.Context, req dto.PlanRequest) (*dto.ProductionPlan, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	plan := &dto.ProductionPlan{BatchQty: req.BatchQty, Candidates: []dto.PlanCandidate{}, Best: map[string]dto.PlanCandidate{}}
	types := stringSet(req.BOMTypes)

	err := s.view(ctx, func(doc *entities.Document) error {
		asOf := entities.DateOf(s.now())
		for _, bom := range doc.BOMs {
			if len(types) > 0 && !types[bom.Type] {
				continue
			}
			v := s.effectiveVersion(doc, bom.ID, asOf)
			if v == nil {
				continue
			}
			plan.Candidates = append(plan.Candidates, s.evaluate(doc, bom, v, req.BatchQty))
		}

		sort.SliceStable(plan.Candidates, func(i, j int) bool {
			return better(plan.Candidates[i], plan.Candidates[j])
		})
		for _, c := range plan.Candidates {
			if _, ok := plan.Best[c.Type]; !ok {
				plan.Best[c.Type] = c
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func better(a, b dto.PlanCandidate) bool {
	if !a.Scarcity.Equal(b.Scarcity) {
		return a.Scarcity.LessThan(b.Scarcity)
	}
	if a.MaxBatches != b.MaxBatches {
		return a.MaxBatches > b.MaxBatches
	}
	return a.BOMID < b.BOMID
}

func (s *Service) evaluate(doc *entities.Document, bom *entities.BOM, v *entities.BOMVersion, batchQty entities.Quantity) dto.PlanCandidate {
	c := dto.PlanCandidate{
		BOMID:        bom.ID,
		Name:         bom.OutputName(),
		Type:         bom.Type,
		VersionID:    v.ID,
		Requirements: []dto.Requirement{},
		Scarcity:     decimal.Zero,
		MaxBatches:   -1,
	}

	needs := make(map[int]*dto.Requirement)
	var order []int
	for _, line := range s.engine.Explode(v, batchQty) {
		if line.ItemType != entities.RawMaterialItem {
			continue
		}
		m := doc.RawMaterial(line.ItemID)
		if m == nil || m.IsWaterLike {
			continue
		}
		perBatch, ok := s.units.Convert(line.RequiredQty, line.UOM, "kg")
		r, seen := needs[m.ID]
		if !seen {
			available, okStock := s.units.Convert(m.StockQuantity, m.Unit, "kg")
			r = &dto.Requirement{ItemID: m.ID, Name: m.Name, PerBatch: decimal.Zero, Available: available, Unconverted: !okStock}
			needs[m.ID] = r
			order = append(order, m.ID)
		}
		r.PerBatch = r.PerBatch.Add(perBatch)
		r.Unconverted = r.Unconverted || !ok
	}

	for _, id := range order {
		r := needs[id]
		c.Requirements = append(c.Requirements, *r)
		if !r.PerBatch.IsPositive() {
			continue
		}
		avail := r.Available
		if !avail.IsPositive() {
			avail = scarcityFloor
		}
		c.Scarcity = c.Scarcity.Add(r.PerBatch.Div(avail))

		batches := int64(0)
		if r.Available.IsPositive() {
			batches = r.Available.Div(r.PerBatch).Floor().IntPart()
		}
		if c.MaxBatches < 0 || batches < c.MaxBatches {
			c.MaxBatches = batches
		}
	}
	if c.MaxBatches < 0 {
		c.MaxBatches = 0
	}
	return c
}

// DiffVersions compares two versions line by line, keyed by item
func (s *Service) DiffVersions(ctx context.Context, oldID, newID int) (*dto.VersionDiff, error) {
	diff := &dto.VersionDiff{
		OldVersionID: oldID,
		NewVersionID: newID,
		Added:        []entities.BOMLine{},
		Deleted:      []entities.BOMLine{},
		Modified:     []dto.LineChange{},
	}
	err := s.view(ctx, func(doc *entities.Document) error {
		oldV, newV := doc.Version(oldID), doc.Version(newID)
		if oldV == nil {
			return entities.NotFound("bom version", oldID, entities.ErrVersionNotFound)
		}
		if newV == nil {
			return entities.NotFound("bom version", newID, entities.ErrVersionNotFound)
		}

		before := make(map[entities.ItemRef]entities.BOMLine, len(oldV.Lines))
		for _, l := range oldV.Lines {
			before[l.Ref()] = l
		}
		after := make(map[entities.ItemRef]bool, len(newV.Lines))
		for _, l := range newV.Lines {
			after[l.Ref()] = true
			prev, ok := before[l.Ref()]
			switch {
			case !ok:
				diff.Added = append(diff.Added, l)
			case prev.Qty.Sub(l.Qty).Abs().GreaterThan(diffTolerance) || s.units.Normalize(prev.UOM) != s.units.Normalize(l.UOM):
				diff.Modified = append(diff.Modified, dto.LineChange{Old: prev, New: l})
			}
		}
		for _, l := range oldV.Lines {
			if !after[l.Ref()] {
				diff.Deleted = append(diff.Deleted, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diff, nil
}

// MaterialUsage counts, per raw material, the released or finished orders of
// the given BOM types whose version consumes it, and their planned consumption in kg
func (s *Service) MaterialUsage(ctx context.Context, bomTypes []string) ([]dto.UsageStat, error) {
	types := stringSet(bomTypes)
	stats := []dto.UsageStat{}

	err := s.view(ctx, func(doc *entities.Document) error {
		byItem := make(map[int]*dto.UsageStat)
		for _, order := range doc.ProductionOrders {
			if order.Status != entities.OrderReleased && order.Status != entities.OrderFinished {
				continue
			}
			bom := doc.BOM(order.BOMID)
			if bom == nil || (len(types) > 0 && !types[bom.Type]) {
				continue
			}
			counted := make(map[int]bool)
			for _, line := range s.engine.Explode(doc.Version(order.BOMVersionID), order.PlanQty) {
				if line.ItemType != entities.RawMaterialItem {
					continue
				}
				stat, ok := byItem[line.ItemID]
				if !ok {
					name := line.ItemName
					if m := doc.RawMaterial(line.ItemID); m != nil {
						name = m.Name
					}
					stat = &dto.UsageStat{ItemID: line.ItemID, Name: name, Quantity: decimal.Zero, Unit: "kg"}
					byItem[line.ItemID] = stat
				}
				kg, _ := s.units.Convert(line.RequiredQty, line.UOM, "kg")
				stat.Quantity = stat.Quantity.Add(kg)
				if !counted[line.ItemID] {
					counted[line.ItemID] = true
					stat.Orders++
				}
			}
		}
		for _, stat := range byItem {
			stats = append(stats, *stat)
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Orders != stats[j].Orders {
				return stats[i].Orders > stats[j].Orders
			}
			return stats[i].ItemID < stats[j].ItemID
		})
		return nil
	})
	return stats, err
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
