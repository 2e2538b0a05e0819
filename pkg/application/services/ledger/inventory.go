package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

// RegisterRawMaterial adds a raw material row. A positive opening stock is
// recorded as an adjust_in entry so the row starts in sync with its ledger.
func (s *Service) RegisterRawMaterial(ctx context.Context, req dto.ItemRequest) (*entities.RawMaterial, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	var created *entities.RawMaterial
	err := s.update(ctx, "register_raw_material", func(t *tx) error {
		if err := checkNameFree(t.doc, entities.RawMaterialItem, req.Name); err != nil {
			return err
		}
		waterLike := s.isWaterLike(req.Name)
		if req.WaterLike != nil {
			waterLike = *req.WaterLike
		}
		created = &entities.RawMaterial{
			ID:              t.doc.NextRawMaterialID(),
			Name:            req.Name,
			StockQuantity:   decimal.Zero,
			Unit:            req.Unit,
			IsWaterLike:     waterLike,
			LastStockUpdate: stamp(t),
		}
		t.doc.RawMaterials = append(t.doc.RawMaterials, created)
		return s.recordOpening(t, created, req)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RegisterProduct adds a product stock row, with an optional opening balance
func (s *Service) RegisterProduct(ctx context.Context, req dto.ItemRequest) (*entities.ProductStock, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	var created *entities.ProductStock
	err := s.update(ctx, "register_product", func(t *tx) error {
		if err := checkNameFree(t.doc, entities.ProductItem, req.Name); err != nil {
			return err
		}
		created = &entities.ProductStock{
			ID:            t.doc.NextProductID(),
			Name:          req.Name,
			Type:          req.Type,
			StockQuantity: decimal.Zero,
			Unit:          req.Unit,
			LastUpdate:    stamp(t),
		}
		t.doc.ProductInventory = append(t.doc.ProductInventory, created)
		return s.recordOpening(t, created, req)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func checkNameFree(doc *entities.Document, t entities.ItemType, name string) error {
	if existing := findByName(doc, t, name); existing != nil {
		return entities.Invalid("name", "%q already names %s", name, existing.Ref())
	}
	return nil
}

func (s *Service) recordOpening(t *tx, item entities.StockItem, req dto.ItemRequest) error {
	if !req.OpeningStock.IsPositive() {
		return nil
	}
	_, err := t.record(&entities.LedgerEntry{
		Item:           item.Ref(),
		Type:           entities.MovementAdjustIn,
		Quantity:       req.OpeningStock,
		Unit:           item.StockUnit(),
		Reason:         "opening balance",
		Operator:       req.Operator,
		RelatedDocType: entities.DocOpening,
	})
	return err
}

// RecordMovement applies a manual receipt, withdrawal or stocktake adjustment.
// Manual movements change a water-like item's pinned stock too.
func (s *Service) RecordMovement(ctx context.Context, req dto.MovementRequest) (*entities.LedgerEntry, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	var stored *entities.LedgerEntry
	err := s.update(ctx, "record_movement", func(t *tx) error {
		item := t.doc.Item(req.Item)
		if item == nil {
			return entities.NotFound(string(req.Item.Type), req.Item.ID, entities.ErrItemNotFound)
		}
		unit := req.Unit
		if unit == "" {
			unit = item.StockUnit()
		}
		qty, _ := s.convert(t, req.Quantity, unit, item.StockUnit())
		reason := req.Reason
		if reason == "" {
			reason = fmt.Sprintf("manual %s", req.Type)
		}

		var err error
		stored, err = t.record(&entities.LedgerEntry{
			Item:           item.Ref(),
			Type:           req.Type,
			Quantity:       qty,
			Unit:           item.StockUnit(),
			Reason:         reason,
			Operator:       req.Operator,
			RelatedDocType: entities.DocManual,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Balance returns an item's cached stock alongside its ledger sum
func (s *Service) Balance(ctx context.Context, ref entities.ItemRef) (*dto.Balance, error) {
	var balance dto.Balance
	err := s.view(ctx, func(doc *entities.Document) error {
		item := doc.Item(ref)
		if item == nil {
			return entities.NotFound(string(ref.Type), ref.ID, entities.ErrItemNotFound)
		}
		ledger := services.NewLedger(doc, s.now)
		sum := ledger.Balance(ref)
		balance = dto.Balance{
			Item:      ref,
			Name:      item.ItemName(),
			Unit:      item.StockUnit(),
			Stock:     item.Stock(),
			Ledger:    sum,
			Entries:   len(doc.EntriesFor(ref)),
			InSync:    sum.Equal(item.Stock()),
			WaterLike: item.WaterLike(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// History returns the ledger entries of an item in the order they were recorded.
// Entries of rows removed by an alias merge stay readable.
func (s *Service) History(ctx context.Context, ref entities.ItemRef) ([]*entities.LedgerEntry, error) {
	var history []*entities.LedgerEntry
	err := s.view(ctx, func(doc *entities.Document) error {
		history = services.NewLedger(doc, s.now).History(ref)
		if len(history) == 0 && doc.Item(ref) == nil {
			return entities.NotFound(string(ref.Type), ref.ID, entities.ErrItemNotFound)
		}
		if history == nil {
			history = []*entities.LedgerEntry{}
		}
		return nil
	})
	return history, err
}

// ListItems returns every stock row of one type
func (s *Service) ListItems(ctx context.Context, t entities.ItemType) ([]entities.StockItem, error) {
	if !t.Valid() {
		return nil, entities.Invalid("itemType", "unknown item type %q", t)
	}
	var items []entities.StockItem
	err := s.view(ctx, func(doc *entities.Document) error {
		items = doc.Items(t)
		return nil
	})
	return items, err
}

// Reconcile compares every item's cached stock with its ledger sum. With fix the
// cached values are rewritten from the ledger.
func (s *Service) Reconcile(ctx context.Context, fix bool) (*dto.ReconcileReport, error) {
	report := &dto.ReconcileReport{Drifts: []dto.Drift{}, Fixed: fix}
	collect := func(doc *entities.Document, drifts []services.Drift) {
		report.Checked = len(doc.RawMaterials) + len(doc.ProductInventory)
		for _, d := range drifts {
			report.Drifts = append(report.Drifts, dto.Drift{Item: d.Item, Name: d.Name, Cached: d.Cached, Computed: d.Computed})
			s.logger.Warn("stock drift", zap.String("item", d.Item.String()), zap.String("cached", d.Cached.String()), zap.String("ledger", d.Computed.String()))
		}
	}

	if !fix {
		err := s.view(ctx, func(doc *entities.Document) error {
			collect(doc, services.NewLedger(doc, s.now).Drifts())
			return nil
		})
		if err != nil {
			return nil, err
		}
		return report, nil
	}

	err := s.update(ctx, "reconcile", func(t *tx) error {
		collect(t.doc, t.ledger.Rematerialize())
		t.emit(events.StockReconciledEvent, "stock", events.StockReconciled{Drifted: len(report.Drifts), Fixed: true})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RegisterAlias maps an alternative name onto an existing item
func (s *Service) RegisterAlias(ctx context.Context, req dto.AliasRequest) (*entities.ItemAlias, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	alias := &entities.ItemAlias{Alias: entities.NormalizeName(req.Alias), Item: req.Item}
	err := s.update(ctx, "register_alias", func(t *tx) error {
		if t.doc.Item(req.Item) == nil {
			return entities.NotFound(string(req.Item.Type), req.Item.ID, entities.ErrItemNotFound)
		}
		if existing := t.doc.Alias(req.Alias); existing != nil {
			if existing.Item == req.Item {
				return nil
			}
			return entities.Invalid("alias", "%q already maps to %s", req.Alias, existing.Item)
		}
		t.doc.ItemAliases = append(t.doc.ItemAliases, alias)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alias, nil
}

// MergeAliases folds every duplicate row named by one of the canonical item's
// aliases into the canonical item with paired adjust entries, then removes the
// emptied duplicates that nothing references
func (s *Service) MergeAliases(ctx context.Context, canonical entities.ItemRef) (*dto.MergeReport, error) {
	report := &dto.MergeReport{
		Canonical: canonical,
		Merged:    []entities.ItemRef{},
		Removed:   []entities.ItemRef{},
		Entries:   []*entities.LedgerEntry{},
	}

	err := s.update(ctx, "merge_aliases", func(t *tx) error {
		target := t.doc.Item(canonical)
		if target == nil {
			return entities.NotFound(string(canonical.Type), canonical.ID, entities.ErrItemNotFound)
		}

		names := map[string]bool{entities.NormalizeName(target.ItemName()): true}
		for _, a := range t.doc.ItemAliases {
			if a.Item == canonical {
				names[a.Alias] = true
			}
		}

		var duplicates []entities.StockItem
		for _, item := range t.doc.Items(canonical.Type) {
			if item.Ref() != canonical && names[entities.NormalizeName(item.ItemName())] {
				duplicates = append(duplicates, item)
			}
		}

		batch := fmt.Sprintf("merge-%s", canonical)
		for _, dup := range duplicates {
			balance := t.ledger.Balance(dup.Ref())
			if !balance.IsZero() {
				out, in := entities.MovementAdjustOut, entities.MovementAdjustIn
				if balance.IsNegative() {
					out, in = in, out
				}
				amount := balance.Abs()
				moved, _ := s.convert(t, amount, dup.StockUnit(), target.StockUnit())
				reason := fmt.Sprintf("alias merge %s into %s", dup.Ref(), canonical)

				e1, err := t.record(&entities.LedgerEntry{
					Item: dup.Ref(), Type: out, Quantity: amount, Unit: dup.StockUnit(),
					Reason: reason, RelatedDocType: entities.DocAliasMerge, RelatedDocID: canonical.ID, BatchID: batch,
				})
				if err != nil {
					return err
				}
				e2, err := t.record(&entities.LedgerEntry{
					Item: canonical, Type: in, Quantity: moved, Unit: target.StockUnit(),
					Reason: reason, RelatedDocType: entities.DocAliasMerge, RelatedDocID: dup.Ref().ID, BatchID: batch,
				})
				if err != nil {
					return err
				}
				report.Entries = append(report.Entries, e1, e2)
			}
			report.Merged = append(report.Merged, dup.Ref())

			if !t.doc.ReferencedBy(dup.Ref()) {
				t.doc.RemoveItem(dup.Ref())
				report.Removed = append(report.Removed, dup.Ref())
			}
			if t.doc.Alias(dup.ItemName()) == nil {
				t.doc.ItemAliases = append(t.doc.ItemAliases, &entities.ItemAlias{Alias: entities.NormalizeName(dup.ItemName()), Item: canonical})
			}
		}

		if len(report.Merged) > 0 {
			s.logger.Info("merged duplicate stock rows", zap.String("canonical", canonical.String()), zap.Int("merged", len(report.Merged)))
			t.emit(events.AliasesMergedEvent, events.ItemStream(canonical), events.AliasesMerged{Canonical: canonical, Merged: report.Merged})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
