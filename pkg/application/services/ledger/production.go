package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

// Explode scales a version to target. A missing version or one without lines
// yields an empty slice rather than an error.
func (s *Service) Explode(ctx context.Context, versionID int, target entities.Quantity) ([]services.ExplodedLine, error) {
	if !target.IsPositive() {
		return nil, entities.Invalid("targetQty", "must be positive, got %s", target)
	}
	var lines []services.ExplodedLine
	err := s.view(ctx, func(doc *entities.Document) error {
		v := doc.Version(versionID)
		if v == nil {
			s.logger.Warn("explode: version not found", zap.Int("version_id", versionID))
		}
		lines = s.engine.Explode(v, target)
		return nil
	})
	return lines, err
}

// CreateOrder stores a draft production order. A zero version id is resolved to
// the version in force on the start date.
func (s *Service) CreateOrder(ctx context.Context, req dto.OrderRequest) (*entities.ProductionOrder, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	unit := req.Unit
	if unit == "" {
		unit = services.DefaultLineUnit
	}
	order, err := entities.NewProductionOrder(req.OrderCode, req.BOMID, req.BOMVersionID, req.PlanQty, unit)
	if err != nil {
		return nil, entities.Invalid("order", "%v", err)
	}
	order.StartDate = req.StartDate

	err = s.update(ctx, "create_order", func(t *tx) error {
		if t.doc.BOM(order.BOMID) == nil {
			return entities.NotFound("bom", order.BOMID, entities.ErrBOMNotFound)
		}
		if order.BOMVersionID != 0 {
			v := t.doc.Version(order.BOMVersionID)
			if v == nil {
				return entities.NotFound("bom version", order.BOMVersionID, entities.ErrVersionNotFound)
			}
			if v.BOMID != order.BOMID {
				return entities.Invalid("bomVersionId", "version %d belongs to bom %d", v.ID, v.BOMID)
			}
		} else {
			asOf := entities.DateOf(t.now)
			if order.StartDate != nil {
				asOf = *order.StartDate
			}
			if v := s.effectiveVersion(t.doc, order.BOMID, asOf); v != nil {
				order.BOMVersionID = v.ID
			}
		}

		order.ID = t.doc.NextOrderID()
		order.CreatedAt = t.now
		if order.OrderCode == "" {
			order.OrderCode = fmt.Sprintf("MO-%s-%04d", t.now.Format("20060102"), order.ID)
		}
		t.doc.ProductionOrders = append(t.doc.ProductionOrders, order)
		t.emit(events.OrderCreatedEvent, events.OrderStream(order.ID), events.OrderChanged{OrderID: order.ID, OrderCode: order.OrderCode, Status: order.Status})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]*entities.ProductionOrder, error) {
	var orders []*entities.ProductionOrder
	err := s.view(ctx, func(doc *entities.Document) error {
		orders = doc.ProductionOrders
		sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
		return nil
	})
	return orders, err
}

func (s *Service) GetOrder(ctx context.Context, id int) (*entities.ProductionOrder, error) {
	var order *entities.ProductionOrder
	err := s.view(ctx, func(doc *entities.Document) error {
		order = doc.Order(id)
		if order == nil {
			return entities.NotFound("production order", id, entities.ErrOrderNotFound)
		}
		return nil
	})
	return order, err
}

// explodeOrder explodes the order's own version when usable, else the BOM's
// effective version. fallback reports that a different version was used.
func (s *Service) explodeOrder(doc *entities.Document, order *entities.ProductionOrder, asOf entities.Date) (lines []services.ExplodedLine, versionID int, fallback bool) {
	if v := doc.Version(order.BOMVersionID); v != nil && v.BOMID == order.BOMID && v.Usable() {
		return s.engine.Explode(v, order.PlanQty), v.ID, false
	}

	s.logger.Warn("order version missing or unusable, falling back to effective version",
		zap.Int("order_id", order.ID),
		zap.Int("bom_id", order.BOMID),
		zap.Int("version_id", order.BOMVersionID),
	)
	v := s.effectiveVersion(doc, order.BOMID, asOf)
	if v == nil {
		return []services.ExplodedLine{}, 0, true
	}
	return s.engine.Explode(v, order.PlanQty), v.ID, true
}

func issueLines(lines []services.ExplodedLine) []entities.IssueLine {
	out := make([]entities.IssueLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.IssueLine())
	}
	return out
}

// GenerateIssue creates the draft material issue of an order, or refreshes the
// order's existing draft issue. The order moves to released.
func (s *Service) GenerateIssue(ctx context.Context, orderID int) (*dto.IssueResult, error) {
	var result dto.IssueResult
	err := s.update(ctx, "generate_issue", func(t *tx) error {
		order := t.doc.Order(orderID)
		if order == nil {
			return entities.NotFound("production order", orderID, entities.ErrOrderNotFound)
		}
		if order.Status == entities.OrderFinished {
			return &entities.StateError{Entity: "production order", ID: orderID, From: string(order.Status), Op: "generate issue for"}
		}

		var draft *entities.MaterialIssue
		for _, issue := range t.doc.IssuesOf(orderID) {
			if issue.Status == entities.IssuePosted {
				return &entities.StateError{Entity: "production order", ID: orderID, From: "issue posted", Op: "generate another issue for"}
			}
			draft = issue
		}

		lines, versionID, fallback := s.explodeOrder(t.doc, order, entities.DateOf(t.now))
		if len(lines) == 0 {
			return entities.NotFound("bom", order.BOMID, entities.ErrNoUsableBOMVersion)
		}
		if fallback {
			order.BOMVersionID = versionID
			order.LastModified = stamp(t)
		}

		if draft != nil {
			draft.Lines = issueLines(lines)
			draft.LastModified = stamp(t)
			result.Refreshed = true
		} else {
			id := t.doc.NextIssueID()
			draft = &entities.MaterialIssue{
				ID:                id,
				IssueCode:         fmt.Sprintf("ISS-%s-%04d", t.now.Format("20060102"), id),
				ProductionOrderID: orderID,
				Status:            entities.IssueDraft,
				Lines:             issueLines(lines),
				CreatedAt:         t.now,
			}
			t.doc.MaterialIssues = append(t.doc.MaterialIssues, draft)
		}

		if order.Status.CanTransitionTo(entities.OrderReleased) {
			order.Status = entities.OrderReleased
			order.LastModified = stamp(t)
		}

		result.Issue = draft
		result.VersionID = versionID
		result.VersionFallback = fallback
		t.emit(events.IssueGeneratedEvent, events.IssueStream(draft.ID), events.IssueGenerated{
			IssueID: draft.ID, IssueCode: draft.IssueCode, OrderID: orderID, Lines: len(draft.Lines), Fallback: fallback,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FinishOrder credits the BOM's output item with the order's plan quantity and
// marks the order finished. It succeeds at most once per order.
func (s *Service) FinishOrder(ctx context.Context, orderID int, operator string) (*dto.FinishResult, error) {
	var result dto.FinishResult
	err := s.update(ctx, "finish_order", func(t *tx) error {
		order := t.doc.Order(orderID)
		if order == nil {
			return entities.NotFound("production order", orderID, entities.ErrOrderNotFound)
		}
		if !order.Status.CanTransitionTo(entities.OrderFinished) {
			return &entities.StateError{Entity: "production order", ID: orderID, From: string(order.Status), Op: "finish"}
		}
		if !order.PlanQty.IsPositive() {
			return entities.Invalid("planQty", "must be positive, got %s", order.PlanQty)
		}
		bom := t.doc.BOM(order.BOMID)
		if bom == nil {
			return entities.NotFound("bom", order.BOMID, entities.ErrBOMNotFound)
		}

		r := s.resolveOutput(t, bom)
		if r.corrected {
			s.logCorrection(bom.OutputName(), r)
		}

		unit := order.Unit
		if unit == "" {
			unit = services.DefaultLineUnit
		}
		qty, converted := s.convert(t, order.PlanQty, unit, r.item.StockUnit())

		entry, err := t.record(&entities.LedgerEntry{
			Item:           r.item.Ref(),
			Type:           entities.MovementProduceIn,
			Quantity:       qty,
			Unit:           r.item.StockUnit(),
			Reason:         fmt.Sprintf("production finished: %s", order.OrderCode),
			Operator:       operator,
			RelatedDocType: entities.DocOrder,
			RelatedDocID:   order.ID,
			BatchID:        order.OrderCode,
			NoStockEffect:  r.item.WaterLike(),
		})
		if err != nil {
			return err
		}

		order.Status = entities.OrderFinished
		order.FinishedAt = stamp(t)
		order.FinishedBy = operator
		order.LastModified = stamp(t)

		result = dto.FinishResult{Order: order, Entry: entry, Created: r.created, Converted: converted, SourceUnit: unit}
		t.emit(events.OrderFinishedEvent, events.OrderStream(order.ID), events.OrderFinished{
			OrderID: order.ID, OrderCode: order.OrderCode, Item: entry.Item, Quantity: entry.Quantity, Unit: entry.Unit, Operator: operator,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteOrder removes an order and its draft issues unless one of its issues is posted
func (s *Service) DeleteOrder(ctx context.Context, orderID int) error {
	return s.update(ctx, "delete_order", func(t *tx) error {
		order := t.doc.Order(orderID)
		if order == nil {
			return entities.NotFound("production order", orderID, entities.ErrOrderNotFound)
		}
		issues := t.doc.IssuesOf(orderID)
		for _, issue := range issues {
			if issue.Status == entities.IssuePosted {
				return &entities.StateError{Entity: "production order", ID: orderID, From: string(order.Status), Op: "delete with posted issue"}
			}
		}
		for _, issue := range issues {
			t.doc.RemoveIssue(issue.ID)
		}
		t.doc.RemoveOrder(orderID)
		t.emit(events.OrderDeletedEvent, events.OrderStream(orderID), events.OrderChanged{OrderID: orderID, OrderCode: order.OrderCode, Status: order.Status})
		return nil
	})
}
