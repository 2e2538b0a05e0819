package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

// PostIssue consumes every line of a draft issue from stock. Under the tolerant
// policy unresolvable lines are skipped and reported; under the strict policy
// they abort the post and nothing is saved.
func (s *Service) PostIssue(ctx context.Context, issueID int, operator string) (*dto.PostResult, error) {
	result := &dto.PostResult{
		Entries:     []*entities.LedgerEntry{},
		Skipped:     []dto.SkippedLine{},
		Corrections: []dto.Correction{},
		Warnings:    []dto.ConversionWarning{},
	}

	err := s.update(ctx, "post_issue", func(t *tx) error {
		issue := t.doc.Issue(issueID)
		if issue == nil {
			return entities.NotFound("material issue", issueID, entities.ErrIssueNotFound)
		}
		if !issue.Status.CanTransitionTo(entities.IssuePosted) {
			return &entities.StateError{Entity: "material issue", ID: issueID, From: string(issue.Status), Op: "post"}
		}
		if len(issue.Lines) == 0 {
			return entities.Invalid("lines", "material issue %d has no lines", issueID)
		}

		logger := s.logger.With(zap.Int("issue_id", issueID), zap.String("issue_code", issue.IssueCode))
		result.BatchID = uuid.NewString()

		unresolved := 0
		for i := range issue.Lines {
			line := &issue.Lines[i]
			if !line.RequiredQty.IsPositive() {
				result.Skipped = append(result.Skipped, skipped(i, line, "non-positive quantity"))
				continue
			}

			r := s.resolveLine(t, *line)
			if r.item == nil {
				if s.policy == PostStrict {
					return entities.NotFound(string(line.ItemType), line.ItemID, entities.ErrItemNotFound)
				}
				logger.Warn("issue line skipped, item not found",
					zap.Int("item_id", line.ItemID),
					zap.String("item_name", line.ItemName),
					zap.String("reason", "unresolvable item"),
				)
				result.Skipped = append(result.Skipped, skipped(i, line, "item not found"))
				unresolved++
				continue
			}
			if r.corrected {
				s.logCorrection(line.ItemName, r)
				result.Corrections = append(result.Corrections, dto.Correction{Line: i + 1, Expected: line.ItemName, Resolved: r.item.Ref(), Created: r.created})
				line.ItemID = r.item.Ref().ID
			}

			uom := line.UOM
			if uom == "" {
				uom = r.item.StockUnit()
			}
			qty, ok := s.convert(t, line.RequiredQty, uom, r.item.StockUnit())
			if !ok {
				result.Warnings = append(result.Warnings, dto.ConversionWarning{Line: i + 1, Quantity: line.RequiredQty, From: uom, To: r.item.StockUnit()})
			}

			entry, err := t.record(&entities.LedgerEntry{
				Item:           r.item.Ref(),
				Type:           entities.MovementConsumeOut,
				Quantity:       qty,
				Unit:           r.item.StockUnit(),
				Reason:         fmt.Sprintf("material issue %s (requested %s %s)", issue.IssueCode, line.RequiredQty, uom),
				Operator:       operator,
				RelatedDocType: entities.DocIssue,
				RelatedDocID:   issue.ID,
				BatchID:        result.BatchID,
				NoStockEffect:  r.item.WaterLike(),
			})
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, entry)
		}

		if len(result.Entries) == 0 {
			if unresolved == 0 {
				return entities.Invalid("lines", "material issue %d has no line with a positive quantity", issueID)
			}
			return entities.NotFound("material issue", issueID, entities.ErrItemNotFound)
		}

		issue.Status = entities.IssuePosted
		issue.PostedAt = stamp(t)
		issue.PostedBy = operator
		issue.LastModified = stamp(t)
		result.Issue = issue

		if len(result.Skipped) > 0 {
			logger.Warn("issue posted partially", zap.Int("skipped", len(result.Skipped)), zap.Int("applied", len(result.Entries)))
		}
		t.emit(events.IssuePostedEvent, events.IssueStream(issue.ID), events.IssuePosted{
			IssueID: issue.ID, IssueCode: issue.IssueCode, BatchID: result.BatchID,
			Entries: len(result.Entries), Skipped: len(result.Skipped), Operator: operator,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func skipped(i int, line *entities.IssueLine, reason string) dto.SkippedLine {
	return dto.SkippedLine{Line: i + 1, ItemType: line.ItemType, ItemID: line.ItemID, ItemName: line.ItemName, Reason: reason}
}

// CancelIssue reverses every live consume_out entry of a posted issue with a
// return_in entry, voids the originals and returns the issue to draft
func (s *Service) CancelIssue(ctx context.Context, issueID int, operator string) (*dto.CancelResult, error) {
	result := &dto.CancelResult{Reversed: []*entities.LedgerEntry{}}

	err := s.update(ctx, "cancel_issue", func(t *tx) error {
		issue := t.doc.Issue(issueID)
		if issue == nil {
			return entities.NotFound("material issue", issueID, entities.ErrIssueNotFound)
		}
		if issue.Status != entities.IssuePosted {
			return &entities.StateError{Entity: "material issue", ID: issueID, From: string(issue.Status), Op: "cancel"}
		}

		result.BatchID = uuid.NewString()
		for _, original := range t.doc.EntriesForDoc(entities.DocIssue, issue.ID) {
			if original.Type != entities.MovementConsumeOut || original.Voided() {
				continue
			}
			reversal, err := t.record(&entities.LedgerEntry{
				Item:           original.Item,
				Type:           entities.MovementReturnIn,
				Quantity:       original.Quantity,
				Unit:           original.Unit,
				Reason:         fmt.Sprintf("cancel material issue %s", issue.IssueCode),
				Operator:       operator,
				RelatedDocType: entities.DocIssueCancel,
				RelatedDocID:   issue.ID,
				BatchID:        result.BatchID,
				NoStockEffect:  original.NoStockEffect,
			})
			if err != nil {
				return fmt.Errorf("failed to reverse entry %d: %w", original.ID, err)
			}
			if err := t.ledger.Void(original, reversal.ID); err != nil {
				return err
			}
			result.Reversed = append(result.Reversed, reversal)
		}

		issue.Status = entities.IssueDraft
		issue.PostedAt = nil
		issue.PostedBy = ""
		issue.CancelledAt = stamp(t)
		issue.LastModified = stamp(t)
		result.Issue = issue

		t.emit(events.IssueCancelledEvent, events.IssueStream(issue.ID), events.IssueCancelled{
			IssueID: issue.ID, IssueCode: issue.IssueCode, BatchID: result.BatchID, Reversed: len(result.Reversed), Operator: operator,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RepairIssues re-explodes every draft issue without lines, using the same
// version fallback as issue generation
func (s *Service) RepairIssues(ctx context.Context) (*dto.RepairReport, error) {
	report := &dto.RepairReport{Repaired: []int{}, Failed: []int{}}

	err := s.update(ctx, "repair_issues", func(t *tx) error {
		for _, issue := range t.doc.MaterialIssues {
			if issue.Status != entities.IssueDraft || len(issue.Lines) > 0 {
				continue
			}
			order := t.doc.Order(issue.ProductionOrderID)
			if order == nil {
				report.Failed = append(report.Failed, issue.ID)
				continue
			}
			lines, versionID, fallback := s.explodeOrder(t.doc, order, entities.DateOf(t.now))
			if len(lines) == 0 {
				report.Failed = append(report.Failed, issue.ID)
				continue
			}
			if fallback {
				order.BOMVersionID = versionID
				order.LastModified = stamp(t)
			}
			issue.Lines = issueLines(lines)
			issue.LastModified = stamp(t)
			report.Repaired = append(report.Repaired, issue.ID)
		}
		if len(report.Repaired) > 0 {
			t.emit(events.IssuesRepairedEvent, "issues", events.IssuesRepaired{IssueIDs: report.Repaired})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(report.Failed) > 0 {
		s.logger.Warn("some draft issues could not be repaired", zap.Ints("issue_ids", report.Failed))
	}
	return report, nil
}

// ListIssues returns all issues, or those of one order when orderID is set
func (s *Service) ListIssues(ctx context.Context, orderID *int) ([]*entities.MaterialIssue, error) {
	var issues []*entities.MaterialIssue
	err := s.view(ctx, func(doc *entities.Document) error {
		if orderID != nil {
			issues = doc.IssuesOf(*orderID)
		} else {
			issues = doc.MaterialIssues
		}
		sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
		return nil
	})
	return issues, err
}

func (s *Service) GetIssue(ctx context.Context, id int) (*entities.MaterialIssue, error) {
	var issue *entities.MaterialIssue
	err := s.view(ctx, func(doc *entities.Document) error {
		issue = doc.Issue(id)
		if issue == nil {
			return entities.NotFound("material issue", id, entities.ErrIssueNotFound)
		}
		return nil
	})
	return issue, err
}
