package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/labledger/pkg/infrastructure/testing"
)

func TestPostAndCancel_RestoresStock(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 250, "kg")
	issue := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Sulfate, 125, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	posted, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	assert.False(t, posted.Partial())
	assert.NotEmpty(t, posted.BatchID)
	require.Len(t, posted.Entries, 1)
	assert.Equal(t, entities.MovementConsumeOut, posted.Entries[0].Type)
	assertQty(t, 125, posted.Entries[0].Quantity)
	assertQty(t, 875, posted.Entries[0].SnapshotStock)
	assert.Equal(t, entities.IssuePosted, posted.Issue.Status)
	assert.Equal(t, "alice", posted.Issue.PostedBy)
	assertQty(t, 875, h.stock(t, lab.Sulfate))
	h.assertInSync(t)

	cancelled, err := h.svc.CancelIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	require.Len(t, cancelled.Reversed, 1)
	assert.Equal(t, entities.MovementReturnIn, cancelled.Reversed[0].Type)
	assertQty(t, 125, cancelled.Reversed[0].Quantity)
	assert.Equal(t, entities.DocIssueCancel, cancelled.Reversed[0].RelatedDocType)
	assert.Equal(t, entities.IssueDraft, cancelled.Issue.Status)
	require.NotNil(t, cancelled.Issue.CancelledAt)
	assertQty(t, 1000, h.stock(t, lab.Sulfate))
	h.assertInSync(t)

	history, err := h.svc.History(ctx, lab.Sulfate.Ref())
	require.NoError(t, err)
	require.Len(t, history, 3) // opening, consume_out, return_in
	consumed := history[1]
	assert.Equal(t, entities.MovementConsumeOut, consumed.Type)
	require.True(t, consumed.Voided(), "original entry is annotated, not removed")
	assert.Equal(t, history[2].ID, *consumed.VoidedByID)

	assert.Len(t, h.eventsOfType(t, events.IssuePostedEvent), 1)
	assert.Len(t, h.eventsOfType(t, events.IssueCancelledEvent), 1)
}

func TestPostIssue_RepostAfterCancel(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.DEA, 20, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	_, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	_, err = h.svc.CancelIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	_, err = h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)

	assertQty(t, 180, h.stock(t, lab.DEA))

	// a second cancel only reverses the live posting
	cancelled, err := h.svc.CancelIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, cancelled.Reversed, 1)
	assertQty(t, 200, h.stock(t, lab.DEA))
	h.assertInSync(t)
}

func TestPostIssue_TwiceDebitsOnce(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Sulfate, 50, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	_, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	_, err = h.svc.PostIssue(ctx, issue.ID, "alice")
	require.Error(t, err)
	assert.True(t, entities.IsState(err))

	assertQty(t, 950, h.stock(t, lab.Sulfate))
}

func TestPostIssue_WaterLikeKeepsPinnedStock(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 1000, "kg")
	issue := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Water, 450, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	result, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.True(t, result.Entries[0].NoStockEffect)
	assertQty(t, 450, result.Entries[0].Quantity)

	balance, err := h.svc.Balance(ctx, lab.Water.Ref())
	require.NoError(t, err)
	assert.True(t, balance.WaterLike)
	assert.True(t, balance.InSync)
	assertQty(t, 0, balance.Stock)
	assert.Equal(t, 1, balance.Entries)

	cancelled, err := h.svc.CancelIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	assert.True(t, cancelled.Reversed[0].NoStockEffect)
	assertQty(t, 0, h.stock(t, lab.Water))
}

func TestPostIssue_ConvertsUnits(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID,
		testhelpers.IssueLine(lab.Sulfate, 0.1, "吨"),
		testhelpers.IssueLine(lab.DEA, 3, "bucket"),
	)
	h := newHarness(t, lab.Lab)

	result, err := h.svc.PostIssue(context.Background(), issue.ID, "alice")
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	assertQty(t, 100, result.Entries[0].Quantity)
	assert.Equal(t, "kg", result.Entries[0].Unit)
	assertQty(t, 900, h.stock(t, lab.Sulfate))

	// no rule for bucket: passed through unconverted with a warning
	assertQty(t, 3, result.Entries[1].Quantity)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 2, result.Warnings[0].Line)
	assert.Equal(t, "bucket", result.Warnings[0].From)
	assert.Len(t, h.eventsOfType(t, events.ConversionFailedEvent), 1)
}

func TestPostIssue_TolerantSkipsUnresolvableLines(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID,
		testhelpers.IssueLine(lab.Sulfate, 50, "kg"),
		entities.IssueLine{ItemType: entities.RawMaterialItem, ItemID: 99, ItemName: "ghost pigment", RequiredQty: entities.Qty(4), UOM: "kg"},
		entities.IssueLine{ItemType: entities.RawMaterialItem, ItemID: lab.DEA.ID, ItemName: "diethanolamine", RequiredQty: entities.Qty(0), UOM: "kg"},
	)
	h := newHarness(t, lab.Lab)

	result, err := h.svc.PostIssue(context.Background(), issue.ID, "alice")
	require.NoError(t, err)

	assert.True(t, result.Partial())
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 2, result.Skipped[0].Line)
	assert.Equal(t, "item not found", result.Skipped[0].Reason)
	assert.Equal(t, 3, result.Skipped[1].Line)
	assert.Len(t, result.Entries, 1)
	assert.Equal(t, entities.IssuePosted, result.Issue.Status)
	assertQty(t, 950, h.stock(t, lab.Sulfate))
	assertQty(t, 200, h.stock(t, lab.DEA))
}

func TestPostIssue_StrictAbortsWholePost(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID,
		testhelpers.IssueLine(lab.Sulfate, 50, "kg"),
		entities.IssueLine{ItemType: entities.RawMaterialItem, ItemID: 99, ItemName: "ghost pigment", RequiredQty: entities.Qty(4), UOM: "kg"},
	)
	h := newHarness(t, lab.Lab, strict)
	ctx := context.Background()

	_, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrItemNotFound))

	assertQty(t, 1000, h.stock(t, lab.Sulfate))
	stored, err := h.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.IssueDraft, stored.Status)
	assert.Empty(t, h.eventsOfType(t, events.StockRecordedEvent))
}

func TestPostIssue_Rejects(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	empty := lab.DraftIssue(order.ID)
	ghostOnly := lab.DraftIssue(order.ID,
		entities.IssueLine{ItemType: entities.RawMaterialItem, ItemID: 99, ItemName: "ghost pigment", RequiredQty: entities.Qty(4), UOM: "kg"},
	)
	zeroOnly := lab.DraftIssue(order.ID,
		testhelpers.IssueLine(lab.Sulfate, 0, "kg"),
		testhelpers.IssueLine(lab.DEA, -2, "kg"),
	)
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	_, err := h.svc.PostIssue(ctx, 404, "alice")
	assert.True(t, errors.Is(err, entities.ErrIssueNotFound))

	_, err = h.svc.PostIssue(ctx, empty.ID, "alice")
	assert.True(t, entities.IsValidation(err))

	// nothing applied at all is a failure, not an empty success
	_, err = h.svc.PostIssue(ctx, ghostOnly.ID, "alice")
	assert.True(t, errors.Is(err, entities.ErrItemNotFound))
	stored, err := h.svc.GetIssue(ctx, ghostOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.IssueDraft, stored.Status)

	_, err = h.svc.PostIssue(ctx, zeroOnly.ID, "alice")
	assert.True(t, entities.IsValidation(err), "only non-positive quantities is a validation failure, got %v", err)
	assert.False(t, errors.Is(err, entities.ErrItemNotFound))
	assertQty(t, 1000, h.stock(t, lab.Sulfate))
}

func TestPostIssue_ReroutesRenamedProduct(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	base := lab.Product("alkali-free accelerator", "accelerator", "kg", 10)
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, entities.IssueLine{
		ItemType:    entities.ProductItem,
		ItemID:      42,
		ItemName:    "WJSNJ-alkali-free accelerator",
		RequiredQty: entities.Qty(2),
		UOM:         "kg",
	})
	h := newHarness(t, lab.Lab)

	result, err := h.svc.PostIssue(context.Background(), issue.ID, "alice")
	require.NoError(t, err)

	require.Len(t, result.Corrections, 1)
	assert.Equal(t, base.Ref(), result.Corrections[0].Resolved)
	assert.False(t, result.Corrections[0].Created)
	assert.Equal(t, base.ID, result.Issue.Lines[0].ItemID, "line re-pointed at the canonical row")
	assertQty(t, 8, h.stock(t, base))
}

func TestPostIssue_ResolvesThroughAlias(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, entities.IssueLine{
		ItemType:    entities.RawMaterialItem,
		ItemID:      55,
		ItemName:    "DEA",
		RequiredQty: entities.Qty(5),
		UOM:         "kg",
	})
	lab.Doc.ItemAliases = append(lab.Doc.ItemAliases, &entities.ItemAlias{Alias: "dea", Item: lab.DEA.Ref()})
	h := newHarness(t, lab.Lab)

	result, err := h.svc.PostIssue(context.Background(), issue.ID, "alice")
	require.NoError(t, err)
	require.Len(t, result.Corrections, 1)
	assertQty(t, 195, h.stock(t, lab.DEA))
}

func TestPostIssue_CreatesMissingProduct(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, entities.IssueLine{
		ItemType:    entities.ProductItem,
		ItemID:      3,
		ItemName:    "seed crystal slurry",
		RequiredQty: entities.Qty(2),
		UOM:         "kg",
	})
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	result, err := h.svc.PostIssue(ctx, issue.ID, "alice")
	require.NoError(t, err)
	require.Len(t, result.Corrections, 1)
	assert.True(t, result.Corrections[0].Created)

	products, err := h.svc.ListItems(ctx, entities.ProductItem)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "seed crystal slurry", products[0].ItemName())
	assertQty(t, -2, products[0].Stock())
	h.assertInSync(t)
}

func TestCancelIssue_RejectsDraft(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Sulfate, 5, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	_, err := h.svc.CancelIssue(ctx, issue.ID, "alice")
	assert.True(t, entities.IsState(err))

	_, err = h.svc.CancelIssue(ctx, 404, "alice")
	assert.True(t, errors.Is(err, entities.ErrIssueNotFound))
}

func TestRepairIssues(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 200, "kg")
	hollow := lab.DraftIssue(order.ID)
	orphan := lab.DraftIssue(404)
	healthy := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.DEA, 1, "kg"))
	h := newHarness(t, lab.Lab)
	ctx := context.Background()

	report, err := h.svc.RepairIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{hollow.ID}, report.Repaired)
	assert.Equal(t, []int{orphan.ID}, report.Failed)

	repaired, err := h.svc.GetIssue(ctx, hollow.ID)
	require.NoError(t, err)
	require.Len(t, repaired.Lines, 3)
	assertQty(t, 100, repaired.Lines[0].RequiredQty)

	untouched, err := h.svc.GetIssue(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Len(t, untouched.Lines, 1)
	assert.Len(t, h.eventsOfType(t, events.IssuesRepairedEvent), 1)
}
