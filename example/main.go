package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/application/services/ledger"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/infrastructure/lock"
	"github.com/vsinha/labledger/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	svc := ledger.NewService(
		memory.NewDocumentRepository(entities.NewDocument()),
		lock.NewMutexLocker(),
		nil,
		ledger.Options{},
	)

	if err := run(ctx, svc); err != nil {
		fmt.Printf("❌ walkthrough failed: %v\n", err)
	}
}

func run(ctx context.Context, svc *ledger.Service) error {
	// Stock the lab
	sulfate, err := svc.RegisterRawMaterial(ctx, dto.ItemRequest{
		Name: "aluminium sulfate", Unit: "kg", OpeningStock: decimal.NewFromInt(1000), Operator: "lab",
	})
	if err != nil {
		return err
	}
	dea, err := svc.RegisterRawMaterial(ctx, dto.ItemRequest{
		Name: "diethanolamine", Unit: "kg", OpeningStock: decimal.NewFromInt(200), Operator: "lab",
	})
	if err != nil {
		return err
	}
	water, err := svc.RegisterRawMaterial(ctx, dto.ItemRequest{Name: "water", Unit: "kg"})
	if err != nil {
		return err
	}

	// Define the recipe: 1000 kg of accelerator per batch
	bom, err := svc.CreateBOM(ctx, dto.BOMRequest{Code: "WJSNJ", Name: "alkali-free accelerator", Type: "accelerator"})
	if err != nil {
		return err
	}
	version, err := svc.AddVersion(ctx, dto.VersionRequest{
		BOMID:     bom.ID,
		Version:   "V1",
		YieldBase: decimal.NewFromInt(1000),
		Lines: []dto.BOMLineRequest{
			{ItemType: entities.RawMaterialItem, ItemID: sulfate.ID, Qty: decimal.NewFromInt(500), UOM: "kg"},
			{ItemType: entities.RawMaterialItem, ItemID: dea.ID, Qty: decimal.NewFromInt(50), UOM: "kg"},
			{ItemType: entities.RawMaterialItem, ItemID: water.ID, Qty: decimal.NewFromInt(450), UOM: "kg"},
		},
	})
	if err != nil {
		return err
	}
	if _, err := svc.ApproveVersion(ctx, version.ID, dto.ReviewRequest{Reviewer: "qa"}); err != nil {
		return err
	}

	// Produce 250 kg
	order, err := svc.CreateOrder(ctx, dto.OrderRequest{BOMID: bom.ID, PlanQty: decimal.NewFromInt(250), Unit: "kg"})
	if err != nil {
		return err
	}
	fmt.Printf("🧪 Order %s: %s kg of %s\n", order.OrderCode, order.PlanQty, bom.Name)

	draft, err := svc.GenerateIssue(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, l := range draft.Issue.Lines {
		fmt.Printf("  %-20s %8s %s\n", l.ItemName, l.RequiredQty, l.UOM)
	}

	posted, err := svc.PostIssue(ctx, draft.Issue.ID, "alice")
	if err != nil {
		return err
	}
	fmt.Printf("📦 Posted %s: %d ledger entries\n", posted.Issue.IssueCode, len(posted.Entries))

	finished, err := svc.FinishOrder(ctx, order.ID, "alice")
	if err != nil {
		return err
	}
	fmt.Printf("✅ Finished: +%s %s %s\n", finished.Entry.Quantity, finished.Entry.Unit, finished.Entry.ItemName)

	// Balances
	for _, item := range []entities.StockItem{sulfate, dea, water} {
		b, err := svc.Balance(ctx, item.Ref())
		if err != nil {
			return err
		}
		fmt.Printf("  %-20s stock %8s ledger %8s in sync: %v\n", b.Name, b.Stock, b.Ledger, b.InSync)
	}

	// Undo the consumption
	cancelled, err := svc.CancelIssue(ctx, posted.Issue.ID, "alice")
	if err != nil {
		return err
	}
	fmt.Printf("↩️  Cancelled %s: %d entries reversed\n", cancelled.Issue.IssueCode, len(cancelled.Reversed))

	report, err := svc.Reconcile(ctx, false)
	if err != nil {
		return err
	}
	fmt.Printf("🔍 Reconcile: %d items checked, %d drifted\n", report.Checked, len(report.Drifts))
	return nil
}
