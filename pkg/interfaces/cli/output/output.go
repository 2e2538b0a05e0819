// Package output renders ledger results for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
)

// Config holds configuration for output generation
type Config struct {
	Format  string
	Verbose bool
}

// Generate writes result to w in the configured format
func Generate(w io.Writer, result interface{}, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(w, result, config)
	case "json":
		return generateJSONOutput(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateJSONOutput(w io.Writer, result interface{}) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

func generateTextOutput(w io.Writer, result interface{}, config Config) error {
	switch r := result.(type) {
	case []services.ExplodedLine:
		writeExplosion(w, r)
	case *dto.IssueResult:
		writeIssueResult(w, r)
	case *dto.PostResult:
		writePostResult(w, r, config)
	case *dto.CancelResult:
		fmt.Fprintf(w, "Cancelled %s: %d entries reversed (batch %s)\n", r.Issue.IssueCode, len(r.Reversed), r.BatchID)
		if config.Verbose {
			writeEntries(w, r.Reversed)
		}
	case *dto.FinishResult:
		writeFinishResult(w, r)
	case *dto.RepairReport:
		fmt.Fprintf(w, "Repaired drafts: %v\n", r.Repaired)
		if len(r.Failed) > 0 {
			fmt.Fprintf(w, "Failed drafts:   %v\n", r.Failed)
		}
	case *dto.ReconcileReport:
		writeReconcile(w, r)
	case *dto.Balance:
		writeBalance(w, r)
	case []*entities.LedgerEntry:
		writeEntries(w, r)
	default:
		return generateJSONOutput(w, result)
	}
	return nil
}

func writeExplosion(w io.Writer, lines []services.ExplodedLine) {
	fmt.Fprintf(w, "%-14s %-6s %-24s %14s %-6s\n", "Type", "ID", "Item", "Required", "UOM")
	fmt.Fprintf(w, "%-14s %-6s %-24s %14s %-6s\n", "--------------", "------", "------------------------", "--------------", "------")
	for _, l := range lines {
		fmt.Fprintf(w, "%-14s %-6d %-24s %14s %-6s\n", l.ItemType, l.ItemID, l.ItemName, l.RequiredQty.StringFixed(3), l.UOM)
	}
}

func writeIssueResult(w io.Writer, r *dto.IssueResult) {
	verb := "Generated"
	if r.Refreshed {
		verb = "Refreshed"
	}
	fmt.Fprintf(w, "%s %s from version %d with %d lines\n", verb, r.Issue.IssueCode, r.VersionID, len(r.Issue.Lines))
	if r.VersionFallback {
		fmt.Fprintln(w, "Note: no version in force on the start date, used the latest usable version")
	}
}

func writePostResult(w io.Writer, r *dto.PostResult, config Config) {
	fmt.Fprintf(w, "Posted %s: %d entries (batch %s)\n", r.Issue.IssueCode, len(r.Entries), r.BatchID)
	if r.Partial() {
		fmt.Fprintf(w, "Partially applied, %d lines skipped:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  line %d %s/%d %s: %s\n", s.Line, s.ItemType, s.ItemID, s.ItemName, s.Reason)
		}
	}
	for _, c := range r.Corrections {
		action := "re-routed"
		if c.Created {
			action = "created"
		}
		fmt.Fprintf(w, "  line %d %s: %s %s\n", c.Line, c.Expected, action, c.Resolved)
	}
	for _, cw := range r.Warnings {
		fmt.Fprintf(w, "  line %d: no conversion from %s to %s, used %s as-is\n", cw.Line, cw.From, cw.To, cw.Quantity)
	}
	if config.Verbose {
		writeEntries(w, r.Entries)
	}
}

func writeFinishResult(w io.Writer, r *dto.FinishResult) {
	e := r.Entry
	fmt.Fprintf(w, "Finished %s: +%s %s %s\n", r.Order.OrderCode, e.Quantity, e.Unit, e.ItemName)
	if r.Converted {
		fmt.Fprintf(w, "  converted from %s\n", r.SourceUnit)
	}
	if r.Created {
		fmt.Fprintln(w, "  product stock row created")
	}
}

func writeReconcile(w io.Writer, r *dto.ReconcileReport) {
	fmt.Fprintf(w, "Checked %d items, %d drifted\n", r.Checked, len(r.Drifts))
	if len(r.Drifts) == 0 {
		return
	}
	fmt.Fprintf(w, "%-20s %-24s %14s %14s\n", "Item", "Name", "Cached", "Ledger")
	for _, d := range r.Drifts {
		fmt.Fprintf(w, "%-20s %-24s %14s %14s\n", d.Item, d.Name, d.Cached, d.Computed)
	}
	if r.Fixed {
		fmt.Fprintln(w, "Cached stock rewritten from the ledger")
	}
}

func writeBalance(w io.Writer, b *dto.Balance) {
	fmt.Fprintf(w, "%s %s\n", b.Item, b.Name)
	fmt.Fprintf(w, "  stock:   %s %s\n", b.Stock, b.Unit)
	fmt.Fprintf(w, "  ledger:  %s %s over %d entries\n", b.Ledger, b.Unit, b.Entries)
	if b.WaterLike {
		fmt.Fprintln(w, "  water-like, consumption is not metered")
	}
	if !b.InSync {
		fmt.Fprintln(w, "  OUT OF SYNC, run reconcile")
	}
}

func writeEntries(w io.Writer, entries []*entities.LedgerEntry) {
	fmt.Fprintf(w, "%-6s %-19s %-12s %12s %-6s %12s %-12s %s\n", "ID", "Time", "Type", "Quantity", "Unit", "After", "Doc", "Reason")
	for _, e := range entries {
		doc := ""
		if e.RelatedDocType != "" {
			doc = fmt.Sprintf("%s/%d", e.RelatedDocType, e.RelatedDocID)
		}
		reason := e.Reason
		if e.Voided() {
			reason += " (voided)"
		}
		fmt.Fprintf(w, "%-6d %-19s %-12s %12s %-6s %12s %-12s %s\n",
			e.ID,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Type,
			e.Quantity,
			e.Unit,
			e.SnapshotStock,
			doc,
			reason)
	}
}
