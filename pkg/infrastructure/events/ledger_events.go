package events

import (
	"fmt"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

const (
	BOMCreatedEvent       = "bom.created"
	BOMDeletedEvent       = "bom.deleted"
	VersionAddedEvent     = "bom.version.added"
	VersionReviewedEvent  = "bom.version.reviewed"
	VersionDeletedEvent   = "bom.version.deleted"
	OrderCreatedEvent     = "order.created"
	OrderFinishedEvent    = "order.finished"
	OrderDeletedEvent     = "order.deleted"
	IssueGeneratedEvent   = "issue.generated"
	IssuePostedEvent      = "issue.posted"
	IssueCancelledEvent   = "issue.cancelled"
	IssuesRepairedEvent   = "issue.repaired"
	StockRecordedEvent    = "stock.recorded"
	StockReconciledEvent  = "stock.reconciled"
	AliasesMergedEvent    = "alias.merged"
	ConversionFailedEvent = "unit.conversion_failed"
)

// AllEventTypes lists every event type the ledger publishes
var AllEventTypes = []string{
	BOMCreatedEvent, BOMDeletedEvent,
	VersionAddedEvent, VersionReviewedEvent, VersionDeletedEvent,
	OrderCreatedEvent, OrderFinishedEvent, OrderDeletedEvent,
	IssueGeneratedEvent, IssuePostedEvent, IssueCancelledEvent, IssuesRepairedEvent,
	StockRecordedEvent, StockReconciledEvent, AliasesMergedEvent, ConversionFailedEvent,
}

func BOMStream(id int) string   { return fmt.Sprintf("bom-%d", id) }
func OrderStream(id int) string { return fmt.Sprintf("order-%d", id) }
func IssueStream(id int) string { return fmt.Sprintf("issue-%d", id) }

func ItemStream(ref entities.ItemRef) string {
	return fmt.Sprintf("item-%s", ref)
}

type BOMChanged struct {
	BOMID int    `json:"bom_id"`
	Name  string `json:"name"`
}

type VersionChanged struct {
	BOMID     int                    `json:"bom_id"`
	VersionID int                    `json:"version_id"`
	Status    entities.VersionStatus `json:"status"`
}

type OrderChanged struct {
	OrderID   int                  `json:"order_id"`
	OrderCode string               `json:"order_code"`
	Status    entities.OrderStatus `json:"status"`
}

type OrderFinished struct {
	OrderID   int               `json:"order_id"`
	OrderCode string            `json:"order_code"`
	Item      entities.ItemRef  `json:"item"`
	Quantity  entities.Quantity `json:"quantity"`
	Unit      string            `json:"unit"`
	Operator  string            `json:"operator"`
}

type IssueGenerated struct {
	IssueID   int    `json:"issue_id"`
	IssueCode string `json:"issue_code"`
	OrderID   int    `json:"order_id"`
	Lines     int    `json:"lines"`
	Fallback  bool   `json:"fallback"`
}

type IssuePosted struct {
	IssueID   int    `json:"issue_id"`
	IssueCode string `json:"issue_code"`
	BatchID   string `json:"batch_id"`
	Entries   int    `json:"entries"`
	Skipped   int    `json:"skipped"`
	Operator  string `json:"operator"`
}

type IssueCancelled struct {
	IssueID   int    `json:"issue_id"`
	IssueCode string `json:"issue_code"`
	BatchID   string `json:"batch_id"`
	Reversed  int    `json:"reversed"`
	Operator  string `json:"operator"`
}

type IssuesRepaired struct {
	IssueIDs []int `json:"issue_ids"`
}

type StockRecorded struct {
	Entry entities.LedgerEntry `json:"entry"`
}

type StockReconciled struct {
	Drifted int  `json:"drifted"`
	Fixed   bool `json:"fixed"`
}

type AliasesMerged struct {
	Canonical entities.ItemRef   `json:"canonical"`
	Merged    []entities.ItemRef `json:"merged"`
}

type ConversionFailed struct {
	From string `json:"from"`
	To   string `json:"to"`
}
