package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger entry and fixes the sign of its effect on stock
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementReturnIn   MovementType = "return_in"
	MovementProduceIn  MovementType = "produce_in"
	MovementConsumeOut MovementType = "consume_out"
	MovementAdjustIn   MovementType = "adjust_in"
	MovementAdjustOut  MovementType = "adjust_out"
)

// Sign is +1 for inbound movements, -1 for outbound ones and 0 for unknown types
func (m MovementType) Sign() int {
	switch m {
	case MovementIn, MovementReturnIn, MovementProduceIn, MovementAdjustIn:
		return 1
	case MovementOut, MovementConsumeOut, MovementAdjustOut:
		return -1
	default:
		return 0
	}
}

// Valid reports whether m is a known movement type
func (m MovementType) Valid() bool {
	return m.Sign() != 0
}

// DocType names the kind of document that caused a ledger entry
type DocType string

const (
	DocIssue       DocType = "ISSUE"
	DocIssueCancel DocType = "ISSUE_CANCEL"
	DocOrder       DocType = "PRODUCTION_ORDER"
	DocManual      DocType = "MANUAL"
	DocOpening     DocType = "OPENING"
	DocAliasMerge  DocType = "ALIAS_MERGE"
	DocReconcile   DocType = "RECONCILE"
)

// LedgerEntry is one immutable stock movement. Entries are never edited or
// deleted; a reversal is recorded as a compensating entry and the original
// only gains the Voided* annotation.
type LedgerEntry struct {
	ID             int          `json:"id"`
	Item           ItemRef      `json:"item"`
	ItemName       string       `json:"itemName,omitempty"`
	Type           MovementType `json:"type"`
	Quantity       Quantity     `json:"quantity"`
	Unit           string       `json:"unit"`
	Reason         string       `json:"reason,omitempty"`
	Operator       string       `json:"operator,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
	RelatedDocType DocType      `json:"relatedDocType,omitempty"`
	RelatedDocID   int          `json:"relatedDocId,omitempty"`
	BatchID        string       `json:"batchId,omitempty"`
	SnapshotStock  Quantity     `json:"snapshotStock"`
	NoStockEffect  bool         `json:"noStockEffect,omitempty"`
	VoidedByID     *int         `json:"voidedById,omitempty"`
	VoidedAt       *time.Time   `json:"voidedAt,omitempty"`
}

// Delta is the signed change this entry makes to stock
func (e *LedgerEntry) Delta() Quantity {
	if e.NoStockEffect {
		return decimal.Zero
	}
	switch e.Type.Sign() {
	case 1:
		return e.Quantity
	case -1:
		return e.Quantity.Neg()
	default:
		return decimal.Zero
	}
}

// Voided reports whether a compensating entry has reversed this one
func (e *LedgerEntry) Voided() bool {
	return e.VoidedByID != nil
}

// MarkVoided annotates the entry as reversed by entry id
func (e *LedgerEntry) MarkVoided(id int, at time.Time) {
	e.VoidedByID = &id
	e.VoidedAt = &at
}
