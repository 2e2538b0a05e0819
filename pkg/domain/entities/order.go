package entities

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of a production order
type OrderStatus string

const (
	OrderDraft    OrderStatus = "draft"
	OrderReleased OrderStatus = "released"
	OrderFinished OrderStatus = "finished"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderDraft:    {OrderReleased, OrderFinished},
	OrderReleased: {OrderFinished},
	OrderFinished: {},
}

// CanTransitionTo reports whether an order may move from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// ProductionOrder is a request to produce PlanQty of a BOM's output
type ProductionOrder struct {
	ID           int         `json:"id"`
	OrderCode    string      `json:"orderCode"`
	BOMID        int         `json:"bomId"`
	BOMVersionID int         `json:"bomVersionId,omitempty"`
	PlanQty      Quantity    `json:"planQty"`
	Unit         string      `json:"unit,omitempty"`
	Status       OrderStatus `json:"status"`
	StartDate    *Date       `json:"startDate,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	FinishedAt   *time.Time  `json:"finishedAt,omitempty"`
	FinishedBy   string      `json:"finishedBy,omitempty"`
	LastModified *time.Time  `json:"lastModified,omitempty"`
}

// NewProductionOrder creates a validated draft order
func NewProductionOrder(orderCode string, bomID, bomVersionID int, planQty Quantity, unit string) (*ProductionOrder, error) {
	if bomID <= 0 {
		return nil, fmt.Errorf("bom id must be positive, got %d", bomID)
	}
	if bomVersionID < 0 {
		return nil, fmt.Errorf("bom version id cannot be negative, got %d", bomVersionID)
	}
	if !planQty.IsPositive() {
		return nil, fmt.Errorf("plan quantity must be positive, got %s", planQty)
	}
	return &ProductionOrder{
		OrderCode:    orderCode,
		BOMID:        bomID,
		BOMVersionID: bomVersionID,
		PlanQty:      planQty,
		Unit:         unit,
		Status:       OrderDraft,
	}, nil
}

// IssueStatus is the posting state of a material issue
type IssueStatus string

const (
	IssueDraft  IssueStatus = "draft"
	IssuePosted IssueStatus = "posted"
)

// CanTransitionTo reports whether an issue may move from s to next
func (s IssueStatus) CanTransitionTo(next IssueStatus) bool {
	switch s {
	case IssueDraft:
		return next == IssuePosted
	case IssuePosted:
		return next == IssueDraft
	default:
		return false
	}
}

// IssueLine is one material requirement of an issue, scaled to the order's plan quantity
type IssueLine struct {
	ItemType    ItemType `json:"itemType"`
	ItemID      int      `json:"itemId"`
	ItemName    string   `json:"itemName,omitempty"`
	RequiredQty Quantity `json:"requiredQty"`
	UOM         string   `json:"uom"`
	Phase       string   `json:"phase,omitempty"`
}

// Ref returns the stock item the line points at
func (l IssueLine) Ref() ItemRef {
	return ItemRef{Type: l.ItemType, ID: l.ItemID}
}

// MaterialIssue is the pick list of materials for one production order
type MaterialIssue struct {
	ID                int         `json:"id"`
	IssueCode         string      `json:"issueCode"`
	ProductionOrderID int         `json:"productionOrderId"`
	Status            IssueStatus `json:"status"`
	Lines             []IssueLine `json:"lines"`
	CreatedAt         time.Time   `json:"createdAt"`
	PostedAt          *time.Time  `json:"postedAt,omitempty"`
	PostedBy          string      `json:"postedBy,omitempty"`
	CancelledAt       *time.Time  `json:"cancelledAt,omitempty"`
	LastModified      *time.Time  `json:"lastModified,omitempty"`
}
