package entities

import "testing"

func TestProductionOrder_Validation(t *testing.T) {
	order, err := NewProductionOrder("MO-1", 1, 0, Qty(2000), "kg")
	if err != nil {
		t.Fatalf("Expected valid order creation to succeed: %v", err)
	}
	if order.Status != OrderDraft {
		t.Errorf("Expected draft status, got %s", order.Status)
	}

	testCases := []struct {
		name        string
		bomID       int
		versionID   int
		planQty     Quantity
		expectError string
	}{
		{"zero bom", 0, 0, Qty(1), "bom id must be positive, got 0"},
		{"negative version", 1, -1, Qty(1), "bom version id cannot be negative, got -1"},
		{"zero qty", 1, 0, Qty(0), "plan quantity must be positive, got 0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProductionOrder("", tc.bomID, tc.versionID, tc.planQty, "kg")
			if err == nil || err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got %v", tc.expectError, err)
			}
		})
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderDraft, OrderReleased, true},
		{OrderDraft, OrderFinished, true},
		{OrderReleased, OrderFinished, true},
		{OrderReleased, OrderDraft, false},
		{OrderFinished, OrderReleased, false},
		{OrderFinished, OrderFinished, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
	if !OrderFinished.Terminal() {
		t.Error("Expected finished to be terminal")
	}
}

func TestIssueStatus_Transitions(t *testing.T) {
	if !IssueDraft.CanTransitionTo(IssuePosted) || !IssuePosted.CanTransitionTo(IssueDraft) {
		t.Error("Expected draft <-> posted")
	}
	if IssuePosted.CanTransitionTo(IssuePosted) {
		t.Error("Expected posted -> posted to be rejected")
	}
}
