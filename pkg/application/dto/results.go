package dto

import (
	"github.com/vsinha/labledger/pkg/domain/entities"
)

// SkippedLine is an issue line that post could not apply
type SkippedLine struct {
	Line     int               `json:"line"`
	ItemType entities.ItemType `json:"itemType"`
	ItemID   int               `json:"itemId"`
	ItemName string            `json:"itemName,omitempty"`
	Reason   string            `json:"reason"`
}

// Correction records an item reference re-routed to its canonical stock row
type Correction struct {
	Line     int              `json:"line"`
	Expected string           `json:"expected"`
	Resolved entities.ItemRef `json:"resolved"`
	Created  bool             `json:"created"`
}

// ConversionWarning records a quantity passed through without a unit conversion rule
type ConversionWarning struct {
	Line     int               `json:"line"`
	Quantity entities.Quantity `json:"quantity"`
	From     string            `json:"from"`
	To       string            `json:"to"`
}

// PostResult reports the outcome of posting a material issue
type PostResult struct {
	Issue       *entities.MaterialIssue `json:"issue"`
	BatchID     string                  `json:"batchId"`
	Entries     []*entities.LedgerEntry `json:"entries"`
	Skipped     []SkippedLine           `json:"skipped"`
	Corrections []Correction            `json:"corrections"`
	Warnings    []ConversionWarning     `json:"warnings"`
}

// Partial reports whether some lines were not applied
func (r *PostResult) Partial() bool {
	return len(r.Skipped) > 0
}

// CancelResult reports the compensating entries of a cancelled posting
type CancelResult struct {
	Issue    *entities.MaterialIssue `json:"issue"`
	BatchID  string                  `json:"batchId"`
	Reversed []*entities.LedgerEntry `json:"reversed"`
}

// FinishResult reports the finished-goods credit of a production order
type FinishResult struct {
	Order      *entities.ProductionOrder `json:"order"`
	Entry      *entities.LedgerEntry     `json:"entry"`
	Created    bool                      `json:"created"`
	Converted  bool                      `json:"converted"`
	SourceUnit string                    `json:"sourceUnit"`
}

// IssueResult is a generated or refreshed draft issue
type IssueResult struct {
	Issue           *entities.MaterialIssue `json:"issue"`
	VersionID       int                     `json:"versionId"`
	VersionFallback bool                    `json:"versionFallback"`
	Refreshed       bool                    `json:"refreshed"`
}

// RepairReport lists the draft issues a repair sweep refreshed
type RepairReport struct {
	Repaired []int `json:"repaired"`
	Failed   []int `json:"failed"`
}

// Balance is one item's cached stock next to its ledger sum
type Balance struct {
	Item      entities.ItemRef  `json:"item"`
	Name      string            `json:"name"`
	Unit      string            `json:"unit"`
	Stock     entities.Quantity `json:"stock"`
	Ledger    entities.Quantity `json:"ledger"`
	Entries   int               `json:"entries"`
	InSync    bool              `json:"inSync"`
	WaterLike bool              `json:"waterLike"`
}

// Drift is an item whose cached stock disagrees with its ledger
type Drift struct {
	Item     entities.ItemRef  `json:"item"`
	Name     string            `json:"name"`
	Cached   entities.Quantity `json:"cached"`
	Computed entities.Quantity `json:"computed"`
}

// ReconcileReport lists drifted items and whether they were rewritten
type ReconcileReport struct {
	Checked int     `json:"checked"`
	Drifts  []Drift `json:"drifts"`
	Fixed   bool    `json:"fixed"`
}

// MergeReport lists duplicate rows folded into a canonical item
type MergeReport struct {
	Canonical entities.ItemRef        `json:"canonical"`
	Merged    []entities.ItemRef      `json:"merged"`
	Removed   []entities.ItemRef      `json:"removed"`
	Entries   []*entities.LedgerEntry `json:"entries"`
}

// BOMTreeNode is one level of a recursive BOM structure
type BOMTreeNode struct {
	BOMID     int                `json:"bomId,omitempty"`
	Code      string             `json:"code,omitempty"`
	Name      string             `json:"name"`
	VersionID int                `json:"versionId,omitempty"`
	ItemType  entities.ItemType  `json:"itemType,omitempty"`
	ItemID    int                `json:"itemId,omitempty"`
	Qty       *entities.Quantity `json:"qty,omitempty"`
	UOM       string             `json:"uom,omitempty"`
	Phase     string             `json:"phase,omitempty"`
	Loop      bool               `json:"loop,omitempty"`
	Children  []*BOMTreeNode     `json:"children,omitempty"`
}

// Requirement is one raw material's per-batch need against its stock, both in kg
type Requirement struct {
	ItemID      int               `json:"itemId"`
	Name        string            `json:"name"`
	PerBatch    entities.Quantity `json:"perBatch"`
	Available   entities.Quantity `json:"available"`
	Unconverted bool              `json:"unconverted,omitempty"`
}

// PlanCandidate is one recipe evaluated for feasibility
type PlanCandidate struct {
	BOMID        int               `json:"bomId"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	VersionID    int               `json:"versionId"`
	Requirements []Requirement     `json:"requirements"`
	Scarcity     entities.Quantity `json:"scarcity"`
	MaxBatches   int64             `json:"maxBatches"`
}

// ProductionPlan ranks recipes by how far current stock can carry them
type ProductionPlan struct {
	BatchQty   entities.Quantity        `json:"batchQty"`
	Candidates []PlanCandidate          `json:"candidates"`
	Best       map[string]PlanCandidate `json:"best"`
}

// LineChange is a BOM line present in both versions with different quantity or unit
type LineChange struct {
	Old entities.BOMLine `json:"old"`
	New entities.BOMLine `json:"new"`
}

// VersionDiff compares the lines of two versions by item
type VersionDiff struct {
	OldVersionID int                `json:"oldVersionId"`
	NewVersionID int                `json:"newVersionId"`
	Added        []entities.BOMLine `json:"added"`
	Deleted      []entities.BOMLine `json:"deleted"`
	Modified     []LineChange       `json:"modified"`
}

// UsageStat counts released or finished orders consuming one raw material
type UsageStat struct {
	ItemID   int               `json:"itemId"`
	Name     string            `json:"name"`
	Orders   int               `json:"orders"`
	Quantity entities.Quantity `json:"quantity"`
	Unit     string            `json:"unit"`
}
