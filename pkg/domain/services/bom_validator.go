package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// BOMValidator checks BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]int
	DuplicateLines []entities.BOMLine
	Errors         []string
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err folds the result into a ValidationError, or nil when valid
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &entities.ValidationError{Field: "lines", Reason: r.Errors[0]}
}

// ValidateLines rejects malformed lines and lines that repeat an item within the same phase
func (v *BOMValidator) ValidateLines(lines []entities.BOMLine) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]int, 0),
		DuplicateLines: make([]entities.BOMLine, 0),
		Errors:         make([]string, 0),
	}

	for i, line := range lines {
		if !line.ItemType.Valid() {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: unknown item type %q", i+1, line.ItemType))
		}
		if line.ItemID <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: item id must be positive", i+1))
		}
		if !line.Qty.IsPositive() {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: quantity must be positive, got %s", i+1, line.Qty))
		}
	}

	result.DuplicateLines = v.detectDuplicateLines(lines)
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM lines", len(result.DuplicateLines)))
	}
	return result
}

// ValidateStructure runs cycle detection over a sub-BOM graph (bom id -> child bom ids)
func (v *BOMValidator) ValidateStructure(graph map[int][]int) *ValidationResult {
	result := &ValidationResult{Errors: make([]string, 0)}
	result.CyclePaths = v.detectCycles(graph)
	result.HasCycles = len(result.CyclePaths) > 0
	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	return result
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(graph map[int][]int) [][]int {
	visited := make(map[int]bool)
	recursionStack := make(map[int]bool)
	cycles := make([][]int, 0)

	for _, parent := range sortedKeys(graph) {
		if !visited[parent] {
			v.dfsDetectCycle(parent, graph, visited, recursionStack, nil, &cycles)
		}
	}
	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current int,
	graph map[int][]int,
	visited map[int]bool,
	recursionStack map[int]bool,
	path []int,
	cycles *[][]int,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range graph[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, graph, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, id := range path {
			if id == child {
				cycle := append(append([]int{}, path[i:]...), child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateLines finds lines naming the same item in the same phase
func (v *BOMValidator) detectDuplicateLines(lines []entities.BOMLine) []entities.BOMLine {
	seen := make(map[string]entities.BOMLine)
	duplicates := make([]entities.BOMLine, 0)

	for _, line := range lines {
		key := fmt.Sprintf("%s|%d|%s", line.ItemType, line.ItemID, line.Phase)
		if existing, ok := seen[key]; ok {
			duplicates = append(duplicates, line, existing)
		} else {
			seen[key] = line
		}
	}
	return duplicates
}

func sortedKeys(graph map[int][]int) []int {
	keys := make([]int, 0, len(graph))
	for k := range graph {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
