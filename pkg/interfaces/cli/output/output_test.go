package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
)

func TestGenerate_Explosion(t *testing.T) {
	lines := []services.ExplodedLine{
		{ItemType: entities.RawMaterialItem, ItemID: 1, ItemName: "aluminium sulfate", RequiredQty: entities.Qty(125), UOM: "kg"},
		{ItemType: entities.RawMaterialItem, ItemID: 2, ItemName: "diethanolamine", RequiredQty: entities.Qty(12.5), UOM: "kg"},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, lines, Config{Format: "text"}))

	out := buf.String()
	assert.Contains(t, out, "aluminium sulfate")
	assert.Contains(t, out, "125.000")
	assert.Contains(t, out, "12.500")
}

func TestGenerate_PartialPost(t *testing.T) {
	result := &dto.PostResult{
		Issue:   &entities.MaterialIssue{IssueCode: "ISS-20240701-0001"},
		BatchID: "b-1",
		Entries: []*entities.LedgerEntry{{ID: 1}},
		Skipped: []dto.SkippedLine{{Line: 2, ItemType: entities.RawMaterialItem, ItemID: 99, Reason: "item not found"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, result, Config{}))

	out := buf.String()
	assert.Contains(t, out, "Posted ISS-20240701-0001: 1 entries")
	assert.Contains(t, out, "Partially applied, 1 lines skipped")
	assert.Contains(t, out, "item not found")
}

func TestGenerate_BalanceOutOfSync(t *testing.T) {
	b := &dto.Balance{
		Item:   entities.ItemRef{Type: entities.RawMaterialItem, ID: 1},
		Name:   "aluminium sulfate",
		Unit:   "kg",
		Stock:  entities.Qty(10),
		Ledger: entities.Qty(12),
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, b, Config{}))
	assert.Contains(t, buf.String(), "OUT OF SYNC")
}

func TestGenerate_JSON(t *testing.T) {
	report := &dto.RepairReport{Repaired: []int{1, 2}}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, report, Config{Format: "json"}))

	var decoded dto.RepairReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []int{1, 2}, decoded.Repaired)
}

func TestGenerate_UnknownFormat(t *testing.T) {
	err := Generate(&bytes.Buffer{}, nil, Config{Format: "csv"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "csv"))
}
