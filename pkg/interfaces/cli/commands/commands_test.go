package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/labledger/pkg/config"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

func newMemoryRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: "memory", DocumentName: "default"},
		Lock:    config.LockConfig{Backend: "memory"},
		Ledger: config.LedgerConfig{
			PostPolicy:       "tolerant",
			DefaultYieldBase: decimal.NewFromInt(1000),
			ProductStockUnit: "kg",
		},
	}
	rt, err := NewRuntime(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })
	return rt
}

func seed(t *testing.T, rt *Runtime) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewSeedCommand(SeedConfig{Materials: 5, Recipes: 2, Seed: 42, Out: &out}, rt)
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, out.String(), "Seeded 6 materials and 2 recipes")
}

func TestSeedCommand_RecipesBalanceToYieldBase(t *testing.T) {
	rt := newMemoryRuntime(t)
	seed(t, rt)
	ctx := context.Background()

	boms, err := rt.Service.ListBOMs(ctx)
	require.NoError(t, err)
	require.Len(t, boms, 2)

	for _, bom := range boms {
		versions, err := rt.Service.ListVersions(ctx, bom.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, entities.VersionApproved, versions[0].Status)

		total := decimal.Zero
		for _, l := range versions[0].Lines {
			assert.True(t, l.Qty.IsPositive())
			total = total.Add(l.Qty)
		}
		assert.True(t, total.Equal(decimal.NewFromInt(1000)), "recipe %s totals %s", bom.Code, total)
	}
}

func TestLedgerCommand_Explode(t *testing.T) {
	rt := newMemoryRuntime(t)
	seed(t, rt)

	var out bytes.Buffer
	cmd := NewLedgerCommand(Config{Args: []string{"explode", "1", "500"}, Out: &out}, rt)
	require.NoError(t, cmd.Execute(context.Background()))

	assert.Contains(t, out.String(), "RM-")
	assert.Contains(t, out.String(), "process water")
}

func TestLedgerCommand_ReconcileJSON(t *testing.T) {
	rt := newMemoryRuntime(t)
	seed(t, rt)

	var out bytes.Buffer
	cmd := NewLedgerCommand(Config{Args: []string{"reconcile"}, Format: "json", Out: &out}, rt)
	require.NoError(t, cmd.Execute(context.Background()))

	var report struct {
		Checked int               `json:"checked"`
		Drifts  []json.RawMessage `json:"drifts"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 6, report.Checked)
	assert.Empty(t, report.Drifts)
}

func TestLedgerCommand_Rejects(t *testing.T) {
	rt := newMemoryRuntime(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"teleport"}, "unknown command"},
		{"missing argument", []string{"post"}, "usage: post"},
		{"bad id", []string{"cancel", "x"}, "positive integer"},
		{"bad item type", []string{"balance", "widget", "1"}, "unknown item type"},
		{"missing issue", []string{"post", "7"}, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewLedgerCommand(Config{Args: tt.args, Out: &bytes.Buffer{}}, rt)
			err := cmd.Execute(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLedgerCommand_HelpWithoutArgs(t *testing.T) {
	rt := newMemoryRuntime(t)

	var out bytes.Buffer
	require.NoError(t, NewLedgerCommand(Config{Out: &out}, rt).Execute(context.Background()))
	assert.Contains(t, out.String(), "COMMANDS:")
}

func TestShellCommand_Session(t *testing.T) {
	rt := newMemoryRuntime(t)
	seed(t, rt)

	in := strings.NewReader("balance raw_material 1\nteleport\nquit\nbalance raw_material 2\n")
	var out bytes.Buffer
	shell := NewShellCommand(Config{Out: &out}, rt, in)
	require.NoError(t, shell.Execute(context.Background()))

	session := out.String()
	assert.Contains(t, session, "RM-001")
	assert.Contains(t, session, "Error: unknown command: teleport")
	assert.Contains(t, session, "Goodbye!")
	assert.NotContains(t, session, "RM-002")
}
