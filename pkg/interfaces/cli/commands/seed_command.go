package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

// maxRecipeLines keeps every generated share and the water top-up positive
const maxRecipeLines = 8

// SeedConfig holds configuration for lab generation
type SeedConfig struct {
	Materials int     // Number of raw materials, excluding process water
	Recipes   int     // Number of BOMs, each with one approved version
	MaxLines  int     // Maximum raw material lines per recipe
	Stock     float64 // Opening stock multiplier (1.0 covers roughly one batch per recipe)
	Seed      int64   // Random seed for reproducible generation
	Operator  string
	Verbose   bool
	Out       io.Writer
}

// SeedCommand fills a ledger with a generated lab
type SeedCommand struct {
	config  SeedConfig
	runtime *Runtime
	rand    *rand.Rand
}

// NewSeedCommand creates a seed command. A zero seed draws one from the clock.
func NewSeedCommand(config SeedConfig, runtime *Runtime) *SeedCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Materials <= 0 {
		config.Materials = 12
	}
	if config.Recipes <= 0 {
		config.Recipes = 4
	}
	if config.MaxLines <= 0 {
		config.MaxLines = 4
	}
	if config.MaxLines > maxRecipeLines {
		config.MaxLines = maxRecipeLines
	}
	if config.MaxLines > config.Materials {
		config.MaxLines = config.Materials
	}
	if config.Stock <= 0 {
		config.Stock = 1
	}
	if config.Operator == "" {
		config.Operator = "seed"
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	config.Seed = seed

	return &SeedCommand{
		config:  config,
		runtime: runtime,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// Execute registers materials, process water and approved recipes
func (cmd *SeedCommand) Execute(ctx context.Context) error {
	svc := cmd.runtime.Service
	cfg := cmd.config

	if cfg.Verbose {
		fmt.Fprintf(cfg.Out, "Generating %d materials and %d recipes (seed %d)\n", cfg.Materials, cfg.Recipes, cfg.Seed)
	}

	materials := make([]*entities.RawMaterial, 0, cfg.Materials)
	for i := 1; i <= cfg.Materials; i++ {
		m, err := svc.RegisterRawMaterial(ctx, dto.ItemRequest{
			Name:         fmt.Sprintf("RM-%03d", i),
			Unit:         "kg",
			OpeningStock: cmd.openingStock(),
			Operator:     cfg.Operator,
		})
		if err != nil {
			return fmt.Errorf("failed to register material %d: %w", i, err)
		}
		materials = append(materials, m)
	}

	waterLike := true
	water, err := svc.RegisterRawMaterial(ctx, dto.ItemRequest{
		Name:      "process water",
		Unit:      "kg",
		WaterLike: &waterLike,
		Operator:  cfg.Operator,
	})
	if err != nil {
		return fmt.Errorf("failed to register process water: %w", err)
	}

	effective := entities.DateOf(time.Now())
	for i := 1; i <= cfg.Recipes; i++ {
		bom, err := svc.CreateBOM(ctx, dto.BOMRequest{
			Code: fmt.Sprintf("R-%03d", i),
			Name: fmt.Sprintf("formulation %03d", i),
			Type: "generated",
		})
		if err != nil {
			return fmt.Errorf("failed to create recipe %d: %w", i, err)
		}

		version, err := svc.AddVersion(ctx, dto.VersionRequest{
			BOMID:         bom.ID,
			Version:       "V1",
			EffectiveFrom: &effective,
			YieldBase:     decimal.NewFromInt(1000),
			Lines:         cmd.recipeLines(materials, water),
			Status:        entities.VersionApproved,
			CreatedBy:     cfg.Operator,
		})
		if err != nil {
			return fmt.Errorf("failed to add version to recipe %d: %w", i, err)
		}

		if cfg.Verbose {
			fmt.Fprintf(cfg.Out, "  %s %s: %d lines\n", bom.Code, bom.Name, len(version.Lines))
		}
	}

	fmt.Fprintf(cfg.Out, "Seeded %d materials and %d recipes\n", len(materials)+1, cfg.Recipes)
	return nil
}

// recipeLines picks distinct materials and tops the batch up to 1000 kg with water
func (cmd *SeedCommand) recipeLines(materials []*entities.RawMaterial, water *entities.RawMaterial) []dto.BOMLineRequest {
	count := 1 + cmd.rand.Intn(cmd.config.MaxLines)
	picked := cmd.rand.Perm(len(materials))[:count]

	remaining := int64(1000)
	lines := make([]dto.BOMLineRequest, 0, count+1)
	for _, idx := range picked {
		share := 10 + cmd.rand.Int63n(remaining/int64(count+1))
		remaining -= share
		m := materials[idx]
		lines = append(lines, dto.BOMLineRequest{
			ItemType: entities.RawMaterialItem,
			ItemID:   m.ID,
			ItemName: m.Name,
			Qty:      decimal.NewFromInt(share),
			UOM:      "kg",
		})
	}
	return append(lines, dto.BOMLineRequest{
		ItemType: entities.RawMaterialItem,
		ItemID:   water.ID,
		ItemName: water.Name,
		Qty:      decimal.NewFromInt(remaining),
		UOM:      "kg",
	})
}

func (cmd *SeedCommand) openingStock() entities.Quantity {
	base := 200 + cmd.rand.Intn(800)
	return decimal.NewFromFloat(float64(base) * cmd.config.Stock).Round(0)
}
