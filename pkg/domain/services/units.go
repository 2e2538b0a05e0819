package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// Dimension groups units that can be converted into each other
type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
)

type unitRule struct {
	dimension Dimension
	factor    decimal.Decimal // amount of the dimension's base unit in one of this unit
}

// UnitDefinition describes one canonical unit and its spellings
type UnitDefinition struct {
	Name      string    `yaml:"name"`
	Dimension Dimension `yaml:"dimension"`
	Factor    float64   `yaml:"factor"`
	Aliases   []string  `yaml:"aliases"`
}

// UnitTable is the on-disk shape of an additional unit table
type UnitTable struct {
	Units []UnitDefinition `yaml:"units"`
}

// UnitConverter converts quantities between mass and volume units.
// Base units are kg for mass and L for volume.
type UnitConverter struct {
	mu      sync.RWMutex
	aliases map[string]string
	rules   map[string]unitRule
}

// NewUnitConverter returns a converter preloaded with the standard lab units
func NewUnitConverter() *UnitConverter {
	c := &UnitConverter{
		aliases: make(map[string]string),
		rules:   make(map[string]unitRule),
	}
	for _, def := range defaultUnits {
		if err := c.AddUnit(def); err != nil {
			panic(err)
		}
	}
	return c
}

var defaultUnits = []UnitDefinition{
	{Name: "kg", Dimension: Mass, Factor: 1, Aliases: []string{"kgs", "公斤", "千克"}},
	{Name: "ton", Dimension: Mass, Factor: 1000, Aliases: []string{"tons", "t", "吨"}},
	{Name: "g", Dimension: Mass, Factor: 0.001, Aliases: []string{"gram", "grams", "克"}},
	{Name: "mg", Dimension: Mass, Factor: 0.000001, Aliases: []string{"毫克"}},
	{Name: "lb", Dimension: Mass, Factor: 0.453592, Aliases: []string{"lbs", "磅"}},
	{Name: "l", Dimension: Volume, Factor: 1, Aliases: []string{"liter", "liters", "litre", "升"}},
	{Name: "ml", Dimension: Volume, Factor: 0.001, Aliases: []string{"milliliter", "milliliters", "毫升"}},
	{Name: "m3", Dimension: Volume, Factor: 1000, Aliases: []string{"立方米"}},
}

// AddUnit registers a canonical unit with its aliases, replacing any previous definition
func (c *UnitConverter) AddUnit(def UnitDefinition) error {
	name := foldUnit(def.Name)
	if name == "" {
		return fmt.Errorf("unit name cannot be empty")
	}
	if def.Dimension != Mass && def.Dimension != Volume {
		return fmt.Errorf("unit %s: unknown dimension %q", def.Name, def.Dimension)
	}
	if def.Factor <= 0 {
		return fmt.Errorf("unit %s: factor must be positive, got %v", def.Name, def.Factor)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[name] = unitRule{dimension: def.Dimension, factor: decimal.NewFromFloat(def.Factor)}
	c.aliases[name] = name
	for _, alias := range def.Aliases {
		if a := foldUnit(alias); a != "" {
			c.aliases[a] = name
		}
	}
	return nil
}

// Apply registers every unit of table
func (c *UnitConverter) Apply(table UnitTable) error {
	for _, def := range table.Units {
		if err := c.AddUnit(def); err != nil {
			return err
		}
	}
	return nil
}

// Normalize maps a unit spelling to its canonical name.
// Unknown units come back lowercased and trimmed.
func (c *UnitConverter) Normalize(unit string) string {
	folded := foldUnit(unit)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if canonical, ok := c.aliases[folded]; ok {
		return canonical
	}
	return folded
}

// Known reports whether unit has a conversion rule
func (c *UnitConverter) Known(unit string) bool {
	name := c.Normalize(unit)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rules[name]
	return ok
}

// Convert converts qty from one unit to another. When the units are equal after
// normalization qty is returned as is. When no rule links them, qty is returned
// unconverted with ok=false and the caller decides how loudly to complain.
func (c *UnitConverter) Convert(qty entities.Quantity, from, to string) (entities.Quantity, bool) {
	src, dst := c.Normalize(from), c.Normalize(to)
	if src == dst {
		return qty, true
	}

	c.mu.RLock()
	srcRule, okSrc := c.rules[src]
	dstRule, okDst := c.rules[dst]
	c.mu.RUnlock()

	if !okSrc || !okDst || srcRule.dimension != dstRule.dimension {
		return qty, false
	}
	return qty.Mul(srcRule.factor).Div(dstRule.factor), true
}

func foldUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
