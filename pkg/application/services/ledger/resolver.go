package ledger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/domain/entities"
)

// resolution is the outcome of mapping an issue or order reference onto a stock row
type resolution struct {
	item      entities.StockItem
	corrected bool
	created   bool
}

// nameCandidates returns name and, for "CODE-name" spellings, the part after the first dash
func nameCandidates(names ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(n string) {
		key := entities.NormalizeName(n)
		if key != "" && !seen[key] {
			seen[key] = true
			out = append(out, n)
		}
	}
	for _, n := range names {
		add(n)
		if i := strings.Index(n, "-"); i > 0 && i < len(n)-1 {
			add(n[i+1:])
		}
	}
	return out
}

// findByName looks an item of type t up through the alias table, then by its own name
func findByName(doc *entities.Document, t entities.ItemType, name string) entities.StockItem {
	if a := doc.Alias(name); a != nil && a.Item.Type == t {
		if item := doc.Item(a.Item); item != nil {
			return item
		}
	}
	key := entities.NormalizeName(name)
	for _, item := range doc.Items(t) {
		if entities.NormalizeName(item.ItemName()) == key {
			return item
		}
	}
	return nil
}

func sameName(a, b string) bool {
	return entities.NormalizeName(a) == entities.NormalizeName(b)
}

// resolveLine maps an issue line onto its stock row. Raw materials resolve by id,
// then by name; products resolve by name first so renamed rows are re-routed to the
// canonical item, and are created when no row exists. A nil item means unresolvable.
func (s *Service) resolveLine(t *tx, line entities.IssueLine) resolution {
	switch line.ItemType {
	case entities.RawMaterialItem:
		if m := t.doc.RawMaterial(line.ItemID); m != nil {
			return resolution{item: m}
		}
		if line.ItemName == "" {
			return resolution{}
		}
		if item := findByName(t.doc, entities.RawMaterialItem, line.ItemName); item != nil {
			return resolution{item: item, corrected: true}
		}
		return resolution{}

	case entities.ProductItem:
		if p := t.doc.Product(line.ItemID); p != nil && (line.ItemName == "" || sameName(p.Name, line.ItemName)) {
			return resolution{item: p}
		}
		if line.ItemName == "" {
			return resolution{}
		}
		for _, name := range nameCandidates(line.ItemName) {
			if item := findByName(t.doc, entities.ProductItem, name); item != nil {
				return resolution{item: item, corrected: true}
			}
		}
		return resolution{item: s.createProduct(t, line.ItemName, "", s.stockUnit), corrected: true, created: true}
	}
	return resolution{}
}

// resolveOutput maps a BOM onto the product row its orders credit, creating it on first use
func (s *Service) resolveOutput(t *tx, bom *entities.BOM) resolution {
	output := bom.OutputName()
	for _, name := range nameCandidates(output, bom.Name) {
		if item := findByName(t.doc, entities.ProductItem, name); item != nil {
			return resolution{item: item, corrected: !sameName(item.ItemName(), output)}
		}
	}

	p := s.createProduct(t, output, bom.Type, s.stockUnit)
	if !sameName(bom.Name, output) && t.doc.Alias(bom.Name) == nil {
		t.doc.ItemAliases = append(t.doc.ItemAliases, &entities.ItemAlias{Alias: entities.NormalizeName(bom.Name), Item: p.Ref()})
	}
	return resolution{item: p, created: true}
}

func (s *Service) createProduct(t *tx, name, productType, unit string) *entities.ProductStock {
	p := &entities.ProductStock{
		ID:            t.doc.NextProductID(),
		Name:          name,
		Type:          productType,
		StockQuantity: entities.Qty(0),
		Unit:          unit,
		LastUpdate:    stamp(t),
	}
	t.doc.ProductInventory = append(t.doc.ProductInventory, p)
	s.logger.Info("created product stock row on first reference",
		zap.String("name", name),
		zap.Int("item_id", p.ID),
		zap.String("unit", unit),
	)
	return p
}

func (s *Service) logCorrection(expected string, r resolution) {
	s.logger.Info("item reference re-routed to canonical stock row",
		zap.String("expected", expected),
		zap.String("resolved_item", r.item.Ref().String()),
		zap.Int("resolved_item_id", r.item.Ref().ID),
		zap.Bool("created", r.created),
	)
}
