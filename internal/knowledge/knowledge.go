// Package knowledge assembles a brand's context rows into the tiered,
// size-bounded structure consumed by reply generation.
package knowledge

import (
	"context"
	"time"

	"github.com/Pbezama/admin-panel-back/internal/store"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// Bounds on the assembled context so prompts stay a predictable size.
const (
	maxRelevant           = 10
	maxPromotions         = 5
	maxPublications       = 3
	relevantValueRunes    = 200
	publicationValueRunes = 150
)

// Item is one fact included in generation context.
type Item struct {
	Categoria string
	Clave     string
	Valor     string
}

// BrandContext buckets a brand's facts by obligation tier. Always is
// included verbatim in every prompt; Relevant when topically applicable;
// OnQuestion only when the user asks directly.
type BrandContext struct {
	BrandName    string
	Always       []Item
	Relevant     []Item
	OnQuestion   []Item
	Promotions   []Item
	Publications []Item
}

// ContextLister is the slice of the store the assembler needs.
type ContextLister interface {
	ListActiveContextRows(ctx context.Context, brandID string) ([]store.ContextRow, error)
}

// Assembler loads and buckets brand context.
type Assembler struct {
	store  ContextLister
	logger logging.Logger
	now    func() time.Time
}

func NewAssembler(s ContextLister, logger logging.Logger) *Assembler {
	return &Assembler{store: s, logger: logger, now: time.Now}
}

// Assemble returns the tiered context for a brand, or nil when the brand
// has no active rows at all (callers fall back to a static reply).
// Bucketing is independent of row order: publication rows always land in
// Relevant regardless of stored priority, expired rows are excluded
// regardless of tier.
func (a *Assembler) Assemble(ctx context.Context, brandID string) (*BrandContext, error) {
	rows, err := a.store.ListActiveContextRows(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	bc := &BrandContext{BrandName: "Marca desconocida"}
	if rows[0].BrandName.Valid && rows[0].BrandName.String != "" {
		bc.BrandName = rows[0].BrandName.String
	}

	now := a.now()
	for _, row := range rows {
		if row.FechaCaducidad.Valid && row.FechaCaducidad.Time.Before(now) {
			continue
		}

		switch row.Categoria {
		case "promocion", "promo":
			bc.Promotions = append(bc.Promotions, Item{Categoria: row.Categoria, Clave: row.Clave, Valor: row.Valor})

		case "publicacion":
			bc.Publications = append(bc.Publications, Item{
				Categoria: row.Categoria,
				Clave:     row.Clave,
				Valor:     truncateRunes(row.Valor, publicationValueRunes),
			})
			bc.Relevant = append(bc.Relevant, Item{
				Categoria: row.Categoria,
				Clave:     row.Clave,
				Valor:     truncateRunes(row.Valor, relevantValueRunes),
			})

		default:
			item := Item{Categoria: row.Categoria, Clave: row.Clave, Valor: row.Valor}
			switch {
			case row.Prioridad <= 1:
				bc.Always = append(bc.Always, item)
			case row.Prioridad <= 3:
				item.Valor = truncateRunes(item.Valor, relevantValueRunes)
				bc.Relevant = append(bc.Relevant, item)
			default:
				bc.OnQuestion = append(bc.OnQuestion, item)
			}
		}
	}

	bc.Relevant = capItems(bc.Relevant, maxRelevant)
	bc.Promotions = capItems(bc.Promotions, maxPromotions)
	bc.Publications = capItems(bc.Publications, maxPublications)

	a.logger.WithFields(logging.Fields{
		"brand_id":     brandID,
		"always":       len(bc.Always),
		"relevant":     len(bc.Relevant),
		"on_question":  len(bc.OnQuestion),
		"promotions":   len(bc.Promotions),
		"publications": len(bc.Publications),
	}).Debug("Assembled brand context")

	return bc, nil
}

func capItems(items []Item, max int) []Item {
	if len(items) > max {
		return items[:max]
	}
	return items
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
