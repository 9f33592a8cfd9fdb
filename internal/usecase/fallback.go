package usecase

import (
	"errors"
	"fmt"
	"log"

	"github.com/karooma/backend/internal/domain"
)

// FallbackCoordinator applies the kit's degraded-mode strategies when
// the marketplace lookup is unavailable or the engine left concept items
// unfilled. It is the only place that escalates accumulated warnings
// into a kit-level status change.
type FallbackCoordinator struct {
	engine             *Engine
	enableDebugLogging bool
}

// NewFallbackCoordinator creates a fallback coordinator bound to an engine
func NewFallbackCoordinator(engine *Engine, enableDebugLogging bool) *FallbackCoordinator {
	return &FallbackCoordinator{
		engine:             engine,
		enableDebugLogging: enableDebugLogging,
	}
}

// FallbackInput carries everything the coordinator needs; all IO (manual
// product lookup, candidate fetching) happens in the curation service so
// the coordinator itself stays deterministic.
type FallbackInput struct {
	Kit            domain.Kit
	Result         CurationResult
	Pool           []domain.CandidateProduct
	CapabilityErr  error
	ManualProducts []domain.KitProduct
}

// Apply runs the fallback strategies and resolves the final kit state.
//
//   - Manual substitution: when the marketplace capability is down and
//     useManualAsins is set, admin-curated products fill their concept
//     items, marked MANUAL.
//   - Category substitution: items still unfilled are re-resolved with
//     broadened criteria (mustKeywords dropped, category/price/rating kept).
//   - Zero resolvable items leaves the kit CONCEPT_ONLY; unmet quotas
//     leave it NEEDS_REVIEW. A kit with an unmet MAIN quota is never
//     published ACTIVE.
func (f *FallbackCoordinator) Apply(in FallbackInput) CurationResult {
	products := in.Result.Products
	warnings := in.Result.Warnings
	unfilled := in.Result.Unfilled
	rules := in.Kit.Rules

	taken := make(map[string]bool, len(products))
	for _, p := range products {
		taken[p.ASIN] = true
	}

	capabilityDown := errors.Is(in.CapabilityErr, domain.ErrMarketplaceUnavailable)
	if capabilityDown {
		warnings = append(warnings, fmt.Sprintf("marketplace unavailable: %v", in.CapabilityErr))
	}

	if capabilityDown && rules.Fallback.UseManualASINs && len(in.ManualProducts) > 0 {
		products, unfilled = f.substituteManual(products, unfilled, in.ManualProducts, taken)
	}

	if rules.Fallback.SubstituteByCategory && len(unfilled) > 0 && len(in.Pool) > 0 {
		var still []domain.ConceptItem
		for _, item := range unfilled {
			broadened := item
			broadened.Criteria.MustKeywords = nil
			broadened.Criteria.OptionalKeywords = nil

			product, ok := f.engine.ResolveItem(broadened, in.Pool, rules, taken)
			if !ok {
				still = append(still, item)
				continue
			}
			taken[product.ASIN] = true
			product.Rationale = fmt.Sprintf("%s (category substitute for %q)", product.Rationale, item.Name)
			products = append(products, product)
			warnings = append(warnings, fmt.Sprintf("concept item %q filled by category substitution", item.Name))

			if f.enableDebugLogging {
				log.Printf("[FALLBACK] category substitute for %q: %s", item.Name, product.ASIN)
			}
		}
		unfilled = still
	}

	for _, item := range unfilled {
		warnings = append(warnings, fmt.Sprintf("concept item %q remains unfilled after fallback", item.Name))
	}

	products, trimWarnings := enforceMaxItems(products, rules)
	warnings = append(warnings, trimWarnings...)
	finalizeOrder(products)

	return CurationResult{
		Products: products,
		Warnings: warnings,
		Status:   resolveStatus(products, rules),
		Unfilled: unfilled,
	}
}

// substituteManual fills unfilled concept items with admin-curated
// products, matching by concept name first, then by role.
func (f *FallbackCoordinator) substituteManual(
	products []domain.KitProduct,
	unfilled []domain.ConceptItem,
	manual []domain.KitProduct,
	taken map[string]bool,
) ([]domain.KitProduct, []domain.ConceptItem) {
	var still []domain.ConceptItem

	for _, item := range unfilled {
		idx := findManual(manual, taken, func(m domain.KitProduct) bool { return m.ConceptName == item.Name })
		if idx < 0 {
			idx = findManual(manual, taken, func(m domain.KitProduct) bool { return m.Role == item.Role })
		}
		if idx < 0 {
			still = append(still, item)
			continue
		}

		m := manual[idx]
		m.ConceptName = item.Name
		m.Role = item.Role
		m.AddedVia = domain.AddedManual
		if m.Rationale == "" {
			m.Rationale = fmt.Sprintf("%s for %q: admin-curated substitute", roleLabels[item.Role], item.Name)
		}
		taken[m.ASIN] = true
		products = append(products, m)

		if f.enableDebugLogging {
			log.Printf("[FALLBACK] manual substitute for %q: %s", item.Name, m.ASIN)
		}
	}

	return products, still
}

// findManual returns the first unused manual product matching the
// predicate, -1 when none.
func findManual(manual []domain.KitProduct, taken map[string]bool, match func(domain.KitProduct) bool) int {
	for i, m := range manual {
		if taken[m.ASIN] {
			continue
		}
		if match(m) {
			return i
		}
	}
	return -1
}
