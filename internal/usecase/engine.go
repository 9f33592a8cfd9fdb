package usecase

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/karooma/backend/internal/domain"
)

// EngineConfig holds configuration for the curation engine
type EngineConfig struct {
	GroupBoostCap      float64
	EnableDebugLogging bool
}

// Engine orchestrates candidate scoring, role allocation and constraint
// enforcement for a single kit. Curation is a pure, deterministic
// computation over in-memory lists: identical inputs always produce an
// identical product list, same order, same scores.
type Engine struct {
	evaluator          *Evaluator
	enableDebugLogging bool
}

// NewEngine creates a new curation engine with the given configuration
func NewEngine(config EngineConfig) *Engine {
	return &Engine{
		evaluator: NewEvaluator(EvaluatorConfig{
			GroupBoostCap:      config.GroupBoostCap,
			EnableDebugLogging: config.EnableDebugLogging,
		}),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// CurationResult is the engine's output contract, consumed by the
// fallback coordinator and the curation service.
type CurationResult struct {
	Products []domain.KitProduct
	Warnings []string
	Status   domain.KitStatus
	Unfilled []domain.ConceptItem
}

// scoredCandidate pairs a candidate with its evaluation for one concept item
type scoredCandidate struct {
	product   domain.CandidateProduct
	match     domain.MatchResult
	rankScore float64
}

// Curate selects, scores and classifies products for a kit's concept
// items under the rule set's constraints.
//
// Rule set violations are configuration errors and fail fast with ERROR.
// Candidate-pool exhaustion is a warning, never an exception: one concept
// item's shortfall does not abort the others.
func (e *Engine) Curate(
	conceptItems []domain.ConceptItem,
	candidates []domain.CandidateProduct,
	rules domain.RuleSet,
) CurationResult {
	if err := rules.Validate(); err != nil {
		return CurationResult{
			Status:   domain.StatusError,
			Warnings: []string{fmt.Sprintf("configuration error: %v", err)},
		}
	}
	for _, item := range conceptItems {
		if err := item.Validate(); err != nil {
			return CurationResult{
				Status:   domain.StatusError,
				Warnings: []string{fmt.Sprintf("configuration error: %v", err)},
			}
		}
	}

	// Global filters reduce the pool once, before per-item criteria.
	pool := applyGlobalFilters(candidates, rules)
	if e.enableDebugLogging {
		log.Printf("[ENGINE] global filters: %d of %d candidates remain", len(pool), len(candidates))
	}

	ordered := allocationOrder(conceptItems)
	roleMax := maxRoleScores(conceptItems, rules)

	var (
		products []domain.KitProduct
		warnings []string
		unfilled []domain.ConceptItem
		taken    = make(map[string]bool)
	)

	for _, item := range ordered {
		ranked := e.rankForItem(item, pool, rules, roleMax)

		picked := false
		for _, sc := range ranked {
			if taken[sc.product.ASIN] {
				continue
			}
			taken[sc.product.ASIN] = true
			products = append(products, buildKitProduct(item, sc))
			picked = true
			break
		}

		if !picked {
			unfilled = append(unfilled, item)
			warnings = append(warnings, fmt.Sprintf("no qualifying candidate for concept item %q (%s)", item.Name, item.Role))
		}
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

// ResolveItem re-runs scoring and allocation for a single concept item
// against a pool, skipping candidates already taken in this run. Used by
// the fallback coordinator's category-substitution pass. The rank score
// here is the bare task match score: with a single item there is no
// cross-role competition to weight.
func (e *Engine) ResolveItem(
	item domain.ConceptItem,
	pool []domain.CandidateProduct,
	rules domain.RuleSet,
	taken map[string]bool,
) (domain.KitProduct, bool) {
	filtered := applyGlobalFilters(pool, rules)

	roleMax := map[domain.Role]float64{
		item.Role: item.Weight * rules.TypeWeight(item.Role),
	}
	ranked := e.rankForItem(item, filtered, rules, roleMax)

	for _, sc := range ranked {
		if taken[sc.product.ASIN] {
			continue
		}
		return buildKitProduct(item, sc), true
	}
	return domain.KitProduct{}, false
}

// rankForItem scores the pool against one concept item and sorts it
// deterministically: rankScore desc, reviewCount desc, rating desc,
// asin asc.
func (e *Engine) rankForItem(
	item domain.ConceptItem,
	pool []domain.CandidateProduct,
	rules domain.RuleSet,
	roleMax map[domain.Role]float64,
) []scoredCandidate {
	ranked := make([]scoredCandidate, 0, len(pool))

	for _, candidate := range pool {
		match := e.evaluator.Score(candidate, item.Criteria, rules.KeywordGroups)
		if !match.PassesHardFilters {
			continue
		}

		raw := match.TaskMatchScore * item.Weight * rules.TypeWeight(item.Role)
		rank := 0.0
		if max := roleMax[item.Role]; max > 0 {
			rank = raw / max
		}

		ranked = append(ranked, scoredCandidate{
			product:   candidate,
			match:     match,
			rankScore: rank,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.rankScore != b.rankScore {
			return a.rankScore > b.rankScore
		}
		if a.product.ReviewCount != b.product.ReviewCount {
			return a.product.ReviewCount > b.product.ReviewCount
		}
		if a.product.Rating != b.product.Rating {
			return a.product.Rating > b.product.Rating
		}
		return a.product.ASIN < b.product.ASIN
	})

	return ranked
}

// applyGlobalFilters applies the rule set's kit-wide filters: price
// range, rating floor, Prime-only, excluded ASINs and allowed categories.
func applyGlobalFilters(candidates []domain.CandidateProduct, rules domain.RuleSet) []domain.CandidateProduct {
	excluded := make(map[string]bool, len(rules.ExcludeASINs))
	for _, asin := range rules.ExcludeASINs {
		excluded[asin] = true
	}

	allowed := make(map[string]bool, len(rules.AllowedCategories))
	for _, cat := range rules.AllowedCategories {
		allowed[strings.ToLower(cat)] = true
	}

	var pool []domain.CandidateProduct
	for _, c := range candidates {
		if excluded[c.ASIN] {
			continue
		}
		if rules.PriceRange.Min > 0 && c.Price < rules.PriceRange.Min {
			continue
		}
		if rules.PriceRange.Max > 0 && c.Price > rules.PriceRange.Max {
			continue
		}
		if rules.RatingMin > 0 && c.Rating < rules.RatingMin {
			continue
		}
		if rules.PrimeOnly && !c.IsPrime {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(c.Category)] {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// allocationOrder returns concept items sorted by role priority, then
// weight descending within role, then name ascending. When two items of
// the same role compete for the same top candidate, the first allocated
// wins under this ordering.
func allocationOrder(items []domain.ConceptItem) []domain.ConceptItem {
	ordered := make([]domain.ConceptItem, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Role.Priority() != b.Role.Priority() {
			return a.Role.Priority() < b.Role.Priority()
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Name < b.Name
	})

	return ordered
}

// maxRoleScores computes the theoretical maximum raw score per role:
// the heaviest item weight in that role times the role multiplier, with
// a perfect task match of 1.0. Dividing by it normalizes rank scores
// into [0,1] while preserving within-role weight ordering.
func maxRoleScores(items []domain.ConceptItem, rules domain.RuleSet) map[domain.Role]float64 {
	maxWeight := make(map[domain.Role]float64)
	for _, item := range items {
		if item.Weight > maxWeight[item.Role] {
			maxWeight[item.Role] = item.Weight
		}
	}

	roleMax := make(map[domain.Role]float64, len(maxWeight))
	for role, w := range maxWeight {
		roleMax[role] = w * rules.TypeWeight(role)
	}
	return roleMax
}

// enforceMaxItems trims the final list to the maxItems bound, dropping
// lowest-ranked COMPLEMENT items first, then SECONDARY. MAIN items are
// only dropped when the kit holds more MAIN items than maxItems allows
// at all, which is flagged as a warning.
func enforceMaxItems(products []domain.KitProduct, rules domain.RuleSet) ([]domain.KitProduct, []string) {
	var warnings []string

	for _, role := range []domain.Role{domain.RoleComplement, domain.RoleSecondary} {
		for len(products) > rules.MaxItems {
			idx := lowestRankedOfRole(products, role)
			if idx < 0 {
				break
			}
			warnings = append(warnings, fmt.Sprintf("dropped %s item %q (asin %s) to satisfy maxItems=%d",
				role, products[idx].ConceptName, products[idx].ASIN, rules.MaxItems))
			products = append(products[:idx], products[idx+1:]...)
		}
	}

	for len(products) > rules.MaxItems {
		idx := lowestRankedOfRole(products, domain.RoleMain)
		if idx < 0 {
			break
		}
		warnings = append(warnings, fmt.Sprintf("kit defines more MAIN items than maxItems=%d allows; dropped %q",
			rules.MaxItems, products[idx].ConceptName))
		products = append(products[:idx], products[idx+1:]...)
	}

	return products, warnings
}

// lowestRankedOfRole returns the index of the lowest-rankScore product
// of the given role, ties broken toward the later entry; -1 when none.
func lowestRankedOfRole(products []domain.KitProduct, role domain.Role) int {
	idx := -1
	for i, p := range products {
		if p.Role != role {
			continue
		}
		if idx < 0 || p.RankScore <= products[idx].RankScore {
			idx = i
		}
	}
	return idx
}

// finalizeOrder sorts products for display (role priority first, then
// rank score descending, then asin ascending) and assigns sort order.
func finalizeOrder(products []domain.KitProduct) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Role.Priority() != b.Role.Priority() {
			return a.Role.Priority() < b.Role.Priority()
		}
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		return a.ASIN < b.ASIN
	})
	for i := range products {
		products[i].SortOrder = i
	}
}

// QuotasMet reports whether every mustHaveTypes quota is satisfied.
func QuotasMet(products []domain.KitProduct, rules domain.RuleSet) bool {
	return len(unmetQuotas(products, rules)) == 0
}

// unmetQuotas returns the quotas whose role counts fall short.
func unmetQuotas(products []domain.KitProduct, rules domain.RuleSet) []domain.RoleQuota {
	counts := make(map[domain.Role]int)
	for _, p := range products {
		counts[p.Role]++
	}

	var unmet []domain.RoleQuota
	for _, q := range rules.MustHaveTypes {
		if counts[q.Role] < q.MinCount {
			unmet = append(unmet, q)
		}
	}
	return unmet
}

// resolveStatus derives the kit status from the final product list.
// A kit is never published ACTIVE with an unmet role quota or with
// fewer than minItems products.
func resolveStatus(products []domain.KitProduct, rules domain.RuleSet) domain.KitStatus {
	if len(products) == 0 {
		return domain.StatusConceptOnly
	}
	if !QuotasMet(products, rules) {
		return domain.StatusNeedsReview
	}
	if len(products) < rules.MinItems {
		return domain.StatusNeedsReview
	}
	return domain.StatusActive
}

// buildKitProduct binds a scored candidate to the concept item it fills.
// Identity, kit linkage and the affiliate link are attached by the
// curation service.
func buildKitProduct(item domain.ConceptItem, sc scoredCandidate) domain.KitProduct {
	return domain.KitProduct{
		CandidateProduct: sc.product,
		ConceptName:      item.Name,
		Role:             item.Role,
		RankScore:        round4(sc.rankScore),
		TaskMatchScore:   round4(sc.match.TaskMatchScore),
		Rationale:        generateRationale(item, sc.product, sc.match.MatchedKeywords, round4(sc.rankScore)),
		AddedVia:         domain.AddedAutomatic,
	}
}

// round4 rounds to four decimal places so repeated runs produce
// byte-identical scores.
func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

// IsConfigurationError reports whether an error is a fatal kit
// configuration problem rather than a data-availability one.
func IsConfigurationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidRuleSet) || errors.Is(err, domain.ErrInvalidConceptItem)
}
