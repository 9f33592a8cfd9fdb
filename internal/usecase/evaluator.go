package usecase

import (
	"log"
	"strings"

	"github.com/karooma/backend/internal/domain"
)

// Scoring constants for criteria evaluation
const (
	defaultGroupBoostCap = 0.15 // Max boost from kit-level keyword groups
	maxTaskMatchScore    = 1.0  // Scores are capped into [0,1]
)

// EvaluatorConfig holds configuration for the criteria evaluator
type EvaluatorConfig struct {
	GroupBoostCap      float64
	EnableDebugLogging bool
}

// Evaluator scores a single candidate product against a single concept
// item's criteria. Stateless; safe for concurrent use.
type Evaluator struct {
	groupBoostCap      float64
	enableDebugLogging bool
}

// NewEvaluator creates a new criteria evaluator with the given configuration
func NewEvaluator(config EvaluatorConfig) *Evaluator {
	boostCap := config.GroupBoostCap
	if boostCap <= 0 {
		boostCap = defaultGroupBoostCap
	}

	return &Evaluator{
		groupBoostCap:      boostCap,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Score evaluates one candidate against one concept item's criteria.
// Hard filter failures exclude the candidate regardless of score. A
// candidate with no keyword match is still eligible when hard filters
// pass; it just ranks last ("something over nothing" for low-supply
// themes).
func (e *Evaluator) Score(
	candidate domain.CandidateProduct,
	criteria domain.Criteria,
	groups []domain.KeywordGroup,
) domain.MatchResult {
	if !passesHardFilters(candidate, criteria) {
		return domain.MatchResult{PassesHardFilters: false}
	}

	haystack := strings.ToLower(candidate.Title + " " + candidate.Description)

	matched := make([]string, 0, len(criteria.MustKeywords))
	for _, kw := range criteria.MustKeywords {
		if keywordMatches(haystack, kw) {
			matched = append(matched, kw)
		}
	}

	score := 0.0
	if len(criteria.MustKeywords) > 0 {
		score = float64(len(matched)) / float64(len(criteria.MustKeywords))
	}

	// Optional keywords are listed for transparency but do not count
	// toward the base score.
	for _, kw := range criteria.OptionalKeywords {
		if keywordMatches(haystack, kw) {
			matched = append(matched, kw)
		}
	}

	score += e.groupBoost(haystack, groups)
	if score > maxTaskMatchScore {
		score = maxTaskMatchScore
	}

	if e.enableDebugLogging {
		log.Printf("[EVAL] %s | score=%.3f matched=%v", candidate.ASIN, score, matched)
	}

	return domain.MatchResult{
		TaskMatchScore:    score,
		PassesHardFilters: true,
		MatchedKeywords:   matched,
	}
}

// groupBoost computes the kit-level keyword group contribution, scaled
// by group weight and capped at the configured boost cap.
func (e *Evaluator) groupBoost(haystack string, groups []domain.KeywordGroup) float64 {
	if len(groups) == 0 {
		return 0
	}

	totalWeight := 0.0
	matchedWeight := 0.0
	for _, g := range groups {
		totalWeight += g.Weight
		for _, kw := range g.Keywords {
			if keywordMatches(haystack, kw) {
				matchedWeight += g.Weight
				break
			}
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return e.groupBoostCap * (matchedWeight / totalWeight)
}

// passesHardFilters applies the per-item hard filters: category match,
// price bounds, rating floor and Prime eligibility. Zero-valued bounds
// mean "not specified".
func passesHardFilters(candidate domain.CandidateProduct, criteria domain.Criteria) bool {
	if criteria.Category != "" && !strings.EqualFold(candidate.Category, criteria.Category) {
		return false
	}
	if criteria.PriceMin > 0 && candidate.Price < criteria.PriceMin {
		return false
	}
	if criteria.PriceMax > 0 && candidate.Price > criteria.PriceMax {
		return false
	}
	if criteria.RatingMin > 0 && candidate.Rating < criteria.RatingMin {
		return false
	}
	if criteria.PrimeOnly && !candidate.IsPrime {
		return false
	}
	return true
}

// keywordMatches does a case-insensitive substring match of a keyword
// against the candidate text.
func keywordMatches(haystackLower, keyword string) bool {
	kw := strings.TrimSpace(strings.ToLower(keyword))
	if kw == "" {
		return false
	}
	return strings.Contains(haystackLower, kw)
}
