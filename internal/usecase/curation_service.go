package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karooma/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s-]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

const (
	defaultCacheTTL       = 6 * time.Hour // Candidate pools go stale fast
	defaultCandidateLimit = 10            // Top candidates fetched per concept item
	defaultAffiliateBase  = "https://www.amazon.com.br/dp"
)

// CurationServiceConfig holds configuration for the curation service
type CurationServiceConfig struct {
	CacheTTL           time.Duration
	CandidateLimit     int
	GroupBoostCap      float64
	AffiliateTag       string
	AffiliateBaseURL   string
	EnableDebugLogging bool
}

// CurationService exposes the curation API: it loads a kit, pulls
// candidates through the cache, runs the engine, applies fallback and
// persists the result atomically.
type CurationService struct {
	kits     domain.KitRepository
	lookup   domain.CandidateLookup
	manual   domain.ManualOverrideStore
	cache    domain.CacheRepository
	engine   *Engine
	fallback *FallbackCoordinator

	cacheTTL       time.Duration
	candidateLimit int
	affiliateTag   string
	affiliateBase  string
	debug          bool
}

// NewCurationService creates a new curation service with dependencies
func NewCurationService(
	kits domain.KitRepository,
	lookup domain.CandidateLookup,
	manual domain.ManualOverrideStore,
	cache domain.CacheRepository,
	config CurationServiceConfig,
) *CurationService {
	engine := NewEngine(EngineConfig{
		GroupBoostCap:      config.GroupBoostCap,
		EnableDebugLogging: config.EnableDebugLogging,
	})

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	candidateLimit := config.CandidateLimit
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	affiliateBase := config.AffiliateBaseURL
	if affiliateBase == "" {
		affiliateBase = defaultAffiliateBase
	}

	return &CurationService{
		kits:           kits,
		lookup:         lookup,
		manual:         manual,
		cache:          cache,
		engine:         engine,
		fallback:       NewFallbackCoordinator(engine, config.EnableDebugLogging),
		cacheTTL:       cacheTTL,
		candidateLimit: candidateLimit,
		affiliateTag:   config.AffiliateTag,
		affiliateBase:  affiliateBase,
		debug:          config.EnableDebugLogging,
	}
}

// CurateKit runs a full curation cycle for one kit and atomically
// replaces its product list. Configuration errors leave the kit in
// ERROR; persistence failures leave the prior state untouched.
func (s *CurationService) CurateKit(ctx context.Context, kitID string) (*domain.CurationReport, error) {
	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}

	if len(kit.ConceptItems) == 0 {
		return &domain.CurationReport{
			KitID:    kit.ID,
			Status:   kit.Status,
			Warnings: []string{"kit has no concept items to resolve"},
		}, nil
	}

	pool, poolWarnings, capErr := s.fetchCandidatePool(ctx, kit)

	result := s.engine.Curate(kit.ConceptItems, pool, kit.Rules)
	result.Warnings = append(poolWarnings, result.Warnings...)

	if result.Status == domain.StatusError {
		// Configuration error: surface it to the author and stop. The kit
		// stays ERROR until edited; nothing is replaced.
		if err := s.kits.SetStatus(ctx, kit.ID, domain.StatusError, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		return s.report(kit.ID, result), nil
	}

	if capErr != nil || len(result.Unfilled) > 0 {
		var manualProducts []domain.KitProduct
		if errors.Is(capErr, domain.ErrMarketplaceUnavailable) && kit.Rules.Fallback.UseManualASINs {
			manualProducts, err = s.manual.GetManualProducts(ctx, kit.ID)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("manual override lookup failed: %v", err))
			}
		}

		result = s.fallback.Apply(FallbackInput{
			Kit:            *kit,
			Result:         result,
			Pool:           pool,
			CapabilityErr:  capErr,
			ManualProducts: manualProducts,
		})
	}

	now := time.Now().UTC()
	for i := range result.Products {
		p := &result.Products[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.KitID = kit.ID
		if p.AffiliateLink == "" {
			p.AffiliateLink = s.buildAffiliateLink(p.ASIN)
		}
	}

	if err := s.kits.ReplaceProducts(ctx, kit.ID, result.Products, result.Status, now); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if s.debug {
		log.Printf("[CURATE] kit %s: %d products, status=%s, %d warnings",
			kit.ID, len(result.Products), result.Status, len(result.Warnings))
	}

	return s.report(kit.ID, result), nil
}

// ImportKit validates and stores a kit definition pasted in as JSON.
// Malformed rule sets and concept items are rejected here, at import
// time, not at curation time.
func (s *CurationService) ImportKit(ctx context.Context, in domain.KitImport) (*domain.Kit, error) {
	if strings.TrimSpace(in.Kit.Title) == "" {
		return nil, fmt.Errorf("%w: kit title is required", domain.ErrInvalidRequest)
	}

	rules, err := domain.NewRuleSet(in.RulesConfig)
	if err != nil {
		return nil, err
	}
	for _, item := range in.ConceptItems {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	status := domain.StatusDraft
	if len(in.ConceptItems) > 0 {
		status = domain.StatusConceptOnly
	}

	slug := in.Kit.Slug
	if slug == "" {
		slug = slugify(in.Kit.Title)
	}

	kit := &domain.Kit{
		ID:               uuid.NewString(),
		Title:            in.Kit.Title,
		Slug:             slug,
		Theme:            in.Kit.Theme,
		TaskIntent:       in.Kit.TaskIntent,
		ShortDescription: in.Kit.ShortDescription,
		Category:         in.Kit.Category,
		ConceptItems:     in.ConceptItems,
		Rules:            rules,
		Status:           status,
		LastUpdatedAt:    now,
		CreatedAt:        now,
	}

	if err := s.kits.CreateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return kit, nil
}

// fetchCandidatePool pulls candidates for every concept item through the
// cache and merges them into one deduplicated pool. One item's lookup
// failure never aborts the others; a transient marketplace outage is
// reported separately so the fallback coordinator can react.
func (s *CurationService) fetchCandidatePool(
	ctx context.Context,
	kit *domain.Kit,
) (pool []domain.CandidateProduct, warnings []string, capErr error) {
	seen := make(map[string]bool)

	for _, item := range kit.ConceptItems {
		query := s.buildQuery(item)
		candidates, err := s.searchWithCache(ctx, query)
		if err != nil {
			if errors.Is(err, domain.ErrMarketplaceUnavailable) {
				capErr = err
			} else {
				warnings = append(warnings, fmt.Sprintf("candidate lookup failed for %q: %v", item.Name, err))
			}
			continue
		}

		for _, c := range candidates {
			if seen[c.ASIN] {
				continue
			}
			seen[c.ASIN] = true
			pool = append(pool, c)
		}
	}

	return pool, warnings, capErr
}

// searchWithCache checks the candidate cache before hitting the
// marketplace. Cache write failures are non-fatal.
func (s *CurationService) searchWithCache(ctx context.Context, query domain.CandidateQuery) ([]domain.CandidateProduct, error) {
	key := candidateCacheKey(query)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		if candidates, ok := cached.([]domain.CandidateProduct); ok {
			if s.debug {
				log.Printf("[CURATE] cache hit for %q (%d candidates)", key, len(candidates))
			}
			return candidates, nil
		}
	}

	candidates, err := s.lookup.SearchCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, candidates, s.cacheTTL); err != nil && s.debug {
		log.Printf("[CURATE] cache write failed for %q: %v", key, err)
	}
	return candidates, nil
}

// buildQuery derives the marketplace search from a concept item's
// criteria. Optional keywords join the query to widen recall; the
// evaluator still scores on the must-keywords alone.
func (s *CurationService) buildQuery(item domain.ConceptItem) domain.CandidateQuery {
	keywords := make([]string, 0, len(item.Criteria.MustKeywords)+len(item.Criteria.OptionalKeywords))
	keywords = append(keywords, item.Criteria.MustKeywords...)
	keywords = append(keywords, item.Criteria.OptionalKeywords...)

	return domain.CandidateQuery{
		Keywords:  keywords,
		Category:  item.Criteria.Category,
		PriceMin:  item.Criteria.PriceMin,
		PriceMax:  item.Criteria.PriceMax,
		RatingMin: item.Criteria.RatingMin,
		Limit:     s.candidateLimit,
	}
}

// buildAffiliateLink builds the marketplace product link with the
// partner tracking tag.
func (s *CurationService) buildAffiliateLink(asin string) string {
	if s.affiliateTag == "" {
		return fmt.Sprintf("%s/%s", s.affiliateBase, asin)
	}
	return fmt.Sprintf("%s/%s?tag=%s", s.affiliateBase, asin, s.affiliateTag)
}

// report assembles the externally visible curation report.
func (s *CurationService) report(kitID string, result CurationResult) *domain.CurationReport {
	return &domain.CurationReport{
		KitID:    kitID,
		Products: result.Products,
		Status:   result.Status,
		Warnings: result.Warnings,
	}
}

// candidateCacheKey creates a normalized cache key from a search query.
// Format: "candidates:{normalized keywords}:{category}"
func candidateCacheKey(query domain.CandidateQuery) string {
	return fmt.Sprintf("candidates:%s:%s",
		normalizeForCacheKey(strings.Join(query.Keywords, " ")),
		normalizeForCacheKey(query.Category))
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, removes special characters, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// slugify turns a kit title into a URL-safe slug.
func slugify(title string) string {
	s := strings.ToLower(title)
	s = nonAlphanumericRegex.ReplaceAllString(s, "")
	s = multipleSpacesRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
