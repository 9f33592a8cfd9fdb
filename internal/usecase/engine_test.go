package usecase

import (
	"reflect"
	"strings"
	"testing"

	"github.com/karooma/backend/internal/domain"
)

func mkRules(t *testing.T, rs domain.RuleSet) domain.RuleSet {
	t.Helper()
	rules, err := domain.NewRuleSet(rs)
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	return rules
}

func mkItem(name string, role domain.Role, weight float64, keywords ...string) domain.ConceptItem {
	return domain.ConceptItem{
		Name:     name,
		Role:     role,
		Weight:   weight,
		Criteria: domain.Criteria{MustKeywords: keywords},
	}
}

func TestCurate_InvalidRuleSet(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	t.Run("minItems greater than maxItems is a configuration error", func(t *testing.T) {
		rules := domain.RuleSet{MinItems: 5, MaxItems: 2}
		result := engine.Curate(nil, nil, rules)
		if result.Status != domain.StatusError {
			t.Errorf("Status = %v, want ERROR", result.Status)
		}
		if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "configuration error") {
			t.Errorf("Warnings = %v, want configuration error", result.Warnings)
		}
	})

	t.Run("quota sum exceeding maxItems is a configuration error", func(t *testing.T) {
		rules := domain.RuleSet{
			MinItems: 1,
			MaxItems: 2,
			MustHaveTypes: []domain.RoleQuota{
				{Role: domain.RoleMain, MinCount: 2},
				{Role: domain.RoleSecondary, MinCount: 2},
			},
		}
		result := engine.Curate(nil, nil, rules)
		if result.Status != domain.StatusError {
			t.Errorf("Status = %v, want ERROR", result.Status)
		}
	})

	t.Run("invalid concept item is a configuration error", func(t *testing.T) {
		rules := mkRules(t, domain.RuleSet{})
		items := []domain.ConceptItem{{Name: "Bad", Role: domain.RoleMain, Weight: -1}}
		result := engine.Curate(items, nil, rules)
		if result.Status != domain.StatusError {
			t.Errorf("Status = %v, want ERROR", result.Status)
		}
	})
}

// Scenario: one MAIN slot with price and rating bounds; the 3.9-rated
// candidate is hard-excluded and the 4.7 one wins on the rating
// tie-break.
func TestCurate_RatingFloorAndWinner(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		{
			Name:   "Sanitizing Brush",
			Role:   domain.RoleMain,
			Weight: 1.5,
			Criteria: domain.Criteria{
				MustKeywords: []string{"brush"},
				PriceMin:     10,
				PriceMax:     200,
				RatingMin:    4.0,
			},
		},
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "B001", Title: "Scrub Brush A", Price: 30, Rating: 4.7, ReviewCount: 100},
		{ASIN: "B002", Title: "Scrub Brush B", Price: 30, Rating: 3.9, ReviewCount: 100},
		{ASIN: "B003", Title: "Scrub Brush C", Price: 30, Rating: 4.5, ReviewCount: 100},
	}
	rules := mkRules(t, domain.RuleSet{MinItems: 1, MaxItems: 3})

	result := engine.Curate(items, candidates, rules)

	if len(result.Products) != 1 {
		t.Fatalf("got %d products, want 1", len(result.Products))
	}
	if result.Products[0].ASIN != "B001" {
		t.Errorf("winner = %s, want B001 (4.7 rating)", result.Products[0].ASIN)
	}
	if result.Status != domain.StatusActive {
		t.Errorf("Status = %v, want ACTIVE", result.Status)
	}
}

// Scenario: maxItems=3 with 1 MAIN + 2 SECONDARY + 2 COMPLEMENT concept
// items all fillable; both COMPLEMENT items are dropped, never MAIN.
func TestCurate_MaxItemsDropsComplementFirst(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		mkItem("Main Tool", domain.RoleMain, 2, "alpha"),
		mkItem("Helper One", domain.RoleSecondary, 1.5, "bravo"),
		mkItem("Helper Two", domain.RoleSecondary, 1, "charlie"),
		mkItem("Extra One", domain.RoleComplement, 1, "delta"),
		mkItem("Extra Two", domain.RoleComplement, 0.5, "echo"),
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "A1", Title: "alpha product", Price: 10, Rating: 4.5, ReviewCount: 50},
		{ASIN: "A2", Title: "bravo product", Price: 10, Rating: 4.5, ReviewCount: 50},
		{ASIN: "A3", Title: "charlie product", Price: 10, Rating: 4.5, ReviewCount: 50},
		{ASIN: "A4", Title: "delta product", Price: 10, Rating: 4.5, ReviewCount: 50},
		{ASIN: "A5", Title: "echo product", Price: 10, Rating: 4.5, ReviewCount: 50},
	}
	rules := mkRules(t, domain.RuleSet{
		MinItems:      3,
		MaxItems:      3,
		MustHaveTypes: []domain.RoleQuota{{Role: domain.RoleMain, MinCount: 1}},
	})

	result := engine.Curate(items, candidates, rules)

	if len(result.Products) != 3 {
		t.Fatalf("got %d products, want 3", len(result.Products))
	}
	roles := map[domain.Role]int{}
	for _, p := range result.Products {
		roles[p.Role]++
	}
	if roles[domain.RoleMain] != 1 || roles[domain.RoleSecondary] != 2 || roles[domain.RoleComplement] != 0 {
		t.Errorf("role counts = %v, want 1 MAIN, 2 SECONDARY, 0 COMPLEMENT", roles)
	}
	if result.Status != domain.StatusActive {
		t.Errorf("Status = %v, want ACTIVE", result.Status)
	}
}

func TestCurate_Deterministic(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		mkItem("Slot A", domain.RoleMain, 2, "widget"),
		mkItem("Slot B", domain.RoleSecondary, 1, "widget"),
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "C3", Title: "widget three", Price: 10, Rating: 4.0, ReviewCount: 10},
		{ASIN: "C1", Title: "widget one", Price: 10, Rating: 4.0, ReviewCount: 10},
		{ASIN: "C2", Title: "widget two", Price: 10, Rating: 4.0, ReviewCount: 10},
	}
	rules := mkRules(t, domain.RuleSet{MinItems: 1, MaxItems: 5})

	first := engine.Curate(items, candidates, rules)
	second := engine.Curate(items, candidates, rules)

	if !reflect.DeepEqual(first.Products, second.Products) {
		t.Errorf("curation is not deterministic:\nfirst:  %+v\nsecond: %+v", first.Products, second.Products)
	}

	// All scores and tie-break inputs equal: ASIN ascending decides.
	if first.Products[0].ASIN != "C1" || first.Products[1].ASIN != "C2" {
		t.Errorf("allocation order = %s, %s; want C1 then C2",
			first.Products[0].ASIN, first.Products[1].ASIN)
	}
}

func TestCurate_NoDuplicateAllocation(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		mkItem("Slot A", domain.RoleMain, 2, "gadget"),
		mkItem("Slot B", domain.RoleMain, 1, "gadget"),
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "D1", Title: "gadget deluxe", Price: 10, Rating: 4.8, ReviewCount: 500},
		{ASIN: "D2", Title: "gadget basic", Price: 10, Rating: 4.1, ReviewCount: 20},
	}
	rules := mkRules(t, domain.RuleSet{MinItems: 1, MaxItems: 5})

	result := engine.Curate(items, candidates, rules)

	seen := map[string]bool{}
	for _, p := range result.Products {
		if seen[p.ASIN] {
			t.Fatalf("asin %s allocated twice", p.ASIN)
		}
		seen[p.ASIN] = true
	}

	// Heavier slot wins the better candidate; first allocated wins.
	if len(result.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(result.Products))
	}
	if result.Products[0].ConceptName != "Slot A" || result.Products[0].ASIN != "D1" {
		t.Errorf("top product = %s/%s, want Slot A/D1",
			result.Products[0].ConceptName, result.Products[0].ASIN)
	}
}

func TestCurate_GlobalFilters(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{mkItem("Slot", domain.RoleMain, 1, "thing")}
	candidates := []domain.CandidateProduct{
		{ASIN: "E1", Title: "thing excluded", Price: 20, Rating: 4.5, ReviewCount: 10, Category: "Home", IsPrime: true},
		{ASIN: "E2", Title: "thing cheap", Price: 2, Rating: 4.5, ReviewCount: 10, Category: "Home", IsPrime: true},
		{ASIN: "E3", Title: "thing low rated", Price: 20, Rating: 3.0, ReviewCount: 10, Category: "Home", IsPrime: true},
		{ASIN: "E4", Title: "thing not prime", Price: 20, Rating: 4.5, ReviewCount: 10, Category: "Home"},
		{ASIN: "E5", Title: "thing wrong category", Price: 20, Rating: 4.5, ReviewCount: 10, Category: "Toys", IsPrime: true},
		{ASIN: "E6", Title: "thing good", Price: 20, Rating: 4.5, ReviewCount: 10, Category: "Home", IsPrime: true},
	}
	rules := mkRules(t, domain.RuleSet{
		MinItems:          1,
		MaxItems:          5,
		PriceRange:        domain.PriceRange{Min: 5, Max: 100},
		RatingMin:         4.0,
		PrimeOnly:         true,
		ExcludeASINs:      []string{"E1"},
		AllowedCategories: []string{"Home"},
	})

	result := engine.Curate(items, candidates, rules)

	if len(result.Products) != 1 {
		t.Fatalf("got %d products, want 1", len(result.Products))
	}
	if result.Products[0].ASIN != "E6" {
		t.Errorf("selected = %s, want E6", result.Products[0].ASIN)
	}
}

func TestCurate_QuotaUnmetNeedsReview(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		{
			Name:     "Main Slot",
			Role:     domain.RoleMain,
			Weight:   1,
			Criteria: domain.Criteria{MustKeywords: []string{"widget"}, RatingMin: 4.5},
		},
		mkItem("Side Slot", domain.RoleSecondary, 1, "widget"),
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "F1", Title: "widget", Price: 10, Rating: 4.0, ReviewCount: 5},
	}
	rules := mkRules(t, domain.RuleSet{
		MinItems:      1,
		MaxItems:      5,
		MustHaveTypes: []domain.RoleQuota{{Role: domain.RoleMain, MinCount: 1}},
	})

	result := engine.Curate(items, candidates, rules)

	if result.Status != domain.StatusNeedsReview {
		t.Errorf("Status = %v, want NEEDS_REVIEW", result.Status)
	}
	if len(result.Unfilled) != 1 || result.Unfilled[0].Name != "Main Slot" {
		t.Errorf("Unfilled = %+v, want Main Slot", result.Unfilled)
	}
}

func TestCurate_EmptyPoolIsConceptOnly(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{mkItem("Slot", domain.RoleMain, 1, "thing")}
	rules := mkRules(t, domain.RuleSet{MinItems: 1, MaxItems: 5})

	result := engine.Curate(items, nil, rules)

	if result.Status != domain.StatusConceptOnly {
		t.Errorf("Status = %v, want CONCEPT_ONLY", result.Status)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a shortfall warning")
	}
}

func TestCurate_RankScoreBounds(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	items := []domain.ConceptItem{
		mkItem("Heavy", domain.RoleMain, 3, "thing"),
		mkItem("Light", domain.RoleMain, 1, "thing"),
	}
	candidates := []domain.CandidateProduct{
		{ASIN: "G1", Title: "thing one", Price: 10, Rating: 4.0, ReviewCount: 10},
		{ASIN: "G2", Title: "thing two", Price: 10, Rating: 4.0, ReviewCount: 5},
	}
	rules := mkRules(t, domain.RuleSet{MinItems: 1, MaxItems: 5})

	result := engine.Curate(items, candidates, rules)

	for _, p := range result.Products {
		if p.RankScore < 0 || p.RankScore > 1 {
			t.Errorf("RankScore %v for %s outside [0,1]", p.RankScore, p.ASIN)
		}
	}

	// Heavy slot normalizes to 1.0 on a perfect match; light slot to 1/3.
	if result.Products[0].RankScore != 1.0 {
		t.Errorf("heavy RankScore = %v, want 1.0", result.Products[0].RankScore)
	}
	if result.Products[1].RankScore != 0.3333 {
		t.Errorf("light RankScore = %v, want 0.3333", result.Products[1].RankScore)
	}
}

func TestGenerateRationale(t *testing.T) {
	item := domain.ConceptItem{Name: "Sanitizing Brush", Role: domain.RoleMain}

	t.Run("prefers discount over rating", func(t *testing.T) {
		product := domain.CandidateProduct{
			Price: 80, OriginalPrice: 100, Rating: 4.8, ReviewCount: 200, IsPrime: true,
		}
		got := generateRationale(item, product, []string{"brush"}, 0.875)
		want := `Main pick for "Sanitizing Brush": matched brush; 20% off list price. Score: 0.875`
		if got != want {
			t.Errorf("rationale = %q, want %q", got, want)
		}
	})

	t.Run("falls back to rating", func(t *testing.T) {
		product := domain.CandidateProduct{Price: 80, Rating: 4.8, ReviewCount: 200}
		got := generateRationale(item, product, []string{"brush"}, 0.5)
		want := `Main pick for "Sanitizing Brush": matched brush; rated 4.8 across 200 reviews. Score: 0.500`
		if got != want {
			t.Errorf("rationale = %q, want %q", got, want)
		}
	})

	t.Run("prime is the last differentiator", func(t *testing.T) {
		product := domain.CandidateProduct{Price: 80, Rating: 3.5, IsPrime: true}
		got := generateRationale(item, product, nil, 0.25)
		want := `Main pick for "Sanitizing Brush"; Prime eligible. Score: 0.250`
		if got != want {
			t.Errorf("rationale = %q, want %q", got, want)
		}
	})
}
