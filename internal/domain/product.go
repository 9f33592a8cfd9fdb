package domain

// CandidateProduct is a marketplace product snapshot under consideration.
// Fetched transiently per curation run; the engine never persists it.
type CandidateProduct struct {
	ASIN          string  `json:"asin"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"category,omitempty"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	ReviewCount   int     `json:"reviewCount,omitempty"`
	IsPrime       bool    `json:"isPrime,omitempty"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	ProductURL    string  `json:"productUrl,omitempty"`
}

// DiscountPercent returns the discount over the original price, 0-100.
func (c CandidateProduct) DiscountPercent() float64 {
	if c.OriginalPrice <= c.Price || c.OriginalPrice <= 0 {
		return 0
	}
	return (c.OriginalPrice - c.Price) / c.OriginalPrice * 100
}

// KitProduct is a CandidateProduct selected and bound to a concept item.
// Replaced wholesale on each refresh, never mutated in place.
type KitProduct struct {
	ID    string `json:"id"`
	KitID string `json:"kitId"`
	CandidateProduct

	ConceptName    string   `json:"conceptName"`
	Role           Role     `json:"role"`
	RankScore      float64  `json:"rankScore"`
	TaskMatchScore float64  `json:"taskMatchScore"`
	Rationale      string   `json:"rationale"`
	AddedVia       AddedVia `json:"addedVia"`
	AffiliateLink  string   `json:"affiliateLink,omitempty"`
	SortOrder      int      `json:"sortOrder"`
}

// MatchResult is the outcome of scoring one candidate against one
// concept item's criteria.
type MatchResult struct {
	TaskMatchScore    float64  `json:"taskMatchScore"`
	PassesHardFilters bool     `json:"passesHardFilters"`
	MatchedKeywords   []string `json:"matchedKeywords,omitempty"`
}

// CandidateQuery describes a marketplace search for one concept item.
type CandidateQuery struct {
	Keywords  []string
	Category  string
	PriceMin  float64
	PriceMax  float64
	RatingMin float64
	Limit     int
}

// CurationReport is the result of curating one kit, as exposed to the
// scheduler and the admin re-curate action.
type CurationReport struct {
	KitID    string       `json:"kitId"`
	Products []KitProduct `json:"kitProducts"`
	Status   KitStatus    `json:"status"`
	Warnings []string     `json:"warnings,omitempty"`
}
