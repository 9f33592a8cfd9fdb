package domain

import "fmt"

// KeywordGroup boosts general relevance beyond per-item keywords.
type KeywordGroup struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Weight   float64  `json:"weight"`
}

// RoleQuota is a hard minimum for a role, e.g. "at least 1 MAIN".
type RoleQuota struct {
	Role     Role `json:"role"`
	MinCount int  `json:"minCount"`
}

// PriceRange is a global price filter. Zero values mean unbounded.
type PriceRange struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

// FallbackStrategy controls degraded-mode behavior when the marketplace
// lookup is unavailable or a concept item cannot be filled.
type FallbackStrategy struct {
	UseManualASINs       bool `json:"useManualAsins"`
	SubstituteByCategory bool `json:"substituteByCategory"`
}

// RuleSet is the aggregate constraint object owned by a kit.
type RuleSet struct {
	KeywordGroups     []KeywordGroup   `json:"keywordGroups,omitempty"`
	TypeWeights       map[Role]float64 `json:"typeWeights,omitempty"`
	MinItems          int              `json:"minItems"`
	MaxItems          int              `json:"maxItems"`
	MustHaveTypes     []RoleQuota      `json:"mustHaveTypes,omitempty"`
	PriceRange        PriceRange       `json:"priceRange,omitempty"`
	RatingMin         float64          `json:"ratingMin,omitempty"`
	PrimeOnly         bool             `json:"primeOnly,omitempty"`
	ExcludeASINs      []string         `json:"excludeAsins,omitempty"`
	AllowedCategories []string         `json:"allowedCategories,omitempty"`
	UpdateFrequency   UpdateFrequency  `json:"updateFrequency"`
	Fallback          FallbackStrategy `json:"fallbackStrategy"`
}

// Default role multipliers when a rule set does not specify its own.
var defaultTypeWeights = map[Role]float64{
	RoleMain:       2.0,
	RoleSecondary:  1.0,
	RoleComplement: 0.5,
}

const (
	defaultMinItems = 1
	defaultMaxItems = 10
)

// NewRuleSet applies defaults and validates the rule set invariants.
// Malformed rule sets are rejected here, at import time, rather than
// surfacing later as a silent kit.
func NewRuleSet(rs RuleSet) (RuleSet, error) {
	if rs.MinItems == 0 {
		rs.MinItems = defaultMinItems
	}
	if rs.MaxItems == 0 {
		rs.MaxItems = defaultMaxItems
	}
	if rs.TypeWeights == nil {
		rs.TypeWeights = make(map[Role]float64, len(defaultTypeWeights))
	}
	for role, w := range defaultTypeWeights {
		if _, ok := rs.TypeWeights[role]; !ok {
			rs.TypeWeights[role] = w
		}
	}
	if rs.UpdateFrequency == "" {
		rs.UpdateFrequency = FrequencyManual
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate checks all rule set invariants.
func (rs RuleSet) Validate() error {
	if rs.MinItems < 0 {
		return fmt.Errorf("%w: minItems must be >= 0", ErrInvalidRuleSet)
	}
	if rs.MinItems > rs.MaxItems {
		return fmt.Errorf("%w: minItems %d > maxItems %d", ErrInvalidRuleSet, rs.MinItems, rs.MaxItems)
	}
	quotaSum := 0
	for _, q := range rs.MustHaveTypes {
		if !q.Role.Valid() {
			return fmt.Errorf("%w: unknown role %q in mustHaveTypes", ErrInvalidRuleSet, q.Role)
		}
		if q.MinCount < 0 {
			return fmt.Errorf("%w: negative minCount for role %s", ErrInvalidRuleSet, q.Role)
		}
		quotaSum += q.MinCount
	}
	if quotaSum > rs.MaxItems {
		return fmt.Errorf("%w: mustHaveTypes quotas sum to %d, exceeding maxItems %d", ErrInvalidRuleSet, quotaSum, rs.MaxItems)
	}
	for role, w := range rs.TypeWeights {
		if !role.Valid() {
			return fmt.Errorf("%w: unknown role %q in typeWeights", ErrInvalidRuleSet, role)
		}
		if w <= 0 {
			return fmt.Errorf("%w: typeWeights[%s] must be positive", ErrInvalidRuleSet, role)
		}
	}
	for _, g := range rs.KeywordGroups {
		if g.Weight <= 0 {
			return fmt.Errorf("%w: keyword group %q weight must be positive", ErrInvalidRuleSet, g.Name)
		}
	}
	if rs.PriceRange.Min < 0 || rs.PriceRange.Max < 0 {
		return fmt.Errorf("%w: negative price range bound", ErrInvalidRuleSet)
	}
	if rs.PriceRange.Min > 0 && rs.PriceRange.Max > 0 && rs.PriceRange.Min > rs.PriceRange.Max {
		return fmt.Errorf("%w: priceRange min %.2f > max %.2f", ErrInvalidRuleSet, rs.PriceRange.Min, rs.PriceRange.Max)
	}
	switch rs.UpdateFrequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyManual:
	default:
		return fmt.Errorf("%w: unknown updateFrequency %q", ErrInvalidRuleSet, rs.UpdateFrequency)
	}
	return nil
}

// MinCountFor returns the quota for a role, 0 when none is declared.
func (rs RuleSet) MinCountFor(role Role) int {
	for _, q := range rs.MustHaveTypes {
		if q.Role == role {
			return q.MinCount
		}
	}
	return 0
}

// TypeWeight returns the multiplier for a role, falling back to the
// package default when the rule set omits it.
func (rs RuleSet) TypeWeight(role Role) float64 {
	if w, ok := rs.TypeWeights[role]; ok {
		return w
	}
	return defaultTypeWeights[role]
}
