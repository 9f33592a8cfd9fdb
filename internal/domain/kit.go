package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the importance tier of a kit slot. Lower priority value = more important.
type Role string

const (
	RoleMain       Role = "MAIN"
	RoleSecondary  Role = "SECONDARY"
	RoleComplement Role = "COMPLEMENT"
)

// Priority returns the ordinal priority of a role (0 = highest).
// The allocation loop consumes this explicitly instead of relying on
// slice ordering.
func (r Role) Priority() int {
	switch r {
	case RoleMain:
		return 0
	case RoleSecondary:
		return 1
	case RoleComplement:
		return 2
	default:
		return 3
	}
}

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	return r == RoleMain || r == RoleSecondary || r == RoleComplement
}

// KitStatus is the lifecycle state of a kit.
type KitStatus string

const (
	StatusDraft       KitStatus = "DRAFT"
	StatusConceptOnly KitStatus = "CONCEPT_ONLY"
	StatusActive      KitStatus = "ACTIVE"
	StatusNeedsReview KitStatus = "NEEDS_REVIEW"
	StatusError       KitStatus = "ERROR"
)

// UpdateFrequency controls how often the scheduler re-curates a kit.
type UpdateFrequency string

const (
	FrequencyDaily  UpdateFrequency = "daily"
	FrequencyWeekly UpdateFrequency = "weekly"
	FrequencyManual UpdateFrequency = "manual"
)

// AddedVia records how a product entered a kit.
type AddedVia string

const (
	AddedAutomatic AddedVia = "AUTOMATIC"
	AddedManual    AddedVia = "MANUAL"
)

// Criteria are the matching rules of a single concept item.
// Zero values mean "not specified" for the optional numeric bounds.
type Criteria struct {
	MustKeywords     []string `json:"mustKeywords"`
	OptionalKeywords []string `json:"optionalKeywords,omitempty"`
	Category         string   `json:"category,omitempty"`
	PriceMin         float64  `json:"priceMin,omitempty"`
	PriceMax         float64  `json:"priceMax,omitempty"`
	RatingMin        float64  `json:"ratingMin,omitempty"`
	PrimeOnly        bool     `json:"primeOnly,omitempty"`
}

// Validate checks the criteria invariants.
func (c Criteria) Validate() error {
	if c.PriceMin < 0 || c.PriceMax < 0 {
		return fmt.Errorf("%w: negative price bound", ErrInvalidConceptItem)
	}
	if c.PriceMin > 0 && c.PriceMax > 0 && c.PriceMin > c.PriceMax {
		return fmt.Errorf("%w: priceMin %.2f > priceMax %.2f", ErrInvalidConceptItem, c.PriceMin, c.PriceMax)
	}
	if c.RatingMin < 0 || c.RatingMin > 5 {
		return fmt.Errorf("%w: ratingMin %.1f outside [0,5]", ErrInvalidConceptItem, c.RatingMin)
	}
	return nil
}

// ConceptItem is an abstract slot a kit wants filled, e.g. "Sanitizing Brush".
// Immutable once the kit is active except through an explicit kit edit.
type ConceptItem struct {
	Name         string   `json:"name"`
	Role         Role     `json:"role"`
	Weight       float64  `json:"weight"`
	Criteria     Criteria `json:"criteria"`
	ResolvedASIN string   `json:"resolvedAsin,omitempty"`
}

// Validate checks the concept item invariants.
func (ci ConceptItem) Validate() error {
	if strings.TrimSpace(ci.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConceptItem)
	}
	if !ci.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q for %q", ErrInvalidConceptItem, ci.Role, ci.Name)
	}
	if ci.Weight <= 0 {
		return fmt.Errorf("%w: weight must be positive for %q", ErrInvalidConceptItem, ci.Name)
	}
	return ci.Criteria.Validate()
}

// Kit is the aggregate root: a task-oriented theme plus its concept items,
// rule set and currently resolved products.
type Kit struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Theme            string        `json:"theme"`
	TaskIntent       string        `json:"taskIntent"`
	ShortDescription string        `json:"shortDescription,omitempty"`
	Category         string        `json:"category,omitempty"`
	ConceptItems     []ConceptItem `json:"conceptItems"`
	Rules            RuleSet       `json:"rulesConfig"`
	Products         []KitProduct  `json:"products,omitempty"`
	Status           KitStatus     `json:"status"`
	LastUpdatedAt    time.Time     `json:"lastUpdatedAt"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// KitImport is the JSON paste-in shape used by the admin import workflow.
type KitImport struct {
	Kit struct {
		Title            string `json:"title"`
		Slug             string `json:"slug"`
		Theme            string `json:"theme"`
		TaskIntent       string `json:"taskIntent"`
		ShortDescription string `json:"shortDescription,omitempty"`
		Category         string `json:"category,omitempty"`
	} `json:"kit"`
	ConceptItems []ConceptItem `json:"conceptItems"`
	RulesConfig  RuleSet       `json:"rulesConfig"`
}
