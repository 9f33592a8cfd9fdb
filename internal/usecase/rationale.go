package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/karooma/backend/internal/domain"
)

// Rationale thresholds
const (
	rationaleDiscountFloor = 10.0 // Minimum discount % worth mentioning
	rationaleRatingFloor   = 4.0  // Minimum rating worth mentioning
)

// roleLabels are the display names used in generated rationales
var roleLabels = map[domain.Role]string{
	domain.RoleMain:       "Main pick",
	domain.RoleSecondary:  "Supporting pick",
	domain.RoleComplement: "Complement",
}

// generateRationale builds the deterministic, templated explanation for
// a selected product: role label, matched keywords and a single
// differentiating attribute. No free-text generation, so the output is
// reproducible and testable.
func generateRationale(
	item domain.ConceptItem,
	product domain.CandidateProduct,
	matchedKeywords []string,
	rankScore float64,
) string {
	var b strings.Builder

	label, ok := roleLabels[item.Role]
	if !ok {
		label = string(item.Role)
	}
	fmt.Fprintf(&b, "%s for %q", label, item.Name)

	if len(matchedKeywords) > 0 {
		fmt.Fprintf(&b, ": matched %s", strings.Join(matchedKeywords, ", "))
	}

	if diff := differentiator(product); diff != "" {
		fmt.Fprintf(&b, "; %s", diff)
	}

	fmt.Fprintf(&b, ". Score: %.3f", rankScore)
	return b.String()
}

// differentiator picks one standout attribute in fixed precedence:
// price advantage, then rating, then Prime status.
func differentiator(product domain.CandidateProduct) string {
	if discount := product.DiscountPercent(); discount >= rationaleDiscountFloor {
		return fmt.Sprintf("%d%% off list price", int(math.Round(discount)))
	}
	if product.Rating >= rationaleRatingFloor {
		if product.ReviewCount > 0 {
			return fmt.Sprintf("rated %.1f across %d reviews", product.Rating, product.ReviewCount)
		}
		return fmt.Sprintf("rated %.1f", product.Rating)
	}
	if product.IsPrime {
		return "Prime eligible"
	}
	return ""
}
