package marketplace

import "github.com/karooma/backend/internal/domain"

// searchResponse is the wire shape of the product search endpoint
type searchResponse struct {
	Items        []searchItem `json:"items"`
	TotalResults int          `json:"totalResults"`
}

// searchItem is one product as returned by the marketplace API
type searchItem struct {
	ASIN          string  `json:"asin"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"categoryPath,omitempty"`
	Price         float64 `json:"currentPrice"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	ReviewCount   int     `json:"reviewCount,omitempty"`
	IsPrime       bool    `json:"isPrime,omitempty"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	ProductURL    string  `json:"productUrl,omitempty"`
}

// mapSearchItems converts wire items to domain candidates, skipping
// entries without an ASIN or a usable price.
func mapSearchItems(items []searchItem) []domain.CandidateProduct {
	candidates := make([]domain.CandidateProduct, 0, len(items))
	for _, item := range items {
		if item.ASIN == "" || item.Price <= 0 {
			continue
		}
		candidates = append(candidates, domain.CandidateProduct{
			ASIN:          item.ASIN,
			Title:         item.Title,
			Description:   item.Description,
			Brand:         item.Brand,
			Category:      item.Category,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
			Rating:        item.Rating,
			ReviewCount:   item.ReviewCount,
			IsPrime:       item.IsPrime,
			ImageURL:      item.ImageURL,
			ProductURL:    item.ProductURL,
		})
	}
	return candidates
}
