package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/karooma/backend/internal/domain"
	"golang.org/x/time/rate"
)

const maxRetries = 3

// Client handles communication with the marketplace product search API.
// The upstream is rate-limited per partner account, so all requests go
// through a shared limiter.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new marketplace API client. rps is the sustained
// request rate allowed by the partner contract.
func NewClient(apiKey, baseURL string, rps float64, burst int) *Client {
	if rps <= 0 {
		rps = 1 // PA-API grants roughly 1 req/sec at the entry tier
	}
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SearchCandidates searches the marketplace for products matching a
// concept item's criteria. Rate-limit and upstream outage responses map
// to domain.ErrMarketplaceUnavailable so the curation service can route
// them into the fallback path.
func (c *Client) SearchCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.CandidateProduct, error) {
	endpoint := fmt.Sprintf("%s/v1/products/search", c.baseURL)

	params := url.Values{}
	params.Add("keywords", strings.Join(query.Keywords, " "))
	params.Add("api_key", c.apiKey)
	if query.Category != "" {
		params.Add("category", query.Category)
	}
	if query.PriceMin > 0 {
		params.Add("minPrice", strconv.FormatFloat(query.PriceMin, 'f', 2, 64))
	}
	if query.PriceMax > 0 {
		params.Add("maxPrice", strconv.FormatFloat(query.PriceMax, 'f', 2, 64))
	}
	if query.RatingMin > 0 {
		params.Add("minRating", strconv.FormatFloat(query.RatingMin, 'f', 1, 64))
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	params.Add("itemCount", strconv.Itoa(limit))

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if c.debug {
				log.Printf("[MARKETPLACE] request error (attempt %d): %v", attempt, err)
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrMarketplaceUnavailable, err)
			sleepBackoff(ctx, attempt)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var searchResp searchResponse
			if err := json.Unmarshal(body, &searchResp); err != nil {
				return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrMarketplaceAPIFailure, err)
			}
			if c.debug {
				log.Printf("[MARKETPLACE] %d items for keywords %q", len(searchResp.Items), strings.Join(query.Keywords, " "))
			}
			return mapSearchItems(searchResp.Items), nil

		case resp.StatusCode == http.StatusNotFound:
			return nil, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			if c.debug {
				log.Printf("[MARKETPLACE] transient error (attempt %d) - status %d: %s", attempt, resp.StatusCode, string(body))
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrMarketplaceUnavailable, resp.StatusCode)
			sleepBackoff(ctx, attempt)

		default:
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrMarketplaceAPIFailure, resp.StatusCode, string(body))
		}
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Karooma/1.0")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// sleepBackoff waits out the backoff, honoring context cancellation
func sleepBackoff(ctx context.Context, attempt int) {
	select {
	case <-ctx.Done():
	case <-time.After(exponentialBackoff(attempt)):
	}
}
