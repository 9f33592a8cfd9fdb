package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karooma/backend/internal/domain"
)

// newTestClient builds a client pointed at a test server with the rate
// limiter effectively disabled.
func newTestClient(serverURL string) *Client {
	return NewClient("test-key", serverURL, 1000, 1000)
}

func TestSearchCandidates_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/products/search", r.URL.Path)
		assert.Equal(t, "scrub brush", r.URL.Query().Get("keywords"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Home", r.URL.Query().Get("category"))
		assert.Equal(t, "10.00", r.URL.Query().Get("minPrice"))
		assert.Equal(t, "200.00", r.URL.Query().Get("maxPrice"))
		assert.Equal(t, "4.0", r.URL.Query().Get("minRating"))
		assert.Equal(t, "5", r.URL.Query().Get("itemCount"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"asin": "B08XYZ1234",
					"title": "Heavy Duty Scrub Brush",
					"brand": "CleanCo",
					"categoryPath": "Home",
					"currentPrice": 24.90,
					"originalPrice": 34.90,
					"rating": 4.6,
					"reviewCount": 1523,
					"isPrime": true
				}
			],
			"totalResults": 1
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	candidates, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{
		Keywords:  []string{"scrub", "brush"},
		Category:  "Home",
		PriceMin:  10,
		PriceMax:  200,
		RatingMin: 4.0,
		Limit:     5,
	})

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "B08XYZ1234", candidates[0].ASIN)
	assert.Equal(t, "Heavy Duty Scrub Brush", candidates[0].Title)
	assert.Equal(t, 24.90, candidates[0].Price)
	assert.Equal(t, 34.90, candidates[0].OriginalPrice)
	assert.Equal(t, 1523, candidates[0].ReviewCount)
	assert.True(t, candidates[0].IsPrime)
}

func TestSearchCandidates_NotFoundReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	candidates, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"nothing"}})

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchCandidates_RateLimitedIsUnavailable(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"brush"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketplaceUnavailable))
	assert.Equal(t, int32(maxRetries), hits.Load(), "429 responses should be retried")
}

func TestSearchCandidates_ServerErrorRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"brush"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketplaceUnavailable))
	assert.Equal(t, int32(maxRetries), hits.Load())
}

func TestSearchCandidates_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid keywords"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"brush"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketplaceAPIFailure))
	assert.Equal(t, int32(1), hits.Load(), "4xx responses should not be retried")
}

func TestSearchCandidates_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"brush"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketplaceAPIFailure))
}

func TestSearchCandidates_NetworkErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // closed immediately so requests fail at the dial

	client := newTestClient(server.URL)
	_, err := client.SearchCandidates(context.Background(), domain.CandidateQuery{Keywords: []string{"brush"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketplaceUnavailable))
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, exponentialBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestMapSearchItems_SkipsUnusableEntries(t *testing.T) {
	items := []searchItem{
		{ASIN: "B001", Title: "Valid", Price: 19.90},
		{ASIN: "", Title: "No ASIN", Price: 9.90},
		{ASIN: "B003", Title: "No price"},
		{ASIN: "B004", Title: "Also valid", Price: 5.00},
	}

	candidates := mapSearchItems(items)

	require.Len(t, candidates, 2)
	assert.Equal(t, "B001", candidates[0].ASIN)
	assert.Equal(t, "B004", candidates[1].ASIN)
}
