package services

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Zerr0-C00L/WatchArr/internal/cache"
)

const omdbBaseURL = "https://www.omdbapi.com/"

// OMDBClient fetches IMDb ratings from the OMDb API. Every attempt bumps the
// daily usage counter before the request goes out, so the counter tracks
// attempts rather than successes. All failures degrade to "no rating"; the
// client never returns an error.
type OMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Manager
}

// NewOMDBClient creates an OMDb client. The limiter paces requests so a
// population run spreads its quota instead of bursting; OMDb's free tier is
// 1000 requests/day, so ~1 rps with a small burst keeps well under the
// per-second ceiling while the daily counter tracks the hard budget.
func NewOMDBClient(apiKey string, cacheManager *cache.Manager) *OMDBClient {
	return &OMDBClient{
		apiKey:  apiKey,
		baseURL: omdbBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		cache:   cacheManager,
	}
}

// Configured reports whether an OMDb API key is set.
func (c *OMDBClient) Configured() bool {
	return c.apiKey != ""
}

type omdbResponse struct {
	IMDBRating string `json:"imdbRating"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// FetchRating retrieves the IMDb rating for one IMDb id. Returns false when
// the key is missing, the call fails, or the body does not parse as a
// positive rating.
func (c *OMDBClient) FetchRating(ctx context.Context, imdbID string) (float64, bool) {
	if c.apiKey == "" || imdbID == "" {
		return 0, false
	}

	// Count the attempt before the call; failed requests still spend quota.
	today := time.Now().UTC().Format("2006-01-02")
	c.cache.IncrementDailyUsage(ctx, today)

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ OMDb request for %s failed: %v", imdbID, err)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ OMDb returned status %d for %s", resp.StatusCode, imdbID)
		return 0, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, false
	}

	var body omdbResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, false
	}
	if body.Response != "True" {
		return 0, false
	}

	rating, err := strconv.ParseFloat(body.IMDBRating, 64)
	if err != nil || rating <= 0 || rating > 10 {
		return 0, false
	}

	return rating, true
}

// DailyUsage reports today's attempt count, for the operator status page.
func (c *OMDBClient) DailyUsage(ctx context.Context) int64 {
	today := time.Now().UTC().Format("2006-01-02")
	count, _ := c.cache.GetDailyUsage(ctx, today)
	return count
}
