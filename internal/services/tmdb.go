package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
)

type TMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewTMDBClient(apiKey string) *TMDBClient {
	return &TMDBClient{
		apiKey:  apiKey,
		baseURL: tmdbBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether a TMDB API key is set.
func (c *TMDBClient) Configured() bool {
	return c.apiKey != ""
}

// tmdbListEntry is one row of a popular/search/discover listing. Movies use
// title/release_date, series use name/first_air_date.
type tmdbListEntry struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
}

// tmdbDetail is a movie or series detail response; only the fields the
// ranking engine and show pages consume.
type tmdbDetail struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Revenue          int64   `json:"revenue"`
	NumberOfEpisodes *int    `json:"number_of_episodes"`
	IMDbID           string  `json:"imdb_id"`
}

// ExternalIDs represents provider ids for a title
type ExternalIDs struct {
	ID     int    `json:"id"`
	IMDBID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

// GetPopular returns one page of the popular listing for a media kind.
// An empty slice with no error means the catalog is exhausted at this page.
func (c *TMDBClient) GetPopular(ctx context.Context, kind models.MediaKind, page int) ([]models.CatalogItem, error) {
	endpoint := fmt.Sprintf("%s/%s/popular", c.baseURL, kind.TMDBPath())
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))

	data, err := c.makeRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []tmdbListEntry `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal popular: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(result.Results))
	for _, r := range result.Results {
		items = append(items, c.convertListEntry(&r, kind))
	}

	return items, nil
}

// GetExternalIDs retrieves provider ids (IMDb, TVDB) for a title
func (c *TMDBClient) GetExternalIDs(ctx context.Context, kind models.MediaKind, tmdbID int) (*ExternalIDs, error) {
	endpoint := fmt.Sprintf("%s/%s/%d/external_ids", c.baseURL, kind.TMDBPath(), tmdbID)

	data, err := c.makeRequest(ctx, endpoint, url.Values{})
	if err != nil {
		return nil, err
	}

	var ids ExternalIDs
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal external IDs: %w", err)
	}

	return &ids, nil
}

// GetDetail retrieves full details for a title, including revenue and
// episode count where the kind tracks them
func (c *TMDBClient) GetDetail(ctx context.Context, kind models.MediaKind, tmdbID int) (*models.CatalogItem, error) {
	endpoint := fmt.Sprintf("%s/%s/%d", c.baseURL, kind.TMDBPath(), tmdbID)

	data, err := c.makeRequest(ctx, endpoint, url.Values{})
	if err != nil {
		return nil, err
	}

	var detail tmdbDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
	}

	item := models.CatalogItem{
		TMDBID:       detail.ID,
		MediaKind:    kind,
		Title:        firstNonEmpty(detail.Title, detail.Name),
		Overview:     detail.Overview,
		PosterPath:   detail.PosterPath,
		BackdropPath: detail.BackdropPath,
		ReleaseDate:  firstNonEmpty(detail.ReleaseDate, detail.FirstAirDate),
		Popularity:   detail.Popularity,
		VoteAverage:  detail.VoteAverage,
		VoteCount:    detail.VoteCount,
		Revenue:      detail.Revenue,
		EpisodeCount: detail.NumberOfEpisodes,
		IMDBID:       detail.IMDbID,
	}
	return &item, nil
}

// SearchTitles searches the catalog for one media kind
func (c *TMDBClient) SearchTitles(ctx context.Context, kind models.MediaKind, query string, page int) ([]models.CatalogItem, error) {
	endpoint := fmt.Sprintf("%s/search/%s", c.baseURL, kind.TMDBPath())
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", fmt.Sprintf("%d", page))

	data, err := c.makeRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []tmdbListEntry `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search results: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(result.Results))
	for _, r := range result.Results {
		items = append(items, c.convertListEntry(&r, kind))
	}

	return items, nil
}

// makeRequest performs an HTTP GET request to TMDB API
func (c *TMDBClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)

	baseURL := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		baseURL = fmt.Sprintf("%s%s", c.baseURL, endpoint)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TMDB endpoint %s: %w", baseURL, err)
	}

	q := u.Query()
	for k, vals := range params {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDB API returned status %d for %s: %s", resp.StatusCode, u.String(), string(data))
	}

	return data, nil
}

func (c *TMDBClient) convertListEntry(r *tmdbListEntry, kind models.MediaKind) models.CatalogItem {
	return models.CatalogItem{
		TMDBID:       r.ID,
		MediaKind:    kind,
		Title:        firstNonEmpty(r.Title, r.Name),
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
		Popularity:   r.Popularity,
		VoteAverage:  r.VoteAverage,
		VoteCount:    r.VoteCount,
	}
}

func firstNonEmpty(movieField, seriesField string) string {
	if movieField != "" {
		return movieField
	}
	return seriesField
}

// GetPosterURL returns the full poster URL
func (c *TMDBClient) GetPosterURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", tmdbImageBaseURL, size, path)
}
