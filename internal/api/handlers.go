package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Zerr0-C00L/WatchArr/internal/auth"
	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/config"
	"github.com/Zerr0-C00L/WatchArr/internal/models"
	"github.com/Zerr0-C00L/WatchArr/internal/ranking"
	"github.com/Zerr0-C00L/WatchArr/internal/services"
)

// showDetailTimeout caps the externally-facing detail proxy; the enrichment
// pipeline itself carries no per-call timeout beyond the HTTP clients'.
const showDetailTimeout = 30 * time.Second

type Handler struct {
	cfg           *config.Config
	cacheManager  *cache.Manager
	tmdbClient    *services.TMDBClient
	omdbClient    *services.OMDBClient
	enricher      *services.Enricher
	populator     *services.Populator
	scheduler     *services.ServiceScheduler
	authenticator *auth.Authenticator
}

func NewHandler(
	cfg *config.Config,
	cacheManager *cache.Manager,
	tmdbClient *services.TMDBClient,
	omdbClient *services.OMDBClient,
	enricher *services.Enricher,
	populator *services.Populator,
	scheduler *services.ServiceScheduler,
	authenticator *auth.Authenticator,
) *Handler {
	return &Handler{
		cfg:           cfg,
		cacheManager:  cacheManager,
		tmdbClient:    tmdbClient,
		omdbClient:    omdbClient,
		enricher:      enricher,
		populator:     populator,
		scheduler:     scheduler,
		authenticator: authenticator,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"cache_enabled": h.cacheManager.Enabled(),
	})
}

// RunPopulate is the cron trigger endpoint. Authorization and precondition
// failures are the only rating-pipeline errors ever surfaced over HTTP.
func (h *Handler) RunPopulate(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(r) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.tmdbClient == nil || !h.tmdbClient.Configured() {
		respondError(w, http.StatusInternalServerError, "TMDB API key is not configured")
		return
	}
	if h.omdbClient == nil || !h.omdbClient.Configured() {
		respondError(w, http.StatusInternalServerError, "OMDb API key is not configured")
		return
	}
	if !h.cacheManager.Enabled() {
		respondError(w, http.StatusInternalServerError, "rating cache is not configured")
		return
	}

	report := h.populator.Run(r.Context())
	respondJSON(w, http.StatusOK, report)
}

// cronAuthorized accepts the shared cron secret as a bearer token, a trusted
// scheduler marker header, a valid operator token, or any request outside
// production.
func (h *Handler) cronAuthorized(r *http.Request) bool {
	if !h.cfg.IsProduction() {
		return true
	}
	if r.Header.Get("X-Scheduler-Trigger") != "" {
		return true
	}

	token := bearerToken(r)
	if token == "" {
		return false
	}
	if h.cfg.CronSecret != "" && secureCompare(token, h.cfg.CronSecret) {
		return true
	}
	if h.authenticator != nil {
		if _, err := h.authenticator.ValidateToken(token); err == nil {
			return true
		}
	}
	return false
}

// GetShowDetail proxies a single title's details, enriched with its rating
// where resolvable. The only route with an explicit timeout.
func (h *Handler) GetShowDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind := models.MediaKind(vars["kind"])
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid media kind")
		return
	}

	tmdbID, err := strconv.Atoi(vars["id"])
	if err != nil || tmdbID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid catalog ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), showDetailTimeout)
	defer cancel()

	item, err := h.tmdbClient.GetDetail(ctx, kind, tmdbID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to fetch show details")
		return
	}

	enriched, _ := h.enricher.EnrichItems(ctx, []models.CatalogItem{*item})
	respondJSON(w, http.StatusOK, enriched[0])
}

// GetPopularTitles proxies a page of the popular listing, enriched and
// ranked. Enrichment does not preserve order, so results are re-sorted here.
func (h *Handler) GetPopularTitles(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.MediaKindMovie
	}
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid media kind")
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	items, err := h.tmdbClient.GetPopular(r.Context(), kind, page)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to fetch popular titles")
		return
	}

	enriched, _ := h.enricher.EnrichItems(r.Context(), items)
	ranking.Sort(enriched)
	respondJSON(w, http.StatusOK, enriched)
}

// SearchTitles proxies catalog search, enriched and ranked
func (h *Handler) SearchTitles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "search query required")
		return
	}

	kind := models.MediaKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.MediaKindMovie
	}
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid media kind")
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	items, err := h.tmdbClient.SearchTitles(r.Context(), kind, query, page)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to search titles")
		return
	}

	enriched, _ := h.enricher.EnrichItems(r.Context(), items)
	ranking.Sort(enriched)
	respondJSON(w, http.StatusOK, enriched)
}

// GetServices reports background job status and today's ratings-API usage
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"services":   h.scheduler.GetAllStatus(),
		"omdb_usage": h.omdbClient.DailyUsage(r.Context()),
	})
}

// Login issues an operator token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authenticator.Login(body.Username, body.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
