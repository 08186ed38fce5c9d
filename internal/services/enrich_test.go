package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

func TestEnrichEndToEndThenFullyCached(t *testing.T) {
	ctx := context.Background()
	cacheManager := newTestCache()
	catalog := newFakeCatalog()
	ratings := newFakeRatings()

	catalog.imdbIDs[catalogKey(models.MediaKindMovie, 27205)] = "tt1375666"
	ratings.ratings["tt1375666"] = 8.8

	e := NewEnricher(cacheManager, catalog, ratings)
	input := []models.CatalogItem{{TMDBID: 27205, MediaKind: models.MediaKindMovie, Title: "Inception"}}

	// First call: one mapping miss -> network, one rating miss -> network.
	out, stats := e.EnrichItems(ctx, input)
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
	if out[0].IMDBID != "tt1375666" {
		t.Fatalf("expected imdb id resolved, got %q", out[0].IMDBID)
	}
	if out[0].Rating == nil || *out[0].Rating != 8.8 {
		t.Fatalf("expected rating 8.8, got %v", out[0].Rating)
	}
	if catalog.idCalls != 1 || ratings.calls != 1 {
		t.Fatalf("expected exactly one network call each, got ids=%d ratings=%d", catalog.idCalls, ratings.calls)
	}
	if stats.FetchedRatings != 1 || stats.CachedRatings != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Second call with the same input performs zero network calls.
	out, stats = e.EnrichItems(ctx, input)
	if catalog.idCalls != 1 || ratings.calls != 1 {
		t.Fatalf("second call must be fully cached, got ids=%d ratings=%d", catalog.idCalls, ratings.calls)
	}
	if out[0].Rating == nil || *out[0].Rating != 8.8 {
		t.Fatalf("expected cached rating 8.8, got %v", out[0].Rating)
	}
	if stats.CachedRatings != 1 || stats.FetchedRatings != 0 {
		t.Fatalf("unexpected stats on cached pass: %+v", stats)
	}
}

func TestEnrichMalformedItemsPassThrough(t *testing.T) {
	ctx := context.Background()
	e := NewEnricher(newTestCache(), newFakeCatalog(), newFakeRatings())

	input := []models.CatalogItem{
		{TMDBID: 0, MediaKind: models.MediaKindMovie, Title: "no id"},
		{TMDBID: 42, MediaKind: "podcast", Title: "bad kind"},
	}

	out, stats := e.EnrichItems(ctx, input)
	if len(out) != 2 {
		t.Fatalf("expected both items back, got %d", len(out))
	}
	for _, item := range out {
		if item.IMDBID != "" || item.Rating != nil {
			t.Fatalf("malformed item must pass through unmodified: %+v", item)
		}
	}
	if stats.MissingIMDBID != 2 {
		t.Fatalf("expected 2 missing mappings, got %d", stats.MissingIMDBID)
	}
}

func TestEnrichKnownAbsentMappingSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	cacheManager := newTestCache()
	catalog := newFakeCatalog()
	ratings := newFakeRatings()

	// TMDB has no IMDb id for this title.
	catalog.imdbIDs[catalogKey(models.MediaKindSeries, 555)] = ""

	e := NewEnricher(cacheManager, catalog, ratings)
	input := []models.CatalogItem{{TMDBID: 555, MediaKind: models.MediaKindSeries}}

	_, stats := e.EnrichItems(ctx, input)
	if catalog.idCalls != 1 {
		t.Fatalf("expected one lookup, got %d", catalog.idCalls)
	}
	if stats.MissingIMDBID != 1 {
		t.Fatalf("expected missing mapping counted, got %+v", stats)
	}

	// The sentinel stops the lookup from repeating.
	_, stats = e.EnrichItems(ctx, input)
	if catalog.idCalls != 1 {
		t.Fatalf("known-absent mapping must not hit the network again, got %d calls", catalog.idCalls)
	}
	if stats.MissingIMDBID != 1 {
		t.Fatalf("expected missing mapping counted again, got %+v", stats)
	}
}

func TestEnrichMappingResolvedButRatingUnavailable(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	catalog.imdbIDs[catalogKey(models.MediaKindMovie, 7)] = "tt0000007"

	e := NewEnricher(newTestCache(), catalog, newFakeRatings())
	out, stats := e.EnrichItems(ctx, []models.CatalogItem{{TMDBID: 7, MediaKind: models.MediaKindMovie}})

	if out[0].IMDBID != "tt0000007" {
		t.Fatalf("mapping should resolve, got %q", out[0].IMDBID)
	}
	if out[0].Rating != nil {
		t.Fatal("rating must stay absent when the fetch fails")
	}
	if stats.MissingRatings != 1 {
		t.Fatalf("expected 1 missing rating, got %+v", stats)
	}
}

func TestEnrichDisabledCacheStillResolves(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	ratings := newFakeRatings()
	catalog.imdbIDs[catalogKey(models.MediaKindMovie, 27205)] = "tt1375666"
	ratings.ratings["tt1375666"] = 8.8

	e := NewEnricher(cache.NewManager(nil), catalog, ratings)
	input := []models.CatalogItem{{TMDBID: 27205, MediaKind: models.MediaKindMovie}}

	out, _ := e.EnrichItems(ctx, input)
	if out[0].Rating == nil || *out[0].Rating != 8.8 {
		t.Fatalf("disabled cache must still enrich via network, got %v", out[0].Rating)
	}

	// Without a cache every call goes to the network again.
	e.EnrichItems(ctx, input)
	if catalog.idCalls != 2 || ratings.calls != 2 {
		t.Fatalf("expected repeated network calls with disabled cache, got ids=%d ratings=%d", catalog.idCalls, ratings.calls)
	}
}

func TestEnrichProcessesAllChunks(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	ratings := newFakeRatings()

	var input []models.CatalogItem
	for i := 1; i <= 12; i++ {
		imdbID := fmt.Sprintf("tt%07d", i)
		catalog.imdbIDs[catalogKey(models.MediaKindMovie, i)] = imdbID
		ratings.ratings[imdbID] = 7.0
		input = append(input, models.CatalogItem{TMDBID: i, MediaKind: models.MediaKindMovie})
	}

	e := NewEnricher(newTestCache(), catalog, ratings)
	out, stats := e.EnrichItems(ctx, input)

	if len(out) != 12 {
		t.Fatalf("expected 12 items, got %d", len(out))
	}
	if stats.Processed != 12 {
		t.Fatalf("expected 12 processed, got %d", stats.Processed)
	}
	if stats.FetchedRatings != 12 {
		t.Fatalf("expected 12 fetched ratings, got %+v", stats)
	}
}
