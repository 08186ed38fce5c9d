package services

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

// enrichChunkSize bounds simultaneous outstanding network calls: within a
// chunk items resolve concurrently, chunks run sequentially.
const enrichChunkSize = 5

// externalIDSource is the slice of the TMDB client the orchestrator needs.
type externalIDSource interface {
	GetExternalIDs(ctx context.Context, kind models.MediaKind, tmdbID int) (*ExternalIDs, error)
}

// ratingSource is the slice of the OMDb client the orchestrator needs.
type ratingSource interface {
	FetchRating(ctx context.Context, imdbID string) (float64, bool)
}

// EnrichStats counts per-call outcomes. Diagnostic; FetchedRatings also
// feeds the population job's new-ratings target.
type EnrichStats struct {
	Processed      int `json:"processed"`
	CachedRatings  int `json:"cachedRatings"`
	FetchedRatings int `json:"fetchedRatings"`
	MissingRatings int `json:"missingRatings"`
	MissingIMDBID  int `json:"missingImdbId"`
}

func (s *EnrichStats) add(o EnrichStats) {
	s.Processed += o.Processed
	s.CachedRatings += o.CachedRatings
	s.FetchedRatings += o.FetchedRatings
	s.MissingRatings += o.MissingRatings
	s.MissingIMDBID += o.MissingIMDBID
}

// Enricher attaches IMDb ids and ratings to catalog items, resolving through
// the two-tier cache first and falling back to the network. It never fails a
// batch: unresolvable items pass through unmodified and are counted.
type Enricher struct {
	cache   *cache.Manager
	catalog externalIDSource
	ratings ratingSource
}

func NewEnricher(cacheManager *cache.Manager, catalog externalIDSource, ratings ratingSource) *Enricher {
	return &Enricher{
		cache:   cacheManager,
		catalog: catalog,
		ratings: ratings,
	}
}

// EnrichItems resolves ratings for a heterogeneous list of catalog items.
// Output order is not guaranteed to match the input; callers that need a
// stable order re-sort afterward. Malformed items (non-positive id, unknown
// kind) pass through untouched.
func (e *Enricher) EnrichItems(ctx context.Context, items []models.CatalogItem) ([]models.CatalogItem, EnrichStats) {
	var stats EnrichStats
	if len(items) == 0 {
		return items, stats
	}

	out := make([]models.CatalogItem, 0, len(items))
	for start := 0; start < len(items); start += enrichChunkSize {
		end := start + enrichChunkSize
		if end > len(items) {
			end = len(items)
		}

		chunk := make([]models.CatalogItem, end-start)
		copy(chunk, items[start:end])

		chunkStats := e.enrichChunk(ctx, chunk)
		stats.add(chunkStats)
		out = append(out, chunk...)
	}

	return out, stats
}

// enrichChunk resolves one chunk in place. Per chunk it issues at most one
// batched mapping read, one batched mapping write, one batched rating read,
// and one batched rating write against the cache.
func (e *Enricher) enrichChunk(ctx context.Context, chunk []models.CatalogItem) EnrichStats {
	var stats EnrichStats
	stats.Processed = len(chunk)

	// Resolve id mappings from the cache, partitioned by media kind.
	byKind := map[models.MediaKind][]int{}
	for i := range chunk {
		item := &chunk[i]
		if item.TMDBID <= 0 || !item.MediaKind.Valid() {
			stats.MissingIMDBID++
			continue
		}
		if item.IMDBID != "" {
			continue
		}
		byKind[item.MediaKind] = append(byKind[item.MediaKind], item.TMDBID)
	}

	cached := map[models.MediaKind]map[int]models.IDMapping{}
	for kind, ids := range byKind {
		cached[kind] = e.cache.GetIDMappingsBatch(ctx, kind, ids)
	}

	// Items still unmapped go to the network concurrently. A mapping cached
	// with an empty IMDb id is a known-absent sentinel: TMDB was already
	// asked and has no id, so skip the lookup.
	type lookup struct {
		idx  int
		kind models.MediaKind
	}
	var lookups []lookup
	for i := range chunk {
		item := &chunk[i]
		if item.TMDBID <= 0 || !item.MediaKind.Valid() || item.IMDBID != "" {
			continue
		}
		if mapping, ok := cached[item.MediaKind][item.TMDBID]; ok {
			if mapping.IMDBID == "" {
				stats.MissingIMDBID++
				continue
			}
			item.IMDBID = mapping.IMDBID
			continue
		}
		lookups = append(lookups, lookup{idx: i, kind: item.MediaKind})
	}

	resolved := make([]string, len(lookups))
	found := make([]bool, len(lookups))

	g, gctx := errgroup.WithContext(ctx)
	for li, lk := range lookups {
		li, lk := li, lk
		g.Go(func() error {
			ids, err := e.catalog.GetExternalIDs(gctx, lk.kind, chunk[lk.idx].TMDBID)
			if err != nil {
				log.Printf("⚠️ External id lookup failed for %s/%d: %v", lk.kind, chunk[lk.idx].TMDBID, err)
				return nil
			}
			resolved[li] = ids.IMDBID
			found[li] = true
			return nil
		})
	}
	g.Wait()

	// One batched mapping write per chunk, known-absent sentinels included.
	newMappings := map[models.MediaKind]map[int]string{}
	for li, lk := range lookups {
		if !found[li] {
			continue
		}
		if newMappings[lk.kind] == nil {
			newMappings[lk.kind] = map[int]string{}
		}
		newMappings[lk.kind][chunk[lk.idx].TMDBID] = resolved[li]
		if resolved[li] == "" {
			stats.MissingIMDBID++
		} else {
			chunk[lk.idx].IMDBID = resolved[li]
		}
	}
	for li := range lookups {
		if !found[li] {
			stats.MissingIMDBID++
		}
	}
	for kind, mappings := range newMappings {
		e.cache.SetIDMappingsBatch(ctx, kind, mappings)
	}

	// Batch-read ratings for everything that now has an IMDb id.
	var needRating []string
	for i := range chunk {
		if chunk[i].IMDBID != "" && chunk[i].Rating == nil {
			needRating = append(needRating, chunk[i].IMDBID)
		}
	}
	cachedRatings := e.cache.GetRatingsBatch(ctx, needRating)
	for i := range chunk {
		item := &chunk[i]
		if item.IMDBID == "" || item.Rating != nil {
			continue
		}
		if record, ok := cachedRatings[item.IMDBID]; ok {
			rating := record.Rating
			item.Rating = &rating
			stats.CachedRatings++
		}
	}

	// Ratings still missing come from OMDb concurrently, then one batched
	// rating write per chunk.
	var fetchIdx []int
	for i := range chunk {
		if chunk[i].IMDBID != "" && chunk[i].Rating == nil {
			fetchIdx = append(fetchIdx, i)
		}
	}

	fetched := make([]float64, len(fetchIdx))
	ok := make([]bool, len(fetchIdx))

	g, gctx = errgroup.WithContext(ctx)
	for fi, idx := range fetchIdx {
		fi, idx := fi, idx
		g.Go(func() error {
			fetched[fi], ok[fi] = e.ratings.FetchRating(gctx, chunk[idx].IMDBID)
			return nil
		})
	}
	g.Wait()

	newRatings := map[string]float64{}
	for fi, idx := range fetchIdx {
		if !ok[fi] {
			stats.MissingRatings++
			continue
		}
		rating := fetched[fi]
		chunk[idx].Rating = &rating
		newRatings[chunk[idx].IMDBID] = rating
		stats.FetchedRatings++
	}
	if len(newRatings) > 0 {
		e.cache.SetRatingsBatch(ctx, newRatings)
	}

	return stats
}
