package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

// memRemote is an in-memory cache.RemoteStore for wiring a real cache
// manager into pipeline tests.
type memRemote struct {
	mu       sync.Mutex
	data     map[string][]byte
	counters map[string]int64
}

func newMemRemote() *memRemote {
	return &memRemote{
		data:     make(map[string][]byte),
		counters: make(map[string]int64),
	}
}

func (f *memRemote) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *memRemote) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := f.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *memRemote) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *memRemote) SetMulti(ctx context.Context, entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range entries {
		f.data[k] = v
	}
	return nil
}

func (f *memRemote) Increment(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

func (f *memRemote) GetCount(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.counters[key]
	return count, ok, nil
}

func (f *memRemote) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

func newTestCache() *cache.Manager {
	return cache.NewManager(newMemRemote())
}

// fakeCatalog serves external ids and popular pages without the network.
type fakeCatalog struct {
	mu       sync.Mutex
	imdbIDs  map[string]string // "<kind>:<tmdbID>" -> imdb id ("" = known absent)
	pages    map[models.MediaKind][][]models.CatalogItem
	idCalls  int
	popCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		imdbIDs: make(map[string]string),
		pages:   make(map[models.MediaKind][][]models.CatalogItem),
	}
}

func catalogKey(kind models.MediaKind, tmdbID int) string {
	return fmt.Sprintf("%s:%d", kind, tmdbID)
}

func (f *fakeCatalog) GetExternalIDs(ctx context.Context, kind models.MediaKind, tmdbID int) (*ExternalIDs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idCalls++
	imdbID, ok := f.imdbIDs[catalogKey(kind, tmdbID)]
	if !ok {
		return nil, fmt.Errorf("TMDB API returned status 404 for %s/%d", kind, tmdbID)
	}
	return &ExternalIDs{ID: tmdbID, IMDBID: imdbID}, nil
}

func (f *fakeCatalog) GetPopular(ctx context.Context, kind models.MediaKind, page int) ([]models.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popCalls++
	pages := f.pages[kind]
	if page < 1 || page > len(pages) {
		return nil, nil
	}
	return pages[page-1], nil
}

// fakeRatings serves ratings without the network.
type fakeRatings struct {
	mu      sync.Mutex
	ratings map[string]float64
	calls   int
}

func newFakeRatings() *fakeRatings {
	return &fakeRatings{ratings: make(map[string]float64)}
}

func (f *fakeRatings) FetchRating(ctx context.Context, imdbID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	rating, ok := f.ratings[imdbID]
	return rating, ok
}
