package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

const localTTL = 1 * time.Hour

// RemoteStore is the remote key-value tier behind the process-local cache.
// database.KVStore implements it against Postgres.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, entries map[string][]byte) error
	Increment(ctx context.Context, key string) (int64, error)
	GetCount(ctx context.Context, key string) (int64, bool, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

// Manager is the two-tier rating cache: a process-local TTL map in front of
// a remote key-value store. Every read checks local first, falls through to
// remote, and backfills local on a hit. Remote errors are logged and treated
// as misses; the manager never returns an error to callers. Constructed with
// a nil remote store it runs permanently disabled: all reads miss and all
// writes are no-ops.
type Manager struct {
	remote RemoteStore
	local  *localTier
}

// NewManager creates a cache manager. Pass nil when no remote tier is
// configured; the resulting manager is a valid no-op cache.
func NewManager(remote RemoteStore) *Manager {
	return &Manager{
		remote: remote,
		local:  newLocalTier(localTTL),
	}
}

// Enabled reports whether the remote tier is configured. Callers must treat
// a disabled cache as a permanent degraded mode, not an error.
func (m *Manager) Enabled() bool {
	return m != nil && m.remote != nil
}

// Key schema for the remote tier.
func ratingKey(imdbID string) string {
	return "rating:" + imdbID
}

func mappingKey(kind models.MediaKind, tmdbID int) string {
	return fmt.Sprintf("map:%s:%d", kind, tmdbID)
}

func usageKey(dateKey string) string {
	return "omdb:usage:" + dateKey
}

func lockKey(dateKey string) string {
	return "cron:lock:" + dateKey
}

const stateKey = "cron:state"

// GetRating returns the cached rating for an IMDb id, if present in either
// tier. Unparseable or out-of-range stored values count as misses.
func (m *Manager) GetRating(ctx context.Context, imdbID string) (models.RatingRecord, bool) {
	if !m.Enabled() || imdbID == "" {
		return models.RatingRecord{}, false
	}

	key := ratingKey(imdbID)
	if v, ok := m.local.get(key); ok {
		return v.(models.RatingRecord), true
	}

	raw, err := m.remote.Get(ctx, key)
	if err != nil {
		m.logRemoteError("get rating", err)
		return models.RatingRecord{}, false
	}
	if raw == nil {
		return models.RatingRecord{}, false
	}

	record, ok := decodeRating(raw)
	if !ok {
		return models.RatingRecord{}, false
	}

	m.local.set(key, record)
	return record, true
}

// GetRatingsBatch returns cached ratings for a set of IMDb ids, issuing at
// most one remote multi-get for the ids missing from the local tier.
func (m *Manager) GetRatingsBatch(ctx context.Context, imdbIDs []string) map[string]models.RatingRecord {
	result := make(map[string]models.RatingRecord, len(imdbIDs))
	if !m.Enabled() || len(imdbIDs) == 0 {
		return result
	}

	var missing []string
	for _, id := range imdbIDs {
		if id == "" {
			continue
		}
		if v, ok := m.local.get(ratingKey(id)); ok {
			result[id] = v.(models.RatingRecord)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result
	}

	keys := make([]string, len(missing))
	for i, id := range missing {
		keys[i] = ratingKey(id)
	}

	remote, err := m.remote.GetMulti(ctx, keys)
	if err != nil {
		m.logRemoteError("batch get ratings", err)
		return result
	}

	for _, id := range missing {
		raw, ok := remote[ratingKey(id)]
		if !ok {
			continue
		}
		record, ok := decodeRating(raw)
		if !ok {
			continue
		}
		m.local.set(ratingKey(id), record)
		result[id] = record
	}

	return result
}

// SetRating stores a rating in both tiers. The local write is synchronous
// and authoritative until TTL expiry; the remote write is best-effort and a
// failure is logged, never rolled back. Ratings outside [0, 10] are dropped.
func (m *Manager) SetRating(ctx context.Context, imdbID string, rating float64) {
	m.SetRatingsBatch(ctx, map[string]float64{imdbID: rating})
}

// SetRatingsBatch is the vectorized SetRating, one remote write per call.
func (m *Manager) SetRatingsBatch(ctx context.Context, ratings map[string]float64) {
	if !m.Enabled() || len(ratings) == 0 {
		return
	}

	entries := make(map[string][]byte, len(ratings))
	now := time.Now().UTC()
	for id, rating := range ratings {
		if id == "" || rating < 0 || rating > 10 {
			continue
		}
		record := models.RatingRecord{Rating: rating, UpdatedAt: now}
		m.local.set(ratingKey(id), record)

		raw, err := json.Marshal(record)
		if err != nil {
			continue
		}
		entries[ratingKey(id)] = raw
	}

	if len(entries) == 0 {
		return
	}
	if err := m.remote.SetMulti(ctx, entries); err != nil {
		m.logRemoteError("batch set ratings", err)
	}
}

// GetIDMapping returns the cached IMDb id mapping for a catalog item. A
// mapping with an empty IMDBID is a known-absent sentinel: the lookup ran
// and TMDB has no IMDb id for the title.
func (m *Manager) GetIDMapping(ctx context.Context, kind models.MediaKind, tmdbID int) (models.IDMapping, bool) {
	if !m.Enabled() {
		return models.IDMapping{}, false
	}

	key := mappingKey(kind, tmdbID)
	if v, ok := m.local.get(key); ok {
		return v.(models.IDMapping), true
	}

	raw, err := m.remote.Get(ctx, key)
	if err != nil {
		m.logRemoteError("get mapping", err)
		return models.IDMapping{}, false
	}
	if raw == nil {
		return models.IDMapping{}, false
	}

	var mapping models.IDMapping
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return models.IDMapping{}, false
	}

	m.local.set(key, mapping)
	return mapping, true
}

// GetIDMappingsBatch returns cached mappings for one media kind, issuing at
// most one remote multi-get for local misses.
func (m *Manager) GetIDMappingsBatch(ctx context.Context, kind models.MediaKind, tmdbIDs []int) map[int]models.IDMapping {
	result := make(map[int]models.IDMapping, len(tmdbIDs))
	if !m.Enabled() || len(tmdbIDs) == 0 {
		return result
	}

	var missing []int
	for _, id := range tmdbIDs {
		if v, ok := m.local.get(mappingKey(kind, id)); ok {
			result[id] = v.(models.IDMapping)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result
	}

	keys := make([]string, len(missing))
	for i, id := range missing {
		keys[i] = mappingKey(kind, id)
	}

	remote, err := m.remote.GetMulti(ctx, keys)
	if err != nil {
		m.logRemoteError("batch get mappings", err)
		return result
	}

	for _, id := range missing {
		raw, ok := remote[mappingKey(kind, id)]
		if !ok {
			continue
		}
		var mapping models.IDMapping
		if err := json.Unmarshal(raw, &mapping); err != nil {
			continue
		}
		m.local.set(mappingKey(kind, id), mapping)
		result[id] = mapping
	}

	return result
}

// SetIDMapping stores one mapping. An empty imdbID records a known-absent
// sentinel.
func (m *Manager) SetIDMapping(ctx context.Context, kind models.MediaKind, tmdbID int, imdbID string) {
	m.SetIDMappingsBatch(ctx, kind, map[int]string{tmdbID: imdbID})
}

// SetIDMappingsBatch is the vectorized SetIDMapping, one remote write per call.
func (m *Manager) SetIDMappingsBatch(ctx context.Context, kind models.MediaKind, mappings map[int]string) {
	if !m.Enabled() || len(mappings) == 0 {
		return
	}

	entries := make(map[string][]byte, len(mappings))
	now := time.Now().UTC()
	for tmdbID, imdbID := range mappings {
		mapping := models.IDMapping{IMDBID: imdbID, UpdatedAt: now}
		m.local.set(mappingKey(kind, tmdbID), mapping)

		raw, err := json.Marshal(mapping)
		if err != nil {
			continue
		}
		entries[mappingKey(kind, tmdbID)] = raw
	}

	if err := m.remote.SetMulti(ctx, entries); err != nil {
		m.logRemoteError("batch set mappings", err)
	}
}

// IncrementDailyUsage bumps the ratings-API call counter for a UTC date key
// and returns the new count. Remote-only: the counter must be accurate
// across processes, so there is no local shortcut. Returns 0 when disabled
// or on error.
func (m *Manager) IncrementDailyUsage(ctx context.Context, dateKey string) int64 {
	if !m.Enabled() {
		return 0
	}

	count, err := m.remote.Increment(ctx, usageKey(dateKey))
	if err != nil {
		m.logRemoteError("increment usage", err)
		return 0
	}
	return count
}

// GetDailyUsage reads the ratings-API call counter for a date key.
func (m *Manager) GetDailyUsage(ctx context.Context, dateKey string) (int64, bool) {
	if !m.Enabled() {
		return 0, false
	}

	count, found, err := m.remote.GetCount(ctx, usageKey(dateKey))
	if err != nil {
		m.logRemoteError("get usage", err)
		return 0, false
	}
	return count, found
}

// GetCycleState reads the population job's singleton state. Remote-only:
// the state is mutated across processes and must never be served stale.
func (m *Manager) GetCycleState(ctx context.Context) (models.CycleState, bool) {
	if !m.Enabled() {
		return models.CycleState{}, false
	}

	raw, err := m.remote.Get(ctx, stateKey)
	if err != nil {
		m.logRemoteError("get cycle state", err)
		return models.CycleState{}, false
	}
	if raw == nil {
		return models.CycleState{}, false
	}

	var state models.CycleState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.CycleState{}, false
	}
	return state, true
}

// SetCycleState overwrites the population job's singleton state.
func (m *Manager) SetCycleState(ctx context.Context, state models.CycleState) {
	if !m.Enabled() {
		return
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := m.remote.Set(ctx, stateKey, raw); err != nil {
		m.logRemoteError("set cycle state", err)
	}
}

// AcquireRunLock atomically claims the population run for a date. Exactly
// one caller per date observes true; overlapping invocations lose the race
// here instead of both running.
func (m *Manager) AcquireRunLock(ctx context.Context, dateKey string) bool {
	if !m.Enabled() {
		return false
	}

	won, err := m.remote.SetNX(ctx, lockKey(dateKey), []byte(`{"locked":true}`))
	if err != nil {
		m.logRemoteError("acquire run lock", err)
		return false
	}
	return won
}

// decodeRating parses a stored rating record and enforces the [0, 10]
// invariant; anything else is a miss.
func decodeRating(raw []byte) (models.RatingRecord, bool) {
	var record models.RatingRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.RatingRecord{}, false
	}
	if record.Rating < 0 || record.Rating > 10 {
		return models.RatingRecord{}, false
	}
	return record, true
}

// logRemoteError classifies a remote-tier failure by message: quota and
// rate-limit conditions are expected under load and log at warning level,
// everything else at error level. Either way the caller treats it as a miss.
func (m *Manager) logRemoteError(op string, err error) {
	if isQuotaError(err) {
		log.Printf("⚠️ Cache %s hit provider quota: %v", op, err)
		return
	}
	log.Printf("❌ Cache %s failed: %v", op, err)
}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "max daily request")
}
