package models

import "time"

// MediaKind discriminates between movie and series catalog items. It changes
// which TMDB endpoints and which scoring rules apply.
type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "series"
)

// Valid reports whether k is one of the two supported kinds.
func (k MediaKind) Valid() bool {
	return k == MediaKindMovie || k == MediaKindSeries
}

// TMDBPath returns the path segment TMDB uses for this kind ("movie" or "tv").
func (k MediaKind) TMDBPath() string {
	if k == MediaKindSeries {
		return "tv"
	}
	return "movie"
}

// CatalogItem is a partially-populated title from the TMDB catalog. Items
// arrive from popular listings or search results and are enriched with an
// IMDb id and rating where resolvable.
type CatalogItem struct {
	TMDBID       int       `json:"id"`
	MediaKind    MediaKind `json:"media_type"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"poster_path"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	Popularity   float64   `json:"popularity"`
	VoteAverage  float64   `json:"vote_average"`
	VoteCount    int       `json:"vote_count"`
	Revenue      int64     `json:"revenue,omitempty"`
	// CastOrder is the billing position when the item came from a person's
	// credits; nil when not applicable.
	CastOrder *int `json:"cast_order,omitempty"`
	// EpisodeCount is set for series items only; nil means unknown.
	EpisodeCount *int `json:"episode_count,omitempty"`

	// Enrichment output.
	IMDBID string   `json:"imdb_id,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
}

// RatingRecord is a cached IMDb rating keyed by IMDb id. Overwritten whole;
// no history kept.
type RatingRecord struct {
	Rating    float64   `json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IDMapping maps a (media kind, TMDB id) pair to an IMDb id. An empty IMDBID
// with a non-zero UpdatedAt means the lookup was performed and TMDB has no
// IMDb id for the title (known absent), which stops repeated network lookups.
type IDMapping struct {
	IMDBID    string    `json:"imdb_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleLength is the number of days in one full population sweep.
const CycleLength = 30

// CycleState is the singleton resumable state of the population job. It is
// created lazily on the first run and overwritten after every run.
type CycleState struct {
	CycleDayIndex int    `json:"cycle_day_index"`
	LastRunDate   string `json:"last_run_date"` // YYYY-MM-DD, UTC
	MoviePage     int    `json:"movie_page"`
	SeriesPage    int    `json:"series_page"`
}

// DefaultCycleState is the state assumed before the first run ever executes.
func DefaultCycleState() CycleState {
	return CycleState{CycleDayIndex: -1, MoviePage: 1, SeriesPage: 1}
}

// PopulateStatus is the outcome of one population job invocation.
type PopulateStatus string

const (
	PopulateStatusOK      PopulateStatus = "ok"
	PopulateStatusSkipped PopulateStatus = "skipped"
)

// PopulateReport is the per-run counter set returned by the population job
// and echoed by the cron endpoint. Diagnostic only, except NewRatings which
// drives the stop condition.
type PopulateReport struct {
	Status            PopulateStatus `json:"status"`
	Reason            string         `json:"reason,omitempty"`
	DayIndex          int            `json:"dayIndex"`
	MoviePage         int            `json:"moviePage"`
	TVPage            int            `json:"tvPage"`
	MoviePagesScanned int            `json:"moviePagesScanned"`
	TVPagesScanned    int            `json:"tvPagesScanned"`
	Processed         int            `json:"processed"`
	CachedRatings     int            `json:"cachedRatings"`
	FetchedRatings    int            `json:"fetchedRatings"`
	MissingRatings    int            `json:"missingRatings"`
	MissingIMDBID     int            `json:"missingImdbId"`
	NewRatings        int            `json:"newRatings"`
	TargetNewRatings  int            `json:"targetNewRatings"`
}
