// Package ranking orders catalog items by a blended desirability score. Pure
// functions over already-enriched data; no I/O.
package ranking

import (
	"math"
	"sort"

	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

// Blend weights. Review quality carries the largest share; cast billing
// mostly breaks near-ties.
const (
	popularityWeight = 0.25
	reviewWeight     = 0.35
	boxOfficeWeight  = 0.25
	roleWeight       = 0.15
)

// missingCastOrder is the billing position assumed when an item carries no
// cast order at all: below any real credit.
const missingCastOrder = 999

// Score computes the blended score for one item. Series scores are dampened
// by an episode-count penalty; movies never are.
func Score(item models.CatalogItem) float64 {
	score := popularityWeight*item.Popularity +
		reviewWeight*reviewScore(item) +
		boxOfficeWeight*boxOfficeScore(item) +
		roleWeight*roleScore(item)

	if item.MediaKind == models.MediaKindSeries {
		score *= episodeCountPenalty(item.EpisodeCount)
	}

	return score
}

// reviewScore blends average vote with a capped vote-volume bonus, both on
// roughly 0-100 scales.
func reviewScore(item models.CatalogItem) float64 {
	volume := math.Min(float64(item.VoteCount)/1000, 1)
	return item.VoteAverage*10 + volume*50
}

// boxOfficeScore maps revenue onto 0-100 logarithmically. Revenue is not
// tracked for series, so they contribute 0 here.
func boxOfficeScore(item models.CatalogItem) float64 {
	if item.MediaKind != models.MediaKindMovie || item.Revenue <= 0 {
		return 0
	}
	return math.Min(math.Log10(float64(item.Revenue)+1)/10, 1) * 100
}

// roleScore rewards prominent billing: cast order 0 scores 100, order 10 and
// beyond scores 0.
func roleScore(item models.CatalogItem) float64 {
	order := missingCastOrder
	if item.CastOrder != nil {
		order = *item.CastOrder
	}
	capped := math.Min(float64(order), 10)
	return math.Max(0, (10-capped)/10) * 100
}

// episodeCountPenalty dampens short-run series; shows with 10+ episodes keep
// their full score, as do series with an unknown count.
func episodeCountPenalty(episodeCount *int) float64 {
	if episodeCount == nil {
		return 1.0
	}
	switch n := *episodeCount; {
	case n <= 1:
		return 0.1
	case n <= 3:
		return 0.3
	case n <= 5:
		return 0.5
	case n <= 9:
		return 0.7
	default:
		return 1.0
	}
}

// Sort orders items best-first. Poster presence is the primary key: items
// without a poster always sort after items with one regardless of score.
func Sort(items []models.CatalogItem) {
	sort.SliceStable(items, func(i, j int) bool {
		iPoster := items[i].PosterPath != ""
		jPoster := items[j].PosterPath != ""
		if iPoster != jPoster {
			return iPoster
		}
		return Score(items[i]) > Score(items[j])
	})
}
