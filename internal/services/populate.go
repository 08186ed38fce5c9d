package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

const (
	defaultTargetNewRatings = 1000
	defaultMaxPopularPage   = 500
)

// popularSource is the slice of the TMDB client the population job needs.
type popularSource interface {
	GetPopular(ctx context.Context, kind models.MediaKind, page int) ([]models.CatalogItem, error)
}

// Populator walks pages of the popular catalog on a repeating 30-day cycle,
// warming the rating cache through the enricher. One run per UTC day; each
// run advances a resumable page cursor per media kind and stops once it has
// fetched the target number of new ratings, hit the page ceiling, or drained
// the catalog. Progress persists across runs and processes via CycleState.
type Populator struct {
	cache    *cache.Manager
	catalog  popularSource
	enricher *Enricher
	status   *ServiceScheduler
	target   int
	maxPage  int
}

func NewPopulator(cacheManager *cache.Manager, catalog popularSource, enricher *Enricher, status *ServiceScheduler, target, maxPage int) *Populator {
	if target <= 0 {
		target = defaultTargetNewRatings
	}
	if maxPage <= 0 {
		maxPage = defaultMaxPopularPage
	}
	if status == nil {
		status = NewServiceScheduler()
	}
	return &Populator{
		cache:    cacheManager,
		catalog:  catalog,
		enricher: enricher,
		status:   status,
		target:   target,
		maxPage:  maxPage,
	}
}

// Run executes one population pass. It never returns an error: per-item
// failures are counted, page-level failures end that media kind for the run,
// and whatever progress was made is persisted unconditionally.
func (p *Populator) Run(ctx context.Context) models.PopulateReport {
	today := time.Now().UTC().Format("2006-01-02")

	state, ok := p.cache.GetCycleState(ctx)
	if !ok {
		state = models.DefaultCycleState()
	}

	if state.LastRunDate == today {
		return models.PopulateReport{
			Status:   models.PopulateStatusSkipped,
			Reason:   "Already ran today",
			DayIndex: state.CycleDayIndex,
		}
	}

	// Atomic claim on today's run. Two overlapping invocations can both see
	// a stale LastRunDate; only the one that wins this insert proceeds.
	if !p.cache.AcquireRunLock(ctx, today) {
		return models.PopulateReport{
			Status:   models.PopulateStatusSkipped,
			Reason:   "Already ran today",
			DayIndex: state.CycleDayIndex,
		}
	}

	nextDay := (state.CycleDayIndex + 1) % models.CycleLength
	if nextDay < 0 {
		nextDay += models.CycleLength
	}

	moviePage := state.MoviePage
	seriesPage := state.SeriesPage
	if nextDay == 0 {
		// Cycle wraparound restarts the sweep from the front of the catalog.
		moviePage = 1
		seriesPage = 1
	}
	if moviePage < 1 {
		moviePage = 1
	}
	if seriesPage < 1 {
		seriesPage = 1
	}

	log.Printf("🐎 Population run starting: day %d/%d, movie page %d, tv page %d, target %d new ratings",
		nextDay, models.CycleLength, moviePage, seriesPage, p.target)
	p.status.MarkRunning(ServicePopulate)

	report := models.PopulateReport{
		Status:           models.PopulateStatusOK,
		DayIndex:         nextDay,
		TargetNewRatings: p.target,
	}

	movieDone := moviePage > p.maxPage
	seriesDone := seriesPage > p.maxPage

	for report.NewRatings < p.target && !(movieDone && seriesDone) {
		var pageItems []models.CatalogItem

		if !movieDone {
			items, err := p.catalog.GetPopular(ctx, models.MediaKindMovie, moviePage)
			switch {
			case err != nil:
				log.Printf("❌ Popular movies page %d failed: %v", moviePage, err)
				movieDone = true
			case len(items) == 0:
				movieDone = true
			default:
				pageItems = append(pageItems, items...)
				report.MoviePagesScanned++
				moviePage++
				movieDone = moviePage > p.maxPage
			}
		}

		if !seriesDone {
			items, err := p.catalog.GetPopular(ctx, models.MediaKindSeries, seriesPage)
			switch {
			case err != nil:
				log.Printf("❌ Popular tv page %d failed: %v", seriesPage, err)
				seriesDone = true
			case len(items) == 0:
				seriesDone = true
			default:
				pageItems = append(pageItems, items...)
				report.TVPagesScanned++
				seriesPage++
				seriesDone = seriesPage > p.maxPage
			}
		}

		if len(pageItems) == 0 {
			break
		}

		_, stats := p.enricher.EnrichItems(ctx, pageItems)
		report.Processed += stats.Processed
		report.CachedRatings += stats.CachedRatings
		report.FetchedRatings += stats.FetchedRatings
		report.MissingRatings += stats.MissingRatings
		report.MissingIMDBID += stats.MissingIMDBID
		report.NewRatings += stats.FetchedRatings

		p.status.UpdateProgress(ServicePopulate, report.NewRatings, p.target,
			fmt.Sprintf("Fetched %d/%d new ratings (movie page %d, tv page %d)",
				report.NewRatings, p.target, moviePage, seriesPage))
	}

	// Persist progress even when the target was missed so the next run
	// resumes instead of restarting.
	report.MoviePage = moviePage
	report.TVPage = seriesPage
	p.cache.SetCycleState(ctx, models.CycleState{
		CycleDayIndex: nextDay,
		LastRunDate:   today,
		MoviePage:     moviePage,
		SeriesPage:    seriesPage,
	})

	p.status.MarkComplete(ServicePopulate, nil, 24*time.Hour)
	log.Printf("✓ Population run done: %d processed, %d cached, %d fetched, %d missing ratings, %d missing imdb ids",
		report.Processed, report.CachedRatings, report.FetchedRatings, report.MissingRatings, report.MissingIMDBID)

	return report
}
