package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zerr0-C00L/WatchArr/internal/models"
)

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDBClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewTMDBClient("test-key")
	client.baseURL = srv.URL
	return client
}

func TestTMDBGetPopularMovies(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("expected page 3, got %q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("expected api key to be sent, got %q", got)
		}
		fmt.Fprint(w, `{"results":[
			{"id":27205,"title":"Inception","poster_path":"/inc.jpg","release_date":"2010-07-16","popularity":88.5,"vote_average":8.4,"vote_count":35000},
			{"id":603,"title":"The Matrix","poster_path":"/mtx.jpg","release_date":"1999-03-31","popularity":70.1,"vote_average":8.2,"vote_count":25000}
		]}`)
	})

	items, err := client.GetPopular(context.Background(), models.MediaKindMovie, 3)
	if err != nil {
		t.Fatalf("GetPopular: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first.TMDBID != 27205 || first.Title != "Inception" || first.MediaKind != models.MediaKindMovie {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.ReleaseDate != "2010-07-16" || first.PosterPath != "/inc.jpg" {
		t.Fatalf("list fields not mapped: %+v", first)
	}
}

func TestTMDBGetPopularSeriesUsesTVFields(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[
			{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","vote_average":8.9,"vote_count":12000}
		]}`)
	})

	items, err := client.GetPopular(context.Background(), models.MediaKindSeries, 1)
	if err != nil {
		t.Fatalf("GetPopular: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Breaking Bad" || items[0].ReleaseDate != "2008-01-20" {
		t.Fatalf("series name/first_air_date not mapped: %+v", items[0])
	}
}

func TestTMDBGetExternalIDs(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/27205/external_ids" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":27205,"imdb_id":"tt1375666"}`)
	})

	ids, err := client.GetExternalIDs(context.Background(), models.MediaKindMovie, 27205)
	if err != nil {
		t.Fatalf("GetExternalIDs: %v", err)
	}
	if ids.IMDBID != "tt1375666" {
		t.Fatalf("expected tt1375666, got %q", ids.IMDBID)
	}
}

func TestTMDBGetExternalIDsAbsent(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":99999,"imdb_id":""}`)
	})

	ids, err := client.GetExternalIDs(context.Background(), models.MediaKindSeries, 99999)
	if err != nil {
		t.Fatalf("GetExternalIDs: %v", err)
	}
	if ids.IMDBID != "" {
		t.Fatalf("expected empty imdb id, got %q", ids.IMDBID)
	}
}

func TestTMDBGetDetailMapsRevenueAndEpisodes(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1396" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","number_of_episodes":62,"vote_average":8.9}`)
	})

	item, err := client.GetDetail(context.Background(), models.MediaKindSeries, 1396)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if item.EpisodeCount == nil || *item.EpisodeCount != 62 {
		t.Fatalf("episode count not mapped: %+v", item.EpisodeCount)
	}
	if item.Title != "Breaking Bad" {
		t.Fatalf("unexpected title %q", item.Title)
	}
}

func TestTMDBNonOKStatusIsError(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
	})

	if _, err := client.GetExternalIDs(context.Background(), models.MediaKindMovie, 1); err == nil {
		t.Fatal("expected an error on 404")
	}
}

func TestTMDBSearchTitles(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "inception" {
			t.Errorf("expected query inception, got %q", got)
		}
		fmt.Fprint(w, `{"results":[{"id":27205,"title":"Inception"}]}`)
	})

	items, err := client.SearchTitles(context.Background(), models.MediaKindMovie, "inception", 1)
	if err != nil {
		t.Fatalf("SearchTitles: %v", err)
	}
	if len(items) != 1 || items[0].TMDBID != 27205 {
		t.Fatalf("unexpected results: %+v", items)
	}
}

func TestTMDBGetPosterURL(t *testing.T) {
	client := NewTMDBClient("k")
	if got := client.GetPosterURL("/inc.jpg", "w500"); got != "https://image.tmdb.org/t/p/w500/inc.jpg" {
		t.Fatalf("unexpected poster url %q", got)
	}
	if got := client.GetPosterURL("", "w500"); got != "" {
		t.Fatalf("empty path must yield empty url, got %q", got)
	}
}
