package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/models"
)

func seedMovie(t *testing.T, svc *Service, id, title string, year int, confidence float64, quality string, duration int) {
	t.Helper()
	_, err := svc.catalog.Conn().Exec(
		`INSERT INTO movies (id, title, year, path, drive_label, duration_seconds, confidence, quality, audio_langs, sub_langs)
		 VALUES (?, ?, ?, ?, 'A', ?, ?, ?, '["eng"]', '["eng"]')`,
		id, title, year, "/movies/"+id+".mkv", duration, confidence, quality)
	require.NoError(t, err)
}

func TestListMovies_FiltersByMinConfidence(t *testing.T) {
	svc, _ := newTestService(t)
	seedMovie(t, svc, "m1", "Low Confidence", 2020, 0.2, "1080p", 6000)
	seedMovie(t, svc, "m2", "High Confidence", 2021, 0.9, "1080p", 6000)

	page, err := svc.ListMovies(context.Background(), MovieFilter{MinConfidence: 0.5}, Pagination{Limit: 10})

	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "High Confidence", page.Results[0].Title)
}

func TestGetMovie_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetMovie(context.Background(), "missing")

	require.Error(t, err)
}

func TestGetMovie_DecodesLanguageArrays(t *testing.T) {
	svc, _ := newTestService(t)
	seedMovie(t, svc, "m1", "Arrival", 2016, 0.8, "1080p", 6600)

	m, err := svc.GetMovie(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, m.AudioLangs)
	assert.Equal(t, []string{"eng"}, m.SubLangs)
}

func TestListTVSeries_And_ListEpisodes(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.catalog.Conn().Exec(`INSERT INTO tv_series (id, title) VALUES ('s1', 'Severance')`)
	require.NoError(t, err)
	_, err = svc.catalog.Conn().Exec(
		`INSERT INTO tv_episodes (id, series_id, season, episode, title, path) VALUES ('e1', 's1', 1, 1, 'Good News', '/tv/s1e1.mkv')`)
	require.NoError(t, err)

	page, err := svc.ListTVSeries(context.Background(), Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Severance", page.Results[0].Title)

	episodes, err := svc.ListEpisodes(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, 1, episodes[0].Season)
}

func TestListEpisodes_UnknownSeriesNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListEpisodes(context.Background(), "ghost")

	require.Error(t, err)
}

func TestBuildPlaylist_SortByConfidence(t *testing.T) {
	candidates := []models.Movie{
		{ID: "a", Confidence: 0.3},
		{ID: "b", Confidence: 0.9},
	}

	ordered, err := BuildPlaylist(candidates, StrategySortByConfidence, 1)

	require.NoError(t, err)
	assert.Equal(t, "b", ordered[0].ID)
}

func TestBuildPlaylist_UnknownStrategy(t *testing.T) {
	_, err := BuildPlaylist(nil, "bogus", 1)
	require.Error(t, err)
}

func TestExportPlaylist_M3U(t *testing.T) {
	playlist := []models.Movie{{Title: "Arrival", Path: "/movies/arrival.mkv", DurationSeconds: 6600}}

	out, err := ExportPlaylist(playlist, "m3u")

	require.NoError(t, err)
	assert.Contains(t, out, "#EXTM3U")
	assert.Contains(t, out, "Arrival")
}

func TestExportPlaylist_UnsupportedFormat(t *testing.T) {
	_, err := ExportPlaylist(nil, "xspf")
	require.Error(t, err)
}
