package catalog

import (
	"context"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
)

// ListTVSeries returns a page of catalog TV series.
func (s *Service) ListTVSeries(ctx context.Context, p Pagination) (Page[models.TVSeries], error) {
	p = s.clamp(p)

	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx,
		`SELECT id, title FROM tv_series ORDER BY title LIMIT ? OFFSET ?`, p.Limit+1, p.Offset)
	metrics.RecordDBQuery("select", "tv_series", start(), err)
	if err != nil {
		return Page[models.TVSeries]{}, catalogerr.Wrap(catalogerr.KindInternal, "list tv series", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.TVSeries
	for rows.Next() {
		var series models.TVSeries
		if err := rows.Scan(&series.ID, &series.Title); err != nil {
			return Page[models.TVSeries]{}, catalogerr.Wrap(catalogerr.KindInternal, "scan tv series row", err)
		}
		results = append(results, series)
	}
	if err := rows.Err(); err != nil {
		return Page[models.TVSeries]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate tv series", err)
	}
	return BuildPage(results, p), nil
}

// ListEpisodes returns every episode for a series, ordered by season then
// episode number. "Seasons" are derived client-side by grouping this list;
// the schema has no separate seasons table since a season is just a
// distinct (series_id, season) pair within tv_episodes.
func (s *Service) ListEpisodes(ctx context.Context, seriesID string) ([]models.TVEpisode, error) {
	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx,
		`SELECT id, series_id, season, episode, title, path FROM tv_episodes
		 WHERE series_id = ? ORDER BY season, episode`, seriesID)
	metrics.RecordDBQuery("select", "tv_episodes", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "list episodes", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.TVEpisode
	for rows.Next() {
		var ep models.TVEpisode
		var season, episode *int
		var title, path *string
		if err := rows.Scan(&ep.ID, &ep.SeriesID, &season, &episode, &title, &path); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan episode row", err)
		}
		if season != nil {
			ep.Season = *season
		}
		if episode != nil {
			ep.Episode = *episode
		}
		if title != nil {
			ep.Title = *title
		}
		if path != nil {
			ep.Path = *path
		}
		results = append(results, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "iterate episodes", err)
	}
	if len(results) == 0 {
		return nil, catalogerr.NotFound("tv series has no episodes or does not exist")
	}
	return results, nil
}
