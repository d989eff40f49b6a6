package catalog

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/querybuilder"
)

// MovieFilter narrows a ListMovies call.
type MovieFilter struct {
	YearMin           int
	YearMax           int
	MinConfidence      float64
	Quality            string
	AudioLangs         []string
	SubLangs           []string
	Drive              string
	LowConfidenceOnly  bool
}

var movieColumns = []string{"year", "confidence", "quality", "drive_label"}

const lowConfidenceThreshold = 0.5

// ListMovies returns a page of catalog movies matching filter.
func (s *Service) ListMovies(ctx context.Context, filter MovieFilter, p Pagination) (Page[models.Movie], error) {
	p = s.clamp(p)

	b := querybuilder.New(movieColumns...)
	if filter.YearMin > 0 {
		b.Raw("year >= ?", filter.YearMin)
	}
	if filter.YearMax > 0 {
		b.Raw("year <= ?", filter.YearMax)
	}
	if filter.MinConfidence > 0 {
		b.Raw("confidence >= ?", filter.MinConfidence)
	}
	if filter.LowConfidenceOnly {
		b.Raw("confidence < ?", lowConfidenceThreshold)
	}
	if q := normalizeCategory(filter.Quality); q != "" {
		b.Eq("quality", q)
	}
	if filter.Drive != "" {
		b.Eq("drive_label", filter.Drive)
	}
	for _, lang := range filter.AudioLangs {
		b.Raw("audio_langs LIKE ?", "%\""+strings.ToLower(lang)+"\"%")
	}
	for _, lang := range filter.SubLangs {
		b.Raw("sub_langs LIKE ?", "%\""+strings.ToLower(lang)+"\"%")
	}

	where, args := b.WhereClause()
	query := `SELECT id, title, year, path, drive_label, duration_seconds, confidence, quality, audio_langs, sub_langs
		FROM movies ` + where + ` ORDER BY title LIMIT ? OFFSET ?`
	args = append(args, p.Limit+1, p.Offset)

	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "movies", start(), err)
	if err != nil {
		return Page[models.Movie]{}, catalogerr.Wrap(catalogerr.KindInternal, "list movies", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return Page[models.Movie]{}, err
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return Page[models.Movie]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate movies", err)
	}
	return BuildPage(results, p), nil
}

// GetMovie fetches a single movie by its opaque kind-prefixed id.
func (s *Service) GetMovie(ctx context.Context, id string) (models.Movie, error) {
	start := recordStart()
	id = strings.TrimPrefix(id, "movie:")
	row := s.catalog.Conn().QueryRowContext(ctx,
		`SELECT id, title, year, path, drive_label, duration_seconds, confidence, quality, audio_langs, sub_langs
		 FROM movies WHERE id = ?`, id)
	m, err := scanMovie(row)
	metrics.RecordDBQuery("select", "movies", start(), err)
	if err != nil {
		return models.Movie{}, catalogerr.NotFound("movie not found")
	}
	return m, nil
}

func scanMovie(r rowScanner) (models.Movie, error) {
	var m models.Movie
	var year, duration *int
	var path, drive, quality *string
	var confidence *float64
	var audioJSON, subJSON *string

	if err := r.Scan(&m.ID, &m.Title, &year, &path, &drive, &duration, &confidence, &quality, &audioJSON, &subJSON); err != nil {
		return models.Movie{}, catalogerr.Wrap(catalogerr.KindInternal, "scan movie row", err)
	}
	if year != nil {
		m.Year = *year
	}
	if path != nil {
		m.Path = *path
	}
	if drive != nil {
		m.DriveLabel = *drive
	}
	if duration != nil {
		m.DurationSeconds = *duration
	}
	if confidence != nil {
		m.Confidence = *confidence
	}
	if quality != nil {
		m.Quality = *quality
	}
	if audioJSON != nil {
		_ = json.Unmarshal([]byte(*audioJSON), &m.AudioLangs)
	}
	if subJSON != nil {
		_ = json.Unmarshal([]byte(*subJSON), &m.SubLangs)
	}
	return m, nil
}
