package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/models"
)

// PlaylistCandidateFilter narrows candidate generation for a playlist.
type PlaylistCandidateFilter struct {
	MinDurationSeconds int
	MaxDurationSeconds int
	MinConfidence      float64
	AudioLangs         []string
}

// BuildStrategy selects how PlaylistCandidates are ordered into a playlist.
type BuildStrategy string

const (
	StrategyWeightedRandom  BuildStrategy = "weighted_random"
	StrategySortByQuality   BuildStrategy = "quality"
	StrategySortByConfidence BuildStrategy = "confidence"
)

var qualityRank = map[string]int{"2160p": 4, "1080p": 3, "720p": 2, "480p": 1}

// PlaylistCandidates returns movies matching filter, suitable as playlist
// build input.
func (s *Service) PlaylistCandidates(ctx context.Context, filter PlaylistCandidateFilter, p Pagination) (Page[models.Movie], error) {
	movieFilter := MovieFilter{
		MinConfidence: filter.MinConfidence,
		AudioLangs:    filter.AudioLangs,
	}
	page, err := s.ListMovies(ctx, movieFilter, p)
	if err != nil {
		return Page[models.Movie]{}, err
	}

	filtered := page.Results[:0]
	for _, m := range page.Results {
		if filter.MinDurationSeconds > 0 && m.DurationSeconds < filter.MinDurationSeconds {
			continue
		}
		if filter.MaxDurationSeconds > 0 && m.DurationSeconds > filter.MaxDurationSeconds {
			continue
		}
		filtered = append(filtered, m)
	}
	page.Results = filtered
	return page, nil
}

// BuildPlaylist orders candidates into a playlist using the given strategy.
// rngSeed makes weighted-random selection deterministic for tests; callers
// pass a seed derived from the current time in production.
func BuildPlaylist(candidates []models.Movie, strategy BuildStrategy, rngSeed int64) ([]models.Movie, error) {
	ordered := make([]models.Movie, len(candidates))
	copy(ordered, candidates)

	switch strategy {
	case StrategySortByQuality:
		sort.SliceStable(ordered, func(i, j int) bool {
			return qualityRank[ordered[i].Quality] > qualityRank[ordered[j].Quality]
		})
	case StrategySortByConfidence:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Confidence > ordered[j].Confidence
		})
	case StrategyWeightedRandom:
		weightedShuffle(ordered, rand.New(rand.NewSource(rngSeed)))
	default:
		return nil, catalogerr.Validation(fmt.Sprintf("unknown playlist build strategy %q", strategy))
	}
	return ordered, nil
}

// weightedShuffle performs a weighted reservoir-style shuffle favoring
// higher-confidence movies without making lower-confidence ones impossible.
func weightedShuffle(movies []models.Movie, rng *rand.Rand) {
	n := len(movies)
	for i := 0; i < n-1; i++ {
		weights := make([]float64, n)
		total := 0.0
		for k := i; k < n; k++ {
			w := movies[k].Confidence
			if w <= 0 {
				w = 0.01
			}
			weights[k] = w
			total += w
		}
		pick := rng.Float64() * total
		j := i
		cum := 0.0
		for k := i; k < n; k++ {
			cum += weights[k]
			if pick <= cum {
				j = k
				break
			}
		}
		movies[i], movies[j] = movies[j], movies[i]
	}
}

// ExportPlaylist renders a playlist to the requested file format. Only
// "m3u" is supported today; other formats return a Validation error rather
// than silently falling back.
func ExportPlaylist(playlist []models.Movie, format string) (string, error) {
	switch strings.ToLower(format) {
	case "m3u":
		var b strings.Builder
		b.WriteString("#EXTM3U\n")
		for _, m := range playlist {
			duration := m.DurationSeconds
			if duration == 0 {
				duration = -1
			}
			fmt.Fprintf(&b, "#EXTINF:%d,%s\n%s\n", duration, m.Title, m.Path)
		}
		return b.String(), nil
	default:
		return "", catalogerr.Validation(fmt.Sprintf("unsupported playlist export format %q", format))
	}
}
