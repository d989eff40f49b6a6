package catalog

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
)

// vectorInlineDim is the default threshold above which FetchVector requires
// an explicit raw=true opt-in, to avoid accidentally returning megabytes of
// floats in a JSON response.
const vectorInlineDim = 2048

// ListFeatures returns feature vector metadata (without the vector payload)
// for a drive's shard.
func (s *Service) ListFeatures(ctx context.Context, drive string, p Pagination) (Page[models.FeatureVector], error) {
	p = s.clamp(p)

	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return Page[models.FeatureVector]{}, err
	}

	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx,
		`SELECT doc_id, kind, dim, updated_utc FROM features ORDER BY doc_id LIMIT ? OFFSET ?`,
		p.Limit+1, p.Offset)
	metrics.RecordDBQuery("select", "features", start(), err)
	if err != nil {
		return Page[models.FeatureVector]{}, catalogerr.Wrap(catalogerr.KindInternal, "list features", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.FeatureVector
	for rows.Next() {
		var fv models.FeatureVector
		var updated string
		if err := rows.Scan(&fv.DocID, &fv.Kind, &fv.Dim, &updated); err != nil {
			return Page[models.FeatureVector]{}, catalogerr.Wrap(catalogerr.KindInternal, "scan feature row", err)
		}
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			fv.UpdatedAt = t
		}
		results = append(results, fv)
	}
	if err := rows.Err(); err != nil {
		return Page[models.FeatureVector]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate features", err)
	}
	return BuildPage(results, p), nil
}

// FetchVector returns the decoded float32 vector for docID/kind. Vectors
// with dim above vectorInlineDim require raw=true, per spec.md's
// "vector_inline_dim" guard.
func (s *Service) FetchVector(ctx context.Context, drive, docID, kind string, raw bool) (models.FeatureVector, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return models.FeatureVector{}, err
	}

	start := recordStart()
	var fv models.FeatureVector
	var blob []byte
	var updated string
	scanErr := shard.Conn().QueryRowContext(ctx,
		`SELECT doc_id, kind, dim, vector, updated_utc FROM features WHERE doc_id = ? AND kind = ?`,
		docID, kind).Scan(&fv.DocID, &fv.Kind, &fv.Dim, &blob, &updated)
	metrics.RecordDBQuery("select", "features", start(), scanErr)
	if scanErr != nil {
		return models.FeatureVector{}, catalogerr.NotFound("feature vector not found")
	}

	if fv.Dim > vectorInlineDim && !raw {
		return models.FeatureVector{}, catalogerr.Validation("vector exceeds inline size; retry with raw=true")
	}

	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		fv.UpdatedAt = t
	}
	fv.Vector = decodeVector(blob, fv.Dim)
	return fv, nil
}

// decodeVector slices blob defensively to dim*4 bytes before decoding, so a
// truncated or corrupt row never panics on an out-of-range index.
func decodeVector(blob []byte, dim int) []float32 {
	want := dim * 4
	if want > len(blob) {
		want = len(blob) - (len(blob) % 4)
	}
	blob = blob[:want]

	vec := make([]float32, 0, want/4)
	for i := 0; i+4 <= len(blob); i += 4 {
		bits := binary.LittleEndian.Uint32(blob[i : i+4])
		vec = append(vec, math.Float32frombits(bits))
	}
	return vec
}
