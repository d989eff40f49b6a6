package vectorworker

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/storage"
)

const semanticFeatureKind = "semantic"

// PersistShardVectors writes each drive-scoped document's embedding into
// that drive's own features table, the "stored in a shard" form spec.md's
// glossary describes for a feature vector. Documents without a "drive" in
// their metadata (the drive-agnostic textlite_previews table) are skipped:
// they have no shard to persist into and remain index-only.
func PersistShardVectors(ctx context.Context, catalogDB *storage.CatalogDB, idx *CosineIndex, docs []Document) error {
	byDrive := make(map[string][]Document)
	for _, d := range docs {
		drive, ok := d.Metadata["drive"].(string)
		if !ok || drive == "" {
			continue
		}
		byDrive[drive] = append(byDrive[drive], d)
	}

	for drive, driveDocs := range byDrive {
		if err := persistOneShard(ctx, catalogDB, idx, drive, driveDocs); err != nil {
			return err
		}
	}
	return nil
}

func persistOneShard(ctx context.Context, catalogDB *storage.CatalogDB, idx *CosineIndex, drive string, docs []Document) error {
	shard, err := catalogDB.OpenShardWritable(ctx, drive)
	if err != nil {
		return err
	}
	defer func() { _ = shard.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range docs {
		entry, ok := idx.lookup(d.DocID)
		if !ok {
			continue
		}
		blob := encodeVector(entry.Vector)
		_, err := shard.Conn().ExecContext(ctx,
			`INSERT INTO features (doc_id, kind, dim, vector, updated_utc) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(doc_id, kind) DO UPDATE SET dim = excluded.dim, vector = excluded.vector, updated_utc = excluded.updated_utc`,
			d.DocID, semanticFeatureKind, len(entry.Vector), blob, now)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "persist shard feature vector", err)
		}
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v))
	}
	return out
}
