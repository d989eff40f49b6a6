package catalog

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
)

// Overview is the drive-wide summary report.
type Overview struct {
	FileCount  int64 `json:"file_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// ExtensionRank is one row of the top-extensions report, dense-ranked by
// either count or total bytes depending on the caller's sort choice.
type ExtensionRank struct {
	Ext        string `json:"ext"`
	Count      int64  `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
	Rank       int    `json:"rank"`
}

// LargeFile is one row of the largest-files report.
type LargeFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// FolderUsage is one row of the heaviest-folders report, aggregated to a
// caller-supplied path depth.
type FolderUsage struct {
	Folder     string `json:"folder"`
	TotalBytes int64  `json:"total_bytes"`
	FileCount  int64  `json:"file_count"`
}

// Overview returns the drive's file count and total size.
func (s *Service) Overview(ctx context.Context, drive string) (Overview, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return Overview{}, err
	}
	start := recordStart()
	var ov Overview
	scanErr := shard.Conn().QueryRowContext(ctx,
		`SELECT count(*), coalesce(sum(size_bytes), 0) FROM inventory`).Scan(&ov.FileCount, &ov.TotalBytes)
	metrics.RecordDBQuery("select", "inventory", start(), scanErr)
	if scanErr != nil {
		return Overview{}, catalogerr.Wrap(catalogerr.KindInternal, "overview report", scanErr)
	}
	return ov, nil
}

// TopExtensions returns the top extensions by count or by total bytes,
// dense-ranked (ties share a rank, no gaps follow).
func (s *Service) TopExtensions(ctx context.Context, drive string, byBytes bool, limit int) ([]ExtensionRank, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return nil, err
	}

	orderCol := "count"
	query := `SELECT ext, count(*) AS count, coalesce(sum(size_bytes), 0) AS total_bytes
		FROM inventory GROUP BY ext ORDER BY `
	if byBytes {
		orderCol = "total_bytes"
	}
	query += orderCol + " DESC LIMIT ?"

	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx, query, limit)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "top extensions report", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ExtensionRank
	var lastValue int64 = -1
	rank := 0
	for rows.Next() {
		var r ExtensionRank
		var ext *string
		if err := rows.Scan(&ext, &r.Count, &r.TotalBytes); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan extension row", err)
		}
		if ext != nil {
			r.Ext = *ext
		}
		value := r.Count
		if byBytes {
			value = r.TotalBytes
		}
		if value != lastValue {
			rank++
			lastValue = value
		}
		r.Rank = rank
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "iterate extension rows", err)
	}
	return results, nil
}

// LargestFiles returns the largest inventory rows for a drive.
func (s *Service) LargestFiles(ctx context.Context, drive string, limit int) ([]LargeFile, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return nil, err
	}

	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx,
		`SELECT path, size_bytes FROM inventory ORDER BY size_bytes DESC LIMIT ?`, limit)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "largest files report", err)
	}
	defer func() { _ = rows.Close() }()

	var results []LargeFile
	for rows.Next() {
		var f LargeFile
		if err := rows.Scan(&f.Path, &f.SizeBytes); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan largest file row", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// HeaviestFolders aggregates inventory bytes by path prefix truncated to
// depth directory components.
func (s *Service) HeaviestFolders(ctx context.Context, drive string, depth, limit int) ([]FolderUsage, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return nil, err
	}

	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx, `SELECT path, size_bytes FROM inventory`)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "heaviest folders report", err)
	}
	defer func() { _ = rows.Close() }()

	totals := map[string]*FolderUsage{}
	for rows.Next() {
		var path string
		var size int64
		if err := rows.Scan(&path, &size); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan inventory row", err)
		}
		folder := folderAtDepth(path, depth)
		entry, ok := totals[folder]
		if !ok {
			entry = &FolderUsage{Folder: folder}
			totals[folder] = entry
		}
		entry.TotalBytes += size
		entry.FileCount++
	}
	if err := rows.Err(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "iterate inventory rows", err)
	}

	results := make([]FolderUsage, 0, len(totals))
	for _, entry := range totals {
		results = append(results, *entry)
	}
	sortFoldersByBytesDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func folderAtDepth(path string, depth int) string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	parts := strings.Split(strings.Trim(normalized, "/"), "/")
	if len(parts) > 0 {
		parts = parts[:len(parts)-1] // drop filename
	}
	if depth > 0 && len(parts) > depth {
		parts = parts[:depth]
	}
	return "/" + filepath.Join(parts...)
}

func sortFoldersByBytesDesc(folders []FolderUsage) {
	sort.Slice(folders, func(i, j int) bool { return folders[i].TotalBytes > folders[j].TotalBytes })
}

// RecentChanges returns inventory rows modified within the last N days.
func (s *Service) RecentChanges(ctx context.Context, drive string, days int, limit int) ([]LargeFile, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx,
		`SELECT path, size_bytes FROM inventory WHERE mtime_utc >= ? ORDER BY mtime_utc DESC LIMIT ?`,
		cutoff, limit)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "recent changes report", err)
	}
	defer func() { _ = rows.Close() }()

	var results []LargeFile
	for rows.Next() {
		var f LargeFile
		if err := rows.Scan(&f.Path, &f.SizeBytes); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan recent change row", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}
