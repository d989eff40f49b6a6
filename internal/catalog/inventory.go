package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/querybuilder"
)

// InventoryFilter narrows a ListInventory call.
type InventoryFilter struct {
	Query    string
	Category string
	Ext      string
	Mime     string
	Since    string
}

var inventoryColumns = []string{"path", "category", "ext", "mime", "mtime_utc"}

// ListInventory returns a page of inventory rows for the given drive's
// shard, applying the common q/category/ext/mime/since filters.
func (s *Service) ListInventory(ctx context.Context, drive string, filter InventoryFilter, p Pagination) (Page[models.InventoryRow], error) {
	p = s.clamp(p)

	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return Page[models.InventoryRow]{}, err
	}

	b := querybuilder.New(inventoryColumns...)
	if q := normalizeQuery(filter.Query); q != "" {
		b.Raw("(LOWER(path) LIKE ? ESCAPE '\\' OR BASENAME(path) LIKE ? ESCAPE '\\')",
			"%"+likeEscape(q)+"%", "%"+likeEscape(q)+"%")
	}
	if cat := normalizeCategory(filter.Category); cat != "" {
		b.Eq("category", cat)
	}
	if ext := normalizeExt(filter.Ext); ext != "" {
		b.Eq("ext", ext)
	}
	if mime := normalizeMime(filter.Mime); mime != "" {
		b.Eq("mime", mime)
	}
	if since := normalizeSince(filter.Since); since != "" {
		b.GTE("mtime_utc", since)
	}

	where, args := b.WhereClause()
	query := `SELECT id, path, size_bytes, mtime_utc, ext, mime, category, drive_label
		FROM inventory ` + where + ` ORDER BY path LIMIT ? OFFSET ?`
	args = append(args, p.Limit+1, p.Offset)

	start := recordStart()
	rows, err := shard.Conn().QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return Page[models.InventoryRow]{}, catalogerr.Wrap(catalogerr.KindInternal, "list inventory", err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.InventoryRow
	for rows.Next() {
		row, err := scanInventoryRow(rows)
		if err != nil {
			return Page[models.InventoryRow]{}, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return Page[models.InventoryRow]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate inventory", err)
	}

	return BuildPage(results, p), nil
}

// GetInventoryByPath fetches a single inventory row by its exact path
// within a drive's shard.
func (s *Service) GetInventoryByPath(ctx context.Context, drive, path string) (models.InventoryRow, error) {
	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return models.InventoryRow{}, err
	}

	start := recordStart()
	row := shard.Conn().QueryRowContext(ctx,
		`SELECT id, path, size_bytes, mtime_utc, ext, mime, category, drive_label
		 FROM inventory WHERE path = ?`, path)
	result, err := scanInventoryRow(row)
	metrics.RecordDBQuery("select", "inventory", start(), err)
	if err != nil {
		return models.InventoryRow{}, catalogerr.NotFound("inventory row not found")
	}
	return result, nil
}

// DriveStats returns aggregate file count/bytes for a drive, preferring the
// inventory_stats snapshot and falling back to a live aggregate when no
// snapshot row exists yet.
func (s *Service) DriveStats(ctx context.Context, drive string) (fileCount int64, totalBytes int64, err error) {
	start := recordStart()
	row := s.catalog.Conn().QueryRowContext(ctx,
		`SELECT file_count, total_bytes FROM inventory_stats WHERE drive_label = ?`, drive)
	scanErr := row.Scan(&fileCount, &totalBytes)
	metrics.RecordDBQuery("select", "inventory_stats", start(), scanErr)
	if scanErr == nil {
		return fileCount, totalBytes, nil
	}

	shard, err := s.shards.Get(ctx, drive)
	if err != nil {
		return 0, 0, err
	}
	liveStart := recordStart()
	liveErr := shard.Conn().QueryRowContext(ctx,
		`SELECT count(*), coalesce(sum(size_bytes), 0) FROM inventory`).Scan(&fileCount, &totalBytes)
	metrics.RecordDBQuery("select", "inventory", liveStart(), liveErr)
	if liveErr != nil {
		return 0, 0, catalogerr.Wrap(catalogerr.KindInternal, "aggregate drive stats", liveErr)
	}
	return fileCount, totalBytes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventoryRow(r rowScanner) (models.InventoryRow, error) {
	var row models.InventoryRow
	var mtime string
	var ext, mime, category *string
	if err := r.Scan(&row.ID, &row.Path, &row.SizeBytes, &mtime, &ext, &mime, &category, &row.Drive); err != nil {
		return models.InventoryRow{}, catalogerr.Wrap(catalogerr.KindInternal, "scan inventory row", err)
	}
	if ext != nil {
		row.Ext = *ext
	}
	if mime != nil {
		row.Mime = *mime
	}
	if category != nil {
		row.Category = *category
	}
	if t, err := time.Parse(time.RFC3339, mtime); err == nil {
		row.ModifiedUTC = t
	}
	row.DocID = "inventory:" + row.Path
	return row, nil
}

func likeEscape(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(s)
}
