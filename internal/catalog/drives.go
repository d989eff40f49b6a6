package catalog

import (
	"context"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
)

// ListDrives returns every registered drive, deriving the shard path and
// surfacing the last scan timestamp straight from the drives table.
func (s *Service) ListDrives(ctx context.Context) ([]models.Drive, error) {
	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx,
		`SELECT label, type, last_scan_utc, shard_path FROM drives ORDER BY label`)
	metrics.RecordDBQuery("select", "drives", start(), err)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "list drives", err)
	}
	defer func() { _ = rows.Close() }()

	var drives []models.Drive
	for rows.Next() {
		var d models.Drive
		var driveType, lastScan *string
		if err := rows.Scan(&d.Label, &driveType, &lastScan, &d.ShardPath); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan drive row", err)
		}
		if driveType != nil {
			d.Filesystem = *driveType
		}
		if lastScan != nil {
			if t, err := time.Parse(time.RFC3339, *lastScan); err == nil {
				d.LastSeen = &t
			}
		}
		drives = append(drives, d)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "iterate drives", err)
	}
	return drives, nil
}
