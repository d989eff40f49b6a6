package catalog

import (
	"context"

	"github.com/videocatalog/videocatalog/internal/models"
)

// ListMusic returns a page of audio inventory rows for a drive, reusing
// inventory listing with category pinned to "audio" since music tracks are
// recognized inventory rows, not a separate schema.
func (s *Service) ListMusic(ctx context.Context, drive string, filter InventoryFilter, p Pagination) (Page[models.InventoryRow], error) {
	filter.Category = "audio"
	return s.ListInventory(ctx, drive, filter, p)
}
