package catalog

import (
	"github.com/videocatalog/videocatalog/internal/storage"
)

// Service exposes the read API over a catalog database and a pool of
// per-drive shard databases.
type Service struct {
	catalog     *storage.CatalogDB
	shards      *storage.ShardPool
	defaultSize int
	maxSize     int
}

// New builds a Service. defaultPageSize and maxPageSize come from
// config.ServerSettings and are applied by every listing operation's
// Pagination.Clamp.
func New(catalogDB *storage.CatalogDB, shards *storage.ShardPool, defaultPageSize, maxPageSize int) *Service {
	return &Service{catalog: catalogDB, shards: shards, defaultSize: defaultPageSize, maxSize: maxPageSize}
}

func (s *Service) clamp(p Pagination) Pagination {
	return p.Clamp(s.defaultSize, s.maxSize)
}
