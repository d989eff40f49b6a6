// Package catalog implements the read API: drives, inventory, reports,
// feature vectors, movies/TV/music/textlite catalog browsing, playlists and
// search, each built on internal/storage and internal/querybuilder. See
// Service.
package catalog
