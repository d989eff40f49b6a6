package assistant

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/external"
	"github.com/videocatalog/videocatalog/internal/vectorworker"
)

// Tool names the assistant's tool loop may dispatch. Every one is
// read-only against the catalog; the only writes the assistant performs
// at all are its own session bookkeeping and export-plan artifacts.
const (
	ToolCatalogSearchText = "catalog_search_text"
	ToolCatalogGetMovie   = "catalog_get_movie"
	ToolSemanticSearch    = "semantic_search"
	ToolTMDBLookup        = "tmdb_lookup"
	ToolOpenSubtitles     = "opensubtitles_lookup"
	ToolExportDryRun      = "export_dry_run"
	ToolOpenFolderPlan    = "open_folder_plan"
)

// ToolCall is one model-requested tool invocation.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ExportPlan describes what a CSV export would write without writing it.
type ExportPlan struct {
	TargetPath string `json:"target_path"`
	RowCount   int    `json:"row_count_estimate"`
	Columns    []string `json:"columns"`
}

// FolderPlan describes how the host would be asked to open a folder,
// without actually shelling out to do so.
type FolderPlan struct {
	Path    string `json:"path"`
	Command string `json:"command"`
}

// Dispatcher routes tool calls to the read-only catalog service, the
// in-process semantic index, and the cached TMDb/OpenSubtitles clients.
// It never opens a write transaction against the catalog and never
// touches the filesystem outside of reporting an export plan.
type Dispatcher struct {
	Catalog       *catalog.Service
	Index         *vectorworker.CosineIndex
	Embedder      vectorworker.EmbedderCapability
	TMDB          *external.EnrichClient
	OpenSubtitles *external.EnrichClient
	ExportsDir    string
}

// Dispatch runs one tool call and returns its result, or a catalogerr
// describing why it could not be served.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall) (any, error) {
	switch call.Name {
	case ToolCatalogSearchText:
		return d.catalogSearchText(ctx, call.Args)
	case ToolCatalogGetMovie:
		return d.catalogGetMovie(ctx, call.Args)
	case ToolSemanticSearch:
		return d.semanticSearch(ctx, call.Args)
	case ToolTMDBLookup:
		return d.providerLookup(ctx, d.TMDB, call.Args)
	case ToolOpenSubtitles:
		return d.providerLookup(ctx, d.OpenSubtitles, call.Args)
	case ToolExportDryRun:
		return d.exportDryRun(call.Args)
	case ToolOpenFolderPlan:
		return d.openFolderPlan(call.Args)
	default:
		return nil, catalogerr.Validation(fmt.Sprintf("unknown tool %q", call.Name))
	}
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func (d *Dispatcher) catalogSearchText(ctx context.Context, args map[string]any) (any, error) {
	if docID := argString(args, "doc_id"); docID != "" {
		return d.Catalog.DocPreview(ctx, docID)
	}
	page, err := d.Catalog.ListTextLite(ctx, catalog.Pagination{Limit: argInt(args, "limit", 20)})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (d *Dispatcher) catalogGetMovie(ctx context.Context, args map[string]any) (any, error) {
	id := argString(args, "id")
	if id == "" {
		return nil, catalogerr.Validation("catalog_get_movie requires an id")
	}
	return d.Catalog.GetMovie(ctx, id)
}

func (d *Dispatcher) semanticSearch(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, catalogerr.Validation("semantic_search requires a query")
	}
	if d.Index == nil || d.Embedder == nil {
		return nil, catalogerr.Conflict("semantic index not ready")
	}
	vecs, err := d.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "embed search query", err)
	}
	k := argInt(args, "k", 5)
	return d.Index.Search(vecs[0], k), nil
}

func (d *Dispatcher) providerLookup(ctx context.Context, client *external.EnrichClient, args map[string]any) (any, error) {
	if client == nil {
		return nil, catalogerr.Conflict("provider not configured")
	}
	path := argString(args, "path")
	if path == "" {
		path = "/search"
	}
	params := url.Values{}
	if q := argString(args, "query"); q != "" {
		params.Set("query", q)
	}
	return client.Lookup(ctx, path, params)
}

func (d *Dispatcher) exportDryRun(args map[string]any) (any, error) {
	name := argString(args, "filename")
	if name == "" {
		name = "export.csv"
	}
	target := filepath.Join(d.ExportsDir, filepath.Base(name))
	columns := []string{"doc_id", "title", "path"}
	if cols, ok := args["columns"].([]any); ok {
		columns = columns[:0]
		for _, c := range cols {
			if s, ok := c.(string); ok {
				columns = append(columns, s)
			}
		}
	}
	return ExportPlan{TargetPath: target, RowCount: argInt(args, "row_count_estimate", 0), Columns: columns}, nil
}

func (d *Dispatcher) openFolderPlan(args map[string]any) (any, error) {
	path := argString(args, "path")
	if path == "" {
		return nil, catalogerr.Validation("open_folder_plan requires a path")
	}
	cmd := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "windows":
		cmd = "explorer"
	}
	return FolderPlan{Path: path, Command: cmd}, nil
}
