package vectorworker

import (
	"context"
	"fmt"

	"github.com/videocatalog/videocatalog/internal/catalog"
)

// Document is one unit of text fed to an EmbedderCapability, sourced from
// a recognized catalog table.
type Document struct {
	DocID    string
	Text     string
	Metadata map[string]any
}

// DocumentSource collects a bounded sample of documents for a full index
// rebuild.
type DocumentSource interface {
	CollectDocuments(ctx context.Context, perTableBudget int) ([]Document, error)
}

// CatalogDocumentSource collects documents from the recognized tables
// spec.md names for index rebuilds: docs preview, textlite preview, music
// minimal, inventory view.
type CatalogDocumentSource struct {
	svc *catalog.Service
}

// NewCatalogDocumentSource wraps a catalog read-service as a DocumentSource.
func NewCatalogDocumentSource(svc *catalog.Service) *CatalogDocumentSource {
	return &CatalogDocumentSource{svc: svc}
}

func (c *CatalogDocumentSource) CollectDocuments(ctx context.Context, perTableBudget int) ([]Document, error) {
	var docs []Document

	textPage, err := c.svc.ListTextLite(ctx, catalog.Pagination{Limit: perTableBudget})
	if err != nil {
		return nil, err
	}
	for _, tp := range textPage.Results {
		docs = append(docs, Document{
			DocID:    tp.DocID,
			Text:     tp.Preview,
			Metadata: map[string]any{"source": "textlite_previews", "verified": tp.Verified},
		})
	}

	drives, err := c.svc.ListDrives(ctx)
	if err != nil {
		return nil, err
	}

	for _, drive := range drives {
		musicPage, err := c.svc.ListMusic(ctx, drive.Label, catalog.InventoryFilter{}, catalog.Pagination{Limit: perTableBudget})
		if err != nil {
			continue
		}
		for _, row := range musicPage.Results {
			docs = append(docs, Document{
				DocID:    row.DocID,
				Text:     row.Path,
				Metadata: map[string]any{"source": "music", "drive": drive.Label},
			})
		}

		invPage, err := c.svc.ListInventory(ctx, drive.Label, catalog.InventoryFilter{}, catalog.Pagination{Limit: perTableBudget})
		if err != nil {
			continue
		}
		for _, row := range invPage.Results {
			docs = append(docs, Document{
				DocID:    row.DocID,
				Text:     fmt.Sprintf("%s %s", row.Path, row.Category),
				Metadata: map[string]any{"source": "inventory", "drive": drive.Label},
			})
		}
	}

	return docs, nil
}
