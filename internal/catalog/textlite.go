package catalog

import (
	"context"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
)

// TextPreview is one row from textlite_previews: a lightweight extracted
// text preview plus its OCR/parse verification state.
type TextPreview struct {
	DocID      string  `json:"doc_id"`
	Preview    string  `json:"preview"`
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ListTextLite returns a page of text previews, ordered by doc_id.
func (s *Service) ListTextLite(ctx context.Context, p Pagination) (Page[TextPreview], error) {
	p = s.clamp(p)

	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx,
		`SELECT doc_id, preview, verified, confidence FROM textlite_previews
		 ORDER BY doc_id LIMIT ? OFFSET ?`, p.Limit+1, p.Offset)
	metrics.RecordDBQuery("select", "textlite_previews", start(), err)
	if err != nil {
		return Page[TextPreview]{}, catalogerr.Wrap(catalogerr.KindInternal, "list textlite previews", err)
	}
	defer func() { _ = rows.Close() }()

	var results []TextPreview
	for rows.Next() {
		tp, err := scanTextPreview(rows)
		if err != nil {
			return Page[TextPreview]{}, err
		}
		results = append(results, tp)
	}
	if err := rows.Err(); err != nil {
		return Page[TextPreview]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate textlite previews", err)
	}
	return BuildPage(results, p), nil
}

// ListVerifiedText returns only previews that have passed verification,
// i.e. the "TextVerify" operation group.
func (s *Service) ListVerifiedText(ctx context.Context, p Pagination) (Page[TextPreview], error) {
	p = s.clamp(p)

	start := recordStart()
	rows, err := s.catalog.Conn().QueryContext(ctx,
		`SELECT doc_id, preview, verified, confidence FROM textlite_previews
		 WHERE verified = 1 ORDER BY doc_id LIMIT ? OFFSET ?`, p.Limit+1, p.Offset)
	metrics.RecordDBQuery("select", "textlite_previews", start(), err)
	if err != nil {
		return Page[TextPreview]{}, catalogerr.Wrap(catalogerr.KindInternal, "list verified text", err)
	}
	defer func() { _ = rows.Close() }()

	var results []TextPreview
	for rows.Next() {
		tp, err := scanTextPreview(rows)
		if err != nil {
			return Page[TextPreview]{}, err
		}
		results = append(results, tp)
	}
	if err := rows.Err(); err != nil {
		return Page[TextPreview]{}, catalogerr.Wrap(catalogerr.KindInternal, "iterate verified text", err)
	}
	return BuildPage(results, p), nil
}

// DocPreview fetches a single document's text preview by doc_id.
func (s *Service) DocPreview(ctx context.Context, docID string) (TextPreview, error) {
	start := recordStart()
	row := s.catalog.Conn().QueryRowContext(ctx,
		`SELECT doc_id, preview, verified, confidence FROM textlite_previews WHERE doc_id = ?`, docID)
	tp, err := scanTextPreview(row)
	metrics.RecordDBQuery("select", "textlite_previews", start(), err)
	if err != nil {
		return TextPreview{}, catalogerr.NotFound("document preview not found")
	}
	return tp, nil
}

func scanTextPreview(r rowScanner) (TextPreview, error) {
	var tp TextPreview
	var preview *string
	var verified int
	var confidence *float64
	if err := r.Scan(&tp.DocID, &preview, &verified, &confidence); err != nil {
		return TextPreview{}, catalogerr.Wrap(catalogerr.KindInternal, "scan textlite row", err)
	}
	if preview != nil {
		tp.Preview = *preview
	}
	tp.Verified = verified != 0
	if confidence != nil {
		tp.Confidence = *confidence
	}
	return tp, nil
}
