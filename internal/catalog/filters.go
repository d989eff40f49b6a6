package catalog

import (
	"strings"
	"time"
)

// normalizeQuery lowercases a substring search term; matching against both
// full path and BASENAME(path) is the caller's responsibility via
// querybuilder.Raw, since that needs the SQL BASENAME() function, not Go.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func normalizeMime(mime string) string {
	return strings.ToLower(strings.TrimSpace(mime))
}

// normalizeSince accepts ISO-8601 with or without a trailing 'Z' and
// normalizes to the canonical "...Z" form the catalog DB stores timestamps
// in. An unparsable value is returned empty so callers can treat it as
// "no filter" rather than erroring on a cosmetic format difference.
func normalizeSince(since string) string {
	since = strings.TrimSpace(since)
	if since == "" {
		return ""
	}
	if !strings.HasSuffix(since, "Z") {
		since += "Z"
	}
	if _, err := time.Parse(time.RFC3339, since); err != nil {
		return ""
	}
	return since
}
