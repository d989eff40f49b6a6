// Package external wraps the out-of-scope third-party enrichment
// providers (TMDb, OpenSubtitles) the assistant gateway's tooling layer
// calls. Only their cache and quota semantics are specified — the actual
// metadata schema each provider returns is treated as an opaque JSON blob.
package external
