// Package vectorworker drains vectors_pending and keeps semantic search
// current: either by handing the refresh off to the job orchestrator, or,
// when the orchestrator is disabled, rebuilding an in-process index
// directly. The embedding backend itself (captioning, transcription,
// OpenCLIP) is out of scope — EmbedderCapability is the seam a real
// backend plugs into.
package vectorworker
