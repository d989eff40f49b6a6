// Package assistant gates and serves the optional AI tool-calling gateway.
//
// The gate closes unless both a GPU probe and assistant.enable agree the
// assistant may run; the gateway itself attaches lazily on the first
// ask_context call rather than at startup. Each session serializes its own
// tool-calling loop behind a mutex that is released across network I/O, so
// one slow tool call never blocks the rest of the session's callers from
// observing its state, and never blocks other sessions at all.
//
// The assistant never writes to media files or catalog rows; its writes
// are confined to its own session bookkeeping and export artifacts under
// the working directory's exports subdirectory.
package assistant
