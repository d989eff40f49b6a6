// Package httpserver exposes the Read API, assistant gateway, scheduler
// control and diagnostics over HTTP, plus SSE/WebSocket event subscription.
//
// The router is built with chi.NewRouter() and groups routes the way a
// typical chi service does: a route group per concern, all sharing the
// router-level middleware stack. Cross-cutting middleware runs in a fixed
// order on every request: request-id, LAN-only gate, API-key auth, request
// logging, performance monitor (when configured), gzip compression, CORS.
// /metrics and /v1/health still pass through the LAN gate and auth;
// nothing is exempted beyond what the settings already allow.
//
// Handlers never construct their own JSON error bodies: WriteError
// translates a catalogerr.Kind into the {error, details?} envelope and the
// matching status code.
package httpserver
