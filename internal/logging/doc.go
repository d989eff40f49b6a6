// Package logging provides centralized zerolog-based structured logging for videocatalogd.
//
// It implements a single global logger with JSON output for production and
// console output for local development, plus context-propagated
// correlation/request IDs and an slog adapter for suture's event hook.
//
// # Quick Start
//
//	import "github.com/videocatalog/videocatalog/internal/logging"
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("drive", label).Msg("drive attached")
//	logging.Ctx(ctx).Warn().Err(err).Msg("shard open failed")
//
// # Environment Variables
//
// The package itself reads only FUZZ_MODE (=1 raises the level to fatal at
// start-up). config.Load maps these onto the settings that main passes to
// Init:
//
//	LOG_LEVEL   trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  json, console (default: json)
//
// Caller info comes only from the logging.caller settings key (default: false).
package logging
