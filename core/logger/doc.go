// Package logger provides a structured logging facility based on Zap.
//
// A run of the ingest job writes to stdout and, when a log directory is
// configured, appends the same lines to one file per dataset inside it
// (e.g. /app/logs/listed_stock.log). The directory is created on demand.
//
// # Configuration
//
//   - Level: debug, info, warn, error. "debug" switches to the zap development preset.
//   - Format: json (default) or console.
//   - Dir / File: optional log file location.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Dir: "/app/logs", File: "listed_stock.log"})
//	log.Info("pass done", zap.Int("inserted", n))
package logger
