// Package logger builds the zap logger shared by the varsim-tools commands.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: console (default for the CLI) or json
//   - File: an optional file that receives a copy of every entry
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log.Info("merged call sets")
//
//	// Tag entries belonging to one comparison run:
//	l := logger.WithRun(log, runID)
package logger
