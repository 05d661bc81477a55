// Package logger provides the structured logging interface used across the
// archiver.
//
// It wraps zerolog with a small interface so components can take a Logger
// and tests can swap in a TestLogger that records every message.
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("Archiver started")
//	logger.WithField("location", "35.0,139.0").Warn("No snaps returned")
//	logger.WithError(err).Error("Failed to write manifest")
//
// Console output goes to stderr with colored levels. Setting LoggingConfig.File
// additionally appends JSON lines to that file.
package logger
