// Package logging provides structured logging utilities for zfs-feature-discovery.
//
// # Overview
//
// This package wraps the standard library slog package with defaults and
// conventions for consistent logging across all components. It supports
// environment-based log level configuration, module/version context injection,
// and automatic source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages, including standard error of invoked tools
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("zfs-feature-discovery", version)
//	    slog.Info("refreshing", "pools", 2)
//	}
//
// Setting explicit log level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("zfs-feature-discovery", version, "warn")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity when no
// explicit level is given:
//
//	LOG_LEVEL=debug zfs-feature-discovery run --oneshot
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "WARN",
//	    "msg": "zpool: cannot open 'tank': no such pool",
//	    "module": "zfs-feature-discovery",
//	    "version": "v0.3.0",
//	    "command": "zpool"
//	}
package logging
