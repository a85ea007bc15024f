// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeCommandFailed,
//	    "zpool exited with a non-zero status",
//	    cause,
//	    map[string]any{
//	        "command": "zpool",
//	        "exit_code": 1,
//	    },
//	)
//
// Callers that only care about the classification use CodeOf or IsCode,
// which follow the wrap chain:
//
//	if errors.IsCode(err, errors.ErrCodeLaunchFailed) {
//	    // binary missing or not executable
//	}
package errors
