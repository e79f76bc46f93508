// Package errors provides the classified error primitives used across sitehead.
//
// Key features:
//   - ErrorCategory: broad classification (config, filesystem, render, script, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether and how an operation may be retried
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLI and HTTP adapters for exit codes and status codes
//
// Example usage:
//
//	err := errors.WrapError(err, errors.CategoryFileSystem, "write page").
//		WithContext("path", path).
//		Build()
package errors
