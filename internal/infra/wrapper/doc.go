// Package wrapper provides context-aware wrapper functions for outbound HTTP
// operations.
//
// This package enforces consistent context propagation across I/O operations
// by providing wrapper functions that:
//   - Require context as the first parameter
//   - Apply default timeouts when context has no deadline
//   - Return early if context is already done
//   - Preserve existing deadlines (never overwrite)
//
// Default timeout: 30 seconds for HTTP requests.
//
// Usage:
//
//	// HTTP request with automatic timeout
//	resp, err := wrapper.DoRequest(ctx, client, req)
//
// This package is part of the infrastructure layer and can only import
// from the domain layer, following hexagonal architecture principles.
package wrapper
