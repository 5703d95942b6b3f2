// Package errors provides structured error types for the extension bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the member path, Go type, exposed JS name and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
//		Path("Echo", "echo").
//		GoType("int").
//		Detail("argument 0 is not a number").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoSuchMember("Echo", "missing")
//	err := errors.Truncated(errors.PhaseDecode, "callbackId", 4, 2)
//
// Errors match by Phase and Kind, so a bare template works with errors.Is:
//
//	errors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindNoSuchMember})
package errors
