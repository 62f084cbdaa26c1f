// Package errors provides structured error types for the shapes library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the field path, the type names involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePeek, errors.KindNoSuchField).
//		Path("user", "address").
//		TypeName("Address").
//		Detail("no field named %q", "zip").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhasePeek, path, 10, 5)
//	err := errors.UninitializedField(path, "zip")
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported Err* sentinels carry no phase and match any error of their kind.
package errors
