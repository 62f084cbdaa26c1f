package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseShape     Phase = "shape"     // descriptor construction
	PhasePeek      Phase = "peek"      // read access
	PhaseBuild     Phase = "build"     // incremental construction
	PhaseSerialize Phase = "serialize" // field projection
	PhaseGuest     Phase = "guest"     // guest linear memory
	PhaseCLI       Phase = "cli"       // command line tooling
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds        Kind = "out_of_bounds"
	KindNoSuchField        Kind = "no_such_field"
	KindUninitializedField Kind = "uninitialized_field"
	KindShapeMismatch      Kind = "shape_mismatch"
	KindUnsupportedFlatten Kind = "unsupported_flatten"
	KindUnsupported        Kind = "unsupported"
	KindWrongKind          Kind = "wrong_kind"
	KindInvalidVariant     Kind = "invalid_variant"
	KindVariance           Kind = "variance"
	KindInvalidData        Kind = "invalid_data"
	KindNilPointer         Kind = "nil_pointer"
	KindParse              Kind = "parse"
	KindNotFound           Kind = "not_found"
)

// Sentinels for errors.Is. They have no phase and match on Kind alone.
var (
	ErrOutOfBounds        = &Error{Kind: KindOutOfBounds}
	ErrNoSuchField        = &Error{Kind: KindNoSuchField}
	ErrUninitializedField = &Error{Kind: KindUninitializedField}
	ErrShapeMismatch      = &Error{Kind: KindShapeMismatch}
	ErrUnsupportedFlatten = &Error{Kind: KindUnsupportedFlatten}
	ErrUnsupported        = &Error{Kind: KindUnsupported}
	ErrWrongKind          = &Error{Kind: KindWrongKind}
	ErrInvalidVariant     = &Error{Kind: KindInvalidVariant}
	ErrVariance           = &Error{Kind: KindVariance}
	ErrInvalidData        = &Error{Kind: KindInvalidData}
	ErrNilPointer         = &Error{Kind: KindNilPointer}
	ErrParse              = &Error{Kind: KindParse}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
	Expected string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.TypeName != "" || e.Expected != "" {
		b.WriteString(": ")
		if e.TypeName != "" && e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", got ")
			b.WriteString(e.TypeName)
		} else if e.TypeName != "" {
			b.WriteString("type ")
			b.WriteString(e.TypeName)
		} else {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		}
	}

	if e.Detail != "" {
		if e.TypeName != "" || e.Expected != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// TypeName sets the name of the offending type
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Expected sets the name of the expected type
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, bound int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (bound %d)", index, bound),
		Value:  index,
	}
}

// NoSuchField creates a field lookup error
func NoSuchField(phase Phase, path []string, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoSuchField,
		Path:   path,
		Detail: fmt.Sprintf("no field named %q", name),
		Value:  name,
	}
}

// UninitializedField creates the error returned when a build is attempted
// before every required field has been filled.
func UninitializedField(path []string, name string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindUninitializedField,
		Path:   path,
		Detail: fmt.Sprintf("field %q is not initialized", name),
		Value:  name,
	}
}

// ShapeMismatch creates a shape mismatch error
func ShapeMismatch(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindShapeMismatch,
		Path:     path,
		Expected: expected,
		TypeName: actual,
	}
}

// UnsupportedFlatten reports a flatten annotation on a field that is neither
// struct-like nor enum-like.
func UnsupportedFlatten(path []string, typeName string) *Error {
	return &Error{
		Phase:    PhaseSerialize,
		Kind:     KindUnsupportedFlatten,
		Path:     path,
		TypeName: typeName,
		Detail:   "flatten requires a struct or enum",
	}
}

// WrongKind creates an error for an accessor requested on a shape of another kind
func WrongKind(phase Phase, typeName, want string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindWrongKind,
		TypeName: typeName,
		Detail:   fmt.Sprintf("not %s", want),
	}
}

// InvalidVariant creates an invalid discriminant error for enum-like values
func InvalidVariant(phase Phase, path []string, disc int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d matches no variant", disc),
		Value:  disc,
	}
}

// Variance creates a borrow scope violation error
func Variance(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindVariance,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNilPointer,
		Path:     path,
		TypeName: typeName,
		Detail:   "nil pointer",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(phase Phase, typeName string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindParse,
		TypeName: typeName,
		Cause:    cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithPath returns a copy of e with prefix prepended to its path.
func WithPath(e *Error, prefix ...string) *Error {
	cp := *e
	cp.Path = append(append([]string(nil), prefix...), e.Path...)
	return &cp
}
