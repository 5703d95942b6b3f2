package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseDescribe Phase = "describe" // descriptor building
	PhaseGenerate Phase = "generate" // stub generation
	PhaseDecode   Phase = "decode"   // wire to request
	PhaseEncode   Phase = "encode"   // result to wire
	PhaseDispatch Phase = "dispatch" // member invocation
	PhaseStore    Phase = "store"    // object store
	PhaseNotify   Phase = "notify"   // native-initiated messages
	PhaseRuntime  Phase = "runtime"  // extension routing
	PhaseLoad     Phase = "load"     // schema and module loading
	PhaseScript   Phase = "script"   // script context
)

// Kind categorizes the error
type Kind string

const (
	KindNoSuchMember        Kind = "no_such_member"
	KindNoSuchProperty      Kind = "no_such_property"
	KindInvalidTarget       Kind = "invalid_target"
	KindNameCollision       Kind = "name_collision"
	KindDuplicateEntryPoint Kind = "duplicate_entry_point"
	KindInvalidEventList    Kind = "invalid_event_list"
	KindUnresolvedTarget    Kind = "unresolved_target"
	KindMalformed           Kind = "malformed"
	KindTruncated           Kind = "truncated"
	KindMisaligned          Kind = "misaligned"
	KindTypeMismatch        Kind = "type_mismatch"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindAlreadyBound        Kind = "already_bound"
	KindClosed              Kind = "closed"
	KindInstantiation       Kind = "instantiation"
	KindNotInitialized      Kind = "not_initialized"
	KindUnsupported         Kind = "unsupported"
	KindRegistration        Kind = "registration"
	KindUndeclared          Kind = "undeclared"
	KindInvocation          Kind = "invocation"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	JSName string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.JSName != "" {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.JSName != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", JS name ")
			b.WriteString(e.JSName)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("JS name ")
			b.WriteString(e.JSName)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.JSName != "" {
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// JSName sets the exposed script-side name
func (b *Builder) JSName(name string) *Builder {
	b.err.JSName = name
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

// Dispatch errors

// NoSuchMember creates an error for a name that is not an invocable member
func NoSuchMember(class, name string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNoSuchMember,
		Path:   []string{class, name},
		JSName: name,
		Detail: "no such method or constructor",
	}
}

// NoSuchProperty creates an error for a name that is not a property
func NoSuchProperty(class, name string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNoSuchProperty,
		Path:   []string{class, name},
		JSName: name,
		Detail: "no such property",
	}
}

// InvalidTarget creates an error for an instance member reached without a
// target of the declaring type
func InvalidTarget(class, name string, got any) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindInvalidTarget,
		Path:   []string{class, name},
		JSName: name,
		GoType: fmt.Sprintf("%T", got),
		Detail: "target is not an instance of the declaring class",
		Value:  got,
	}
}

// TypeMismatch creates an argument conversion error
func TypeMismatch(phase Phase, path []string, goType string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("cannot convert %T", value),
		Value:  value,
	}
}

// Invocation creates an error for a native member that failed or panicked
func Invocation(class, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindInvocation,
		Path:   []string{class, name},
		JSName: name,
		Detail: "native member failed",
		Cause:  cause,
	}
}

// Descriptor errors

// NameCollision creates an error for a member name declared twice in one class
func NameCollision(class, name string) *Error {
	return &Error{
		Phase:  PhaseDescribe,
		Kind:   KindNameCollision,
		Path:   []string{class, name},
		JSName: name,
		Detail: "member name already declared",
	}
}

// DuplicateEntryPoint creates an error for a second entry point in one class
func DuplicateEntryPoint(class, name, existing string) *Error {
	return &Error{
		Phase:  PhaseDescribe,
		Kind:   KindDuplicateEntryPoint,
		Path:   []string{class, name},
		JSName: name,
		Detail: fmt.Sprintf("entry point already set to %q", existing),
	}
}

// UnresolvedTarget creates an error for a constructor whose target class
// cannot be described
func UnresolvedTarget(class, name, goType string) *Error {
	return &Error{
		Phase:  PhaseDescribe,
		Kind:   KindUnresolvedTarget,
		Path:   []string{class, name},
		GoType: goType,
		Detail: "constructor target is not a binding class",
	}
}

// Wire errors

// Malformed creates an error for a message that does not match any shape
func Malformed(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformed,
		Detail: detail,
		Cause:  cause,
	}
}

// Truncated creates an error for a binary frame that ends early
func Truncated(phase Phase, field string, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Path:   []string{field},
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

// Misaligned creates an error for a length field that breaks 4-byte alignment
func Misaligned(phase Phase, field string, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisaligned,
		Path:   []string{field},
		Detail: fmt.Sprintf("length %d is not a valid aligned size", length),
		Value:  length,
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

// Runtime convenience constructors

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
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

// AlreadyBound creates an error for an object id that is already registered
func AlreadyBound(id string) *Error {
	return &Error{
		Phase:  PhaseStore,
		Kind:   KindAlreadyBound,
		Detail: fmt.Sprintf("object id %q already bound", id),
		Value:  id,
	}
}

// Closed creates an error for use after teardown
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Registration creates a registration error
func Registration(phase Phase, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMalformed,
		Detail: detail,
		Cause:  cause,
	}
}

// Undeclared creates an error for a notification naming an event or
// property the class does not declare
func Undeclared(class, what, name string) *Error {
	return &Error{
		Phase:  PhaseNotify,
		Kind:   KindUndeclared,
		Path:   []string{class, name},
		JSName: name,
		Detail: fmt.Sprintf("%s not declared", what),
	}
}
