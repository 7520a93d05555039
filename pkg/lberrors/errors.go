// Package lberrors defines the typed error taxonomy returned by the
// Lockbook core, so callers can switch on a stable kind instead of
// matching error strings.
//
// This mirrors the shape of a repository-style domain error (a small
// closed enum plus a message and optional path/context), the same
// pattern dittofs uses for its StoreError/ErrorCode.
package lberrors

import "fmt"

// Kind is the top-level category of a core error, per spec §7.
type Kind int

const (
	// KindValidation wraps a structured validation failure (see pkg/validate).
	KindValidation Kind = iota
	// KindNotFound indicates a file, account, share, or path was not found.
	KindNotFound
	// KindConflict indicates a path-taken, share-already-exists, or safe_write race.
	KindConflict
	// KindPermission indicates insufficient access for the attempted operation.
	KindPermission
	// KindNetwork indicates a wire-level failure (unreachable, auth, version).
	KindNetwork
	// KindBilling indicates a server-originated billing failure.
	KindBilling
	// KindDisk indicates a local filesystem failure (bad path, path taken on import/export).
	KindDisk
	// KindUnexpected indicates an internal invariant was violated.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindPermission:
		return "Permission"
	case KindNetwork:
		return "Network"
	case KindBilling:
		return "Billing"
	case KindDisk:
		return "Disk"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Unknown"
	}
}

// Problem is the error type returned across the core's public API.
type Problem struct {
	Kind Kind
	// SubKind names the specific failure within Kind (e.g. a validate.FailureKind
	// stringified, or "ExpiredAuth" for KindNetwork). Empty when Kind alone suffices.
	SubKind string
	Message string
	// Path or id the error concerns, when applicable.
	Context string
	// Wrapped is the underlying cause, if any (I/O error, decode error, etc).
	Wrapped error
}

func (p *Problem) Error() string {
	msg := p.Message
	if msg == "" {
		msg = p.Kind.String()
	}
	if p.SubKind != "" {
		msg = fmt.Sprintf("%s: %s", p.SubKind, msg)
	}
	if p.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, p.Context)
	}
	return msg
}

func (p *Problem) Unwrap() error {
	return p.Wrapped
}

// New builds a Problem with the given kind and message.
func New(kind Kind, message string) *Problem {
	return &Problem{Kind: kind, Message: message}
}

// Newf builds a Problem with a formatted message.
func Newf(kind Kind, format string, args ...any) *Problem {
	return &Problem{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a new Problem.
func Wrap(kind Kind, message string, cause error) *Problem {
	return &Problem{Kind: kind, Message: message, Wrapped: cause}
}

// NotFound builds a KindNotFound problem naming the missing entity and its path/id.
func NotFound(what, context string) *Problem {
	return &Problem{Kind: KindNotFound, Message: what + " not found", Context: context}
}

// Conflict builds a KindConflict problem.
func Conflict(what, context string) *Problem {
	return &Problem{Kind: KindConflict, Message: what, Context: context}
}

// Permission builds a KindPermission problem.
func Permission(message, context string) *Problem {
	return &Problem{Kind: KindPermission, Message: message, Context: context}
}

// Network builds a KindNetwork problem with a named subkind
// (ServerUnreachable, ClientUpdateRequired, ExpiredAuth, InvalidAuth, InternalError).
func Network(subKind, message string) *Problem {
	return &Problem{Kind: KindNetwork, SubKind: subKind, Message: message}
}

// Unexpected builds a KindUnexpected problem for internal invariant violations.
// Callers that see this should log it with full context; it always indicates a defect.
func Unexpected(message string, cause error) *Problem {
	return &Problem{Kind: KindUnexpected, Message: message, Wrapped: cause}
}

// Is reports whether err is a *Problem of the given Kind.
func Is(err error, kind Kind) bool {
	p, ok := err.(*Problem)
	return ok && p.Kind == kind
}
