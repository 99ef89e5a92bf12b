// Package zfserr defines the typed error taxonomy shared by every operation
// in the ZFS control plane, so the HTTP layer can map an error to a status
// code without sniffing message strings.
package zfserr

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind identifies the class of failure a Error carries.
type Kind int

const (
	// Validation covers bad names, bad paths, bad property grammar, or an
	// unsupported option (e.g. recursive send).
	Validation Kind = iota
	// NotFound covers an absent pool, dataset, or snapshot.
	NotFound
	// AlreadyExists covers a file without overwrite, or a snapshot with a
	// name already in use.
	AlreadyExists
	// Busy covers a pool held by another task, or a dataset with open files.
	Busy
	// SafetyLocked covers a mutating operation attempted while the safety
	// lock is engaged.
	SafetyLocked
	// RollbackBlocked covers a rollback refused due to newer snapshots or
	// clones that were not authorized for destruction.
	RollbackBlocked
	// EngineError covers a library call failure, carrying an
	// errno-translated message.
	EngineError
	// SubprocessError covers a non-zero subprocess exit, carrying trimmed
	// stderr.
	SubprocessError
	// IoError covers a file or pipe failure.
	IoError
	// Internal covers an invariant violation.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "ValidationError"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Busy:
		return "Busy"
	case SafetyLocked:
		return "SafetyLocked"
	case RollbackBlocked:
		return "RollbackBlocked"
	case EngineError:
		return "EngineError"
	case SubprocessError:
		return "SubprocessError"
	case IoError:
		return "IoError"
	default:
		return "Internal"
	}
}

// Error is the concrete error type returned by every internal package.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
	// Details carries structured data an error needs beyond its message —
	// e.g. RollbackBlocked's blocking snapshot/clone names — that the HTTP
	// layer merges into the error envelope alongside "message".
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, formatting a message and
// attaching the original error for Unwrap/errors.Is chains.
func Wrap(kind Kind, wrapped error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: wrapped}
}

// NewWithDetails builds an Error of the given kind carrying structured
// details alongside its formatted message.
func NewWithDetails(kind Kind, details map[string]any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Details: details}
}

// DetailsOf extracts the Details map from err, returning nil when err is not
// (or does not wrap) a *Error, or carries no details.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// KindOf extracts the Kind from err, defaulting to Internal when err is not
// (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// errnoMessages maps the errno values the ZFS management layer is known to
// surface into human-readable text. Anything else renders as "unknown
// error".
var errnoMessages = map[unix.Errno]string{
	unix.ENOENT: "no such file or dataset",
	unix.EEXIST: "already exists",
	unix.EBUSY:  "device or resource busy",
	unix.EINVAL: "invalid argument",
	unix.EPERM:  "operation not permitted",
	unix.ENOSPC: "no space left on device",
	unix.EDQUOT: "disk quota exceeded",
}

// ErrnoToString translates a raw errno into the human-readable string used
// in EngineError messages throughout the dataset, snapshot, and recursive
// destroy operations.
func ErrnoToString(errno unix.Errno) string {
	if msg, ok := errnoMessages[errno]; ok {
		return msg
	}
	return "unknown error"
}

// AsErrno extracts a unix.Errno from err if it is (or wraps) one.
func AsErrno(err error) (unix.Errno, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// EngineErrorFromErrno builds an EngineError using ErrnoToString for the
// message, preserving the original errno for callers that need to branch on
// it (e.g. the rollback planner's EEXIST/EBUSY translation).
func EngineErrorFromErrno(errno unix.Errno) *Error {
	return &Error{Kind: EngineError, Message: ErrnoToString(errno), Wrapped: errno}
}
