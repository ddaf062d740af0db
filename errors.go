package revdom

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrorKind enumerates the error taxonomy of §7. Each Error carries exactly
// one Kind, which the Render Controller uses to decide its disposition
// (abort-and-keep-baseline vs. reset-the-session).
type ErrorKind string

const (
	// KindTemplateNotFound: Resolver couldn't locate a referenced source.
	KindTemplateNotFound ErrorKind = "TemplateNotFound"
	// KindCircularInheritance: the Resolver's extends graph has a cycle.
	KindCircularInheritance ErrorKind = "CircularInheritance"
	// KindEvaluationError: the template evaluator failed against a state.
	KindEvaluationError ErrorKind = "EvaluationError"
	// KindParseError: the HTML parser rejected the evaluated source.
	KindParseError ErrorKind = "ParseError"
	// KindDiffFailure: the diff engine hit an internal invariant violation.
	KindDiffFailure ErrorKind = "DiffFailure"
	// KindVersionGap: the client detected a skipped version.
	KindVersionGap ErrorKind = "VersionGap"
	// KindPatchApplyFailure: the client failed to apply a patch.
	KindPatchApplyFailure ErrorKind = "PatchApplyFailure"
)

// Recoverable reports whether a failure of this kind leaves the session's
// baseline untouched and able to continue on the next event (§7
// "Propagation policy").
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindEvaluationError, KindParseError:
		return true
	default:
		return false
	}
}

// Error is the value-typed outcome every core pipeline stage returns
// instead of raising an unwound failure (§9 "Error propagation").
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// newErr constructs an *Error, wrapping cause when non-nil.
func newErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// AsError extracts a *revdom.Error from err, following the standard wrapping
// chain (errors.As semantics).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the ErrorKind of err, or "" if err does not wrap a
// *revdom.Error.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

// ApplyFailures aggregates one or more client-reported patch-apply failures
// using go.uber.org/multierr, preserving every individual cause. §7 forbids
// partial patch application: either the whole sequence applies, or the
// session resets and reports every failure that contributed to the reset.
func ApplyFailures(failures ...error) error {
	var agg error
	for _, f := range failures {
		if f == nil {
			continue
		}
		agg = multierr.Append(agg, newErr(KindPatchApplyFailure, "patch application failed", f))
	}
	return agg
}
