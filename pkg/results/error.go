package results

import (
	"errors"
	"fmt"
	"sort"
)

// Error holds a reason, structured fields, a message and a child error.
// The common use-case is to wrap errors from callsites inside stages:
//
//	if err := os.Rename(src, dst); err != nil {
//	    return results.ForReason(results.ReasonOperationFailed).
//	        WithField("operation", "rename").WithField("file", src).
//	        WithError(err).Errorf("could not install %s", src)
//	}
type Error struct {
	reason  Reason
	fields  map[string]string
	message string
	wrapped error
}

// Error makes an Error an error
func (e *Error) Error() string {
	return e.message
}

// Unwrap allows nesting of errors
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is allows us to say we are an Error
func (e *Error) Is(target error) bool {
	_, is := target.(*Error)
	return is
}

// Reason extracts the outermost reason from an error chain, or
// ReasonUnknown when no Error is present.
func ReasonFor(err error) Reason {
	var e *Error
	if errors.As(err, &e) && e.reason != "" {
		return e.reason
	}
	return ReasonUnknown
}

// Fields extracts the structured fields recorded on the outermost Error in
// a chain. The returned map is a copy.
func FieldsFor(err error) map[string]string {
	var e *Error
	if !errors.As(err, &e) || len(e.fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Reasons provides the chains of error reasons.
// Each item in the return value is a single chain divided by colons.
// Aggregate errors, those whose type provides an `Errors` method returning
// a list of errors, are recursively expanded, generating a separate chain
// for each child.
func Reasons(errs ...error) (ret []string) {
	for _, err := range errs {
		switch err := err.(type) {
		case *Error:
			children := Reasons(err.Unwrap())
			if len(children) == 0 {
				ret = append(ret, string(err.reason))
				break
			}
			for _, r := range children {
				ret = append(ret, fmt.Sprintf("%s:%s", err.reason, r))
			}
		case interface{ Errors() []error }:
			ret = append(ret, Reasons(err.Errors()...)...)
		case interface{ Unwrap() error }:
			ret = append(ret, Reasons(err.Unwrap())...)
		}
	}
	return
}

// FullReason flattens the chain of reasons in an error into one
// colon-divided string.
func FullReason(err error) string {
	reasons := Reasons(err)
	if len(reasons) == 0 {
		return string(ReasonUnknown)
	}
	return reasons[0]
}

// FieldSummary renders an error's structured fields as a stable
// "k=v, k=v" string for logs and the error journal.
func FieldSummary(err error) string {
	fields := FieldsFor(err)
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", k, fields[k])
	}
	return out
}

// BuilderWithReason starts the builder chain
type BuilderWithReason struct {
	Error
}

// ForReason is a constructor for an Error from a Reason. We expect
// users to then add fields, a child and an error message to this Error.
func ForReason(reason Reason) *BuilderWithReason {
	if reason == "" {
		// we don't want to journal an empty reason, so we enforce that
		// there's some default (if useless) value
		reason = ReasonUnknown
	}
	return &BuilderWithReason{
		Error: Error{
			reason: reason,
		},
	}
}

// WithField attaches one structured field to the Error under construction.
func (e *BuilderWithReason) WithField(key, value string) *BuilderWithReason {
	if e.fields == nil {
		e.fields = map[string]string{}
	}
	e.fields[key] = value
	return e
}

// BuilderWithReasonAndError adds a child error to the builder
type BuilderWithReasonAndError struct {
	Error
}

// WithError is a builder that adds a child to the Error. We
// expect users to continue to build the Error by adding a message.
func (e *BuilderWithReason) WithError(err error) *BuilderWithReasonAndError {
	b := &BuilderWithReasonAndError{
		Error: e.Error,
	}
	b.wrapped = err
	return b
}

// Errorf is a builder that adds in the main error to an Error.
// This is expected to be the final builder/producer in a chain,
// so we return an error and not an Error
func (e *BuilderWithReasonAndError) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	return &e.Error
}

// Errorf finishes a builder that carries no child error.
func (e *BuilderWithReason) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	return &e.Error
}

// ForError is a constructor for when a caller does not want to add
// a child but instead wants a simple error. For instance, wrapping
// the outcome of a function that doesn't return an Error itself:
//
//	err := results.ForReason(results.ReasonOperationFailed).ForError(doSomething())
func (e *BuilderWithReason) ForError(err error) error {
	if err == nil {
		return nil
	}
	e.wrapped = err
	e.message = err.Error()
	return &e.Error
}

// DefaultReason is a constructor that adds a reason if needed, when we
// want to ensure that consumers downstream of a callsite have an Error.
//
//	annotated := DefaultReason(doSomething())
func DefaultReason(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, &Error{}) {
		return err
	}

	return ForReason(ReasonUnknown).ForError(err)
}
