// Package errorsx tags errors with reason codes so turn failures can be classified
// without string matching.
package errorsx

import (
	"errors"
	"fmt"
	"strings"
)

// Error carries the reason a turn failed alongside the underlying cause.
type Error struct {
	Reason ReasonCode
	Err    error
}

func (e Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e Error) Unwrap() error { return e.Err }

// Wrap tags err with reason. The innermost reason wins: a tool failure seen
// again by the orchestrator stays tool_execution.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	if _, ok := find(err); ok {
		return err
	}
	return Error{Reason: reason, Err: err}
}

// Errorf formats a new error carrying reason.
func Errorf(reason ReasonCode, format string, args ...any) error {
	return Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// Reason returns the code attached anywhere in err's chain, or ReasonUnknown.
func Reason(err error) ReasonCode {
	if e, ok := find(err); ok {
		return e.Reason
	}
	return ReasonUnknown
}

func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

// Detail renders the expandable part of an error message: a header line with
// the reason and turn ID, an operator hint, then the full chain.
func Detail(err error, turnID string) string {
	reason := Reason(err)
	var b strings.Builder
	fmt.Fprintf(&b, "reason=%s turn_id=%s\n", reason, turnID)
	if hint := Hint(reason); hint != "" {
		fmt.Fprintf(&b, "hint: %s\n", hint)
	}
	fmt.Fprintf(&b, "%+v", err)
	return b.String()
}

func find(err error) (Error, bool) {
	var e Error
	if err == nil || !errors.As(err, &e) {
		return Error{}, false
	}
	return e, true
}
