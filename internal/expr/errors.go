package expr

import (
	"errors"
	"fmt"
)

// Reasons attached to EvalError. Handlers and the quiz validator key off
// these to build author-facing messages.
const (
	ReasonUnauthorizedVariable = "unauthorized variable"
	ReasonSyntax               = "syntax error"
	ReasonDisallowedOperator   = "disallowed operator"
	ReasonChainedComparison    = "chained comparison"
	ReasonTypeMismatch         = "type mismatch"
)

// EvalError is returned for any expression the language does not accept:
// bad syntax, an operator outside the closed set, a chained comparison,
// an identifier not present in the variable set, or operands of the wrong
// type.
type EvalError struct {
	Expression string
	Reason     string
	Detail     string
}

func (e *EvalError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("expression %q: %s: %s", e.Expression, e.Reason, e.Detail)
	}
	return fmt.Sprintf("expression %q: %s", e.Expression, e.Reason)
}

func newEvalError(expression, reason, detail string) *EvalError {
	return &EvalError{Expression: expression, Reason: reason, Detail: detail}
}

// IsEvalError checks if err is (or wraps) an evaluation error.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}
