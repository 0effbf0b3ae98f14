package calculator

import "errors"

// State machine failures. Each one leaves the Machine untouched.
var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidOperands  = errors.New("invalid operands")
	ErrDivisionByZero   = errors.New("division by zero is not allowed")
	ErrInvalidOperator  = errors.New("invalid operator")
)

// Session store failures.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// errorKind returns a stable label for err, used as a metric attribute.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrInvalidOperands):
		return "invalid_operands"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrInvalidOperator):
		return "invalid_operator"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrTooManySessions):
		return "too_many_sessions"
	default:
		return "unknown"
	}
}
