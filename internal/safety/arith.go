// Package safety provides checked integer arithmetic for tool implementations.
//
// Faults are returned as ToolError values so they travel back to the caller
// as a compact JSON body instead of being masked or wrapped around.
package safety

import (
	"encoding/json"
	"math"
)

const (
	CodeOverflow         = "ERR_OVERFLOW"
	CodeDivisionByZero   = "ERR_DIVISION_BY_ZERO"
	CodeNegativeExponent = "ERR_NEGATIVE_EXPONENT"
	CodeInvalidInput     = "ERR_INVALID_INPUT"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool results small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func overflow(op string) ToolError {
	return ToolError{Code: CodeOverflow, Message: op + " overflows int64"}
}

func Add(a, b int64) (int64, error) {
	s := a + b
	// Overflow iff both operands share a sign that the sum does not.
	if (a >= 0) == (b >= 0) && (s >= 0) != (a >= 0) {
		return 0, overflow("addition")
	}
	return s, nil
}

func Sub(a, b int64) (int64, error) {
	d := a - b
	if (a >= 0) != (b >= 0) && (d >= 0) != (a >= 0) {
		return 0, overflow("subtraction")
	}
	return d, nil
}

func Mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, overflow("multiplication")
	}
	p := a * b
	if p/b != a {
		return 0, overflow("multiplication")
	}
	return p, nil
}

// Div truncates toward zero.
func Div(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ToolError{Code: CodeDivisionByZero, Message: "division by zero"}
	}
	if a == math.MinInt64 && b == -1 {
		return 0, overflow("division")
	}
	return a / b, nil
}

// Rem has the sign of the dividend.
func Rem(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ToolError{Code: CodeDivisionByZero, Message: "remainder by zero"}
	}
	if b == -1 {
		return 0, nil
	}
	return a % b, nil
}

// Pow raises base to a non-negative exponent by repeated squaring.
func Pow(base, exp int64) (int64, error) {
	if exp < 0 {
		return 0, ToolError{Code: CodeNegativeExponent, Message: "exponent must be non-negative"}
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, err := Mul(result, base)
			if err != nil {
				return 0, overflow("power")
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, err := Mul(base, base)
			if err != nil {
				return 0, overflow("power")
			}
			base = b
		}
	}
	return result, nil
}
