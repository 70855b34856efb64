package term

import (
	"errors"
	"fmt"
)

// Error is returned when a term cannot be constructed or computed.
//
// Construction errors (bad operands, bad bounds, malformed expressions) are
// returned before the term is interned, so every reachable node is
// well-formed. Compute errors only signal contract violations such as
// mismatched input shapes.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Op is the operator involved, for dispatch errors.
	Op string

	// Left and Right describe the operands, for dispatch errors.
	Left  string
	Right string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes term errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedBinaryOperator indicates an operand combination no
	// dispatch rule accepts.
	ErrCodeUnsupportedBinaryOperator ErrorCode = "UNSUPPORTED_BINARY_OPERATOR"

	// ErrCodeBadPercentileBounds indicates bounds outside 0 <= min < max <= 100.
	ErrCodeBadPercentileBounds ErrorCode = "BAD_PERCENTILE_BOUNDS"

	// ErrCodeExpectedFilter indicates a non-filter where a filter is required.
	ErrCodeExpectedFilter ErrorCode = "EXPECTED_FILTER"

	// ErrCodeExpectedFactor indicates a non-numeric term where a factor is required.
	ErrCodeExpectedFactor ErrorCode = "EXPECTED_FACTOR"

	// ErrCodeInvalidExpression indicates malformed expression text or binds.
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"

	// ErrCodeShapeMismatch indicates input arrays that do not line up.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// ErrCodeNotComputable indicates ComputeFromArrays on a loadable leaf.
	ErrCodeNotComputable ErrorCode = "NOT_COMPUTABLE"

	// ErrCodeEvaluationFailed indicates the expression evaluator failed.
	ErrCodeEvaluationFailed ErrorCode = "EVALUATION_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsUnsupportedBinaryOperator returns true if err is an unsupported operator error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedBinaryOperator(err error) bool {
	return hasCode(err, ErrCodeUnsupportedBinaryOperator)
}

// IsBadPercentileBounds returns true if err is a percentile bounds error.
func IsBadPercentileBounds(err error) bool {
	return hasCode(err, ErrCodeBadPercentileBounds)
}

// IsExpectedFilter returns true if err reports a non-filter operand.
func IsExpectedFilter(err error) bool {
	return hasCode(err, ErrCodeExpectedFilter)
}

// IsExpectedFactor returns true if err reports a non-factor operand.
func IsExpectedFactor(err error) bool {
	return hasCode(err, ErrCodeExpectedFactor)
}

// IsInvalidExpression returns true if err reports a malformed expression.
func IsInvalidExpression(err error) bool {
	return hasCode(err, ErrCodeInvalidExpression)
}

// IsShapeMismatch returns true if err reports misaligned arrays.
func IsShapeMismatch(err error) bool {
	return hasCode(err, ErrCodeShapeMismatch)
}

// NewUnsupportedBinaryOperator creates an Error for an operand combination
// that no dispatch rule accepts.
func NewUnsupportedBinaryOperator(op string, left, right any) *Error {
	l, r := Describe(left), Describe(right)
	return &Error{
		Code:    ErrCodeUnsupportedBinaryOperator,
		Message: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, l, r),
		Op:      op,
		Left:    l,
		Right:   r,
	}
}

// NewBadPercentileBounds creates an Error for percentile bounds outside
// 0 <= min < max <= 100.
func NewBadPercentileBounds(min, max float64) *Error {
	return &Error{
		Code: ErrCodeBadPercentileBounds,
		Message: fmt.Sprintf(
			"percentile bounds must fall between 0.0 and 100.0, and min must be less than max (min=%g, max=%g)",
			min, max,
		),
		Details: map[string]string{
			"min_percentile": fmt.Sprintf("%g", min),
			"max_percentile": fmt.Sprintf("%g", max),
		},
	}
}

// NewExpectedFilter creates an Error for a non-filter operand.
func NewExpectedFilter(got any) *Error {
	return &Error{
		Code:    ErrCodeExpectedFilter,
		Message: fmt.Sprintf("expected Filter, got %s", TypeName(got)),
	}
}

// NewExpectedFactor creates an Error for a non-factor operand.
func NewExpectedFactor(got any) *Error {
	return &Error{
		Code:    ErrCodeExpectedFactor,
		Message: fmt.Sprintf("expected Factor, got %s", TypeName(got)),
	}
}

// NewInvalidExpression creates an Error for malformed expression text.
func NewInvalidExpression(expr, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidExpression,
		Message: fmt.Sprintf("%q: %s", expr, reason),
		Details: map[string]string{"expr": expr},
	}
}

// NewShapeMismatch creates an Error for misaligned arrays passed to t.
func NewShapeMismatch(t Term, cause error) *Error {
	return &Error{
		Code:    ErrCodeShapeMismatch,
		Message: Describe(t),
		Err:     cause,
	}
}

// NewNotComputable creates an Error for ComputeFromArrays on a loadable leaf.
func NewNotComputable(t Term) *Error {
	return &Error{
		Code:    ErrCodeNotComputable,
		Message: fmt.Sprintf("%s is loaded, not computed", Describe(t)),
	}
}

// NewEvaluationFailed creates an Error for an evaluator failure.
func NewEvaluationFailed(expr string, cause error) *Error {
	return &Error{
		Code:    ErrCodeEvaluationFailed,
		Message: fmt.Sprintf("evaluating %q", expr),
		Details: map[string]string{"expr": expr},
		Err:     cause,
	}
}
