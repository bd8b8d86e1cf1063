package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrParse               = errors.New("query parse error")
	ErrUnsupportedOperator = errors.New("operator not supported by retrieval model")
	ErrIndexAccess         = errors.New("index access failed")
	ErrEmptyOperand        = errors.New("operator has no operands")
	ErrUnknownModel        = errors.New("unknown retrieval model")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// ParseError reports a malformed query together with the token that
// triggered it. Offset is the token's index in the token stream, or -1
// when the error is not tied to a single token (e.g. unexpected end).
type ParseError struct {
	Token  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s at token %d %q", ErrParse.Error(), e.Reason, e.Offset, e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

func NewParseError(token string, offset int, format string, args ...any) *ParseError {
	return &ParseError{
		Token:  token,
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Unsupported builds the error returned when an operator is evaluated
// under a retrieval model it has no definition for.
func Unsupported(operator, model string) error {
	return fmt.Errorf("%w: %s under %s", ErrUnsupportedOperator, operator, model)
}

// IsFatal reports whether err must abort a whole batch run rather than
// just the query that produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnsupportedOperator) || errors.Is(err, ErrIndexAccess)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrParse), errors.Is(err, ErrEmptyOperand):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedOperator), errors.Is(err, ErrUnknownModel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrIndexAccess), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}

}
