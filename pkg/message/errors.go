package message

import (
	"errors"
	"fmt"
)

// Decode error codes.
const (
	CodeMissingField     = "MISSING_FIELD"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeShapeMismatch    = "SHAPE_MISMATCH"
	CodeUnknownOperation = "UNKNOWN_OPERATION"
)

// Sentinels for errors.Is against a *DecodeError.
var (
	ErrMissingField     = errors.New("missing field")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnknownOperation = errors.New("unknown operation")
)

// DecodeError reports why a generic value could not be decoded into an
// envelope or a message. Field is the dotted path from the decoded root,
// e.g. "pose.position.x" or "covariance".
type DecodeError struct {
	Code string `json:"code"`

	Field string `json:"field,omitempty"`

	// TYPE_MISMATCH
	ExpectedKind string `json:"expectedKind,omitempty"`
	ActualKind   string `json:"actualKind,omitempty"`

	// SHAPE_MISMATCH
	Expected int `json:"expected,omitempty"`
	Actual   int `json:"actual,omitempty"`

	// UNKNOWN_OPERATION
	Tag string `json:"tag,omitempty"`
}

func (e *DecodeError) Error() string {
	switch e.Code {
	case CodeMissingField:
		return fmt.Sprintf("%s: field %q is required", e.Code, e.Field)
	case CodeTypeMismatch:
		return fmt.Sprintf("%s: field %q must be %s, got %s", e.Code, e.fieldName(), e.ExpectedKind, e.ActualKind)
	case CodeShapeMismatch:
		return fmt.Sprintf("%s: field %q must have %d elements, got %d", e.Code, e.Field, e.Expected, e.Actual)
	case CodeUnknownOperation:
		return fmt.Sprintf("%s: %q", e.Code, e.Tag)
	}
	return e.Code
}

// Is matches the sentinel for the error's code.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Code == CodeMissingField
	case ErrTypeMismatch:
		return e.Code == CodeTypeMismatch
	case ErrShapeMismatch:
		return e.Code == CodeShapeMismatch
	case ErrUnknownOperation:
		return e.Code == CodeUnknownOperation
	}
	return false
}

func (e *DecodeError) fieldName() string {
	if e.Field == "" {
		return "(root)"
	}
	return e.Field
}

// MissingField returns a MISSING_FIELD error for name.
func MissingField(name string) *DecodeError {
	return &DecodeError{Code: CodeMissingField, Field: name}
}

// TypeMismatch returns a TYPE_MISMATCH error for field holding got.
func TypeMismatch(field, expectedKind string, got any) *DecodeError {
	return &DecodeError{Code: CodeTypeMismatch, Field: field, ExpectedKind: expectedKind, ActualKind: KindOf(got)}
}

// ShapeMismatch returns a SHAPE_MISMATCH error for a fixed length field.
func ShapeMismatch(field string, expected, actual int) *DecodeError {
	return &DecodeError{Code: CodeShapeMismatch, Field: field, Expected: expected, Actual: actual}
}

// UnknownOperation returns an UNKNOWN_OPERATION error for an envelope op tag.
func UnknownOperation(tag string) *DecodeError {
	return &DecodeError{Code: CodeUnknownOperation, Field: "op", Tag: tag}
}

// WithPrefix qualifies the field path of a *DecodeError with prefix.
// Other errors are returned unchanged.
func WithPrefix(prefix string, err error) error {
	var de *DecodeError
	if prefix == "" || !errors.As(err, &de) {
		return err
	}
	qualified := *de
	if qualified.Field == "" {
		qualified.Field = prefix
	} else {
		qualified.Field = prefix + "." + qualified.Field
	}
	return &qualified
}
