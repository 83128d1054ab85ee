package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is matched by every InvalidValueError.
var ErrInvalidValue = errors.New("invalid filter value")

// InvalidValueError reports a leaf whose value does not fit its operator.
type InvalidValueError struct {
	Column   string
	Operator Operator
	Value    any
	Reason   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %s for %s %s: %s", formatValue(e.Value), e.Column, e.Operator, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidValue) hold.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// DecodeError reports a malformed filter document.
type DecodeError struct {
	// Path locates the node, e.g. "[0].and[1]".
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("filter decode error: %s", e.Message)
	}
	return fmt.Sprintf("filter decode error at %s: %s", e.Path, e.Message)
}
