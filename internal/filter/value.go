package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// IsMissing reports whether v is the missing-value sentinel: null or the
// empty string.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	}
	return false
}

// ToFloat coerces v to a finite float64. Numbers, json.Number and numeric
// strings are accepted.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Number returns the numeric operand of a gt/lt/gte/lte leaf.
func (l *Leaf) Number() (float64, error) {
	f, ok := ToFloat(l.Value)
	if !ok {
		return 0, l.invalid("expected a finite number")
	}
	return f, nil
}

// Range returns the bounds of a between leaf.
func (l *Leaf) Range() (low, high float64, err error) {
	pair, ok := l.Value.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, l.invalid("expected [low, high]")
	}
	low, okLow := ToFloat(pair[0])
	high, okHigh := ToFloat(pair[1])
	if !okLow || !okHigh {
		return 0, 0, l.invalid("bounds must be finite numbers")
	}
	if low > high {
		return 0, 0, l.invalid("low bound exceeds high bound")
	}
	return low, high, nil
}

// Values returns the set of an in leaf. A scalar is treated as a
// one-element set.
func (l *Leaf) Values() []any {
	switch val := l.Value.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	}
	return []any{l.Value}
}

// Scalar returns the value of an eq leaf.
func (l *Leaf) Scalar() (any, error) {
	switch l.Value.(type) {
	case []any, []string, map[string]any:
		return nil, l.invalid("expected a scalar")
	}
	return l.Value, nil
}

// Validate checks the value against the operator.
func (l *Leaf) Validate() error {
	switch l.Operator {
	case OpEq:
		_, err := l.Scalar()
		return err
	case OpIn:
		for _, v := range l.Values() {
			switch v.(type) {
			case []any, map[string]any:
				return l.invalid("set members must be scalars")
			}
		}
		return nil
	case OpGt, OpLt, OpGte, OpLte:
		_, err := l.Number()
		return err
	case OpBetween:
		_, _, err := l.Range()
		return err
	}
	return l.invalid("unsupported operator")
}

// Validate checks every leaf in the tree and returns the first failure.
func Validate(n Node) error {
	var err error
	Walk(n, func(n Node) bool {
		if l, ok := n.(*Leaf); ok {
			err = l.Validate()
		}
		return err == nil
	})
	return err
}

func (l *Leaf) invalid(reason string) *InvalidValueError {
	return &InvalidValueError{Column: l.Column, Operator: l.Operator, Value: l.Value, Reason: reason}
}

// normalizeNumber maps a decoded json.Number onto int64 when it is integral
// and fits, else float64. Non-numeric inputs pass through.
func normalizeNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumber(val[i])
		}
		return val
	}
	return v
}
