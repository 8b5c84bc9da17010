package criteria

import "fmt"

type (
	// Operator is the comparison or match kind a predicate uses.
	Operator string

	// Arity describes the shape of the value an operator expects.
	Arity int
)

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "gt"
	OpGreaterThanOrEqual Operator = "gte"
	OpLessThan           Operator = "lt"
	OpLessThanOrEqual    Operator = "lte"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "start_with"
	OpEndsWith           Operator = "end_with"
	OpRange              Operator = "ranges"
	OpNotRange           Operator = "not_ranges"
	OpGroup              Operator = "group"
)

const (
	ArityScalar Arity = iota + 1
	ArityPair
	AritySequence
)

func (o Operator) String() string {
	return string(o)
}

func (o Operator) IsValid() bool {
	return o.Arity() != 0
}

// Arity returns zero for operators outside the closed set.
func (o Operator) Arity() Arity {
	switch o {
	case OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return ArityScalar
	case OpRange, OpNotRange:
		return ArityPair
	case OpGroup:
		return AritySequence
	default:
		return 0
	}
}

// ParseOperator matches tags literally, without case folding or trimming.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}

	return op, nil
}

func Operators() []Operator {
	return []Operator{
		OpEquals,
		OpNotEquals,
		OpGreaterThan,
		OpGreaterThanOrEqual,
		OpLessThan,
		OpLessThanOrEqual,
		OpContains,
		OpNotContains,
		OpStartsWith,
		OpEndsWith,
		OpRange,
		OpNotRange,
		OpGroup,
	}
}
