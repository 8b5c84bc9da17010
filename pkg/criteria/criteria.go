package criteria

import (
	"fmt"
	"reflect"
)

type (
	// Range is the (low, high) pair stored by Range and NotRange. Bounds are
	// kept in the order given; low greater than high is not rejected.
	Range struct {
		Low  any `json:"low" yaml:"low"`
		High any `json:"high" yaml:"high"`
	}

	predicateKey struct {
		field string
		op    Operator
	}

	// Criteria accumulates predicates for a single query. Values under the same
	// (field, operator) pair are OR-ed by executors, distinct pairs are AND-ed.
	// A Criteria is owned by one caller and is not safe for concurrent mutation.
	Criteria struct {
		keys       []predicateKey
		predicates map[predicateKey][]any
		groupNames []string
		groups     map[string][]any
		empty      []string
		notEmpty   []string
		errs       *ValidationErrors
	}
)

func NewCriteria() *Criteria {
	return &Criteria{
		keys:       make([]predicateKey, 0),
		predicates: make(map[predicateKey][]any),
		groupNames: make([]string, 0),
		groups:     make(map[string][]any),
		empty:      make([]string, 0),
		notEmpty:   make([]string, 0),
	}
}

func (c *Criteria) Equals(field string, value any) *Criteria {
	return c.append(field, OpEquals, value)
}

func (c *Criteria) NotEquals(field string, value any) *Criteria {
	return c.append(field, OpNotEquals, value)
}

func (c *Criteria) GreaterThan(field string, value any) *Criteria {
	return c.append(field, OpGreaterThan, value)
}

func (c *Criteria) GreaterThanOrEqual(field string, value any) *Criteria {
	return c.append(field, OpGreaterThanOrEqual, value)
}

func (c *Criteria) LessThan(field string, value any) *Criteria {
	return c.append(field, OpLessThan, value)
}

func (c *Criteria) LessThanOrEqual(field string, value any) *Criteria {
	return c.append(field, OpLessThanOrEqual, value)
}

func (c *Criteria) Contains(field string, value any) *Criteria {
	return c.append(field, OpContains, value)
}

func (c *Criteria) NotContains(field string, value any) *Criteria {
	return c.append(field, OpNotContains, value)
}

func (c *Criteria) StartsWith(field string, value any) *Criteria {
	return c.append(field, OpStartsWith, value)
}

func (c *Criteria) EndsWith(field string, value any) *Criteria {
	return c.append(field, OpEndsWith, value)
}

// Range adds an inclusive interval. Repeated ranges on a field form a union.
func (c *Criteria) Range(field string, low, high any) *Criteria {
	return c.append(field, OpRange, Range{Low: low, High: high})
}

func (c *Criteria) NotRange(field string, low, high any) *Criteria {
	return c.append(field, OpNotRange, Range{Low: low, High: high})
}

// IncludeInGroup concatenates values onto the named group. Duplicates are kept
// and calling it without values records nothing. A slice or array passed as a
// value contributes its elements, so IncludeInGroup("state", ids) and
// IncludeInGroup("state", ids...) are equivalent; []byte stays one member.
func (c *Criteria) IncludeInGroup(group string, values ...any) *Criteria {
	if group == "" {
		c.fail(group, OpGroup, ErrInvalidFieldName)

		return c
	}

	values = spread(values)

	if len(values) == 0 {
		return c
	}

	c.init()

	existing, ok := c.groups[group]
	if !ok {
		c.groupNames = append(c.groupNames, group)
		existing = make([]any, 0, len(values))
	}

	c.groups[group] = append(existing, values...)

	return c
}

func (c *Criteria) MarkEmpty(field string) *Criteria {
	if field == "" {
		c.fail(field, "", ErrInvalidFieldName)

		return c
	}

	c.empty = append(c.empty, field)

	return c
}

func (c *Criteria) MarkNotEmpty(field string) *Criteria {
	if field == "" {
		c.fail(field, "", ErrInvalidFieldName)

		return c
	}

	c.notEmpty = append(c.notEmpty, field)

	return c
}

// Add appends a predicate chosen at runtime. Scalar operators take exactly one
// value, range operators two bounds or a single Range, and the group operator
// one or more members.
func (c *Criteria) Add(field string, op Operator, values ...any) *Criteria {
	if field == "" {
		c.fail(field, op, ErrInvalidFieldName)

		return c
	}

	switch op.Arity() {
	case ArityScalar:
		if len(values) != 1 {
			c.fail(field, op, arityError(op, 1, len(values)))

			return c
		}

		return c.append(field, op, values[0])

	case ArityPair:
		if len(values) == 1 {
			if r, ok := values[0].(Range); ok {
				return c.append(field, op, r)
			}
		}

		if len(values) != 2 {
			c.fail(field, op, arityError(op, 2, len(values)))

			return c
		}

		return c.append(field, op, Range{Low: values[0], High: values[1]})

	case AritySequence:
		if len(values) == 0 {
			c.fail(field, op, fmt.Errorf("%w: %s expects at least one value", ErrInvalidRangeValue, op))

			return c
		}

		return c.IncludeInGroup(field, values...)

	default:
		c.fail(field, op, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op)))

		return c
	}
}

// Clear restores the zero state, including recorded errors.
func (c *Criteria) Clear() *Criteria {
	*c = Criteria{}

	return c
}

// Err reports the calls rejected so far, or nil.
func (c *Criteria) Err() error {
	if c == nil || !c.errs.HasErrors() {
		return nil
	}

	errs := NewValidationErrors()
	errs.Errors = append(errs.Errors, c.errs.Errors...)

	return errs
}

// Validate reports rejected calls plus fields marked both empty and not empty.
func (c *Criteria) Validate() error {
	if c == nil {
		return nil
	}

	errs := NewValidationErrors()

	if c.errs.HasErrors() {
		errs.Errors = append(errs.Errors, c.errs.Errors...)
	}

	for _, field := range c.conflictingFields() {
		errs.Add(ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s: %s", field, ErrConflictingEmptiness),
			Code:    CodeConflictingEmptiness,
			Err:     ErrConflictingEmptiness,
		})
	}

	if !errs.HasErrors() {
		return nil
	}

	return errs
}

// Len counts distinct predicate pairs, groups and emptiness entries.
func (c *Criteria) Len() int {
	if c == nil {
		return 0
	}

	return len(c.keys) + len(c.groupNames) + len(c.empty) + len(c.notEmpty)
}

func (c *Criteria) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{empty: []string{}, notEmpty: []string{}}
	}

	snap := Snapshot{
		predicates: make([]Predicate, 0, len(c.keys)),
		groups:     make([]Group, 0, len(c.groupNames)),
		empty:      append(make([]string, 0, len(c.empty)), c.empty...),
		notEmpty:   append(make([]string, 0, len(c.notEmpty)), c.notEmpty...),
	}

	for _, k := range c.keys {
		snap.predicates = append(snap.predicates, Predicate{
			Field:    k.field,
			Operator: k.op,
			Values:   cloneValues(c.predicates[k]),
		})
	}

	for _, name := range c.groupNames {
		snap.groups = append(snap.groups, Group{
			Name:   name,
			Values: cloneValues(c.groups[name]),
		})
	}

	return snap
}

func (c *Criteria) append(field string, op Operator, value any) *Criteria {
	if field == "" {
		c.fail(field, op, ErrInvalidFieldName)

		return c
	}

	c.init()

	k := predicateKey{field: field, op: op}

	values, ok := c.predicates[k]
	if !ok {
		c.keys = append(c.keys, k)
		values = make([]any, 0, 1)
	}

	c.predicates[k] = append(values, value)

	return c
}

// init allocates containers lazily so null instances behave as builders.
func (c *Criteria) init() {
	if c.predicates == nil {
		c.predicates = make(map[predicateKey][]any)
	}

	if c.groups == nil {
		c.groups = make(map[string][]any)
	}
}

func (c *Criteria) fail(field string, op Operator, err error) {
	if c.errs == nil {
		c.errs = NewValidationErrors()
	}

	prefix := string(op)
	if prefix == "" {
		prefix = "field"
	}

	c.errs.Add(ValidationError{
		Field:    field,
		Operator: op,
		Message:  fmt.Sprintf("%s: %s", prefix, err),
		Code:     errorCode(err),
		Err:      err,
	})
}

func (c *Criteria) conflictingFields() []string {
	if len(c.empty) == 0 || len(c.notEmpty) == 0 {
		return nil
	}

	notEmpty := make(map[string]struct{}, len(c.notEmpty))
	for _, field := range c.notEmpty {
		notEmpty[field] = struct{}{}
	}

	seen := make(map[string]struct{})
	conflicts := make([]string, 0)

	for _, field := range c.empty {
		if _, ok := notEmpty[field]; !ok {
			continue
		}

		if _, dup := seen[field]; dup {
			continue
		}

		seen[field] = struct{}{}
		conflicts = append(conflicts, field)
	}

	return conflicts
}

func arityError(op Operator, want, got int) error {
	return fmt.Errorf("%w: %s expects %d, got %d", ErrInvalidRangeValue, op, want, got)
}

func cloneValues(values []any) []any {
	return append(make([]any, 0, len(values)), values...)
}

func spread(values []any) []any {
	out := make([]any, 0, len(values))

	for _, v := range values {
		rv := reflect.ValueOf(v)

		isList := rv.Kind() == reflect.Array ||
			(rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8)
		if !isList {
			out = append(out, v)

			continue
		}

		for i := range rv.Len() {
			out = append(out, rv.Index(i).Interface())
		}
	}

	return out
}
