package criteria

import "reflect"

// Nullable is implemented by value objects that have a canonical "not
// configured" state. The check is structural: an instance built normally that
// holds only zero values reports IsNull the same as one from a Null factory.
type Nullable interface {
	IsNull() bool
}

// NullCriteria returns a Criteria with every container left nil. It is a
// usable builder; containers are allocated on first write.
func NullCriteria() *Criteria {
	return &Criteria{}
}

// NullFields returns a Fields with a nil field list.
func NullFields() *Fields {
	return &Fields{}
}

// IsNull treats a nil interface or a typed nil pointer as null.
func IsNull(v Nullable) bool {
	if v == nil {
		return true
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}

	return v.IsNull()
}

func (c *Criteria) IsNull() bool {
	if c == nil {
		return true
	}

	return len(c.keys) == 0 &&
		len(c.predicates) == 0 &&
		len(c.groupNames) == 0 &&
		len(c.groups) == 0 &&
		len(c.empty) == 0 &&
		len(c.notEmpty) == 0 &&
		!c.errs.HasErrors()
}

func (f *Fields) IsNull() bool {
	return f == nil || len(f.fields) == 0
}

func (s Snapshot) IsNull() bool {
	return s.IsEmpty() && len(s.fields) == 0
}
