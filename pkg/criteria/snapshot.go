package criteria

const (
	KeyEmpty    = "be_empty"
	KeyNotEmpty = "be_not_empty"
	KeyFields   = "fields"
)

type (
	Predicate struct {
		Field    string
		Operator Operator
		Values   []any
	}

	Group struct {
		Name   string
		Values []any
	}

	// Snapshot is the read-only view of a Criteria handed to an executor. It
	// owns copies of everything it exposes and every accessor copies again, so
	// a Snapshot can be shared across goroutines.
	Snapshot struct {
		predicates []Predicate
		groups     []Group
		empty      []string
		notEmpty   []string
		fields     []string
	}
)

// Predicates lists (field, operator) pairs in first-insertion order.
func (s Snapshot) Predicates() []Predicate {
	out := make([]Predicate, 0, len(s.predicates))
	for _, p := range s.predicates {
		out = append(out, Predicate{Field: p.Field, Operator: p.Operator, Values: cloneValues(p.Values)})
	}

	return out
}

// Values returns nil when the pair was never set.
func (s Snapshot) Values(field string, op Operator) []any {
	if op == OpGroup {
		return s.Group(field)
	}

	for _, p := range s.predicates {
		if p.Field == field && p.Operator == op {
			return cloneValues(p.Values)
		}
	}

	return nil
}

func (s Snapshot) Groups() []Group {
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, Group{Name: g.Name, Values: cloneValues(g.Values)})
	}

	return out
}

func (s Snapshot) Group(name string) []any {
	for _, g := range s.groups {
		if g.Name == name {
			return cloneValues(g.Values)
		}
	}

	return nil
}

func (s Snapshot) Empty() []string {
	return append(make([]string, 0, len(s.empty)), s.empty...)
}

func (s Snapshot) NotEmpty() []string {
	return append(make([]string, 0, len(s.notEmpty)), s.notEmpty...)
}

// Fields is the projection; empty means all fields.
func (s Snapshot) Fields() []string {
	return append(make([]string, 0, len(s.fields)), s.fields...)
}

func (s Snapshot) WithFields(f *Fields) Snapshot {
	s.fields = f.Get()

	return s
}

// IsEmpty reports a snapshot that constrains nothing. The projection does
// not count as a constraint.
func (s Snapshot) IsEmpty() bool {
	return len(s.predicates) == 0 && len(s.groups) == 0 && len(s.empty) == 0 && len(s.notEmpty) == 0
}

// Map renders the canonical keyed shape: operator tag -> field -> values,
// "group" -> name -> values, plus the emptiness lists, which are always
// present, and "fields" when a projection is set.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.predicates)+3)

	for _, p := range s.predicates {
		byField, ok := out[string(p.Operator)].(map[string][]any)
		if !ok {
			byField = make(map[string][]any)
			out[string(p.Operator)] = byField
		}

		byField[p.Field] = cloneValues(p.Values)
	}

	if len(s.groups) > 0 {
		byName := make(map[string][]any, len(s.groups))
		for _, g := range s.groups {
			byName[g.Name] = cloneValues(g.Values)
		}

		out[string(OpGroup)] = byName
	}

	out[KeyEmpty] = s.Empty()
	out[KeyNotEmpty] = s.NotEmpty()

	if len(s.fields) > 0 {
		out[KeyFields] = s.Fields()
	}

	return out
}
