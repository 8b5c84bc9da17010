package criteria

// Fields is the ordered projection of a query. Duplicates are kept and no
// schema check is made; an empty list means every field is selected.
type Fields struct {
	fields []string
}

func NewFields(fields ...string) *Fields {
	return &Fields{
		fields: append(make([]string, 0, len(fields)), fields...),
	}
}

// Add appends field. On a nil receiver it returns a new Fields holding only
// field, so the result must always be kept.
func (f *Fields) Add(field string) *Fields {
	if f == nil {
		return NewFields(field)
	}

	f.fields = append(f.fields, field)

	return f
}

// Get returns a copy of the fields added so far, never nil.
func (f *Fields) Get() []string {
	if f == nil {
		return []string{}
	}

	return append(make([]string, 0, len(f.fields)), f.fields...)
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}

	return len(f.fields)
}

// SelectsAll reports whether no projection was requested.
func (f *Fields) SelectsAll() bool {
	return f.Len() == 0
}

func (f *Fields) Clear() *Fields {
	if f == nil {
		return nil
	}

	f.fields = nil

	return f
}
