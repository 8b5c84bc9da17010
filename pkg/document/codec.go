// Package document reads and writes criteria as declarative JSON or YAML
// documents:
//
//	predicates:
//	  - {field: id, operator: ranges, values: [[2, 6], [10, 12]]}
//	  - {field: name, operator: contains, values: [R]}
//	groups:
//	  state: [available, in-use]
//	be_empty: [deletedAt]
//	be_not_empty: [name]
//	fields: [id, name]
//
// Every value of a scalar predicate is added on its own, so the values of one
// predicate are OR-ed. Range bounds are two-element lists or {low, high} maps.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/architeacher/criteria/pkg/criteria"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

type (
	Format string

	number interface {
		Int64() (int64, error)
		Float64() (float64, error)
		String() string
	}
)

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown document format")
	ErrMalformed     = errors.New("malformed criteria document")

	decoder = jsoniter.Config{UseNumber: true, DisallowUnknownFields: true}.Froze()
	encoder = jsoniter.Config{SortMapKeys: true, EscapeHTML: false}.Froze()
)

type (
	Document struct {
		Predicates []Predicate      `json:"predicates,omitempty"   yaml:"predicates,omitempty"`
		Groups     map[string][]any `json:"groups,omitempty"       yaml:"groups,omitempty"`
		Empty      []string         `json:"be_empty,omitempty"     yaml:"be_empty,omitempty"`
		NotEmpty   []string         `json:"be_not_empty,omitempty" yaml:"be_not_empty,omitempty"`
		Fields     []string         `json:"fields,omitempty"       yaml:"fields,omitempty"`
	}

	Predicate struct {
		Field    string `json:"field"    yaml:"field"`
		Operator string `json:"operator" yaml:"operator"`
		Values   []any  `json:"values"   yaml:"values"`
	}
)

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Decode builds criteria and a projection from data. Predicates are replayed
// in document order; groups, which carry no order of their own, are added by
// name. Every rejected entry is reported through the returned error, which
// wraps the criteria sentinels.
func Decode(data []byte, format Format) (*criteria.Criteria, *criteria.Fields, error) {
	var doc Document

	if len(bytes.TrimSpace(data)) > 0 {
		if err := unmarshal(data, format, &doc); err != nil {
			return nil, nil, err
		}
	} else if _, err := ParseFormat(string(format)); err != nil {
		return nil, nil, err
	}

	crit := doc.Criteria()

	return crit, criteria.NewFields(doc.Fields...), crit.Err()
}

// Encode writes the snapshot, including its projection, as a document.
func Encode(snap criteria.Snapshot, format Format) ([]byte, error) {
	doc := FromSnapshot(snap)

	switch format {
	case FormatJSON:
		return encoder.Marshal(doc)
	case FormatYAML:
		var buf bytes.Buffer

		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)

		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}

		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Criteria replays the document onto a fresh builder.
func (d Document) Criteria() *criteria.Criteria {
	crit := criteria.NewCriteria()

	for _, p := range d.Predicates {
		op := criteria.Operator(p.Operator)

		switch op.Arity() {
		case criteria.ArityScalar:
			if len(p.Values) == 0 {
				crit.Add(p.Field, op)
			}

			for _, v := range p.Values {
				crit.Add(p.Field, op, normalize(v))
			}

		case criteria.ArityPair:
			if len(p.Values) == 0 {
				crit.Add(p.Field, op)
			}

			for _, v := range p.Values {
				crit.Add(p.Field, op, bounds(v)...)
			}

		default:
			crit.Add(p.Field, op, normalizeAll(p.Values)...)
		}
	}

	names := make([]string, 0, len(d.Groups))
	for name := range d.Groups {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		crit.Add(name, criteria.OpGroup, normalizeAll(d.Groups[name])...)
	}

	for _, field := range d.Empty {
		crit.MarkEmpty(field)
	}

	for _, field := range d.NotEmpty {
		crit.MarkNotEmpty(field)
	}

	return crit
}

func FromSnapshot(snap criteria.Snapshot) Document {
	doc := Document{
		Empty:    snap.Empty(),
		NotEmpty: snap.NotEmpty(),
		Fields:   snap.Fields(),
	}

	for _, p := range snap.Predicates() {
		values := p.Values

		if p.Operator.Arity() == criteria.ArityPair {
			values = make([]any, 0, len(p.Values))
			for _, v := range p.Values {
				if r, ok := v.(criteria.Range); ok {
					values = append(values, []any{r.Low, r.High})
				}
			}
		}

		doc.Predicates = append(doc.Predicates, Predicate{
			Field:    p.Field,
			Operator: p.Operator.String(),
			Values:   values,
		})
	}

	if groups := snap.Groups(); len(groups) > 0 {
		doc.Groups = make(map[string][]any, len(groups))
		for _, g := range groups {
			doc.Groups[g.Name] = g.Values
		}
	}

	return doc
}

func unmarshal(data []byte, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		if err := decoder.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(doc); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return nil
}

// bounds turns a range entry into the arguments Add expects. Anything that is
// not a pair is passed through unchanged so Add reports the arity error.
func bounds(v any) []any {
	switch value := v.(type) {
	case []any:
		return normalizeAll(value)
	case map[string]any:
		low, hasLow := value["low"]
		high, hasHigh := value["high"]

		if hasLow && hasHigh && len(value) == 2 {
			return []any{normalize(low), normalize(high)}
		}
	}

	return []any{normalize(v)}
}

func normalizeAll(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, normalize(v))
	}

	return out
}

// normalize maps JSON numbers to int when integral and float64 otherwise,
// matching what the YAML decoder yields for plain scalars.
func normalize(v any) any {
	var n number

	switch value := v.(type) {
	case json.Number:
		n = value
	case jsoniter.Number:
		n = value
	default:
		return v
	}

	if i, err := n.Int64(); err == nil && int64(int(i)) == i {
		return int(i)
	}

	if f, err := n.Float64(); err == nil {
		return f
	}

	return n.String()
}
