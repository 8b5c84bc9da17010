package document_test

import (
	"testing"

	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/document"
	"github.com/stretchr/testify/require"
)

const jsonDocument = `{
  "predicates": [
    {"field": "id", "operator": "ranges", "values": [[2, 6], {"low": 10, "high": 12}]},
    {"field": "name", "operator": "contains", "values": ["R", "S"]},
    {"field": "weight", "operator": "gt", "values": [1.5]}
  ],
  "groups": {"state": ["available", "in-use"], "brand": ["Apple"]},
  "be_empty": ["deletedAt"],
  "be_not_empty": ["name"],
  "fields": ["id", "name"]
}`

const yamlDocument = `
predicates:
  - field: id
    operator: ranges
    values: [[2, 6], {low: 10, high: 12}]
  - field: name
    operator: contains
    values: [R, S]
  - field: weight
    operator: gt
    values: [1.5]
groups:
  state: [available, in-use]
  brand: [Apple]
be_empty: [deletedAt]
be_not_empty: [name]
fields: [id, name]
`

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		data   string
		format document.Format
	}{
		{name: "json", data: jsonDocument, format: document.FormatJSON},
		{name: "yaml", data: yamlDocument, format: document.FormatYAML},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			crit, fields, err := document.Decode([]byte(tc.data), tc.format)
			require.NoError(t, err)

			snap := crit.Snapshot()

			require.Equal(t, []any{
				criteria.Range{Low: 2, High: 6},
				criteria.Range{Low: 10, High: 12},
			}, snap.Values("id", criteria.OpRange))
			require.Equal(t, []any{"R", "S"}, snap.Values("name", criteria.OpContains))
			require.Equal(t, []any{1.5}, snap.Values("weight", criteria.OpGreaterThan))
			require.Equal(t, []any{"available", "in-use"}, snap.Group("state"))
			require.Equal(t, []any{"Apple"}, snap.Group("brand"))
			require.Equal(t, []string{"deletedAt"}, snap.Empty())
			require.Equal(t, []string{"name"}, snap.NotEmpty())
			require.Equal(t, []string{"id", "name"}, fields.Get())

			groups := snap.Groups()
			require.Len(t, groups, 2)
			require.Equal(t, "brand", groups[0].Name)
			require.Equal(t, "state", groups[1].Name)
		})
	}
}

func TestDecode_FormatsAgree(t *testing.T) {
	t.Parallel()

	fromJSON, _, err := document.Decode([]byte(jsonDocument), document.FormatJSON)
	require.NoError(t, err)

	fromYAML, _, err := document.Decode([]byte(yamlDocument), document.FormatYAML)
	require.NoError(t, err)

	require.Equal(t, fromJSON.Snapshot().Map(), fromYAML.Snapshot().Map())
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	crit, fields, err := document.Decode([]byte("  \n"), document.FormatYAML)

	require.NoError(t, err)
	require.True(t, crit.IsNull())
	require.True(t, fields.SelectsAll())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		data        string
		format      document.Format
		expectedErr error
	}{
		{
			name:        "unknown format",
			data:        `{}`,
			format:      document.Format("toml"),
			expectedErr: document.ErrUnknownFormat,
		},
		{
			name:        "unknown format on empty input",
			data:        ``,
			format:      document.Format("toml"),
			expectedErr: document.ErrUnknownFormat,
		},
		{
			name:        "malformed json",
			data:        `{"predicates": [`,
			format:      document.FormatJSON,
			expectedErr: document.ErrMalformed,
		},
		{
			name:        "unknown json key",
			data:        `{"order_by": ["id"]}`,
			format:      document.FormatJSON,
			expectedErr: document.ErrMalformed,
		},
		{
			name:        "unknown yaml key",
			data:        "order_by: [id]\n",
			format:      document.FormatYAML,
			expectedErr: document.ErrMalformed,
		},
		{
			name:        "unknown operator",
			data:        `{"predicates": [{"field": "id", "operator": "between", "values": [1]}]}`,
			format:      document.FormatJSON,
			expectedErr: criteria.ErrUnknownOperator,
		},
		{
			name:        "range with three bounds",
			data:        `{"predicates": [{"field": "id", "operator": "ranges", "values": [[1, 2, 3]]}]}`,
			format:      document.FormatJSON,
			expectedErr: criteria.ErrInvalidRangeValue,
		},
		{
			name:        "range given as scalar",
			data:        `{"predicates": [{"field": "id", "operator": "not_ranges", "values": [4]}]}`,
			format:      document.FormatJSON,
			expectedErr: criteria.ErrInvalidRangeValue,
		},
		{
			name:        "scalar without values",
			data:        `{"predicates": [{"field": "id", "operator": "equals", "values": []}]}`,
			format:      document.FormatJSON,
			expectedErr: criteria.ErrInvalidRangeValue,
		},
		{
			name:        "empty field name",
			data:        `{"be_empty": [""]}`,
			format:      document.FormatJSON,
			expectedErr: criteria.ErrInvalidFieldName,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := document.Decode([]byte(tc.data), tc.format)

			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestDecode_KeepsValidEntriesAlongsideErrors(t *testing.T) {
	t.Parallel()

	data := `{"predicates": [
		{"field": "brand", "operator": "equals", "values": ["Apple"]},
		{"field": "id", "operator": "between", "values": [1]}
	]}`

	crit, _, err := document.Decode([]byte(data), document.FormatJSON)

	require.ErrorIs(t, err, criteria.ErrUnknownOperator)
	require.Equal(t, []any{"Apple"}, crit.Snapshot().Values("brand", criteria.OpEquals))
}

func TestEncode_JSON(t *testing.T) {
	t.Parallel()

	snap := criteria.NewCriteria().
		Equals("brand", "Apple").
		Range("id", 2, 6).
		Snapshot()

	data, err := document.Encode(snap, document.FormatJSON)

	require.NoError(t, err)
	require.JSONEq(t,
		`{"predicates":[{"field":"brand","operator":"equals","values":["Apple"]},{"field":"id","operator":"ranges","values":[[2,6]]}]}`,
		string(data),
	)
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	snap := criteria.NewCriteria().
		Equals("color", "red").
		Equals("color", "blue").
		NotRange("id", 3, 9).
		StartsWith("name", "Re").
		IncludeInGroup("state", "available", "in-use").
		MarkEmpty("deletedAt").
		MarkNotEmpty("name").
		Snapshot().
		WithFields(criteria.NewFields("id", "name"))

	for _, format := range []document.Format{document.FormatJSON, document.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			data, err := document.Encode(snap, format)
			require.NoError(t, err)

			crit, fields, err := document.Decode(data, format)
			require.NoError(t, err)

			require.Equal(t, snap.Map(), crit.Snapshot().WithFields(fields).Map())
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := document.Encode(criteria.NewCriteria().Snapshot(), document.Format("xml"))

	require.ErrorIs(t, err, document.ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected document.Format
		isError  bool
	}{
		{input: "json", expected: document.FormatJSON},
		{input: ".JSON", expected: document.FormatJSON},
		{input: "yml", expected: document.FormatYAML},
		{input: "yaml", expected: document.FormatYAML},
		{input: "toml", isError: true},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			format, err := document.ParseFormat(tc.input)

			if tc.isError {
				require.ErrorIs(t, err, document.ErrUnknownFormat)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, format)
		})
	}
}
