// Package sqlcriteria renders criteria snapshots as SQL conditions with bound
// arguments. It never talks to a database.
package sqlcriteria

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/logger"
)

var (
	ErrUnknownColumn      = errors.New("field has no column mapping")
	ErrInvalidIdentifier  = errors.New("invalid SQL identifier")
	ErrUnsupportedValue   = errors.New("unsupported predicate value")
	ErrUnknownPlaceholder = errors.New("unknown placeholder format")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

const (
	PlaceholderDollar   = "dollar"
	PlaceholderQuestion = "question"
	PlaceholderColon    = "colon"
	PlaceholderAt       = "at"
)

type (
	// Statement is a rendered query and its positional arguments.
	Statement struct {
		SQL  string
		Args []any
	}

	Option func(*Translator)

	// Translator maps snapshot fields to columns and predicates to squirrel
	// conditions. Distinct pairs are AND-ed, values within a pair are OR-ed.
	Translator struct {
		logger          *logger.Logger
		columns         map[string]string
		strict          bool
		blankAsEmpty    bool
		caseInsensitive bool
		placeholder     sq.PlaceholderFormat
	}
)

// WithColumns maps snapshot field names to column names.
func WithColumns(columns map[string]string) Option {
	return func(t *Translator) {
		for field, column := range columns {
			t.columns[field] = column
		}
	}
}

// WithStrictColumns rejects fields that have no mapping instead of using the
// field name as the column.
func WithStrictColumns(strict bool) Option {
	return func(t *Translator) {
		t.strict = strict
	}
}

// WithBlankAsEmpty makes emptiness checks treat '' like NULL.
func WithBlankAsEmpty(blank bool) Option {
	return func(t *Translator) {
		t.blankAsEmpty = blank
	}
}

// WithCaseInsensitiveMatch renders string matches with ILIKE.
func WithCaseInsensitiveMatch(enabled bool) Option {
	return func(t *Translator) {
		t.caseInsensitive = enabled
	}
}

func WithPlaceholder(format sq.PlaceholderFormat) Option {
	return func(t *Translator) {
		t.placeholder = format
	}
}

func NewTranslator(log *logger.Logger, opts ...Option) *Translator {
	t := &Translator{
		logger:      log,
		columns:     make(map[string]string),
		placeholder: sq.Dollar,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func ParsePlaceholder(name string) (sq.PlaceholderFormat, error) {
	switch strings.ToLower(name) {
	case PlaceholderDollar:
		return sq.Dollar, nil
	case PlaceholderQuestion:
		return sq.Question, nil
	case PlaceholderColon:
		return sq.Colon, nil
	case PlaceholderAt:
		return sq.AtP, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlaceholder, name)
	}
}

// Select renders a complete SELECT over table.
func (t *Translator) Select(table string, snap criteria.Snapshot) (Statement, error) {
	if !identifierPattern.MatchString(table) {
		return Statement{}, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}

	columns, err := t.Columns(snap.Fields())
	if err != nil {
		return Statement{}, err
	}

	builder := sq.StatementBuilder.
		PlaceholderFormat(t.placeholder).
		Select(columns...).
		From(table)

	builder, err = t.ApplyToSelect(builder, snap)
	if err != nil {
		return Statement{}, err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("rendering select: %w", err)
	}

	return Statement{SQL: query, Args: args}, nil
}

func (t *Translator) ApplyToSelect(builder sq.SelectBuilder, snap criteria.Snapshot) (sq.SelectBuilder, error) {
	where, err := t.Where(snap)
	if err != nil {
		return builder, err
	}

	if where != nil {
		builder = builder.Where(where)
	}

	return builder, nil
}

// Columns maps the projection; an empty projection selects every column.
func (t *Translator) Columns(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return []string{"*"}, nil
	}

	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		col, err := t.col(field)
		if err != nil {
			return nil, err
		}

		columns = append(columns, col)
	}

	return columns, nil
}

// Where returns nil when the snapshot constrains nothing.
func (t *Translator) Where(snap criteria.Snapshot) (sq.Sqlizer, error) {
	if snap.IsEmpty() {
		return nil, nil
	}

	conditions := make(sq.And, 0)

	for _, p := range snap.Predicates() {
		col, err := t.col(p.Field)
		if err != nil {
			return nil, err
		}

		condition, err := t.translatePredicate(col, p.Operator, p.Values)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", p.Field, p.Operator, err)
		}

		conditions = append(conditions, condition)
	}

	for _, g := range snap.Groups() {
		col, err := t.col(g.Name)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, sq.Eq{col: g.Values})
	}

	for _, field := range snap.Empty() {
		col, err := t.col(field)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, t.isEmpty(col))
	}

	for _, field := range snap.NotEmpty() {
		col, err := t.col(field)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, t.isNotEmpty(col))
	}

	return conditions, nil
}

func (t *Translator) translatePredicate(col string, op criteria.Operator, values []any) (sq.Sqlizer, error) {
	switch op {
	case criteria.OpEquals:
		if len(values) == 1 {
			return sq.Eq{col: values[0]}, nil
		}

		return sq.Eq{col: values}, nil

	case criteria.OpNotEquals:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return sq.NotEq{col: v}, nil })

	case criteria.OpGreaterThan:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return sq.Gt{col: v}, nil })

	case criteria.OpGreaterThanOrEqual:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return sq.GtOrEq{col: v}, nil })

	case criteria.OpLessThan:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return sq.Lt{col: v}, nil })

	case criteria.OpLessThanOrEqual:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return sq.LtOrEq{col: v}, nil })

	case criteria.OpContains:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return t.like(col, "%"+escapeLike(v)+"%", false), nil })

	case criteria.OpNotContains:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return t.like(col, "%"+escapeLike(v)+"%", true), nil })

	case criteria.OpStartsWith:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return t.like(col, escapeLike(v)+"%", false), nil })

	case criteria.OpEndsWith:
		return anyOf(values, func(v any) (sq.Sqlizer, error) { return t.like(col, "%"+escapeLike(v), false), nil })

	case criteria.OpRange:
		return anyOf(values, func(v any) (sq.Sqlizer, error) {
			r, ok := v.(criteria.Range)
			if !ok {
				return nil, fmt.Errorf("%w: expected a range, got %T", ErrUnsupportedValue, v)
			}

			return sq.And{sq.GtOrEq{col: r.Low}, sq.LtOrEq{col: r.High}}, nil
		})

	case criteria.OpNotRange:
		return anyOf(values, func(v any) (sq.Sqlizer, error) {
			r, ok := v.(criteria.Range)
			if !ok {
				return nil, fmt.Errorf("%w: expected a range, got %T", ErrUnsupportedValue, v)
			}

			return sq.Or{sq.Lt{col: r.Low}, sq.Gt{col: r.High}}, nil
		})

	case criteria.OpGroup:
		return sq.Eq{col: values}, nil
	}

	return nil, fmt.Errorf("%w: %q", criteria.ErrUnknownOperator, string(op))
}

func (t *Translator) like(col, pattern string, negate bool) sq.Sqlizer {
	switch {
	case t.caseInsensitive && negate:
		return sq.NotILike{col: pattern}
	case t.caseInsensitive:
		return sq.ILike{col: pattern}
	case negate:
		return sq.NotLike{col: pattern}
	default:
		return sq.Like{col: pattern}
	}
}

func (t *Translator) isEmpty(col string) sq.Sqlizer {
	if t.blankAsEmpty {
		return sq.Or{sq.Eq{col: nil}, sq.Eq{col: ""}}
	}

	return sq.Eq{col: nil}
}

func (t *Translator) isNotEmpty(col string) sq.Sqlizer {
	if t.blankAsEmpty {
		return sq.And{sq.NotEq{col: nil}, sq.NotEq{col: ""}}
	}

	return sq.NotEq{col: nil}
}

func (t *Translator) col(field string) (string, error) {
	if col, ok := t.columns[field]; ok {
		return col, nil
	}

	if t.strict {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, field)
	}

	if !identifierPattern.MatchString(field) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, field)
	}

	if t.logger != nil && len(t.columns) > 0 {
		t.logger.Warn().
			Str("field", field).
			Msg("unmapped field requested, using it as the column name")
	}

	return field, nil
}

// anyOf ORs one condition per value; a single value is returned unwrapped.
func anyOf(values []any, build func(v any) (sq.Sqlizer, error)) (sq.Sqlizer, error) {
	conditions := make(sq.Or, 0, len(values))

	for _, v := range values {
		condition, err := build(v)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, condition)
	}

	if len(conditions) == 1 {
		return conditions[0], nil
	}

	return conditions, nil
}

func escapeLike(v any) string {
	var s string

	switch value := v.(type) {
	case string:
		s = value
	case fmt.Stringer:
		s = value.String()
	default:
		s = fmt.Sprint(value)
	}

	return likeEscaper.Replace(s)
}
