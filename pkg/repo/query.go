package repo

import (
	"fmt"
	"maps"
	"slices"
)

// Op is a filter comparison.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpIn       Op = "in"
	OpNotIn    Op = "not_in"
	OpIsNull   Op = "is_null"
	OpContains Op = "contains"
)

// Filter restricts a query on one field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches field == v.
func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
// Ne matches field != v. NULL is distinct from any value.
func Ne(field string, v any) Filter  { return Filter{Field: field, Op: OpNe, Value: v} }
// Lt matches field < v.
func Lt(field string, v any) Filter  { return Filter{Field: field, Op: OpLt, Value: v} }
// Lte matches field <= v.
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }
// Gt matches field > v.
func Gt(field string, v any) Filter  { return Filter{Field: field, Op: OpGt, Value: v} }
// Gte matches field >= v.
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
// IsNull matches records whose field is unset.
func IsNull(field string) Filter     { return Filter{Field: field, Op: OpIsNull} }

// In matches any of vs. An empty list matches nothing.
func In[V any](field string, vs ...V) Filter {
	return Filter{Field: field, Op: OpIn, Value: toAny(vs)}
}

// NotIn excludes vs. An empty list excludes nothing.
func NotIn[V any](field string, vs ...V) Filter {
	return Filter{Field: field, Op: OpNotIn, Value: toAny(vs)}
}

// Contains matches list-valued fields holding v.
func Contains(field string, v any) Filter {
	return Filter{Field: field, Op: OpContains, Value: v}
}

// Order sorts results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query is a set of filters combined with AND, plus ordering and a limit.
// Queries never carry the organization; repositories add it.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Where returns a query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// And returns a copy of q with more filters.
func (q Query) And(filters ...Filter) Query {
	q.Filters = append(slices.Clone(q.Filters), filters...)
	return q
}

// Sort returns a copy of q ordered by field.
func (q Query) Sort(field string, desc bool) Query {
	q.OrderBy = append(slices.Clone(q.OrderBy), Order{Field: field, Desc: desc})
	return q
}

// Take returns a copy of q with a result limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// validate checks every field against the schema. Filtering on the
// organization is refused: scoping belongs to the repository.
func validate[E any](s Schema[E], q Query) error {
	for _, f := range q.Filters {
		if f.Field == FieldOrganizationID {
			return fmt.Errorf("%w: %s is applied by the repository", ErrInvalidFilter, f.Field)
		}
		if !s.Has(f.Field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
		}
		switch f.Op {
		case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpContains:
			if f.Value == nil {
				return fmt.Errorf("%w: %s %s needs a value", ErrInvalidFilter, f.Field, f.Op)
			}
		case OpIn, OpNotIn:
			if _, ok := f.Value.([]any); !ok {
				return fmt.Errorf("%w: %s %s needs a list", ErrInvalidFilter, f.Field, f.Op)
			}
		case OpIsNull:
		default:
			return fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
		}
	}
	for _, o := range q.OrderBy {
		if !s.Has(o.Field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, o.Field)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

func toAny[V any](vs []V) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
