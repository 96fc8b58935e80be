package repo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend keeps records in process memory, partitioned by organization.
type MemoryBackend[E any, P Entity[E]] struct {
	schema Schema[E]

	mu   sync.RWMutex
	rows map[uuid.UUID]map[uuid.UUID]*E
}

// NewMemoryBackend returns an empty backend for schema.
func NewMemoryBackend[E any, P Entity[E]](schema Schema[E]) *MemoryBackend[E, P] {
	return &MemoryBackend[E, P]{schema: schema, rows: make(map[uuid.UUID]map[uuid.UUID]*E)}
}

func (m *MemoryBackend[E, P]) Schema() Schema[E] { return m.schema }

func (m *MemoryBackend[E, P]) Insert(_ context.Context, e *E) error {
	o := P(e).Ownership()
	if o.ID == uuid.Nil || o.OrganizationID == uuid.Nil {
		return ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, part := range m.rows {
		if _, ok := part[o.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, o.ID)
		}
	}
	part, ok := m.rows[o.OrganizationID]
	if !ok {
		part = make(map[uuid.UUID]*E)
		m.rows[o.OrganizationID] = part
	}
	cp := *e
	part[o.ID] = &cp
	return nil
}

func (m *MemoryBackend[E, P]) Get(_ context.Context, org, id uuid.UUID) (*E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.rows[org][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryBackend[E, P]) Select(_ context.Context, org uuid.UUID, q Query) ([]*E, error) {
	m.mu.RLock()
	out := make([]*E, 0, len(m.rows[org]))
	for _, e := range m.rows[org] {
		ok, err := m.matches(e, q.Filters)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *E) int {
		for _, o := range q.OrderBy {
			av, _ := Value[E, P](m.schema, a, o.Field)
			bv, _ := Value[E, P](m.schema, b, o.Field)
			c, _ := compare(av, bv)
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryBackend[E, P]) matches(e *E, filters []Filter) (bool, error) {
	for _, f := range filters {
		v, ok := Value[E, P](m.schema, e, f.Field)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
		}
		ok, err := match(v, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(v any, f Filter) (bool, error) {
	v = deref(v)
	switch f.Op {
	case OpIsNull:
		return v == nil, nil
	case OpIn, OpNotIn:
		found := false
		for _, want := range f.Value.([]any) {
			if c, ok := compare(v, deref(want)); ok && c == 0 {
				found = true
				break
			}
		}
		return found == (f.Op == OpIn), nil
	case OpContains:
		list, ok := v.([]string)
		if !ok {
			return false, fmt.Errorf("%w: %s is not a list", ErrInvalidFilter, f.Field)
		}
		s, ok := f.Value.(string)
		if !ok {
			return false, fmt.Errorf("%w: %s contains needs a string", ErrInvalidFilter, f.Field)
		}
		return slices.Contains(list, s), nil
	}

	want := deref(f.Value)
	if v == nil {
		// NULL never compares equal, mirroring SQL.
		return f.Op == OpNe, nil
	}
	c, ok := compare(v, want)
	if !ok {
		return false, fmt.Errorf("%w: cannot compare %s with %T", ErrInvalidFilter, f.Field, f.Value)
	}
	switch f.Op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLte:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGte:
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
}

// deref unwraps typed nil and non-nil pointers of the supported kinds.
func deref(v any) any {
	switch x := v.(type) {
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

// compare orders two values of the same supported kind. Nil sorts first.
func compare(a, b any) (int, bool) {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return cmp.Compare(x, y), ok
	case int:
		y, ok := b.(int)
		return cmp.Compare(x, y), ok
	case int64:
		y, ok := b.(int64)
		return cmp.Compare(x, y), ok
	case float64:
		y, ok := b.(float64)
		return cmp.Compare(x, y), ok
	case bool:
		y, ok := b.(bool)
		switch {
		case !ok:
			return 0, false
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		return x.Compare(y), ok
	case uuid.UUID:
		switch y := b.(type) {
		case uuid.UUID:
			return cmp.Compare(x.String(), y.String()), true
		case string:
			return cmp.Compare(x.String(), y), true
		}
	}
	return 0, false
}
