package repo

import (
	"time"

	"github.com/google/uuid"
)

// Owned holds the fields every tenant-owned record carries.
type Owned struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Ownership gives the repository access to the embedded Owned.
func (o *Owned) Ownership() *Owned { return o }

// Entity is satisfied by *E for any struct E that embeds Owned.
type Entity[E any] interface {
	*E
	Ownership() *Owned
}

// Owned column names.
const (
	FieldID             = "id"
	FieldOrganizationID = "organization_id"
	FieldCreatedAt      = "created_at"
)

// Schema describes an entity's storage: its table and the accessors for its
// own columns. The Owned columns are implicit.
type Schema[E any] struct {
	Table string
	// Fields maps a column name to an accessor returning the column value.
	// Optional values return nil when unset.
	Fields map[string]func(*E) any
}

// Has reports whether field is a known column, Owned columns included.
func (s Schema[E]) Has(field string) bool {
	switch field {
	case FieldID, FieldOrganizationID, FieldCreatedAt:
		return true
	}
	_, ok := s.Fields[field]
	return ok
}

// Value returns the value of field for e.
func Value[E any, P Entity[E]](s Schema[E], e *E, field string) (any, bool) {
	o := P(e).Ownership()
	switch field {
	case FieldID:
		return o.ID, true
	case FieldOrganizationID:
		return o.OrganizationID, true
	case FieldCreatedAt:
		return o.CreatedAt, true
	}
	fn, ok := s.Fields[field]
	if !ok {
		return nil, false
	}
	return fn(e), true
}

// Columns returns all column names: the Owned columns first, then the
// entity's fields sorted by name.
func (s Schema[E]) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+3)
	cols = append(cols, FieldID, FieldOrganizationID, FieldCreatedAt)
	return append(cols, sortedKeys(s.Fields)...)
}
