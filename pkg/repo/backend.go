package repo

import (
	"context"

	"github.com/google/uuid"
)

// Backend stores one entity type. Every read takes the owning organization;
// implementations must apply it as a hard restriction.
type Backend[E any] interface {
	Schema() Schema[E]
	Insert(ctx context.Context, e *E) error
	// Get returns ErrNotFound when id does not exist under org.
	Get(ctx context.Context, org, id uuid.UUID) (*E, error)
	Select(ctx context.Context, org uuid.UUID, q Query) ([]*E, error)
}
