package pet

import (
	"context"

	"github.com/google/uuid"
)

// PetRepository defines persistence operations for the pet projection.
type PetRepository interface {
	// FindByID returns the pet or a NotFound domain error.
	FindByID(ctx context.Context, id uuid.UUID) (*Pet, error)

	// Upsert inserts or replaces the projection row.
	Upsert(ctx context.Context, pet *Pet) error
}
