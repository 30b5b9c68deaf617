package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// Repository defines the persistence contract for appointment aggregates.
type Repository interface {
	// FindByID retrieves an appointment by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindByProviderAndDateRange returns every appointment of a provider with from <= date <= to,
	// in any status. It must read committed data; it is the input of occupancy and conflict checks.
	FindByProviderAndDateRange(ctx context.Context, providerID uuid.UUID, from, to schedule.Date) ([]*Appointment, error)

	// FindByOwnerID retrieves appointments booked by an owner with pagination.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Appointment, int64, error)

	// FindByProviderID retrieves appointments of a provider with pagination.
	FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*Appointment, int64, error)

	// ListAll retrieves all appointments with pagination (admin). An empty status lists every status.
	ListAll(ctx context.Context, status Status, page, limit int) ([]*Appointment, int64, error)

	// CountByStatus returns appointment counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Create persists a new appointment. It is the authoritative conflict guard: at most one active
	// appointment per provider may overlap a given interval, otherwise a *domain.ConflictError is returned.
	Create(ctx context.Context, appt *Appointment) error

	// Update persists changes to an existing appointment with optimistic locking.
	Update(ctx context.Context, appt *Appointment) error
}
