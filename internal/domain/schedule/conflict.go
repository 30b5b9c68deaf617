package schedule

import (
	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
)

// MaxDurationMinutes caps a single booking.
const MaxDurationMinutes = 8 * 60

// Occupant is anything that can hold a provider's time: in practice an appointment.
type Occupant interface {
	ID() uuid.UUID
	ProviderID() uuid.UUID
	Date() Date
	Time() TimeOfDay
	DurationMinutes() int
	// OccupiesSlot is true only for active (pending or confirmed) appointments.
	OccupiesSlot() bool
}

type slotKey struct {
	providerID uuid.UUID
	date       Date
	time       TimeOfDay
}

// Overlay returns a copy of slots with IsOccupied set where an active occupant starts exactly at
// the slot's provider, date and time. Point matching is only meant for the fixed-granularity grid;
// booking acceptance must use ValidateBooking.
func Overlay[O Occupant](slots []Slot, existing []O) []Slot {
	taken := make(map[slotKey]struct{}, len(existing))
	for _, o := range existing {
		if !o.OccupiesSlot() {
			continue
		}
		taken[slotKey{providerID: o.ProviderID(), date: o.Date(), time: o.Time()}] = struct{}{}
	}

	out := make([]Slot, len(slots))
	for i, s := range slots {
		_, occupied := taken[slotKey{providerID: s.ProviderID, date: s.Date, time: s.Time}]
		s.IsOccupied = occupied
		out[i] = s
	}
	return out
}

// Candidate is a booking request before acceptance.
type Candidate struct {
	ProviderID      uuid.UUID
	Date            Date
	Time            TimeOfDay
	DurationMinutes int
}

// End returns the exclusive end of the candidate's interval.
func (c Candidate) End() TimeOfDay {
	return c.Time.Add(c.DurationMinutes)
}

// Validate rejects malformed candidates.
func (c Candidate) Validate() error {
	switch {
	case c.ProviderID == uuid.Nil:
		return domain.NewValidationError("provider ID is required")
	case c.Date.IsZero():
		return domain.NewValidationError("date is required")
	case !c.Time.IsValid() || c.Time == MinutesPerDay:
		return domain.NewValidationError("time must be between 00:00 and 23:59")
	case c.DurationMinutes <= 0:
		return domain.NewValidationError("duration must be positive")
	case c.DurationMinutes > MaxDurationMinutes:
		return domain.NewValidationError("duration too long")
	case c.End() > MinutesPerDay:
		return domain.NewValidationError("appointment must end on the same day")
	}
	return nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// ValidateBooking returns nil when candidate fits, a *domain.ConflictError naming the first
// colliding active appointment of the same provider on the same date otherwise, or a validation
// error for a malformed candidate.
func ValidateBooking[O Occupant](candidate Candidate, existing []O) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	for _, o := range existing {
		if !o.OccupiesSlot() || o.ProviderID() != candidate.ProviderID || o.Date() != candidate.Date {
			continue
		}
		if Overlaps(candidate.Time, candidate.End(), o.Time(), o.Time().Add(o.DurationMinutes())) {
			return domain.NewSlotConflictError(o.ID())
		}
	}
	return nil
}
