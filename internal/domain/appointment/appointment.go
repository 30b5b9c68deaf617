package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// Actor is the authenticated user requesting a transition.
type Actor struct {
	UserID uuid.UUID
	Role   auth.Role
}

// Policy holds the clock-dependent lifecycle rules.
type Policy struct {
	// Location is the wall-clock zone appointment dates and times are expressed in.
	Location *time.Location
	// RequireStartedToComplete rejects completion before the appointment's start time.
	RequireStartedToComplete bool
}

// DefaultPolicy enforces completion after start, in UTC.
func DefaultPolicy() Policy {
	return Policy{Location: time.UTC, RequireStartedToComplete: true}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Appointment is the aggregate root for a booked visit.
type Appointment struct {
	id              uuid.UUID
	petID           uuid.UUID
	ownerID         uuid.UUID
	providerID      uuid.UUID
	date            schedule.Date
	startTime       schedule.TimeOfDay
	durationMinutes int
	serviceType     ServiceType
	status          Status

	priceCents    int64
	currency      string
	paymentStatus PaymentStatus
	notes         string

	confirmedAt *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	cancelledBy auth.Role
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewAppointment creates a new Appointment aggregate with status=pending. It validates the shape of
// the request only; occupancy is checked by schedule.ValidateBooking and the repository.
func NewAppointment(
	petID uuid.UUID,
	ownerID uuid.UUID,
	providerID uuid.UUID,
	date schedule.Date,
	startTime schedule.TimeOfDay,
	durationMinutes int,
	serviceType ServiceType,
	priceCents int64,
	currency string,
	notes string,
	now time.Time,
) (*Appointment, error) {
	if petID == uuid.Nil {
		return nil, domain.NewValidationError("pet ID is required")
	}
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if !serviceType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid service type: %s", serviceType))
	}
	if priceCents < 0 {
		return nil, domain.NewValidationError("price cannot be negative")
	}
	candidate := schedule.Candidate{
		ProviderID:      providerID,
		Date:            date,
		Time:            startTime,
		DurationMinutes: durationMinutes,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Appointment{
		id:              uuid.New(),
		petID:           petID,
		ownerID:         ownerID,
		providerID:      providerID,
		date:            date,
		startTime:       startTime,
		durationMinutes: durationMinutes,
		serviceType:     serviceType,
		status:          StatusPending,
		priceCents:      priceCents,
		currency:        currency,
		paymentStatus:   PaymentUnpaid,
		notes:           notes,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds an Appointment from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	petID uuid.UUID,
	ownerID uuid.UUID,
	providerID uuid.UUID,
	date schedule.Date,
	startTime schedule.TimeOfDay,
	durationMinutes int,
	serviceType ServiceType,
	status Status,
	priceCents int64,
	currency string,
	paymentStatus PaymentStatus,
	notes string,
	confirmedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	cancelledBy auth.Role,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Appointment {
	return &Appointment{
		id:              id,
		petID:           petID,
		ownerID:         ownerID,
		providerID:      providerID,
		date:            date,
		startTime:       startTime,
		durationMinutes: durationMinutes,
		serviceType:     serviceType,
		status:          status,
		priceCents:      priceCents,
		currency:        currency,
		paymentStatus:   paymentStatus,
		notes:           notes,
		confirmedAt:     confirmedAt,
		completedAt:     completedAt,
		cancelledAt:     cancelledAt,
		cancelledBy:     cancelledBy,
		cancelNote:      cancelNote,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the appointment's unique identifier.
func (a *Appointment) ID() uuid.UUID { return a.id }

// PetID returns the pet being seen.
func (a *Appointment) PetID() uuid.UUID { return a.petID }

// OwnerID returns the pet owner's user ID.
func (a *Appointment) OwnerID() uuid.UUID { return a.ownerID }

// ProviderID returns the provider's user ID.
func (a *Appointment) ProviderID() uuid.UUID { return a.providerID }

// Date returns the calendar date of the visit.
func (a *Appointment) Date() schedule.Date { return a.date }

// Time returns the wall-clock start of the visit.
func (a *Appointment) Time() schedule.TimeOfDay { return a.startTime }

// DurationMinutes returns the length of the visit.
func (a *Appointment) DurationMinutes() int { return a.durationMinutes }

// EndTime returns the exclusive wall-clock end of the visit.
func (a *Appointment) EndTime() schedule.TimeOfDay { return a.startTime.Add(a.durationMinutes) }

// ServiceType returns the kind of care booked.
func (a *Appointment) ServiceType() ServiceType { return a.serviceType }

// Status returns the current appointment status.
func (a *Appointment) Status() Status { return a.status }

// PriceCents returns the price in cents.
func (a *Appointment) PriceCents() int64 { return a.priceCents }

// Currency returns the currency code.
func (a *Appointment) Currency() string { return a.currency }

// PaymentStatus returns the settlement state.
func (a *Appointment) PaymentStatus() PaymentStatus { return a.paymentStatus }

// Notes returns the owner's notes.
func (a *Appointment) Notes() string { return a.notes }

// ConfirmedAt returns when the provider confirmed.
func (a *Appointment) ConfirmedAt() *time.Time { return a.confirmedAt }

// CompletedAt returns when the provider marked the visit complete.
func (a *Appointment) CompletedAt() *time.Time { return a.completedAt }

// CancelledAt returns when the appointment was cancelled.
func (a *Appointment) CancelledAt() *time.Time { return a.cancelledAt }

// CancelledBy returns the role that cancelled.
func (a *Appointment) CancelledBy() auth.Role { return a.cancelledBy }

// CancelNote returns the cancellation reason.
func (a *Appointment) CancelNote() string { return a.cancelNote }

// Version returns the entity version for optimistic locking.
func (a *Appointment) Version() int64 { return a.version }

// CreatedAt returns the creation timestamp.
func (a *Appointment) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (a *Appointment) UpdatedAt() time.Time { return a.updatedAt }

// OccupiesSlot reports whether the appointment holds the provider's time.
func (a *Appointment) OccupiesSlot() bool { return a.status.IsActive() }

// StartsAt returns the instant the visit begins in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.date.At(a.startTime, loc)
}

// Candidate returns the booking interval of the appointment.
func (a *Appointment) Candidate() schedule.Candidate {
	return schedule.Candidate{
		ProviderID:      a.providerID,
		Date:            a.date,
		Time:            a.startTime,
		DurationMinutes: a.durationMinutes,
	}
}

// IsParticipant reports whether userID is the owner or the provider of the appointment.
func (a *Appointment) IsParticipant(userID uuid.UUID) bool {
	return userID == a.ownerID || userID == a.providerID
}

// CanBeViewedBy reports whether actor may read the appointment.
func (a *Appointment) CanBeViewedBy(actor Actor) bool {
	return actor.Role == auth.RoleAdmin || a.IsParticipant(actor.UserID)
}

// --- Behavior ---

func (a *Appointment) isProvider(actor Actor) bool {
	return actor.Role == auth.RoleProvider && actor.UserID == a.providerID
}

func (a *Appointment) isOwner(actor Actor) bool {
	return actor.Role == auth.RoleOwner && actor.UserID == a.ownerID
}

// checkTransition rejects outsiders, then illegal moves. Role rules come after, so a participant
// asking to leave a terminal status always gets an InvalidTransitionError.
func (a *Appointment) checkTransition(actor Actor, target Status) error {
	if !a.CanBeViewedBy(actor) {
		return domain.NewForbiddenError("not a participant of this appointment")
	}
	if !a.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(a.status), string(target))
	}
	return nil
}

// Confirm transitions the appointment from pending to confirmed. Only its provider may confirm.
func (a *Appointment) Confirm(actor Actor, now time.Time) error {
	if err := a.checkTransition(actor, StatusConfirmed); err != nil {
		return err
	}
	if !a.isProvider(actor) {
		return domain.NewForbiddenError("only the appointment's provider can confirm it")
	}
	now = now.UTC()
	a.status = StatusConfirmed
	a.confirmedAt = &now
	a.updatedAt = now
	return nil
}

// Cancel transitions a pending or confirmed appointment to cancelled. The owner, the provider and
// admins may cancel.
func (a *Appointment) Cancel(actor Actor, reason string, now time.Time) error {
	if err := a.checkTransition(actor, StatusCancelled); err != nil {
		return err
	}
	if !a.isOwner(actor) && !a.isProvider(actor) && actor.Role != auth.RoleAdmin {
		return domain.NewForbiddenError("only the appointment's owner or provider can cancel it")
	}
	now = now.UTC()
	a.status = StatusCancelled
	a.cancelledAt = &now
	a.cancelledBy = actor.Role
	a.cancelNote = reason
	a.updatedAt = now
	return nil
}

// Complete transitions the appointment from confirmed to completed. Only its provider may complete,
// and under policy only once the visit has started.
func (a *Appointment) Complete(actor Actor, now time.Time, policy Policy) error {
	if err := a.checkTransition(actor, StatusCompleted); err != nil {
		return err
	}
	if !a.isProvider(actor) {
		return domain.NewForbiddenError("only the appointment's provider can complete it")
	}
	if policy.RequireStartedToComplete && now.Before(a.StartsAt(policy.location())) {
		return domain.NewValidationError("appointment cannot be completed before it starts")
	}
	now = now.UTC()
	a.status = StatusCompleted
	a.completedAt = &now
	a.updatedAt = now
	return nil
}

// TransitionTo dispatches a generic status change request to the matching transition.
// Requests for pending or for the current status are invalid transitions.
func (a *Appointment) TransitionTo(actor Actor, target Status, reason string, now time.Time, policy Policy) error {
	if err := a.checkTransition(actor, target); err != nil {
		return err
	}
	switch target {
	case StatusConfirmed:
		return a.Confirm(actor, now)
	case StatusCancelled:
		return a.Cancel(actor, reason, now)
	case StatusCompleted:
		return a.Complete(actor, now, policy)
	default:
		return domain.NewInvalidStateError(string(a.status), string(target))
	}
}

// MarkPaid records a captured payment. It reports false when the appointment was already paid.
func (a *Appointment) MarkPaid(now time.Time) (bool, error) {
	switch a.paymentStatus {
	case PaymentPaid:
		return false, nil
	case PaymentRefunded:
		return false, domain.NewInvalidStateError(string(a.paymentStatus), string(PaymentPaid))
	}
	a.paymentStatus = PaymentPaid
	a.updatedAt = now.UTC()
	return true, nil
}

// MarkRefunded records a refund. It reports false when the appointment was already refunded.
func (a *Appointment) MarkRefunded(now time.Time) (bool, error) {
	switch a.paymentStatus {
	case PaymentRefunded:
		return false, nil
	case PaymentUnpaid:
		return false, domain.NewInvalidStateError(string(a.paymentStatus), string(PaymentRefunded))
	}
	a.paymentStatus = PaymentRefunded
	a.updatedAt = now.UTC()
	return true, nil
}

// IncrementVersion bumps the version for optimistic locking.
func (a *Appointment) IncrementVersion() {
	a.version++
}
