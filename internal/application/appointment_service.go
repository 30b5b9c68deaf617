package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

const notifyTimeout = 5 * time.Second

// ScheduleOptions are the scheduling policy knobs read from configuration.
type ScheduleOptions struct {
	Fallback                    schedule.TimeRange
	GranularityMinutes          int
	MaxRangeDays                int
	Location                    *time.Location
	EnforceCompletionAfterStart bool
}

// DefaultScheduleOptions returns 09:00-18:00 fallback hours, a 30 minute grid, 31 day queries and UTC.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{
		Fallback:                    schedule.TimeRange{Start: schedule.At(9, 0), End: schedule.At(18, 0)},
		GranularityMinutes:          schedule.DefaultGranularityMinutes,
		MaxRangeDays:                31,
		Location:                    time.UTC,
		EnforceCompletionAfterStart: true,
	}
}

func (o ScheduleOptions) policy() appointment.Policy {
	return appointment.Policy{Location: o.Location, RequireStartedToComplete: o.EnforceCompletionAfterStart}
}

// AppointmentService is the application service orchestrating slot queries, booking and the
// appointment lifecycle.
type AppointmentService struct {
	repo         appointment.Repository
	availability schedule.AvailabilityRepository
	pets         pet.PetRepository
	pricing      appointment.PricingStrategy
	notifier     Notifier
	opts         ScheduleOptions
	logger       *zap.Logger

	now      func() time.Time
	inflight sync.WaitGroup
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(
	repo appointment.Repository,
	availability schedule.AvailabilityRepository,
	pets pet.PetRepository,
	pricing appointment.PricingStrategy,
	notifier Notifier,
	opts ScheduleOptions,
	logger *zap.Logger,
) *AppointmentService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.GranularityMinutes <= 0 {
		opts.GranularityMinutes = schedule.DefaultGranularityMinutes
	}
	return &AppointmentService{
		repo:         repo,
		availability: availability,
		pets:         pets,
		pricing:      pricing,
		notifier:     notifier,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// QuerySlots returns the slot grid for providerID over [from, to]. Availability and appointments are
// fetched concurrently; the grid is generated first and occupancy is overlaid afterwards.
func (s *AppointmentService) QuerySlots(ctx context.Context, providerID uuid.UUID, from, to schedule.Date, granularityMinutes int) (*SlotGridDTO, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if from.IsZero() || to.IsZero() {
		return nil, domain.NewValidationError("from and to dates are required")
	}
	if to.Before(from) {
		return nil, domain.NewValidationError("from must not be after to")
	}
	if days := from.DaysUntil(to) + 1; s.opts.MaxRangeDays > 0 && days > s.opts.MaxRangeDays {
		return nil, domain.NewValidationError(fmt.Sprintf("date range spans %d days, at most %d allowed", days, s.opts.MaxRangeDays))
	}
	if granularityMinutes < 0 || granularityMinutes > schedule.MinutesPerDay {
		return nil, domain.NewValidationError("granularity must be between 1 and 1440 minutes")
	}
	if granularityMinutes == 0 {
		granularityMinutes = s.opts.GranularityMinutes
	}

	var (
		weekly *schedule.WeeklyAvailability
		appts  []*appointment.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weekly, err = s.availability.FindByProviderID(gctx, providerID)
		return err
	})
	g.Go(func() error {
		var err error
		appts, err = s.repo.FindByProviderAndDateRange(gctx, providerID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := from.Through(to)
	model := schedule.NewModel(*weekly, s.opts.Fallback)
	slots := schedule.Overlay(schedule.GenerateSlots(model, days, granularityMinutes), appts)

	return &SlotGridDTO{
		ProviderID:         providerID,
		From:               from,
		To:                 to,
		GranularityMinutes: granularityMinutes,
		Range:              model.WeekRange(days),
		Slots:              slots,
	}, nil
}

// BookAppointment validates and persists a new pending appointment for the owner.
func (s *AppointmentService) BookAppointment(ctx context.Context, ownerID uuid.UUID, req BookAppointmentRequest) (*AppointmentDTO, error) {
	if !req.ServiceType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid service type: %s", req.ServiceType))
	}
	if req.PetID == uuid.Nil {
		return nil, domain.NewValidationError("pet ID is required")
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = req.ServiceType.DefaultDurationMinutes()
	}
	candidate := schedule.Candidate{
		ProviderID:      req.ProviderID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: duration,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	if req.Date.At(req.Time, s.opts.Location).Before(now) {
		return nil, domain.NewValidationError("appointment must start in the future")
	}

	p, err := s.pets.FindByID(ctx, req.PetID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(ownerID) {
		return nil, domain.NewForbiddenError("pet does not belong to this user")
	}
	if !p.IsActive() {
		return nil, domain.NewValidationError("pet profile is archived")
	}

	weekly, err := s.availability.FindByProviderID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	day := schedule.NewModel(*weekly, s.opts.Fallback).DayInfo(req.Date.Weekday())
	if !day.Contains(req.Time) {
		return nil, domain.NewValidationError(fmt.Sprintf("provider is not available on %s at %s", req.Date, req.Time))
	}
	if candidate.End() > day.EndTime {
		return nil, domain.NewValidationError(fmt.Sprintf("appointment would end at %s, after the provider's hours end at %s", candidate.End(), day.EndTime))
	}

	existing, err := s.repo.FindByProviderAndDateRange(ctx, req.ProviderID, req.Date, req.Date)
	if err != nil {
		return nil, err
	}
	if err := schedule.ValidateBooking(candidate, existing); err != nil {
		return nil, err
	}

	priceCents, err := s.pricing.Calculate(appointment.PricingParams{
		ServiceType:     req.ServiceType,
		DurationMinutes: duration,
		PetType:         p.PetType(),
	})
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}

	appt, err := appointment.NewAppointment(
		req.PetID,
		ownerID,
		req.ProviderID,
		req.Date,
		req.Time,
		duration,
		req.ServiceType,
		priceCents,
		domain.CurrencyUSD,
		req.Notes,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if domain.IsConflict(err) {
			s.logger.Info("booking rejected by conflict guard",
				zap.String("provider_id", req.ProviderID.String()),
				zap.String("date", req.Date.String()),
				zap.String("time", req.Time.String()),
			)
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID().String()),
		zap.String("provider_id", appt.ProviderID().String()),
		zap.String("date", appt.Date().String()),
		zap.String("time", appt.Time().String()),
	)

	result := toAppointmentDTO(appt)
	s.notify(ctx, NotificationRequested, result, appt.ProviderID())
	return &result, nil
}

// ConfirmAppointment moves a pending appointment to confirmed.
func (s *AppointmentService) ConfirmAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, appointment.StatusConfirmed, "")
}

// CancelAppointment cancels a pending or confirmed appointment, freeing its slot.
func (s *AppointmentService) CancelAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID, reason string) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, appointment.StatusCancelled, reason)
}

// CompleteAppointment marks a confirmed appointment as completed.
func (s *AppointmentService) CompleteAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*AppointmentDTO, error) {
	return s.transition(ctx, actor, id, appointment.StatusCompleted, "")
}

// UpdateStatus applies a generic status change request.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor appointment.Actor, id uuid.UUID, req UpdateStatusRequest) (*AppointmentDTO, error) {
	target, err := appointment.ParseStatus(req.Status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	return s.transition(ctx, actor, id, target, req.Reason)
}

func (s *AppointmentService) transition(ctx context.Context, actor appointment.Actor, id uuid.UUID, target appointment.Status, reason string) (*AppointmentDTO, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := appt.Status()
	if err := appt.TransitionTo(actor, target, reason, s.now(), s.opts.policy()); err != nil {
		return nil, err
	}

	appt.IncrementVersion()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appt.ID().String()),
		zap.String("from", string(from)),
		zap.String("to", string(appt.Status())),
		zap.String("actor_role", string(actor.Role)),
	)

	result := toAppointmentDTO(appt)
	switch target {
	case appointment.StatusConfirmed, appointment.StatusCompleted:
		kind := NotificationConfirmed
		if target == appointment.StatusCompleted {
			kind = NotificationCompleted
		}
		s.notify(ctx, kind, result, appt.OwnerID())
	case appointment.StatusCancelled:
		s.notify(ctx, NotificationCancelled, result, cancellationRecipients(appt, actor)...)
	}
	return &result, nil
}

// cancellationRecipients returns the counterparty of the cancelling participant, or both
// participants when an admin cancelled.
func cancellationRecipients(appt *appointment.Appointment, actor appointment.Actor) []uuid.UUID {
	switch {
	case actor.Role == auth.RoleOwner:
		return []uuid.UUID{appt.ProviderID()}
	case actor.Role == auth.RoleProvider:
		return []uuid.UUID{appt.OwnerID()}
	default:
		return []uuid.UUID{appt.OwnerID(), appt.ProviderID()}
	}
}

// GetAppointment retrieves a single appointment visible to actor.
func (s *AppointmentService) GetAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*AppointmentDTO, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.CanBeViewedBy(actor) {
		return nil, domain.NewForbiddenError("appointment does not belong to this user")
	}
	result := toAppointmentDTO(appt)
	return &result, nil
}

// ListAppointments returns the actor's appointments: booked ones for owners, assigned ones for
// providers, every appointment for admins.
func (s *AppointmentService) ListAppointments(ctx context.Context, actor appointment.Actor, page, limit int) (*domain.PaginatedResult[AppointmentDTO], error) {
	var (
		appts []*appointment.Appointment
		total int64
		err   error
	)
	switch actor.Role {
	case auth.RoleOwner:
		appts, total, err = s.repo.FindByOwnerID(ctx, actor.UserID, page, limit)
	case auth.RoleProvider:
		appts, total, err = s.repo.FindByProviderID(ctx, actor.UserID, page, limit)
	case auth.RoleAdmin:
		appts, total, err = s.repo.ListAll(ctx, "", page, limit)
	default:
		return nil, domain.NewForbiddenError("unknown role")
	}
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toAppointmentDTOs(appts), total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// ListAllAppointments returns a paginated list of all appointments, optionally filtered by status (admin).
func (s *AppointmentService) ListAllAppointments(ctx context.Context, status string, page, limit int) ([]AppointmentDTO, int64, error) {
	var filter appointment.Status
	if status != "" {
		parsed, err := appointment.ParseStatus(status)
		if err != nil {
			return nil, 0, domain.NewValidationError(err.Error())
		}
		filter = parsed
	}

	appts, total, err := s.repo.ListAll(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return toAppointmentDTOs(appts), total, nil
}

// GetAppointmentStats returns aggregate appointment statistics (admin).
func (s *AppointmentService) GetAppointmentStats(ctx context.Context) (*AppointmentStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &AppointmentStatsDTO{TotalAppointments: total, ByStatus: counts}, nil
}

// --- Payment events ---

// MarkPaymentCaptured records that the payment service captured the appointment price.
func (s *AppointmentService) MarkPaymentCaptured(ctx context.Context, id uuid.UUID) error {
	return s.updatePayment(ctx, id, func(a *appointment.Appointment, now time.Time) (bool, error) {
		return a.MarkPaid(now)
	})
}

// MarkPaymentRefunded records that the payment service refunded the appointment price.
func (s *AppointmentService) MarkPaymentRefunded(ctx context.Context, id uuid.UUID) error {
	return s.updatePayment(ctx, id, func(a *appointment.Appointment, now time.Time) (bool, error) {
		return a.MarkRefunded(now)
	})
}

func (s *AppointmentService) updatePayment(ctx context.Context, id uuid.UUID, apply func(*appointment.Appointment, time.Time) (bool, error)) error {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	changed, err := apply(appt, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	appt.IncrementVersion()
	if err := s.repo.Update(ctx, appt); err != nil {
		return err
	}
	s.logger.Info("appointment payment status updated",
		zap.String("appointment_id", id.String()),
		zap.String("payment_status", string(appt.PaymentStatus())),
	)
	return nil
}

// --- Notifications ---

// notify hands the notification to the notifier without blocking the caller. The persisted change
// stands whatever the outcome; failures are only logged.
func (s *AppointmentService) notify(ctx context.Context, kind NotificationType, appt AppointmentDTO, recipients ...uuid.UUID) {
	n := Notification{
		Type:        kind,
		Recipients:  recipients,
		Appointment: appt,
		OccurredAt:  s.now().UTC(),
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(nctx, n); err != nil {
			s.logger.Warn("failed to send appointment notification",
				zap.String("type", string(kind)),
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending notification has been handed off.
func (s *AppointmentService) Wait() {
	s.inflight.Wait()
}
