package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// Postgres error codes and constraint names the conflict guard relies on.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"

	constraintActiveStart = "appointments_active_start_key"
	constraintNoOverlap   = "appointments_no_overlap"
)

// AppointmentModel is the GORM model for the appointments table.
type AppointmentModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PetID           uuid.UUID  `gorm:"type:uuid;not null"`
	OwnerID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProviderID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	Date            time.Time  `gorm:"type:date;not null"`
	StartMinute     int        `gorm:"not null"`
	EndMinute       int        `gorm:"not null"`
	DurationMinutes int        `gorm:"not null"`
	ServiceType     string     `gorm:"not null;size:30"`
	Status          string     `gorm:"not null;size:20;index"`
	PriceCents      int64      `gorm:"not null"`
	Currency        string     `gorm:"not null;size:3;default:'USD'"`
	PaymentStatus   string     `gorm:"not null;size:20;default:'unpaid'"`
	Notes           string     `gorm:"size:1000"`
	ConfirmedAt     *time.Time `gorm:""`
	CompletedAt     *time.Time `gorm:""`
	CancelledAt     *time.Time `gorm:""`
	CancelledBy     string     `gorm:"size:20"`
	CancelNote      string     `gorm:"size:500"`
	Version         int64      `gorm:"not null;default:1"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (AppointmentModel) TableName() string {
	return "appointments"
}

// GormAppointmentRepository is the GORM-based implementation of appointment.Repository.
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a new GormAppointmentRepository.
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

// FindByID retrieves an appointment by its unique identifier.
func (r *GormAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var model AppointmentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Appointment", id.String())
		}
		return nil, domain.NewPersistenceError("find appointment", err)
	}
	return toDomainAppointment(&model)
}

// FindByProviderAndDateRange returns every appointment of a provider between two dates, inclusive.
func (r *GormAppointmentRepository) FindByProviderAndDateRange(ctx context.Context, providerID uuid.UUID, from, to schedule.Date) ([]*appointment.Appointment, error) {
	var models []AppointmentModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND date BETWEEN ? AND ?", providerID, from.Time(time.UTC), to.Time(time.UTC)).
		Order("date, start_minute").
		Find(&models).Error; err != nil {
		return nil, domain.NewPersistenceError("find provider appointments", err)
	}
	return toDomainAppointments(models)
}

// FindByOwnerID retrieves appointments booked by an owner with pagination.
func (r *GormAppointmentRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*appointment.Appointment, int64, error) {
	return r.paginate(ctx, "list owner appointments", page, limit, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("owner_id = ?", ownerID)
	})
}

// FindByProviderID retrieves appointments of a provider with pagination.
func (r *GormAppointmentRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*appointment.Appointment, int64, error) {
	return r.paginate(ctx, "list provider appointments", page, limit, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("provider_id = ?", providerID)
	})
}

// ListAll retrieves all appointments with pagination (admin), optionally filtered by status.
func (r *GormAppointmentRepository) ListAll(ctx context.Context, status appointment.Status, page, limit int) ([]*appointment.Appointment, int64, error) {
	return r.paginate(ctx, "list appointments", page, limit, func(tx *gorm.DB) *gorm.DB {
		if status != "" {
			return tx.Where("status = ?", string(status))
		}
		return tx
	})
}

func (r *GormAppointmentRepository) paginate(ctx context.Context, op string, page, limit int, scope func(*gorm.DB) *gorm.DB) ([]*appointment.Appointment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&AppointmentModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, domain.NewPersistenceError(op, err)
	}

	var models []AppointmentModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, domain.NewPersistenceError(op, err)
	}

	appts, err := toDomainAppointments(models)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

// CountByStatus returns appointment counts grouped by status (admin).
func (r *GormAppointmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&AppointmentModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, domain.NewPersistenceError("count appointments by status", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Create persists a new appointment. Bookings of one provider are serialized by a transaction-scoped
// advisory lock, re-validated against committed data, and backed by the table's unique and exclusion
// constraints.
func (r *GormAppointmentRepository) Create(ctx context.Context, appt *appointment.Appointment) error {
	model := toAppointmentModel(appt)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", appt.ProviderID().String()).Error; err != nil {
			return domain.NewPersistenceError("lock provider calendar", err)
		}

		var sameDay []AppointmentModel
		if err := tx.
			Where("provider_id = ? AND date = ? AND status IN ?", model.ProviderID, model.Date, activeStatusNames()).
			Find(&sameDay).Error; err != nil {
			return domain.NewPersistenceError("load provider day", err)
		}
		existing, err := toDomainAppointments(sameDay)
		if err != nil {
			return err
		}
		if err := schedule.ValidateBooking(appt.Candidate(), existing); err != nil {
			return err
		}

		return tx.Create(model).Error
	})
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isSlotConstraint(pgErr) {
		return r.conflictFor(ctx, appt)
	}
	var conflict *domain.ConflictError
	var domainErr *domain.DomainError
	var persistErr *domain.PersistenceError
	if errors.As(err, &conflict) || errors.As(err, &domainErr) || errors.As(err, &persistErr) {
		return err
	}
	return domain.NewPersistenceError("create appointment", err)
}

func isSlotConstraint(pgErr *pgconn.PgError) bool {
	switch pgErr.Code {
	case pgUniqueViolation:
		return pgErr.ConstraintName == constraintActiveStart
	case pgExclusionViolation:
		return pgErr.ConstraintName == constraintNoOverlap
	}
	return false
}

// conflictFor names the appointment that won the race, when it can still be found.
func (r *GormAppointmentRepository) conflictFor(ctx context.Context, appt *appointment.Appointment) error {
	var models []AppointmentModel
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND date = ? AND status IN ? AND start_minute < ? AND end_minute > ?",
			appt.ProviderID(), appt.Date().Time(time.UTC), activeStatusNames(),
			appt.EndTime().Minutes(), appt.Time().Minutes()).
		Order("start_minute").
		Limit(1).
		Find(&models).Error
	if err != nil || len(models) == 0 {
		return domain.NewConflictError("requested time overlaps an existing appointment")
	}
	return domain.NewSlotConflictError(models[0].ID)
}

// Update persists changes to an existing appointment with optimistic locking.
func (r *GormAppointmentRepository) Update(ctx context.Context, appt *appointment.Appointment) error {
	model := toAppointmentModel(appt)

	// IncrementVersion has already been called, so the stored row still holds Version()-1.
	expectedVersion := appt.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"payment_status": model.PaymentStatus,
			"notes":          model.Notes,
			"confirmed_at":   model.ConfirmedAt,
			"completed_at":   model.CompletedAt,
			"cancelled_at":   model.CancelledAt,
			"cancelled_by":   model.CancelledBy,
			"cancel_note":    model.CancelNote,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return domain.NewPersistenceError("update appointment", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("appointment was modified by another transaction")
	}
	return nil
}

func activeStatusNames() []string {
	active := appointment.ActiveStatuses()
	names := make([]string, len(active))
	for i, s := range active {
		names[i] = string(s)
	}
	return names
}

// --- Conversion Helpers ---

func toAppointmentModel(a *appointment.Appointment) *AppointmentModel {
	return &AppointmentModel{
		ID:              a.ID(),
		PetID:           a.PetID(),
		OwnerID:         a.OwnerID(),
		ProviderID:      a.ProviderID(),
		Date:            a.Date().Time(time.UTC),
		StartMinute:     a.Time().Minutes(),
		EndMinute:       a.EndTime().Minutes(),
		DurationMinutes: a.DurationMinutes(),
		ServiceType:     string(a.ServiceType()),
		Status:          string(a.Status()),
		PriceCents:      a.PriceCents(),
		Currency:        a.Currency(),
		PaymentStatus:   string(a.PaymentStatus()),
		Notes:           a.Notes(),
		ConfirmedAt:     a.ConfirmedAt(),
		CompletedAt:     a.CompletedAt(),
		CancelledAt:     a.CancelledAt(),
		CancelledBy:     string(a.CancelledBy()),
		CancelNote:      a.CancelNote(),
		Version:         a.Version(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
	}
}

func toDomainAppointment(m *AppointmentModel) (*appointment.Appointment, error) {
	status, err := appointment.ParseStatus(m.Status)
	if err != nil {
		return nil, domain.NewPersistenceError("decode appointment", err)
	}

	return appointment.Reconstruct(
		m.ID,
		m.PetID,
		m.OwnerID,
		m.ProviderID,
		schedule.DateOf(m.Date),
		schedule.TimeOfDay(m.StartMinute),
		m.DurationMinutes,
		appointment.ServiceType(m.ServiceType),
		status,
		m.PriceCents,
		m.Currency,
		appointment.PaymentStatus(m.PaymentStatus),
		m.Notes,
		m.ConfirmedAt,
		m.CompletedAt,
		m.CancelledAt,
		auth.Role(m.CancelledBy),
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainAppointments(models []AppointmentModel) ([]*appointment.Appointment, error) {
	appts := make([]*appointment.Appointment, len(models))
	for i := range models {
		a, err := toDomainAppointment(&models[i])
		if err != nil {
			return nil, err
		}
		appts[i] = a
	}
	return appts, nil
}
