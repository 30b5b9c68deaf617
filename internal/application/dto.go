package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// BookAppointmentRequest holds the data needed to book an appointment.
type BookAppointmentRequest struct {
	PetID           uuid.UUID               `json:"pet_id" binding:"required"`
	ProviderID      uuid.UUID               `json:"provider_id" binding:"required"`
	Date            schedule.Date           `json:"date" binding:"required"`
	Time            schedule.TimeOfDay      `json:"time"`
	DurationMinutes int                     `json:"duration_minutes"`
	ServiceType     appointment.ServiceType `json:"service_type" binding:"required"`
	Notes           string                  `json:"notes"`
}

// UpdateStatusRequest is the body of the generic status update endpoint.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// CancelRequest is the optional body of the cancel endpoint.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AppointmentDTO is the response representation of an appointment.
type AppointmentDTO struct {
	ID              uuid.UUID          `json:"id"`
	PetID           uuid.UUID          `json:"pet_id"`
	OwnerID         uuid.UUID          `json:"owner_id"`
	ProviderID      uuid.UUID          `json:"provider_id"`
	Date            schedule.Date      `json:"date"`
	Time            schedule.TimeOfDay `json:"time"`
	EndTime         schedule.TimeOfDay `json:"end_time"`
	DurationMinutes int                `json:"duration_minutes"`
	ServiceType     string             `json:"service_type"`
	Status          string             `json:"status"`
	PriceCents      int64              `json:"price_cents"`
	Currency        string             `json:"currency"`
	PaymentStatus   string             `json:"payment_status"`
	Notes           string             `json:"notes,omitempty"`
	ConfirmedAt     *time.Time         `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy     string             `json:"cancelled_by,omitempty"`
	CancelNote      string             `json:"cancel_note,omitempty"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// SlotGridDTO is the bookable grid for one provider over a date range.
type SlotGridDTO struct {
	ProviderID         uuid.UUID          `json:"provider_id"`
	From               schedule.Date      `json:"from"`
	To                 schedule.Date      `json:"to"`
	GranularityMinutes int                `json:"granularity_minutes"`
	Range              schedule.TimeRange `json:"range"`
	Slots              []schedule.Slot    `json:"slots"`
}

// DayAvailabilityDTO is one weekday of a provider's effective schedule.
type DayAvailabilityDTO struct {
	Weekday     schedule.Weekday   `json:"weekday"`
	IsAvailable bool               `json:"is_available"`
	StartTime   schedule.TimeOfDay `json:"start_time"`
	EndTime     schedule.TimeOfDay `json:"end_time"`
	// IsDefault is true when the provider stored nothing for this weekday and the fallback applies.
	IsDefault bool `json:"is_default"`
}

// AvailabilityDTO is a provider's effective weekly schedule, Monday first.
type AvailabilityDTO struct {
	ProviderID uuid.UUID            `json:"provider_id"`
	Days       []DayAvailabilityDTO `json:"days"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
}

// UpdateAvailabilityRequest replaces a provider's weekly schedule. Weekdays left out revert to the
// fallback range.
type UpdateAvailabilityRequest struct {
	Days map[schedule.Weekday]schedule.DayAvailability `json:"days" binding:"required"`
}

// AppointmentStatsDTO holds appointment statistics for the admin dashboard.
type AppointmentStatsDTO struct {
	TotalAppointments int64            `json:"total_appointments"`
	ByStatus          map[string]int64 `json:"by_status"`
}

func toAppointmentDTO(a *appointment.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:              a.ID(),
		PetID:           a.PetID(),
		OwnerID:         a.OwnerID(),
		ProviderID:      a.ProviderID(),
		Date:            a.Date(),
		Time:            a.Time(),
		EndTime:         a.EndTime(),
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

func toAppointmentDTOs(appts []*appointment.Appointment) []AppointmentDTO {
	dtos := make([]AppointmentDTO, len(appts))
	for i, a := range appts {
		dtos[i] = toAppointmentDTO(a)
	}
	return dtos
}

func toAvailabilityDTO(w *schedule.WeeklyAvailability, fallback schedule.TimeRange) AvailabilityDTO {
	model := schedule.NewModel(*w, fallback)
	days := make([]DayAvailabilityDTO, 0, len(schedule.AllWeekdays))
	for _, wd := range schedule.AllWeekdays {
		info := model.DayInfo(wd)
		_, stored := w.Days[wd]
		days = append(days, DayAvailabilityDTO{
			Weekday:     wd,
			IsAvailable: info.IsAvailable,
			StartTime:   info.StartTime,
			EndTime:     info.EndTime,
			IsDefault:   !stored,
		})
	}

	result := AvailabilityDTO{ProviderID: w.ProviderID, Days: days}
	if !w.UpdatedAt.IsZero() {
		updatedAt := w.UpdatedAt
		result.UpdatedAt = &updatedAt
	}
	return result
}
