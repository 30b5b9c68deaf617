package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
)

// DayAvailability is a provider's opening hours for one weekday.
type DayAvailability struct {
	IsAvailable bool      `json:"is_available"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
}

// Contains reports whether t lies in [StartTime, EndTime] on an available day.
// Both bounds are inclusive so the closing tick of the grid is still shown as bookable.
func (d DayAvailability) Contains(t TimeOfDay) bool {
	return d.IsAvailable && t >= d.StartTime && t <= d.EndTime
}

// TimeRange is a wall-clock range within one day.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Validate checks 00:00 <= Start < End <= 24:00.
func (r TimeRange) Validate() error {
	if !r.Start.IsValid() || !r.End.IsValid() {
		return fmt.Errorf("time range %s-%s is out of the day", r.Start, r.End)
	}
	if r.Start >= r.End {
		return fmt.Errorf("time range start %s must be before end %s", r.Start, r.End)
	}
	return nil
}

// WeeklyAvailability is a provider's recurring weekly schedule. Weekdays missing from Days have no
// stored schedule and fall back to the configured default range.
type WeeklyAvailability struct {
	ProviderID uuid.UUID                   `json:"provider_id"`
	Days       map[Weekday]DayAvailability `json:"days"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// Validate enforces that every available day has StartTime < EndTime within the day.
func (w WeeklyAvailability) Validate() error {
	if w.ProviderID == uuid.Nil {
		return domain.NewValidationError("provider ID is required")
	}
	for wd, day := range w.Days {
		if !wd.IsValid() {
			return domain.NewValidationError(fmt.Sprintf("invalid weekday: %d", int(wd)))
		}
		if !day.IsAvailable {
			continue
		}
		if err := (TimeRange{Start: day.StartTime, End: day.EndTime}).Validate(); err != nil {
			return domain.NewValidationError(fmt.Sprintf("%s: %v", wd, err))
		}
	}
	return nil
}

// AvailabilityRepository is the persistence contract for weekly availability.
type AvailabilityRepository interface {
	// FindByProviderID returns the stored schedule; a provider with nothing stored gets an empty Days map.
	FindByProviderID(ctx context.Context, providerID uuid.UUID) (*WeeklyAvailability, error)

	// Save replaces the provider's whole weekly schedule.
	Save(ctx context.Context, availability *WeeklyAvailability) error
}

// Model is a read-only view over one provider's weekly availability.
type Model struct {
	weekly   WeeklyAvailability
	fallback TimeRange
}

// NewModel creates a Model. fallback applies to weekdays with no stored entry.
func NewModel(weekly WeeklyAvailability, fallback TimeRange) *Model {
	days := make(map[Weekday]DayAvailability, len(weekly.Days))
	for wd, d := range weekly.Days {
		days[wd] = d
	}
	weekly.Days = days
	return &Model{weekly: weekly, fallback: fallback}
}

// ProviderID returns the owning provider.
func (m *Model) ProviderID() uuid.UUID { return m.weekly.ProviderID }

// Fallback returns the range used for weekdays with no stored schedule.
func (m *Model) Fallback() TimeRange { return m.fallback }

// DayInfo returns the stored schedule for weekday, or the fallback range marked available.
func (m *Model) DayInfo(weekday Weekday) DayAvailability {
	if day, ok := m.weekly.Days[weekday]; ok {
		return day
	}
	return DayAvailability{IsAvailable: true, StartTime: m.fallback.Start, EndTime: m.fallback.End}
}

// AnyAvailable reports whether at least one of days is open.
func (m *Model) AnyAvailable(days []Date) bool {
	for _, d := range days {
		if m.DayInfo(d.Weekday()).IsAvailable {
			return true
		}
	}
	return false
}

// WeekRange returns the union range over the available days in days: earliest start, latest end.
// With no available day it returns the fallback range.
func (m *Model) WeekRange(days []Date) TimeRange {
	var (
		r     TimeRange
		found bool
	)
	for _, d := range days {
		info := m.DayInfo(d.Weekday())
		if !info.IsAvailable {
			continue
		}
		if !found {
			r = TimeRange{Start: info.StartTime, End: info.EndTime}
			found = true
			continue
		}
		if info.StartTime < r.Start {
			r.Start = info.StartTime
		}
		if info.EndTime > r.End {
			r.End = info.EndTime
		}
	}
	if !found {
		return m.fallback
	}
	return r
}
