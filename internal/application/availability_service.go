package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// AvailabilityService manages providers' recurring weekly schedules.
type AvailabilityService struct {
	repo     schedule.AvailabilityRepository
	fallback schedule.TimeRange
	logger   *zap.Logger
	now      func() time.Time
}

// NewAvailabilityService creates a new AvailabilityService. fallback is reported for weekdays a
// provider has not configured.
func NewAvailabilityService(repo schedule.AvailabilityRepository, fallback schedule.TimeRange, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:     repo,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// GetAvailability returns the provider's effective week, fallback days included.
func (s *AvailabilityService) GetAvailability(ctx context.Context, providerID uuid.UUID) (*AvailabilityDTO, error) {
	weekly, err := s.repo.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	result := toAvailabilityDTO(weekly, s.fallback)
	return &result, nil
}

// UpdateAvailability replaces the provider's weekly schedule. Providers may only edit their own.
func (s *AvailabilityService) UpdateAvailability(ctx context.Context, actor appointment.Actor, providerID uuid.UUID, req UpdateAvailabilityRequest) (*AvailabilityDTO, error) {
	if actor.Role != auth.RoleAdmin && (actor.Role != auth.RoleProvider || actor.UserID != providerID) {
		return nil, domain.NewForbiddenError("providers can only edit their own availability")
	}

	weekly := &schedule.WeeklyAvailability{
		ProviderID: providerID,
		Days:       req.Days,
		UpdatedAt:  s.now().UTC(),
	}
	if weekly.Days == nil {
		weekly.Days = map[schedule.Weekday]schedule.DayAvailability{}
	}
	if err := weekly.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, weekly); err != nil {
		return nil, err
	}

	s.logger.Info("provider availability updated",
		zap.String("provider_id", providerID.String()),
		zap.Int("configured_days", len(weekly.Days)),
	)

	result := toAvailabilityDTO(weekly, s.fallback)
	return &result, nil
}
