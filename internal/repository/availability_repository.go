package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// AvailabilityModel is one weekday of a provider's schedule.
type AvailabilityModel struct {
	ProviderID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Weekday     int       `gorm:"primaryKey;autoIncrement:false"`
	IsAvailable bool      `gorm:"not null"`
	StartMinute int       `gorm:"not null"`
	EndMinute   int       `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (AvailabilityModel) TableName() string {
	return "provider_availability"
}

// GormAvailabilityRepository implements schedule.AvailabilityRepository using GORM.
type GormAvailabilityRepository struct {
	db *gorm.DB
}

// NewGormAvailabilityRepository creates a new GormAvailabilityRepository.
func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

// FindByProviderID loads every stored weekday of the provider.
func (r *GormAvailabilityRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) (*schedule.WeeklyAvailability, error) {
	var models []AvailabilityModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("weekday").
		Find(&models).Error; err != nil {
		return nil, domain.NewPersistenceError("find provider availability", err)
	}
	return toDomainAvailability(providerID, models), nil
}

// Save replaces the provider's week: stored days are upserted and days missing from the input are removed.
func (r *GormAvailabilityRepository) Save(ctx context.Context, w *schedule.WeeklyAvailability) error {
	models := toAvailabilityModels(w)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("provider_id = ?", w.ProviderID)
		if len(models) > 0 {
			kept := make([]int, len(models))
			for i, m := range models {
				kept[i] = m.Weekday
			}
			del = del.Where("weekday NOT IN ?", kept)
		}
		if err := del.Delete(&AvailabilityModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}, {Name: "weekday"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_available", "start_minute", "end_minute", "updated_at"}),
		}).Create(&models).Error
	})
	if err != nil {
		return domain.NewPersistenceError("save provider availability", err)
	}
	return nil
}

// --- Conversion Helpers ---

func toAvailabilityModels(w *schedule.WeeklyAvailability) []AvailabilityModel {
	models := make([]AvailabilityModel, 0, len(w.Days))
	for _, wd := range schedule.AllWeekdays {
		day, ok := w.Days[wd]
		if !ok {
			continue
		}
		models = append(models, AvailabilityModel{
			ProviderID:  w.ProviderID,
			Weekday:     int(wd),
			IsAvailable: day.IsAvailable,
			StartMinute: day.StartTime.Minutes(),
			EndMinute:   day.EndTime.Minutes(),
			UpdatedAt:   w.UpdatedAt,
		})
	}
	return models
}

func toDomainAvailability(providerID uuid.UUID, models []AvailabilityModel) *schedule.WeeklyAvailability {
	w := &schedule.WeeklyAvailability{
		ProviderID: providerID,
		Days:       make(map[schedule.Weekday]schedule.DayAvailability, len(models)),
	}
	for _, m := range models {
		w.Days[schedule.Weekday(m.Weekday)] = schedule.DayAvailability{
			IsAvailable: m.IsAvailable,
			StartTime:   schedule.TimeOfDay(m.StartMinute),
			EndTime:     schedule.TimeOfDay(m.EndMinute),
		}
		if m.UpdatedAt.After(w.UpdatedAt) {
			w.UpdatedAt = m.UpdatedAt
		}
	}
	return w
}
