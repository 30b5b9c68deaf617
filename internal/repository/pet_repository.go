package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	petDomain "github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
)

// PetModel is the GORM model for the pets read model.
type PetModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(100);not null"`
	PetType   string    `gorm:"type:varchar(20);not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (PetModel) TableName() string { return "pets" }

// GormPetRepository implements PetRepository using GORM.
type GormPetRepository struct {
	db *gorm.DB
}

func NewGormPetRepository(db *gorm.DB) *GormPetRepository {
	return &GormPetRepository{db: db}
}

func (r *GormPetRepository) FindByID(ctx context.Context, id uuid.UUID) (*petDomain.Pet, error) {
	var model PetModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Pet", id.String())
		}
		return nil, domain.NewPersistenceError("find pet", err)
	}
	return toPetDomain(&model), nil
}

// Upsert stores the projection unless the stored row is already newer.
func (r *GormPetRepository) Upsert(ctx context.Context, p *petDomain.Pet) error {
	model := toPetModel(p)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "name", "pet_type", "status", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "pets.updated_at <= excluded.updated_at"},
		}},
	}).Create(model).Error
	if err != nil {
		return domain.NewPersistenceError("upsert pet", err)
	}
	return nil
}

func toPetModel(p *petDomain.Pet) *PetModel {
	return &PetModel{
		ID:        p.ID(),
		OwnerID:   p.OwnerID(),
		Name:      p.Name(),
		PetType:   string(p.PetType()),
		Status:    string(p.Status()),
		UpdatedAt: p.UpdatedAt(),
	}
}

func toPetDomain(m *PetModel) *petDomain.Pet {
	return petDomain.Reconstruct(
		m.ID,
		m.OwnerID,
		m.Name,
		petDomain.PetType(m.PetType),
		petDomain.PetStatus(m.Status),
		m.UpdatedAt,
	)
}
