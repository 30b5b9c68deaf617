package pet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PetType is the species of a pet, used for pricing.
type PetType string

const (
	PetTypeCat     PetType = "cat"
	PetTypeDog     PetType = "dog"
	PetTypeBird    PetType = "bird"
	PetTypeRabbit  PetType = "rabbit"
	PetTypeReptile PetType = "reptile"
	PetTypeOther   PetType = "other"
)

// IsValid returns true if the pet type is recognized.
func (p PetType) IsValid() bool {
	switch p {
	case PetTypeCat, PetTypeDog, PetTypeBird, PetTypeRabbit, PetTypeReptile, PetTypeOther:
		return true
	}
	return false
}

// PetStatus represents the lifecycle state of a pet profile.
type PetStatus string

const (
	PetStatusActive   PetStatus = "active"
	PetStatusArchived PetStatus = "archived"
)

// Pet is the local projection of a pet profile owned by the profile service. The scheduler only
// needs enough of it to check ownership and price an appointment.
type Pet struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	name      string
	petType   PetType
	status    PetStatus
	updatedAt time.Time
}

// NewPet creates an active pet projection with validated fields.
func NewPet(id, ownerID uuid.UUID, name string, petType PetType, updatedAt time.Time) (*Pet, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("pet ID is required")
	}
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("owner ID is required")
	}
	if name == "" {
		return nil, fmt.Errorf("pet name is required")
	}
	if !petType.IsValid() {
		return nil, fmt.Errorf("invalid pet type: %s", petType)
	}
	return &Pet{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		petType:   petType,
		status:    PetStatusActive,
		updatedAt: updatedAt.UTC(),
	}, nil
}

// Reconstruct rebuilds a Pet from persistence data (no validation).
func Reconstruct(id, ownerID uuid.UUID, name string, petType PetType, status PetStatus, updatedAt time.Time) *Pet {
	return &Pet{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		petType:   petType,
		status:    status,
		updatedAt: updatedAt,
	}
}

// --- Getters ---

func (p *Pet) ID() uuid.UUID        { return p.id }
func (p *Pet) OwnerID() uuid.UUID   { return p.ownerID }
func (p *Pet) Name() string         { return p.name }
func (p *Pet) PetType() PetType     { return p.petType }
func (p *Pet) Status() PetStatus    { return p.status }
func (p *Pet) UpdatedAt() time.Time { return p.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the pet belongs to the given owner.
func (p *Pet) IsOwnedBy(ownerID uuid.UUID) bool {
	return p.ownerID == ownerID
}

// IsActive returns true if the pet profile is active.
func (p *Pet) IsActive() bool {
	return p.status == PetStatusActive
}

// Archive marks the pet profile as archived.
func (p *Pet) Archive(at time.Time) {
	p.status = PetStatusArchived
	p.updatedAt = at.UTC()
}

// IsNewerThan reports whether the projection was produced after at. Pet events can arrive out of
// order; older events must not overwrite newer state.
func (p *Pet) IsNewerThan(at time.Time) bool {
	return p.updatedAt.After(at)
}
