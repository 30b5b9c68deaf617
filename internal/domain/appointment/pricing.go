package appointment

import (
	"fmt"

	"github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
)

// PricingStrategy defines the interface for calculating appointment prices.
type PricingStrategy interface {
	// Calculate returns the price in cents for the given parameters.
	Calculate(params PricingParams) (int64, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	ServiceType     ServiceType
	DurationMinutes int
	PetType         pet.PetType
}

// StandardPricingStrategy implements the default marketplace tariff.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// Calculate computes the price in cents (USD).
//
// Pricing formula:
//   - Base fee: varies by service type, covers the first 30 minutes
//   - Extra time: USD 10.00 per started 30-minute block after the first
//   - Pet surcharge: varies by pet type
func (s *StandardPricingStrategy) Calculate(params PricingParams) (int64, error) {
	if params.DurationMinutes <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}

	totalCents, err := serviceBaseFee(params.ServiceType)
	if err != nil {
		return 0, err
	}

	blocks := (params.DurationMinutes + 29) / 30
	if blocks > 1 {
		totalCents += int64(blocks-1) * 1000
	}

	petSurcharge, err := petTypeSurcharge(params.PetType)
	if err != nil {
		return 0, err
	}
	totalCents += petSurcharge

	return totalCents, nil
}

// serviceBaseFee returns the base fee in cents based on service type.
func serviceBaseFee(serviceType ServiceType) (int64, error) {
	switch serviceType {
	case ServiceVetConsultation:
		return 4500, nil // USD 45.00
	case ServiceVaccination:
		return 3000, nil // USD 30.00
	case ServiceGrooming:
		return 3500, nil // USD 35.00
	case ServiceBathing:
		return 2000, nil // USD 20.00
	case ServiceDental:
		return 6000, nil // USD 60.00
	default:
		return 0, fmt.Errorf("unknown service type for pricing: %s", serviceType)
	}
}

// petTypeSurcharge returns the surcharge in cents based on pet type.
func petTypeSurcharge(petType pet.PetType) (int64, error) {
	switch petType {
	case pet.PetTypeDog:
		return 500, nil
	case pet.PetTypeCat:
		return 300, nil
	case pet.PetTypeBird:
		return 200, nil
	case pet.PetTypeReptile:
		return 800, nil
	case pet.PetTypeRabbit:
		return 300, nil
	case pet.PetTypeOther:
		return 500, nil
	default:
		return 0, fmt.Errorf("unknown pet type for pricing: %s", petType)
	}
}
