package appointment

// ServiceType is the kind of care booked.
type ServiceType string

const (
	ServiceVetConsultation ServiceType = "vet_consultation"
	ServiceVaccination     ServiceType = "vaccination"
	ServiceGrooming        ServiceType = "grooming"
	ServiceBathing         ServiceType = "bathing"
	ServiceDental          ServiceType = "dental"
)

// IsValid returns true if the service type is recognized.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceVetConsultation, ServiceVaccination, ServiceGrooming, ServiceBathing, ServiceDental:
		return true
	}
	return false
}

// DefaultDurationMinutes is used when a booking request leaves the duration out.
func (s ServiceType) DefaultDurationMinutes() int {
	switch s {
	case ServiceGrooming:
		return 90
	case ServiceBathing, ServiceDental:
		return 60
	default:
		return 30
	}
}
