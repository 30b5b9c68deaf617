package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicAppointmentEvents = "appointment.events"
	TopicPaymentEvents     = "payment.events"
	TopicPetEvents         = "pet.events"
)

// Inbound event types.
const (
	PaymentCaptured = "payment.captured"
	PaymentRefunded = "payment.refunded"
	PetUpserted     = "pet.upserted"
	PetArchived     = "pet.archived"
)

// EventSource is the CloudEvents source of everything this service publishes.
const EventSource = "service-scheduling"

// PaymentCapturedEvent is published by the payment service once an appointment is paid.
type PaymentCapturedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentRefundedEvent is published by the payment service once a payment is returned.
type PaymentRefundedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	AmountCents   int64     `json:"amount_cents"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PetUpsertedEvent carries the pet profile fields scheduling keeps a copy of.
type PetUpsertedEvent struct {
	PetID     uuid.UUID `json:"pet_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	PetType   string    `json:"pet_type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PetArchivedEvent marks a pet as no longer bookable.
type PetArchivedEvent struct {
	PetID      uuid.UUID `json:"pet_id"`
	ArchivedAt time.Time `json:"archived_at"`
}
