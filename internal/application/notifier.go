package application

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationType names an appointment lifecycle notification.
type NotificationType string

const (
	NotificationRequested NotificationType = "appointment.requested"
	NotificationConfirmed NotificationType = "appointment.confirmed"
	NotificationCancelled NotificationType = "appointment.cancelled"
	NotificationCompleted NotificationType = "appointment.completed"
)

// Notification tells participants about a persisted status change.
type Notification struct {
	Type        NotificationType `json:"type"`
	Recipients  []uuid.UUID      `json:"recipients"`
	Appointment AppointmentDTO   `json:"appointment"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// Notifier delivers notifications. It is called only after the change is persisted and its
// failure never rolls the change back.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
