package events

import (
	"context"
	"fmt"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/kafka"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// KafkaNotifier publishes appointment notifications as CloudEvents on the appointment topic, keyed
// by appointment ID so one appointment's events stay ordered.
type KafkaNotifier struct {
	publisher EventPublisher
	topic     string
}

// NewKafkaNotifier creates a KafkaNotifier writing to TopicAppointmentEvents.
func NewKafkaNotifier(publisher EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: TopicAppointmentEvents}
}

func (n *KafkaNotifier) Notify(ctx context.Context, note application.Notification) error {
	ce, err := kafka.NewCloudEvent(EventSource, string(note.Type), note)
	if err != nil {
		return err
	}
	ce.Subject = note.Appointment.ID.String()
	ce.Time = note.OccurredAt

	if err := n.publisher.PublishEvent(ctx, n.topic, ce); err != nil {
		return fmt.Errorf("failed to publish %s: %w", note.Type, err)
	}
	return nil
}
