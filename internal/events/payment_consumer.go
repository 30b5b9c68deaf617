package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/common/kafka"
)

// PaymentRecorder is the part of the appointment service driven by payment events.
type PaymentRecorder interface {
	MarkPaymentCaptured(ctx context.Context, id uuid.UUID) error
	MarkPaymentRefunded(ctx context.Context, id uuid.UUID) error
}

// PaymentEventConsumer listens to payment events and records settlement on appointments.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  PaymentRecorder
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service PaymentRecorder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentCaptured:
		var evt PaymentCapturedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse PaymentCapturedEvent data", zap.Error(err))
			return nil
		}
		return c.record(ctx, cloudEvent.Type, evt.AppointmentID, evt.PaymentID, c.service.MarkPaymentCaptured)
	case PaymentRefunded:
		var evt PaymentRefundedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse PaymentRefundedEvent data", zap.Error(err))
			return nil
		}
		return c.record(ctx, cloudEvent.Type, evt.AppointmentID, evt.PaymentID, c.service.MarkPaymentRefunded)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) record(ctx context.Context, eventType string, appointmentID, paymentID uuid.UUID, apply func(context.Context, uuid.UUID) error) error {
	c.logger.Info("processing payment event",
		zap.String("type", eventType),
		zap.String("appointment_id", appointmentID.String()),
		zap.String("payment_id", paymentID.String()),
	)

	if err := apply(ctx, appointmentID); err != nil {
		// Unknown appointments and rejected transitions will never succeed on redelivery.
		var transitionErr *domain.InvalidTransitionError
		if domain.HasCode(err, domain.CodeNotFound) || errors.As(err, &transitionErr) {
			c.logger.Warn("dropping payment event",
				zap.String("appointment_id", appointmentID.String()),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to record payment event",
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
