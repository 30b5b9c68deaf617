package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/common/kafka"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
)

// PetEventConsumer keeps the local pet read model in step with the pet profile service.
type PetEventConsumer struct {
	consumer *kafka.Consumer
	pets     pet.PetRepository
	logger   *zap.Logger
}

// NewPetEventConsumer creates a new PetEventConsumer.
func NewPetEventConsumer(brokers []string, groupID string, pets pet.PetRepository, logger *zap.Logger) *PetEventConsumer {
	return &PetEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicPetEvents, logger),
		pets:     pets,
		logger:   logger,
	}
}

// Start begins consuming pet events. This blocks until the context is cancelled.
func (c *PetEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PetEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PetEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from pet topic", zap.Error(err))
		return nil
	}

	switch ce.Type {
	case PetUpserted:
		var evt PetUpsertedEvent
		if err := ce.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse PetUpsertedEvent data", zap.Error(err))
			return nil
		}
		return c.upsert(ctx, evt)
	case PetArchived:
		var evt PetArchivedEvent
		if err := ce.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse PetArchivedEvent data", zap.Error(err))
			return nil
		}
		return c.archive(ctx, evt)
	default:
		return nil
	}
}

func (c *PetEventConsumer) upsert(ctx context.Context, evt PetUpsertedEvent) error {
	incoming, err := pet.NewPet(evt.PetID, evt.OwnerID, evt.Name, pet.PetType(evt.PetType), evt.UpdatedAt)
	if err != nil {
		c.logger.Warn("dropping invalid pet event", zap.String("pet_id", evt.PetID.String()), zap.Error(err))
		return nil
	}

	existing, err := c.pets.FindByID(ctx, evt.PetID)
	switch {
	case err == nil && existing.IsNewerThan(incoming.UpdatedAt()):
		c.logger.Debug("skipping stale pet event", zap.String("pet_id", evt.PetID.String()))
		return nil
	case err == nil && !existing.IsActive():
		// An archived pet stays archived; only the profile fields move forward.
		incoming.Archive(incoming.UpdatedAt())
	case err != nil && !domain.HasCode(err, domain.CodeNotFound):
		return err
	}

	return c.pets.Upsert(ctx, incoming)
}

func (c *PetEventConsumer) archive(ctx context.Context, evt PetArchivedEvent) error {
	existing, err := c.pets.FindByID(ctx, evt.PetID)
	if err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			c.logger.Debug("archive for unknown pet ignored", zap.String("pet_id", evt.PetID.String()))
			return nil
		}
		return err
	}
	if existing.IsNewerThan(evt.ArchivedAt) {
		return nil
	}
	existing.Archive(evt.ArchivedAt)
	return c.pets.Upsert(ctx, existing)
}
