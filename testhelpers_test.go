//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/config"
	"github.com/petcare-marketplace/service-scheduling/internal/common/database"
	"github.com/petcare-marketplace/service-scheduling/internal/common/kafka"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
	schedulingEvents "github.com/petcare-marketplace/service-scheduling/internal/events"
	"github.com/petcare-marketplace/service-scheduling/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// schedulingStack holds wired-up scheduling service components.
type schedulingStack struct {
	Service         *application.AppointmentService
	Availability    *application.AvailabilityService
	PaymentConsumer *schedulingEvents.PaymentEventConsumer
	PetConsumer     *schedulingEvents.PetEventConsumer
	Pets            *repository.GormPetRepository
	Cleanup         func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies migrations and returns a
// connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_scheduling",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Host:            pgHost,
		Port:            pgPort.Int(),
		User:            "test",
		Password:        "test",
		DBName:          "test_scheduling",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(dbCfg, log)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbCfg.DatabaseURL(), "migrations", log))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers,
		schedulingEvents.TopicAppointmentEvents,
		schedulingEvents.TopicPaymentEvents,
		schedulingEvents.TopicPetEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(host, port.Port())})
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb, func() {
		_ = rdb.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}
}

// setupSchedulingStack wires up the full scheduling service stack. availability may be nil for the
// plain database repository.
func setupSchedulingStack(t *testing.T, db *gorm.DB, brokers []string, availability schedule.AvailabilityRepository) *schedulingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	if availability == nil {
		availability = repository.NewGormAvailabilityRepository(db)
	}
	pets := repository.NewGormPetRepository(db)
	producer := kafka.NewProducer(brokers, logger)

	opts := application.DefaultScheduleOptions()
	svc := application.NewAppointmentService(
		repository.NewGormAppointmentRepository(db),
		availability,
		pets,
		appointment.NewStandardPricingStrategy(),
		schedulingEvents.NewKafkaNotifier(producer),
		opts,
		logger,
	)

	suffix := uuid.New().String()[:8]
	paymentConsumer := schedulingEvents.NewPaymentEventConsumer(brokers, "test-payments-"+suffix, svc, logger)
	petConsumer := schedulingEvents.NewPetEventConsumer(brokers, "test-pets-"+suffix, pets, logger)

	return &schedulingStack{
		Service:         svc,
		Availability:    application.NewAvailabilityService(availability, opts.Fallback, logger),
		PaymentConsumer: paymentConsumer,
		PetConsumer:     petConsumer,
		Pets:            pets,
		Cleanup: func() {
			svc.Wait()
			_ = paymentConsumer.Close()
			_ = petConsumer.Close()
			_ = producer.Close()
		},
	}
}

// seedPet stores an active pet owned by ownerID.
func seedPet(t *testing.T, pets *repository.GormPetRepository, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	p, err := pet.NewPet(uuid.New(), ownerID, "Miso", pet.PetTypeCat, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, pets.Upsert(context.Background(), p))
	return p.ID()
}

// nextWeekday returns the first date strictly after today falling on weekday.
func nextWeekday(weekday schedule.Weekday) schedule.Date {
	d := schedule.DateOf(time.Now().UTC()).AddDays(1)
	for d.Weekday() != weekday {
		d = d.AddDays(1)
	}
	return d
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForAppointment polls the appointments table until cond holds.
func waitForAppointment(t *testing.T, db *gorm.DB, id uuid.UUID, cond func(repository.AppointmentModel) bool, timeout time.Duration) repository.AppointmentModel {
	t.Helper()
	var result repository.AppointmentModel
	require.Eventually(t, func() bool {
		var model repository.AppointmentModel
		if err := db.Where("id = ?", id).First(&model).Error; err != nil {
			return false
		}
		if cond(model) {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "appointment %s did not reach the expected state", id)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type for subject.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     fmt.Sprintf("test-assert-%s", uuid.New().String()[:8]),
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
