package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/database"
	"github.com/petcare-marketplace/service-scheduling/internal/common/health"
	"github.com/petcare-marketplace/service-scheduling/internal/common/kafka"
	"github.com/petcare-marketplace/service-scheduling/internal/common/logger"
	"github.com/petcare-marketplace/service-scheduling/internal/common/middleware"
	"github.com/petcare-marketplace/service-scheduling/internal/config"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
	schedulingEvents "github.com/petcare-marketplace/service-scheduling/internal/events"
	"github.com/petcare-marketplace/service-scheduling/internal/handler"
	"github.com/petcare-marketplace/service-scheduling/internal/repository"
)

const serviceName = "service-scheduling"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("timezone", cfg.Schedule.Location.String()),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// The overlap guard is an exclusion constraint, so the schema always comes from SQL migrations.
	if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	appointmentRepo := repository.NewGormAppointmentRepository(db)
	petRepo := repository.NewGormPetRepository(db)

	var availabilityRepo schedule.AvailabilityRepository = repository.NewGormAvailabilityRepository(db)
	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, availability cache will fail open", zap.Error(err))
		}
		pingCancel()

		availabilityRepo = repository.NewCachedAvailabilityRepository(availabilityRepo, rdb, cfg.CacheTTL, log)
		log.Info("availability cache enabled", zap.String("addr", cfg.RedisConfig.Addr), zap.Duration("ttl", cfg.CacheTTL))
	}

	// Initialize application services
	appointmentService := application.NewAppointmentService(
		appointmentRepo,
		availabilityRepo,
		petRepo,
		appointment.NewStandardPricingStrategy(),
		schedulingEvents.NewKafkaNotifier(kafkaProducer),
		cfg.Schedule,
		log,
	)
	availabilityService := application.NewAvailabilityService(availabilityRepo, cfg.Schedule.Fallback, log)

	// Start event consumers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentConsumer := schedulingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"scheduling-payments",
		appointmentService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	petConsumer := schedulingEvents.NewPetEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"scheduling-pets",
		petRepo,
		log,
	)
	defer func() { _ = petConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting pet event consumer")
		if err := petConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("pet event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	health.NewHandler(db, serviceName).RegisterRoutes(router)

	handler.NewAppointmentHandler(appointmentService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewProviderHandler(availabilityService, appointmentService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminAppointmentHandler(appointmentService).RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	// Let in-flight notifications reach the producer before it closes.
	appointmentService.Wait()

	log.Info(serviceName + " stopped")
}
