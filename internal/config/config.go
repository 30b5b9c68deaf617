package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/config"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// ServiceConfig holds all configuration for the scheduling service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	JWTConfig   config.JWTConfig
	KafkaConfig config.KafkaConfig
	RedisConfig config.RedisConfig
	CacheTTL    time.Duration
	Schedule    application.ScheduleOptions
}

// Load reads configuration from SCHEDULING_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("SCHEDULING")
	if err != nil {
		return nil, err
	}
	setScheduleDefaults(v)

	sched, err := loadScheduleOptions(v)
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(v.GetString("AVAILABILITY_CACHE_TTL"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid AVAILABILITY_CACHE_TTL %q", v.GetString("AVAILABILITY_CACHE_TTL"))
	}

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		RedisConfig: config.LoadRedisConfig(v),
		CacheTTL:    ttl,
		Schedule:    sched,
	}, nil
}

func setScheduleDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("DB_NAME", "scheduling")
	v.SetDefault("AVAILABILITY_CACHE_TTL", "5m")
	v.SetDefault("SCHEDULE_FALLBACK_START", "09:00")
	v.SetDefault("SCHEDULE_FALLBACK_END", "18:00")
	v.SetDefault("SCHEDULE_GRANULARITY_MINUTES", schedule.DefaultGranularityMinutes)
	v.SetDefault("SCHEDULE_MAX_RANGE_DAYS", 31)
	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULE_ENFORCE_COMPLETION_AFTER_START", true)
}

func loadScheduleOptions(v *viper.Viper) (application.ScheduleOptions, error) {
	opts := application.DefaultScheduleOptions()

	start, err := schedule.ParseTimeOfDay(v.GetString("SCHEDULE_FALLBACK_START"))
	if err != nil {
		return opts, fmt.Errorf("SCHEDULE_FALLBACK_START: %w", err)
	}
	end, err := schedule.ParseTimeOfDay(v.GetString("SCHEDULE_FALLBACK_END"))
	if err != nil {
		return opts, fmt.Errorf("SCHEDULE_FALLBACK_END: %w", err)
	}
	fallback := schedule.TimeRange{Start: start, End: end}
	if err := fallback.Validate(); err != nil {
		return opts, fmt.Errorf("fallback hours: %w", err)
	}

	granularity := v.GetInt("SCHEDULE_GRANULARITY_MINUTES")
	if granularity <= 0 || granularity > 24*60 {
		return opts, fmt.Errorf("SCHEDULE_GRANULARITY_MINUTES must be between 1 and 1440, got %d", granularity)
	}
	maxRange := v.GetInt("SCHEDULE_MAX_RANGE_DAYS")
	if maxRange <= 0 {
		return opts, fmt.Errorf("SCHEDULE_MAX_RANGE_DAYS must be positive, got %d", maxRange)
	}
	loc, err := time.LoadLocation(v.GetString("SCHEDULE_TIMEZONE"))
	if err != nil {
		return opts, fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}

	opts.Fallback = fallback
	opts.GranularityMinutes = granularity
	opts.MaxRangeDays = maxRange
	opts.Location = loc
	opts.EnforceCompletionAfterStart = v.GetBool("SCHEDULE_ENFORCE_COMPLETION_AFTER_START")
	return opts, nil
}
