package config

import (
	"time"
	_ "time/tzdata"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Activity ActivityConfig `mapstructure:"activity" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend: "postgres" or "memory".
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres,omitempty,url"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// RedisConfig configures the step history cache. Caching is disabled when Addr is empty.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db" validate:"gte=0"`
	HistoryTTL time.Duration `mapstructure:"history_ttl" validate:"gte=0"`
}

// KafkaConfig configures event publishing. Publishing is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers" validate:"omitempty,dive,hostname_port"`
	Topic        string        `mapstructure:"topic" validate:"required_with=Brokers"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`

	// BatchTimeout bounds how long a published event waits for its batch to flush.
	BatchTimeout time.Duration `mapstructure:"batch_timeout" validate:"gte=0"`
}

// ActivityConfig holds the tunable limits and ratios of the activity ledger.
type ActivityConfig struct {
	MaxSubmissionsPerHour   int    `mapstructure:"max_submissions_per_hour" validate:"required,gt=0"`
	StepsPerEnergy          int    `mapstructure:"steps_per_energy" validate:"required,gt=0"`
	StepsPerExperiencePoint int    `mapstructure:"steps_per_experience_point" validate:"required,gt=0"`
	AnomalyThreshold        int    `mapstructure:"anomaly_threshold" validate:"required,gt=0"`
	MaxStepsPerMinute       int    `mapstructure:"max_steps_per_minute" validate:"required,gt=0"`
	Timezone                string `mapstructure:"timezone" validate:"required"`
}

// Location resolves Timezone.
func (c ActivityConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
