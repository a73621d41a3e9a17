package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	RoomTypesTTL time.Duration `yaml:"room_types_ttl"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldTTL          time.Duration `yaml:"hold_ttl"`
	LockWait         time.Duration `yaml:"lock_wait"`
	MaxNights        int           `yaml:"max_nights"`
	DefaultAllotment int           `yaml:"default_allotment"`
	ReadRetries      int           `yaml:"read_retries"`
	ReadBackoff      time.Duration `yaml:"read_backoff"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepBatch    int           `yaml:"sweep_batch"`
	Embedded      bool          `yaml:"embedded"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type TracingConfig struct {
	ServiceName    string `yaml:"service_name"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns a configuration that runs with the in-memory store and no
// external brokers.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		GRPC:    GRPCConfig{Address: ":9090"},
		Storage: StorageConfig{Driver: StorageDriverMemory},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "roomhold",
			Password: "roomhold",
			Name:     "roomhold",
			SSLMode:  "disable",
			MaxConns: 20,
			MinConns: 2,
			Migrate:  true,
		},
		Redis: RedisConfig{RoomTypesTTL: time.Minute},
		Kafka: KafkaConfig{
			BookingEventsTopic: "booking-events",
			NotificationsTopic: "booking-notifications",
			GroupID:            "roomhold-worker",
		},
		Booking: BookingConfig{
			HoldTTL:          10 * time.Minute,
			LockWait:         3 * time.Second,
			MaxNights:        30,
			DefaultAllotment: 10,
			ReadRetries:      3,
			ReadBackoff:      50 * time.Millisecond,
		},
		Worker: WorkerConfig{
			SweepInterval: 30 * time.Second,
			SweepBatch:    500,
			Embedded:      true,
		},
		Log:     LogConfig{Level: "info"},
		Tracing: TracingConfig{ServiceName: "roomhold"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		c.HTTP.Address = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if c.Booking.HoldTTL <= 0 {
		errs = append(errs, errors.New("booking.hold_ttl must be positive"))
	}
	if c.Booking.LockWait <= 0 {
		errs = append(errs, errors.New("booking.lock_wait must be positive"))
	}
	if c.Booking.DefaultAllotment < 0 {
		errs = append(errs, errors.New("booking.default_allotment must not be negative"))
	}
	if c.Booking.MaxNights < 0 {
		errs = append(errs, errors.New("booking.max_nights must not be negative"))
	}
	if c.Worker.SweepInterval <= 0 {
		errs = append(errs, errors.New("worker.sweep_interval must be positive"))
	}
	if c.Worker.SweepBatch <= 0 {
		errs = append(errs, errors.New("worker.sweep_batch must be positive"))
	}
	if c.Storage.Driver == StorageDriverMemory && !c.Worker.Embedded {
		errs = append(errs, errors.New("worker.embedded must be enabled with the memory storage driver"))
	}
	return errors.Join(errs...)
}
