package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. ENERGYFLOW_DATABASE_HOST for database.host.
const EnvPrefix = "ENERGYFLOW"

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// HTTPConfig configures the HTTP gateway.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
}

type DatabaseConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Name              string `mapstructure:"name"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	SSLMode           string `mapstructure:"ssl_mode"`
	MaxConnections    int    `mapstructure:"max_connections"`
	ConnectionTimeout int    `mapstructure:"connection_timeout"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig tunes flow computation.
type EngineConfig struct {
	CacheSize    int           `mapstructure:"cache_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	Policy       string        `mapstructure:"policy"`
	// MaxRange bounds the span of a single requested period.
	MaxRange time.Duration `mapstructure:"max_range"`
}

type RateLimitConfig struct {
	Limit float64 `mapstructure:"limit"`
	Burst int     `mapstructure:"burst"`
}

// SchedulerConfig holds cron specs for background jobs. An empty spec
// disables the job.
type SchedulerConfig struct {
	CollectSpec string `mapstructure:"collect_spec"`
	RefreshSpec string `mapstructure:"refresh_spec"`
	// DefaultGranularity and DefaultRange describe the period the scheduler
	// tracks when nothing selected one.
	DefaultGranularity string        `mapstructure:"default_granularity"`
	DefaultRange       time.Duration `mapstructure:"default_range"`
}

type SourcesConfig struct {
	File string `mapstructure:"file"`
}

// UpstreamConfig points at the HTTP statistics API readings are collected from.
type UpstreamConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Lookback time.Duration `mapstructure:"lookback"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	QoS      int    `mapstructure:"qos"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

var (
	// ErrInvalidPort is returned for a listener port outside 1-65535.
	ErrInvalidPort = errors.New("config: invalid port")
	// ErrMissingSources is returned when no sources file is configured.
	ErrMissingSources = errors.New("config: sources.file is required")
	// ErrInvalidSink is returned for an enabled sink without a destination.
	ErrInvalidSink = errors.New("config: incomplete sink configuration")
)

// Load reads configuration from file and environment variables.
//
// ${VAR} references inside the file are expanded first, then ENERGYFLOW_*
// variables override individual keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidPort, c.Server.Port)
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("%w: http.port %d", ErrInvalidPort, c.HTTP.Port)
	}
	if c.Sources.File == "" {
		return ErrMissingSources
	}
	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.Topic == "") {
		return fmt.Errorf("%w: mqtt needs broker and topic", ErrInvalidSink)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka needs brokers and topic", ErrInvalidSink)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8081)
	v.SetDefault("http.host", "0.0.0.0")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "energyflow")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connection_timeout", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.cache_size", 256)
	v.SetDefault("engine.fetch_timeout", "30s")
	v.SetDefault("engine.policy", "grid_backfill")
	v.SetDefault("engine.max_range", "8784h")

	v.SetDefault("rate_limit.limit", 100)
	v.SetDefault("rate_limit.burst", 200)

	v.SetDefault("scheduler.collect_spec", "@every 5m")
	v.SetDefault("scheduler.refresh_spec", "@every 1m")
	v.SetDefault("scheduler.default_granularity", "hour")
	v.SetDefault("scheduler.default_range", "24h")

	v.SetDefault("sources.file", "sources.yaml")

	v.SetDefault("upstream.url", "")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.lookback", "2h")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "energyflow")
	v.SetDefault("mqtt.topic", "energyflow/flow")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "energyflow.flow")
}
