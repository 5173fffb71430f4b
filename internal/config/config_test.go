package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  host: "localhost"
  port: 5432
  name: "testdb"
  user: "testuser"
  password: "testpass"
  ssl_mode: "disable"
  max_connections: 10
  connection_timeout: 5

logging:
  level: "debug"
  format: "json"

engine:
  cache_size: 64
  fetch_timeout: 5s

sources:
  file: /etc/energyflow/sources.yaml

kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  topic: flows
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, "testdb", config.Database.Name)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 64, config.Engine.CacheSize)
	assert.Equal(t, 5*time.Second, config.Engine.FetchTimeout)
	assert.Equal(t, "/etc/energyflow/sources.yaml", config.Sources.File)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Kafka.Brokers)
	assert.NoError(t, config.Validate())
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, "logging:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.True(t, config.HTTP.Enabled)
	assert.Equal(t, 8081, config.HTTP.Port)
	assert.Equal(t, "grid_backfill", config.Engine.Policy)
	assert.Equal(t, 30*time.Second, config.Engine.FetchTimeout)
	assert.Equal(t, "@every 1m", config.Scheduler.RefreshSpec)
	assert.Equal(t, 24*time.Hour, config.Scheduler.DefaultRange)
	assert.False(t, config.MQTT.Enabled)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadWithEnvExpansion(t *testing.T) {
	t.Setenv("APP_DATABASE_HOST", "envhost")
	t.Setenv("APP_DATABASE_PORT", "5433")

	configPath := writeConfig(t, `
database:
  host: $APP_DATABASE_HOST
  port: $APP_DATABASE_PORT
  name: "testdb"
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "envhost", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("ENERGYFLOW_DATABASE_NAME", "override")
	t.Setenv("ENERGYFLOW_MQTT_ENABLED", "true")

	config, err := Load(writeConfig(t, "database:\n  name: filedb\n"))
	require.NoError(t, err)

	assert.Equal(t, "override", config.Database.Name)
	assert.True(t, config.MQTT.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "flows", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/flows?sslmode=disable", d.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			HTTP:    HTTPConfig{Enabled: true, Port: 8081},
			Sources: SourcesConfig{File: "sources.yaml"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"bad grpc port", func(c *Config) { c.Server.Port = 0 }, ErrInvalidPort},
		{"bad http port", func(c *Config) { c.HTTP.Port = 70000 }, ErrInvalidPort},
		{"http disabled ignores port", func(c *Config) { c.HTTP = HTTPConfig{} }, nil},
		{"no sources", func(c *Config) { c.Sources.File = "" }, ErrMissingSources},
		{"mqtt without topic", func(c *Config) { c.MQTT = MQTTConfig{Enabled: true, Broker: "tcp://b:1883"} }, ErrInvalidSink},
		{"kafka without brokers", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true, Topic: "t"} }, ErrInvalidSink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
