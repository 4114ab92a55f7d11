package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CUSTOMERS_DB_DSN", "postgres://synapse@localhost/customers?sslmode=disable")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("AUTHSESSION_LEGACY_ROW_CHECK", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Auth.LegacyRowCheck)
	assert.Equal(t, "postgres", cfg.Databases.Customers.Driver)
	assert.Same(t, cfg, Get())
}

func TestLoadConfigFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synapse.yaml")
	body := `
environment: production
databases:
  customers:
    driver: sqlite3
    dsn: file:customers.db
user_api:
  default_module: synapse
  request_timeout: 3s
auth:
  reporting_id: "9-9-9"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("USER_API_DEFAULT_MODULE", "backoffice")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite3", cfg.Databases.Customers.Driver)
	assert.Equal(t, "backoffice", cfg.UserAPI.DefaultModule)
	assert.Equal(t, 3*time.Second, cfg.UserAPI.RequestTimeout)
	assert.Equal(t, "9-9-9", cfg.Auth.ReportingID)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUSTOMERS_DB_DSN")

	cfg.Databases.Customers.DSN = "dsn"
	cfg.Databases.Catchup = DatabaseConfig{Driver: "oracle", DSN: "x"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported driver "oracle"`)

	cfg.Databases.Catchup.Driver = "mysql"
	assert.NoError(t, cfg.Validate())
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1-2-3", cfg.Auth.ReportingID)
	assert.Equal(t, "test", cfg.Auth.DeviceName)
	assert.Equal(t, 10*time.Second, cfg.UserAPI.RequestTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Elasticsearch.Enabled())
	assert.False(t, cfg.Clickhouse.Enabled())
}
