package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the synapse service.
// Values are read from .env, an optional YAML file (CONFIG_FILE) and finally the environment.
type Config struct {
	Environment   string              `yaml:"environment"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Databases     DatabasesConfig     `yaml:"databases"`
	Redis         RedisConfig         `yaml:"redis"`
	Session       SessionConfig       `yaml:"session"`
	Auth          AuthConfig          `yaml:"auth"`
	UserAPI       UserAPIConfig       `yaml:"user_api"`
	Rest          RestConfig          `yaml:"rest"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Clickhouse    ClickhouseConfig    `yaml:"clickhouse"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	EnableTLS   bool   `yaml:"enable_tls"`
	TLSPort     int    `yaml:"tls_port"`
	AutoCert    bool   `yaml:"auto_cert"`
	Domain      string `yaml:"domain"`
	CertFile    string `yaml:"cert_file"`
	KeyFile     string `yaml:"key_file"`
	AutoCertDir string `yaml:"auto_cert_dir"`
	Email       string `yaml:"email"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DatabaseConfig describes one logical SQL connection.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Enabled reports whether a DSN was configured for the connection.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// DatabasesConfig holds the three logical connections. Table gateways use Customers.
type DatabasesConfig struct {
	Customers      DatabaseConfig `yaml:"customers"`
	Clients        DatabaseConfig `yaml:"clients"`
	Catchup        DatabaseConfig `yaml:"catchup"`
	MigrateOnStart bool           `yaml:"migrate_on_start"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
	Verify     bool          `yaml:"verify"`
}

type AuthConfig struct {
	// LegacyRowCheck keeps the "more than one joined row" rule on /authsession.
	LegacyRowCheck bool   `yaml:"legacy_row_check"`
	DeviceName     string `yaml:"device_name"`
	ReportingID    string `yaml:"reporting_id"`
}

// UserAPIConfig configures the remote SSO/ACL service. URIs are fmt templates whose
// first verb is the SSO token.
type UserAPIConfig struct {
	AuthURI        string        `yaml:"has_identity_uri"`
	AuthIdentURI   string        `yaml:"get_auth_identity_uri"`
	IsAllowedURI   string        `yaml:"acl_is_allowed"`
	ACLRulesURI    string        `yaml:"acl_rules"`
	DefaultModule  string        `yaml:"default_module"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	IPWhitelist    []string      `yaml:"ip_whitelist"`
}

type RestConfig struct {
	DisplayExceptions    bool   `yaml:"display_exceptions"`
	DisableAuthorization bool   `yaml:"disable_authorization"`
	DefaultAccept        string `yaml:"default_accept"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type ElasticsearchConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

func (e ElasticsearchConfig) Enabled() bool { return e.URL != "" }

type ClickhouseConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

func (c ClickhouseConfig) Enabled() bool { return c.URL != "" }

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

var (
	current *Config
	mu      sync.RWMutex
)

// LoadConfig reads .env (if present), CONFIG_FILE (if set) and the environment, and stores
// the result for Get.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	return cfg, nil
}

// Get returns the last loaded configuration, or the defaults when LoadConfig was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Default()
	}
	return current
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			TLSPort:        8443,
			AutoCertDir:    "./certs",
			AllowedOrigins: []string{"https://*", "http://*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Databases: DatabasesConfig{
			Customers: DatabaseConfig{
				Driver:          "postgres",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
			},
			Clients: DatabaseConfig{
				Driver:          "postgres",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: time.Hour,
			},
			Catchup: DatabaseConfig{
				Driver:          "postgres",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: time.Hour,
			},
		},
		Redis: RedisConfig{
			PoolSize: 20,
		},
		Session: SessionConfig{
			TTL:        24 * time.Hour,
			CookieName: "synapse_session",
		},
		Auth: AuthConfig{
			DeviceName:  "test",
			ReportingID: "1-2-3",
		},
		UserAPI: UserAPIConfig{
			RequestTimeout: 10 * time.Second,
		},
		Rest: RestConfig{
			DefaultAccept: "application/json",
		},
		Kafka: KafkaConfig{
			Topic: "synapse.auth-events",
		},
		Elasticsearch: ElasticsearchConfig{
			Index: "synapse-auth-events",
		},
		Clickhouse: ClickhouseConfig{
			Database: "default",
			Table:    "auth_events",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)

	// Server
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.EnableTLS = getEnvBool("TLS_ENABLED", cfg.Server.EnableTLS)
	cfg.Server.TLSPort = getEnvInt("TLS_PORT", cfg.Server.TLSPort)
	cfg.Server.AutoCert = getEnvBool("TLS_AUTO_CERT", cfg.Server.AutoCert)
	cfg.Server.Domain = getEnv("TLS_DOMAIN", cfg.Server.Domain)
	cfg.Server.CertFile = getEnv("TLS_CERT_FILE", cfg.Server.CertFile)
	cfg.Server.KeyFile = getEnv("TLS_KEY_FILE", cfg.Server.KeyFile)
	cfg.Server.AutoCertDir = getEnv("TLS_AUTO_CERT_DIR", cfg.Server.AutoCertDir)
	cfg.Server.Email = getEnv("TLS_EMAIL", cfg.Server.Email)
	cfg.Server.AllowedOrigins = getEnvSlice("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	// Logging
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.File = getEnv("LOG_FILE", cfg.Logging.File)
	cfg.Logging.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.Logging.MaxSizeMB)
	cfg.Logging.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.Logging.MaxBackups)
	cfg.Logging.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.Logging.MaxAgeDays)

	// Databases
	applyDatabaseEnv("CUSTOMERS", &cfg.Databases.Customers)
	applyDatabaseEnv("CLIENTS", &cfg.Databases.Clients)
	applyDatabaseEnv("CATCHUP", &cfg.Databases.Catchup)
	cfg.Databases.MigrateOnStart = getEnvBool("DB_MIGRATE_ON_START", cfg.Databases.MigrateOnStart)

	// Redis
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	// Session
	cfg.Session.TTL = getEnvDuration("SESSION_TTL", cfg.Session.TTL)
	cfg.Session.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Session.CookieName)
	cfg.Session.Verify = getEnvBool("SESSION_VERIFY", cfg.Session.Verify)

	// Auth flows
	cfg.Auth.LegacyRowCheck = getEnvBool("AUTHSESSION_LEGACY_ROW_CHECK", cfg.Auth.LegacyRowCheck)
	cfg.Auth.DeviceName = getEnv("DEVICE_DEFAULT_NAME", cfg.Auth.DeviceName)
	cfg.Auth.ReportingID = getEnv("DEVICE_REPORTING_ID", cfg.Auth.ReportingID)

	// Remote user service
	cfg.UserAPI.AuthURI = getEnv("USER_API_HAS_IDENTITY_URI", cfg.UserAPI.AuthURI)
	cfg.UserAPI.AuthIdentURI = getEnv("USER_API_IDENTITY_URI", cfg.UserAPI.AuthIdentURI)
	cfg.UserAPI.IsAllowedURI = getEnv("USER_API_IS_ALLOWED_URI", cfg.UserAPI.IsAllowedURI)
	cfg.UserAPI.ACLRulesURI = getEnv("USER_API_ACL_RULES_URI", cfg.UserAPI.ACLRulesURI)
	cfg.UserAPI.DefaultModule = getEnv("USER_API_DEFAULT_MODULE", cfg.UserAPI.DefaultModule)
	cfg.UserAPI.RequestTimeout = getEnvDuration("USER_API_TIMEOUT", cfg.UserAPI.RequestTimeout)
	cfg.UserAPI.IPWhitelist = getEnvSlice("USER_API_IP_WHITELIST", cfg.UserAPI.IPWhitelist)

	// REST manager
	cfg.Rest.DisplayExceptions = getEnvBool("REST_DISPLAY_EXCEPTIONS", cfg.Rest.DisplayExceptions)
	cfg.Rest.DisableAuthorization = getEnvBool("REST_DISABLE_AUTHORIZATION", cfg.Rest.DisableAuthorization)
	cfg.Rest.DefaultAccept = getEnv("REST_DEFAULT_ACCEPT", cfg.Rest.DefaultAccept)

	// Event sinks
	cfg.Kafka.Brokers = getEnvSlice("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Elasticsearch.URL = getEnv("ELASTICSEARCH_URL", cfg.Elasticsearch.URL)
	cfg.Elasticsearch.Username = getEnv("ELASTICSEARCH_USERNAME", cfg.Elasticsearch.Username)
	cfg.Elasticsearch.Password = getEnv("ELASTICSEARCH_PASSWORD", cfg.Elasticsearch.Password)
	cfg.Elasticsearch.Index = getEnv("ELASTICSEARCH_INDEX", cfg.Elasticsearch.Index)
	cfg.Clickhouse.URL = getEnv("CLICKHOUSE_URL", cfg.Clickhouse.URL)
	cfg.Clickhouse.Username = getEnv("CLICKHOUSE_USERNAME", cfg.Clickhouse.Username)
	cfg.Clickhouse.Password = getEnv("CLICKHOUSE_PASSWORD", cfg.Clickhouse.Password)
	cfg.Clickhouse.Database = getEnv("CLICKHOUSE_DATABASE", cfg.Clickhouse.Database)
	cfg.Clickhouse.Table = getEnv("CLICKHOUSE_TABLE", cfg.Clickhouse.Table)

	// Metrics
	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Path = getEnv("METRICS_PATH", cfg.Metrics.Path)
}

func applyDatabaseEnv(prefix string, db *DatabaseConfig) {
	db.Driver = getEnv(prefix+"_DB_DRIVER", db.Driver)
	db.DSN = getEnv(prefix+"_DB_DSN", db.DSN)
	db.MaxOpenConns = getEnvInt(prefix+"_DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvInt(prefix+"_DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvDuration(prefix+"_DB_CONN_MAX_LIFETIME", db.ConnMaxLifetime)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Databases.Customers.DSN == "" {
		errs = append(errs, errors.New("CUSTOMERS_DB_DSN is required"))
	}
	for name, db := range map[string]DatabaseConfig{
		"customers": c.Databases.Customers,
		"clients":   c.Databases.Clients,
		"catchup":   c.Databases.Catchup,
	} {
		if db.Enabled() && !supportedDriver(db.Driver) {
			errs = append(errs, fmt.Errorf("%s database: unsupported driver %q", name, db.Driver))
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Server.EnableTLS && c.Server.AutoCert && c.Server.Domain == "" {
		errs = append(errs, errors.New("TLS_DOMAIN is required when TLS_AUTO_CERT is enabled"))
	}

	return errors.Join(errs...)
}

func supportedDriver(driver string) bool {
	switch driver {
	case "postgres", "mysql", "sqlite3":
		return true
	default:
		return false
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetServerAddress returns the plain HTTP listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
