package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"synapse-service/internal/client"
	"synapse-service/internal/config"
	"synapse-service/internal/events"
	"synapse-service/internal/migrations"
	"synapse-service/internal/repository/redis"
	"synapse-service/internal/repository/sqldb"
	"synapse-service/internal/service"
	"synapse-service/internal/tls"
	"synapse-service/internal/userapi"
	"synapse-service/internal/util"
)

const eventPublishTimeout = 2 * time.Second

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	logger     *zap.Logger
	tlsManager *tls.Manager

	// Clients
	databases        map[string]*sqldb.SQLClient
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	userClient       *userapi.Client

	sessions       redis.SessionStore
	publisher      events.Publisher
	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads the configuration, initializes logging and builds every dependency.
func NewFactory() (*Factory, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := util.InitWithFile(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format, util.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	return NewFactoryWithConfig(cfg, logger)
}

// NewFactoryWithConfig builds the dependencies for an already loaded configuration.
func NewFactoryWithConfig(cfg *config.Config, logger *zap.Logger) (*Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Factory{
		config:    cfg,
		logger:    logger,
		databases: make(map[string]*sqldb.SQLClient),
		closed:    make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewManager(cfg.Server, cfg.Environment)
	}

	if err := f.initializeDatabases(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := f.initializeClients(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	f.userClient = userapi.NewClient(cfg.UserAPI, nil)

	customers := f.databases["customers"]
	f.serviceFactory = service.NewServiceFactory(service.Repositories{
		Customers: sqldb.NewCustomerTable(customers),
		Devices:   sqldb.NewDeviceTable(customers),
		Packages:  sqldb.NewPackageTable(customers),
		Payments:  sqldb.NewPaymentTable(customers),
		Audits:    sqldb.NewAuditTable(customers),
	}, f.sessions, f.publisher, cfg, logger)

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("redis_sessions", f.redisClient != nil),
		util.Bool("kafka_enabled", f.kafkaProducer != nil),
		util.Bool("elasticsearch_enabled", f.esClient != nil),
		util.Bool("clickhouse_enabled", f.clickhouseClient != nil),
	)

	return f, nil
}

// initializeDatabases opens the customers connection (required) and the optional
// clients and catchup connections, migrating customers when asked to.
func (f *Factory) initializeDatabases() error {
	dbs := f.config.Databases

	customers, err := sqldb.NewSQLClient("customers", dbs.Customers)
	if err != nil {
		return err
	}
	f.databases["customers"] = customers

	if dbs.MigrateOnStart {
		if err := migrations.Up(customers.DB.DB, customers.Driver()); err != nil {
			return err
		}
	}

	for name, dbCfg := range map[string]config.DatabaseConfig{
		"clients": dbs.Clients,
		"catchup": dbs.Catchup,
	} {
		if !dbCfg.Enabled() {
			continue
		}
		c, err := sqldb.NewSQLClient(name, dbCfg)
		if err != nil {
			if f.config.IsProduction() {
				return err
			}
			util.Warn("Optional database unavailable", util.String("name", name), util.ErrorField(err))
			continue
		}
		f.databases[name] = c
	}
	return nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if f.config.Redis.URL != "" {
		if c, err := client.NewRedisClient(f.config.Redis); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = c
			f.sessions = redis.NewSessionCache(c)
			util.Info("Redis client initialized and healthy")
		}
	}
	if f.sessions == nil {
		if f.config.IsProduction() {
			initErrors = append(initErrors, errors.New("redis: REDIS_URL is required in production"))
		} else {
			util.Warn("Redis unavailable - sessions are kept in memory")
			f.sessions = redis.NewMemoryStore()
		}
	}

	var sinks []events.Sink

	// Kafka
	if f.config.Kafka.Enabled() {
		if producer, err := client.NewKafkaProducer(f.config.Kafka, f.logger); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
			sinks = append(sinks, events.NewKafkaSink(producer, f.config.Kafka.Topic))
			util.Info("Kafka producer initialized")
		}
	}

	// Elasticsearch
	if f.config.Elasticsearch.Enabled() {
		if c, err := client.NewElasticsearchClient(f.config.Elasticsearch, f.config.IsDevelopment()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			f.esClient = c
			sinks = append(sinks, events.NewElasticsearchSink(c, f.config.Elasticsearch.Index))
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	// ClickHouse
	if f.config.Clickhouse.Enabled() {
		if c, err := client.NewClickHouseClient(f.config.Clickhouse); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = c
			sink := events.NewClickhouseSink(c, f.config.Clickhouse.Table)
			if err := sink.EnsureTable(ctx); err != nil {
				initErrors = append(initErrors, fmt.Errorf("clickhouse table: %w", err))
			} else {
				sinks = append(sinks, sink)
				util.Info("ClickHouse client initialized and healthy")
			}
		}
	}

	f.publisher = events.NewPublisher(eventPublishTimeout, sinks...)

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %w", errors.Join(initErrors...))
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// HealthCheck probes every initialized dependency concurrently. Optional dependencies that
// were never configured are not reported.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]func(context.Context) error{}
	for name, db := range f.databases {
		checks["db_"+name] = db.HealthCheck
	}
	if f.redisClient != nil {
		checks["redis"] = f.redisClient.HealthCheck
	}
	if f.kafkaProducer != nil {
		checks["kafka"] = f.kafkaProducer.HealthCheck
	}
	if f.esClient != nil {
		checks["elasticsearch"] = f.esClient.HealthCheck
	}
	if f.clickhouseClient != nil {
		checks["clickhouse"] = f.clickhouseClient.HealthCheck
	}

	var mu sync.Mutex
	results := make(map[string]error, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			err := check(gctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	for name, err := range f.HealthCheck(ctx) {
		// Event sinks are best effort
		if name == "kafka" || name == "elasticsearch" || name == "clickhouse" {
			continue
		}
		if err != nil {
			return false
		}
	}
	return true
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		for name, db := range f.databases {
			if err := db.Close(); err != nil {
				util.Error("Failed to close database", util.String("name", name), util.ErrorField(err))
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Logger() *zap.Logger {
	return f.logger
}

func (f *Factory) TLSManager() *tls.Manager {
	return f.tlsManager
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	return f.serviceFactory
}

func (f *Factory) UserClient() *userapi.Client {
	return f.userClient
}

func (f *Factory) Sessions() redis.SessionStore {
	return f.sessions
}
