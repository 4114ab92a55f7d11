package sqldb

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/util"
)

const connectionTimeout = 5 * time.Second

// SQLClient is one logical database connection (customers, clients or catchup).
type SQLClient struct {
	DB     *sqlx.DB
	name   string
	driver string
}

// NewSQLClient opens and pings the connection described by cfg.
func NewSQLClient(name string, cfg config.DatabaseConfig) (*SQLClient, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == "sqlite3" {
		// SQLite only supports one writer. The idle connection keeps a
		// shared in-memory database alive between statements.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", name, err)
	}

	util.Info("SQL client initialized",
		zap.String("name", name),
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return &SQLClient{DB: db, name: name, driver: cfg.Driver}, nil
}

// NewSQLClientFromDB wraps an already opened handle.
func NewSQLClientFromDB(name string, db *sqlx.DB) *SQLClient {
	return &SQLClient{DB: db, name: name, driver: db.DriverName()}
}

func (c *SQLClient) Name() string   { return c.name }
func (c *SQLClient) Driver() string { return c.driver }

func (c *SQLClient) HealthCheck(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s database health check failed: %w", c.name, err)
	}
	return nil
}

func (c *SQLClient) Close() error {
	if c.DB == nil {
		return nil
	}
	if err := c.DB.Close(); err != nil {
		util.Error("Failed to close SQL client", zap.String("name", c.name), zap.Error(err))
		return err
	}
	util.Info("SQL client closed", zap.String("name", c.name))
	return nil
}
