package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"encore/queue-gateway/internal/config"

	stdCk "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4/database"
	migrateCk "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
)

// ClickHouseClient holds the queue_events audit table.
type ClickHouseClient struct {
	db     *gorm.DB
	dbName string
}

func NewClickHouseClient(ctx context.Context, cfg config.ClickHouse, logger *logrus.Logger) (*ClickHouseClient, error) {
	conn := stdCk.OpenDB(&stdCk.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: stdCk.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: stdCk.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  10 * time.Minute,
		ConnOpenStrategy: stdCk.ConnOpenInOrder,
	})

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to reach clickhouse at %s:%d", cfg.Host, cfg.Port)
	}

	db, err := gorm.Open(clickhouse.New(clickhouse.Config{Conn: conn}), &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open clickhouse")
	}

	return &ClickHouseClient{db: db, dbName: cfg.Database}, nil
}

func (c *ClickHouseClient) GetDb() *gorm.DB {
	return c.db
}

func (c *ClickHouseClient) Migrate(direction Direction) error {
	conn, err := c.db.DB()
	if err != nil {
		return err
	}

	return runMigrations(conn, "clickhouse", c.dbName, func(conn *sql.DB) (database.Driver, error) {
		return migrateCk.WithInstance(conn, &migrateCk.Config{})
	}, direction)
}

func (c *ClickHouseClient) Close() error {
	conn, err := c.db.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}
