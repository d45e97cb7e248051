package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"encore/queue-gateway/internal/config"

	"github.com/golang-migrate/migrate/v4/database"
	migratePsql "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresClient holds the catalog tables and the kafka DLQ.
type PostgresClient struct {
	db     *gorm.DB
	dbName string
}

func NewPostgresClient(ctx context.Context, cfg config.Postgres, logger *logrus.Logger) (*PostgresClient, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.Host,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}

	conn, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to reach postgres at %s:%d", cfg.Host, cfg.Port)
	}

	return &PostgresClient{db: db, dbName: cfg.Database}, nil
}

func (p *PostgresClient) GetDb() *gorm.DB {
	return p.db
}

func (p *PostgresClient) Migrate(direction Direction) error {
	conn, err := p.db.DB()
	if err != nil {
		return err
	}

	return runMigrations(conn, "postgres", p.dbName, func(conn *sql.DB) (database.Driver, error) {
		return migratePsql.WithInstance(conn, &migratePsql.Config{})
	}, direction)
}

func (p *PostgresClient) Close() error {
	conn, err := p.db.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}
