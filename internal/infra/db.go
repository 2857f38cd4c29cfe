package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	SchemaModeExec    = "exec"
	SchemaModeMigrate = "migrate"
)

type PostgresDBConfig struct {
	Host       string `default:"localhost"`
	Port       int    `default:"5432"`
	User       string `default:"postgres"`
	Name       string `default:"postgres"`
	SchemaMode string `default:"exec"`
}

func ParsePostgresDBConfig() *PostgresDBConfig {
	dbConfig := PostgresDBConfig{}
	envconfig.MustProcess("VALUES_DB", &dbConfig)
	return &dbConfig
}

func (c *PostgresDBConfig) GetDSN(password string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, password, c.Host, c.Port, c.Name)
}

// NewDB opens the connection pool without pinging it. The database may still
// be starting up; readiness is established later by the schema initializer.
func NewDB(cfg *PostgresDBConfig, secrets Secrets) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN(secrets.GetDBPassword()))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	return db, nil
}

// Migrate applies the migrations found under dir in fsys. It borrows a single
// connection from db and leaves the pool open.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to get connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		src.Close()
		conn.Close()
		return fmt.Errorf("failed to create driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	return nil
}
