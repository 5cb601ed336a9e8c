package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mailmerge/internal/store/migrations"
)

var ErrNotFound = errors.New("store: not found")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

// DB wraps *sql.DB with the driver name so queries written with "?"
// placeholders can run on PostgreSQL too.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to url and applies pending migrations. postgres:// and
// postgresql:// URLs use pgx, anything else is treated as a SQLite path.
func Open(ctx context.Context, url string) (*DB, error) {
	driver, dsn := driverFor(url)

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == driverSQLite {
		// One writer at a time, prevents SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	db := &DB{DB: sqlDB, driver: driver}
	if err := db.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Ping satisfies the health handler's pinger.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Migrate applies the embedded migrations. It is a no-op when the schema is
// current.
func (db *DB) Migrate() error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	var dbDriver database.Driver
	switch db.driver {
	case driverPostgres:
		dbDriver, err = pgxmigrate.WithInstance(db.DB, &pgxmigrate.Config{})
	default:
		dbDriver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, db.driver, dbDriver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// rebind rewrites "?" placeholders as $1, $2, ... for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.driver != driverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func driverFor(url string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return driverPostgres, url
	case strings.HasPrefix(url, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(url, "sqlite://")
	default:
		return driverSQLite, url
	}
}
