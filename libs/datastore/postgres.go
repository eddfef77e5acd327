package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/brave-intl/momo-go/libs/logging"

	// needed for magic migration
	_ "github.com/golang-migrate/migrate/v4/source/file"
	// postgres driver for sqlx
	_ "github.com/lib/pq"
)

var (
	dbsMu sync.Mutex
	dbs   = map[string]*sqlx.DB{}
	// CurrentMigrationVersion holds the default migration version
	CurrentMigrationVersion = uint(1)
)

// Datastore holds generic methods
type Datastore interface {
	RawDB() *sqlx.DB
	NewMigrate() (*migrate.Migrate, error)
	Migrate(ctx context.Context, currentMigrationVersions ...uint) error
	RollbackTxAndHandle(tx *sqlx.Tx) error
	RollbackTx(tx *sqlx.Tx)
	BeginTx() (*sqlx.Tx, error)
}

// Postgres is a Datastore wrapper around a postgres database
type Postgres struct {
	*sqlx.DB
	migrationsURL string
}

// RawDB - get the raw db
func (pg *Postgres) RawDB() *sqlx.DB {
	return pg.DB
}

// NewMigrate creates a Migrate instance given a Postgres instance with an active database connection
func (pg *Postgres) NewMigrate() (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(pg.RawDB().DB, &postgres.Config{})
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithDatabaseInstance(
		pg.migrationsURL,
		"postgres",
		driver,
	)
	if err != nil {
		return nil, err
	}

	return m, err
}

// Migrate the Postgres instance
func (pg *Postgres) Migrate(ctx context.Context, currentMigrationVersions ...uint) error {
	logger := logging.Logger(ctx, "datastore.Migrate")

	logger.Info().Msg("attempting database migration")

	m, err := pg.NewMigrate()
	if err != nil {
		logger.Error().Err(err).Msg("failed to create a new migration")
		return err
	}

	activeMigrationVersion, dirty, err := m.Version()

	currentMigrationVersion := CurrentMigrationVersion
	if len(currentMigrationVersions) > 0 {
		currentMigrationVersion = currentMigrationVersions[0]
	}

	subLogger := logger.With().
		Bool("dirty", dirty).
		Int("db_version", int(activeMigrationVersion)).
		Uint("code_version", currentMigrationVersion).
		Logger()

	subLogger.Info().Msg("database status")

	if !errors.Is(err, migrate.ErrNilVersion) && err != nil {
		subLogger.Error().Err(err).Msg("failed to get migration version")
		sentry.CaptureMessage(err.Error())
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	// Don't attempt the migration if our currentMigrationVersion is less than the active db version or if the migration is in dirty state
	if currentMigrationVersion < activeMigrationVersion || dirty {
		subLogger.Error().Msg("migration not attempted")
		sentry.CaptureMessage(
			fmt.Sprintf("migration not attempted, dirty: %t; code version: %d; db version: %d",
				dirty, currentMigrationVersion, activeMigrationVersion))
		return nil
	}

	err = m.Migrate(currentMigrationVersion)
	if !errors.Is(err, migrate.ErrNoChange) && err != nil {
		subLogger.Error().Err(err).Msg("migration failed")
		return err
	}

	return nil
}

// NewPostgres creates a new Postgres Datastore, connections are shared per url and stats prefix
func NewPostgres(
	ctx context.Context,
	databaseURL string,
	migrationsURL string,
	performMigration bool,
	dbStatsPrefix string,
) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("a database url is required")
	}

	key := dbStatsPrefix + ":" + databaseURL

	dbsMu.Lock()
	db, ok := dbs[key]
	if !ok {
		var err error
		db, err = sqlx.Open("postgres", databaseURL)
		if err != nil {
			dbsMu.Unlock()
			return nil, err
		}
		dbs[key] = db

		// if we have a connection longer than 5 minutes, kill it
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(80)
		// 50% of max open
		db.SetMaxIdleConns(40)

		if dbStatsPrefix != "" {
			err := prometheus.Register(collectors.NewDBStatsCollector(db.DB, dbStatsPrefix))
			var are prometheus.AlreadyRegisteredError
			if err != nil && !errors.As(err, &are) {
				logging.Logger(ctx, "datastore.NewPostgres").Warn().Err(err).Msg("failed to register db stats collector")
			}
		}
	}
	dbsMu.Unlock()

	pg := &Postgres{DB: db, migrationsURL: migrationsURL}

	if performMigration {
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	return pg, nil
}

// RollbackTxAndHandle rolls back a transaction
func (pg *Postgres) RollbackTxAndHandle(tx *sqlx.Tx) error {
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		sentry.CaptureMessage(err.Error())
	}
	return err
}

// RollbackTx rolls back a transaction (useful with defer)
func (pg *Postgres) RollbackTx(tx *sqlx.Tx) {
	_ = pg.RollbackTxAndHandle(tx)
}

// BeginTx starts a transaction
func (pg *Postgres) BeginTx() (*sqlx.Tx, error) {
	return pg.RawDB().Beginx()
}
