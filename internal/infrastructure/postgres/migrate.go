package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx" para database/sql
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator aplica el esquema embebido con golang-migrate.
type Migrator struct {
	db *sql.DB
	m  *migrate.Migrate
}

// NewMigrator abre una conexión database/sql aparte del pool (migrate no trabaja con pgxpool).
func NewMigrator(dsn string) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping migration db: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Migrator{db: db, m: m}, nil
}

// Up aplica las migraciones pendientes. applied = false si ya estaba al día.
func (mg *Migrator) Up() (applied bool, err error) {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migrate up: %w", err)
	}
	return true, nil
}

// Down revierte steps migraciones (todas si steps <= 0).
func (mg *Migrator) Down(steps int) error {
	var err error
	if steps <= 0 {
		err = mg.m.Down()
	} else {
		err = mg.m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version versión actual y si quedó sucia por una migración a medias.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close libera la fuente y la conexión.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	closeErr := mg.db.Close()
	return errors.Join(srcErr, dbErr, closeErr)
}
