package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"gps-toll-system/logger"
)

// Options controls how long RunMigrations waits for the database.
type Options struct {
	Attempts int
	Delay    time.Duration
}

var DefaultOptions = Options{Attempts: 10, Delay: 3 * time.Second}

// WaitForDB retries until the database accepts connections.
func WaitForDB(dsn string, opts Options, log logger.ILogger) error {
	var lastErr error
	for i := 0; i < opts.Attempts; i++ {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			db.Close()
		}
		if err == nil {
			log.Info("connected to the database")
			return nil
		}
		lastErr = err
		log.Info("waiting for the database to be ready", logger.Int("attempt", i+1))
		time.Sleep(opts.Delay)
	}
	return fmt.Errorf("could not connect to the database: %w", lastErr)
}

// RunMigrations applies every pending migration found in dir.
func RunMigrations(dsn, dir string, opts Options, log logger.ILogger) error {
	if err := WaitForDB(dsn, opts, log); err != nil {
		return err
	}

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("could not start migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("migrations applied", logger.Int("version", int(version)), logger.Bool("dirty", dirty))
	return nil
}
