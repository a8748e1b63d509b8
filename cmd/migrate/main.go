// Command migrate applies the ledger schema to the configured Postgres.
package main

import (
	"flag"
	"os"

	"gps-toll-system/config"
	"gps-toll-system/logger"
	"gps-toll-system/migration"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New("migrate", logger.Options{}).Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}
	log := logger.New("migrate", logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	if !cfg.DB.Enabled() {
		log.Error("db.host is not set, nothing to migrate")
		os.Exit(1)
	}
	if err := migration.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath, migration.DefaultOptions, log); err != nil {
		log.Error("migration failed", logger.Error(err))
		os.Exit(1)
	}
}
