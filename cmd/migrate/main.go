package main

import (
	"github.com/rs/zerolog/log"

	"agentdesk/internal/config"
	"agentdesk/internal/db"
	"agentdesk/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	migrations, err := db.Migrations(cfg.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("load migrations")
	}
	if err := db.RunMigrations(database, migrations); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	log.Info().Str("db_path", cfg.DBPath).Msg("migrations applied successfully")
}
