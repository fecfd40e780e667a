// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration provides a thin wrapper around golang-migrate for
// running MongoDB index migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. Migrations are JSON
// arrays of database commands (createIndexes, dropIndexes) applied once at
// startup, so the unique constraints the admin user flows rely on exist
// before traffic is served.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// mongodb driver registers the "mongodb" and "mongodb+srv" schemes.
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	// file source reads .json files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// versionCollection records the applied migration version.
const versionCollection = "_migrations"

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - mongoURL: A mongodb:// URL. Any database path in it is replaced.
//   - database: Target database name.
//   - migrationsPath: Filesystem path to the migrations directory.
//   - logger: Structured logger for migration events.
func RunUp(mongoURL, database, migrationsPath string, logger *slog.Logger) error {
	databaseURL, err := migrationURL(mongoURL, database)
	if err != nil {
		return err
	}
	sourceURL := "file://" + migrationsPath

	migrator, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceError, dbError := migrator.Close()
		if sourceError != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
		}
		if dbError != nil {
			logger.Error("migration_db_close_failed", slog.Any("error", dbError))
		}
	}()

	migrator.Log = &migrateLogger{logger: logger}

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}
	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)
	return nil
}

// migrationURL points mongoURL at database and names the version collection.
func migrationURL(mongoURL, database string) (string, error) {
	parsed, err := url.Parse(mongoURL)
	if err != nil {
		return "", fmt.Errorf("migration: invalid mongo URL: %w", err)
	}
	if !strings.HasPrefix(parsed.Scheme, "mongodb") {
		return "", fmt.Errorf("migration: unsupported scheme %q", parsed.Scheme)
	}
	if database == "" {
		return "", errors.New("migration: database name is required")
	}

	parsed.Path = "/" + database

	query := parsed.Query()
	query.Set("x-migrations-collection", versionCollection)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
