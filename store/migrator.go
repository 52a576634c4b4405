package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/stridesense/internal/version"
)

// Migration Flow:
// 1. preMigrate: if the DB is uninitialized, apply LATEST.sql and stamp the
//    schema version.
// 2. Migrate (prod mode): apply incremental migrations between the stored
//    schema version and the target version, atomically.
//
// Migration Files:
// - Location: store/migration/{driver}/{version}/NN__description.sql
// - LATEST.sql: full schema for new installations.

//go:embed migration
var migrationFS embed.FS

const (
	// LatestSchemaFileName is the full schema file applied on fresh installs.
	LatestSchemaFileName = "LATEST.sql"

	schemaVersionSettingName = "schema_version"

	defaultSchemaVersion = "0.0.0"

	modeProd = "prod"
)

// Migrate brings the database schema up to the current version.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if s.profile.Mode != modeProd {
		// Dev and demo run on the freshly applied latest schema.
		return nil
	}

	currentSchemaVersion, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	targetSchemaVersion := version.GetSchemaVersion(s.profile.Mode)

	if version.IsVersionGreaterThan(currentSchemaVersion, targetSchemaVersion) {
		return errors.Errorf("cannot downgrade schema version from %s to %s", currentSchemaVersion, targetSchemaVersion)
	}
	if version.IsVersionGreaterThan(targetSchemaVersion, currentSchemaVersion) {
		if err := s.applyMigrations(ctx, currentSchemaVersion, targetSchemaVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

// preMigrate applies the latest schema when the database is uninitialized.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := filepath.Join(s.migrationBasePath(), LatestSchemaFileName)
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %s", filePath)
	}

	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if err := executeStatements(ctx, tx, string(bytes)); err != nil {
		return errors.Wrap(err, "failed to execute latest schema")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit latest schema")
	}

	targetSchemaVersion := version.GetSchemaVersion(s.profile.Mode)
	if err := s.driver.UpsertSystemSetting(ctx, schemaVersionSettingName, targetSchemaVersion); err != nil {
		return errors.Wrap(err, "failed to stamp schema version")
	}

	slog.Info("database initialized", slog.String("schemaVersion", targetSchemaVersion))
	return nil
}

// applyMigrations applies all migration files between the current and target
// schema versions in one transaction.
func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetSchemaVersion string) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s/*/*.sql", s.migrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration",
		slog.String("currentSchemaVersion", currentSchemaVersion),
		slog.String("targetSchemaVersion", targetSchemaVersion))

	migrationsApplied := 0
	for _, filePath := range filePaths {
		fileVersion := filepath.Base(filepath.Dir(filePath))
		if !version.IsVersionGreaterThan(fileVersion, currentSchemaVersion) ||
			!version.IsVersionGreaterOrEqualThan(targetSchemaVersion, fileVersion) {
			continue
		}

		slog.Info("applying migration",
			slog.String("file", filePath),
			slog.String("version", fileVersion))

		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := executeStatements(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}

	slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))

	if err := s.driver.UpsertSystemSetting(ctx, schemaVersionSettingName, targetSchemaVersion); err != nil {
		return errors.Wrap(err, "failed to update current schema version")
	}
	return nil
}

// currentSchemaVersion reads the stored schema version, defaulting for
// databases initialized before version stamping existed.
func (s *Store) currentSchemaVersion(ctx context.Context) (string, error) {
	value, err := s.driver.GetSystemSetting(ctx, schemaVersionSettingName)
	if err != nil {
		return "", err
	}
	if value == "" {
		return defaultSchemaVersion, nil
	}
	return value, nil
}

func (s *Store) migrationBasePath() string {
	return fmt.Sprintf("migration/%s/prod", s.profile.Driver)
}

// executeStatements runs a semicolon separated SQL script inside a transaction.
func executeStatements(ctx context.Context, tx *sql.Tx, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %q", stmt)
		}
	}
	return nil
}
