package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUsage lists the commands RunMigrate accepts
const MigrateUsage = "up | down | version | steps N | force N"

// Migrations returns the embedded schema migrations rooted at their directory
func Migrations() (fs.FS, error) {
	return fs.Sub(MigrationsFS, "migrations")
}

// migrateCommand is one parsed migrate invocation, run against an open migrator
type migrateCommand func(m *migrate.Migrate, log *slog.Logger) error

// RunMigrate applies a migrate command to the database at databaseURL.
// source holds the .sql files at its root. Commands are validated before connecting.
func RunMigrate(log *slog.Logger, databaseURL string, source fs.FS, command string, args []string) error {
	run, err := parseMigrateCommand(command, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(databaseURL) == "" {
		return errors.New("database url is required")
	}
	if log == nil {
		log = slog.Default()
	}

	sourceDriver, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	m.Log = migrateLog{log: log.With(slog.String("component", "migrate"))}

	return run(m, log)
}

func parseMigrateCommand(command string, args []string) (migrateCommand, error) {
	switch command {
	case "up":
		return func(m *migrate.Migrate, log *slog.Logger) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate up: %w", err)
			}
			return logVersion(m, log, "schema up to date")
		}, nil
	case "down":
		return func(m *migrate.Migrate, log *slog.Logger) error {
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate down: %w", err)
			}
			log.Info("all migrations rolled back")
			return nil
		}, nil
	case "version":
		return func(m *migrate.Migrate, log *slog.Logger) error {
			return logVersion(m, log, "current schema version")
		}, nil
	case "steps", "force":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s requires a version number argument", command)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid %s argument %q: %w", command, args[0], err)
		}
		if command == "steps" {
			return func(m *migrate.Migrate, log *slog.Logger) error {
				if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate steps %d: %w", n, err)
				}
				return logVersion(m, log, "schema moved")
			}, nil
		}
		return func(m *migrate.Migrate, log *slog.Logger) error {
			if err := m.Force(n); err != nil {
				return fmt.Errorf("migrate force: %w", err)
			}
			log.Info("forced schema version", slog.Int("version", n))
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown migrate command: %s (use: %s)", command, MigrateUsage)
	}
}

func logVersion(m *migrate.Migrate, log *slog.Logger, msg string) error {
	ver, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info(msg, slog.String("version", "none"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Info(msg, slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	return nil
}

// migrateLog forwards golang-migrate progress lines to slog at debug level
type migrateLog struct {
	log *slog.Logger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLog) Verbose() bool {
	return l.log.Enabled(context.Background(), slog.LevelDebug)
}
