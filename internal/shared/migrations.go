package shared

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// migration is one schema step of the clipy database: the profiles table holding credit balances,
// then the auth_storage table backing the persisted session.
//
// Files are named NNNN_<name>_up.sql and NNNN_<name>_down.sql.
type migration struct {
	version int
	name    string
	up      string
	down    string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int]*migration)
	for _, entry := range entries {
		file := entry.Name()
		stem, isUp := strings.CutSuffix(file, "_up.sql")
		if !isUp {
			var isDown bool
			if stem, isDown = strings.CutSuffix(file, "_down.sql"); !isDown {
				return nil, fmt.Errorf("%w: migration %s is neither up nor down", ErrInvalidConfig, file)
			}
		}

		prefix, name, ok := strings.Cut(stem, "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("%w: migration %s has no version prefix", ErrInvalidConfig, file)
		}

		body, err := migrationFiles.ReadFile(path.Join("sql", file))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if isUp {
			m.up = string(body)
		} else {
			m.down = string(body)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("%w: migration %d (%s) needs both up and down", ErrInvalidConfig, m.version, m.name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })

	for i, m := range out {
		if m.version != i+1 {
			return nil, fmt.Errorf("%w: migration %d is missing", ErrInvalidConfig, i+1)
		}
	}
	return out, nil
}

// SchemaVersion returns the number of applied migrations, kept in SQLite's user_version header field.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// RunMigrations brings the schema up to the latest version.
func RunMigrations(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	return migrate(db, migrations, len(migrations))
}

// MigrateTo moves the schema up or down to target. Zero drops every clipy table.
func MigrateTo(db *sql.DB, target int) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	if target < 0 || target > len(migrations) {
		return fmt.Errorf("%w: schema version %d does not exist (latest is %d)", ErrInvalidArgument, target, len(migrations))
	}
	return migrate(db, migrations, target)
}

func migrate(db *sql.DB, migrations []migration, target int) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("%w: database schema %d is newer than this build (%d)", ErrInvalidConfig, current, len(migrations))
	}

	for current < target {
		m := migrations[current]
		if err := step(db, m.up, m.version); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		current++
	}
	for current > target {
		m := migrations[current-1]
		if err := step(db, m.down, m.version-1); err != nil {
			return fmt.Errorf("failed to revert migration %d (%s): %w", m.version, m.name, err)
		}
		current--
	}
	return nil
}

// step runs script and records version in one transaction.
func step(db *sql.DB, script string, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}
