package catalog

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// migration is one schema step: the version it produces and the statements
// that get there from the previous version.
type migration struct {
	version int
	stmts   []string
}

// migrations is the ordered array indexed by source version: migrations[v]
// takes the database from version v to v+1.
var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			createSongs,
			createPlaylists,
			createPlaylistItems,
			createConfig,
			createPathIndex,
			createPlaylistItemsIndex,
		},
	},
}

// migrate reads the current schema version from the config table and applies
// migrations[version:] in order until schemaVersion is reached. If the
// on-disk version exceeds what this binary knows about, it aborts rather
// than risk running against an unrecognized schema.
func migrate(db *sql.DB, path string) error {
	if _, err := db.Exec(createConfig); err != nil {
		return fmt.Errorf("catalog: create config table: %w", err)
	}

	current, err := readVersion(db)
	if err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("catalog: on-disk schema version %d exceeds supported version %d", current, schemaVersion)
	}
	if current == schemaVersion {
		return nil
	}

	if path != "" && path != ":memory:" {
		backupPath := fmt.Sprintf("%s.version-%d", path, current)
		if err := backupFile(path, backupPath); err != nil {
			return fmt.Errorf("catalog: backup before migration: %w", err)
		}
		defer func() {
			if err == nil {
				os.Remove(backupPath)
			} else {
				slog.Warn("migration failed, retaining backup", "backup", backupPath, "error", err)
			}
		}()
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, txErr := db.Begin()
		if txErr != nil {
			err = txErr
			return err
		}
		for _, stmt := range m.stmts {
			if _, execErr := tx.Exec(stmt); execErr != nil {
				tx.Rollback()
				err = fmt.Errorf("catalog: migration to version %d: %w", m.version, execErr)
				return err
			}
		}
		if writeErr := writeVersion(tx, m.version); writeErr != nil {
			tx.Rollback()
			err = writeErr
			return err
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = commitErr
			return err
		}
		slog.Info("applied catalog migration", "version", m.version)
	}
	return nil
}

func readVersion(db *sql.DB) (int, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM config WHERE term = 'version' AND subterm = ''`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: read schema version: %w", err)
	}
	var v int
	if _, scanErr := fmt.Sscanf(value, "%d", &v); scanErr != nil {
		return 0, fmt.Errorf("catalog: parse schema version %q: %w", value, scanErr)
	}
	return v, nil
}

func writeVersion(tx *sql.Tx, v int) error {
	_, err := tx.Exec(`INSERT INTO config (term, subterm, value) VALUES ('version', '', ?)
		ON CONFLICT(term, subterm) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", v))
	return err
}

func backupFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
