// Package catalog implements the persistent media library: songs,
// playlists, playlist items, and the schema-version config table, backed by
// a modernc.org/sqlite database opened with a single connection. The
// storage backend is not safe for concurrent use, so every operation is
// additionally serialized through a one-slot job queue read by a single
// dedicated goroutine — the Go translation of "catalog worker thread."
package catalog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// Catalog is the storage engine. The zero value is not usable; use Open.
type Catalog struct {
	db   *sql.DB
	path string

	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup

	scanState *scanState
	onWrite   func()
	cursors   map[int64]*Cursor
}

// OnWrite registers a callback invoked (on the caller's goroutine, after the
// job completes) every time a catalog write succeeds. The dispatcher wires
// this to the revision bus's Bump.
func (c *Catalog) OnWrite(fn func()) {
	c.onWrite = fn
}

type job struct {
	fn   func() error
	done chan error
}

// Open opens (creating if necessary) the sqlite database at path, applies
// any pending migrations, and starts the worker goroutine. path may be
// ":memory:" for an ephemeral catalog, as used by tests.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// The storage backend is not thread-safe; a single connection is the
	// mechanism that enforces the "catalog worker thread" requirement.
	db.SetMaxOpenConns(1)

	if err := migrate(db, path); err != nil {
		db.Close()
		return nil, err
	}

	c := &Catalog{
		db:   db,
		path: path,
		jobs: make(chan job, 1),
		quit: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()

	if err := c.submit(func() error {
		if err := c.ensureLibraryPlaylist(); err != nil {
			return err
		}
		return c.refreshPlaylistItemCounts()
	}); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Catalog) run() {
	defer c.wg.Done()
	for {
		select {
		case j := <-c.jobs:
			j.done <- j.fn()
		case <-c.quit:
			// Drain any job already in flight before exiting.
			for {
				select {
				case j := <-c.jobs:
					j.done <- fmt.Errorf("catalog: closed")
				default:
					return
				}
			}
		}
	}
}

// submit runs fn on the worker goroutine and blocks for its result. This is
// the single rendezvous point every catalog method funnels through.
func (c *Catalog) submit(fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case c.jobs <- j:
	case <-c.quit:
		return fmt.Errorf("catalog: closed")
	}
	return <-j.done
}

// submitWrite is submit for operations that mutate the catalog: on success
// it recomputes every playlist's cached item_count (a song or playlist-item
// write can change a smart playlist's match set, not just a static one's
// membership list) and fires the OnWrite callback, which the dispatcher
// wires to the revision bus's Bump so every successful write is observable
// via /update.
func (c *Catalog) submitWrite(fn func() error) error {
	err := c.submit(func() error {
		if err := fn(); err != nil {
			return err
		}
		return c.refreshPlaylistItemCounts()
	})
	if err == nil && c.onWrite != nil {
		c.onWrite()
	}
	return err
}

// Close stops the worker goroutine and closes the underlying database.
func (c *Catalog) Close() error {
	close(c.quit)
	c.wg.Wait()
	return c.db.Close()
}

func (c *Catalog) ensureLibraryPlaylist() error {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM playlists WHERE id = ?`, LibraryPlaylistID).Scan(&count); err != nil {
		return fmt.Errorf("catalog: check library playlist: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := c.db.Exec(`INSERT INTO playlists (id, title, type, query) VALUES (?, 'Library', ?, '1')`,
		LibraryPlaylistID, PlaylistSmart)
	if err != nil {
		return fmt.Errorf("catalog: create library playlist: %w", err)
	}
	slog.Info("created immortal Library playlist")
	return nil
}
