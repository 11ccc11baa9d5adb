package mbtiles

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/wangtiles/internal/tile"
	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of tiles buffered before a flush.
const DefaultBatchSize = 100

// schema uses the deduplicated MBTiles layout: every distinct image is stored
// once in images, map points each coordinate at an image, and tiles is the
// view readers query. A Wang grid has at most 16 distinct cell images per
// shader, so large grids stay small.
const schema = `
	CREATE TABLE IF NOT EXISTS metadata (
		name TEXT NOT NULL,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS images (
		tile_id TEXT NOT NULL PRIMARY KEY,
		tile_data BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS map (
		zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL,
		tile_row INTEGER NOT NULL,
		tile_id TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS map_index ON map (zoom_level, tile_column, tile_row);

	CREATE VIEW IF NOT EXISTS tiles AS
		SELECT map.zoom_level AS zoom_level,
		       map.tile_column AS tile_column,
		       map.tile_row AS tile_row,
		       images.tile_data AS tile_data
		FROM map JOIN images ON images.tile_id = map.tile_id;
`

type pendingTile struct {
	coords tile.Coords
	key    string
	png    []byte
}

// Writer writes tiles to an MBTiles database.
type Writer struct {
	db        *sql.DB
	stored    map[string]struct{}
	batch     []pendingTile
	batchSize int
	written   int
	mu        sync.Mutex
}

// New creates the database at path if needed, initializes the schema and
// replaces the metadata table with metadata.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := replaceMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		stored:    make(map[string]struct{}),
		batch:     make([]pendingTile, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

func replaceMetadata(db *sql.DB, meta Metadata) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for name, value := range meta.ToMap() {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// ImageKey is the images.tile_id of a PNG: the hex SHA-256 of its bytes.
func ImageKey(png []byte) string {
	sum := sha256.Sum256(png)
	return hex.EncodeToString(sum[:])
}

// WriteTile buffers one tile and flushes when the batch is full. Coordinates
// are XYZ and are stored as TMS rows. Identical images share one row.
func (w *Writer) WriteTile(c tile.Coords, png []byte) error {
	if !c.Valid() {
		return fmt.Errorf("invalid tile coordinate %s", c)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, pendingTile{coords: c, key: ImageKey(png), png: png})
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes any buffered tiles to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Written returns the number of tiles committed so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Images returns the number of distinct images committed so far.
func (w *Writer) Images() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stored)
}

// flushLocked must be called with w.mu held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	insertImage, err := tx.Prepare("INSERT OR IGNORE INTO images (tile_id, tile_data) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare image insert: %w", err)
	}
	defer insertImage.Close()

	insertMap, err := tx.Prepare("INSERT OR REPLACE INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare map insert: %w", err)
	}
	defer insertMap.Close()

	added := make(map[string]struct{})
	for _, t := range w.batch {
		_, known := w.stored[t.key]
		_, queued := added[t.key]
		if !known && !queued {
			compressed, err := gzipCompress(t.png)
			if err != nil {
				return fmt.Errorf("failed to compress tile %s: %w", t.coords, err)
			}
			if _, err := insertImage.Exec(t.key, compressed); err != nil {
				return fmt.Errorf("failed to insert image for %s: %w", t.coords, err)
			}
			added[t.key] = struct{}{}
		}

		if _, err := insertMap.Exec(t.coords.Z, t.coords.X, t.coords.TMSY(), t.key); err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", t.coords, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for key := range added {
		w.stored[key] = struct{}{}
	}
	w.written += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}

// Close flushes remaining tiles and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
