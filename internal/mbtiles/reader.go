package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/MeKo-Tech/wangtiles/internal/tile"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// Reader reads tiles from an MBTiles database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an MBTiles database read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name='tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database has no tiles table or view")
	}

	return &Reader{db: db, path: path}, nil
}

// ReadTile returns the decompressed PNG stored for an XYZ coordinate.
// Missing tiles yield an error wrapping ErrTileNotFound.
func (r *Reader) ReadTile(c tile.Coords) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, c)
	}

	var compressed []byte
	err := r.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		c.Z, c.X, c.TMSY(),
	).Scan(&compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tile: %w", err)
	}
	return data, nil
}

// Count returns the number of stored tiles.
func (r *Reader) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// Images returns the number of distinct tile images. Databases without an
// images table store one image per tile.
func (r *Reader) Images() (int, error) {
	var hasImages int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='images'").Scan(&hasImages)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if hasImages == 0 {
		return r.Count()
	}

	var n int
	if err := r.db.QueryRow("SELECT COUNT(DISTINCT tile_id) FROM map").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

// Grid parses the identifier grid stored in the metadata. It fails when the
// tileset has no grid or the grid does not cover every stored tile.
func (r *Reader) Grid() (*wang.Grid, error) {
	meta, err := r.Metadata()
	if err != nil {
		return nil, err
	}
	if meta.Grid.Text == "" {
		return nil, ErrNoGrid
	}
	grid, err := wang.ParseGrid([]byte(meta.Grid.Text))
	if err != nil {
		return nil, fmt.Errorf("stored grid: %w", err)
	}

	count, err := r.Count()
	if err != nil {
		return nil, err
	}
	if cells := grid.Width() * grid.Height(); cells != count {
		return nil, fmt.Errorf("tileset holds %d tiles, grid has %d cells", count, cells)
	}
	return grid, nil
}

// Metadata reads the metadata table.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return FromMap(values), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
