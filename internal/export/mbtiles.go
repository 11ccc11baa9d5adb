package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/tile"
	"github.com/dustin/go-humanize"
)

// TilesetInfo describes the grid behind a rendered buffer.
type TilesetInfo struct {
	Name     string
	Grid     mbtiles.GridInfo
	TileSize int
}

// WriteMBTiles cuts buf into TileSize squares and stores every Wang cell as
// one PNG tile at the smallest zoom level that fits the grid. The database
// is built under a temporary name and renamed into place when complete.
func (e *Exporter) WriteMBTiles(path string, buf *raster.Buffer[rgba.Color], info TilesetInfo) (int64, error) {
	ts := info.TileSize
	if ts <= 0 || buf.Width()%ts != 0 || buf.Height()%ts != 0 {
		return 0, fmt.Errorf("buffer %dx%d is not a whole number of %dpx tiles", buf.Width(), buf.Height(), ts)
	}
	rng, err := tile.NewGridRange(buf.Width()/ts, buf.Height()/ts)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	chmodErr := tmp.Chmod(fileMode)
	tmp.Close()
	if chmodErr != nil {
		os.Remove(tmpPath) // nolint:errcheck // best effort cleanup
		return 0, fmt.Errorf("failed to set file mode: %w", chmodErr)
	}

	ok := false
	defer func() {
		if !ok {
			for _, p := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
				os.Remove(p) // nolint:errcheck // best effort cleanup
			}
		}
	}()

	lon, lat := rng.Center()
	grid := info.Grid
	grid.Width, grid.Height, grid.TileSize = rng.Width, rng.Height, ts
	meta := mbtiles.Metadata{
		Name:        info.Name,
		Format:      "png",
		Description: fmt.Sprintf("%dx%d Wang tile grid", rng.Width, rng.Height),
		Type:        "baselayer",
		Version:     "1.0",
		Grid:        grid,
		Bounds:      rng.Bounds(),
		Center:      [3]float64{lon, lat, float64(rng.Z)},
		MinZoom:     int(rng.Z),
		MaxZoom:     int(rng.Z),
	}

	w, err := mbtiles.New(tmpPath, meta)
	if err != nil {
		return 0, err
	}

	img := ToImage(buf, e.Mode)
	var encErr error
	rng.ForEach(func(c tile.Coords) {
		if encErr != nil {
			return
		}
		x, y := int(c.X)*ts, int(c.Y)*ts
		sub := img.SubImage(image.Rect(x, y, x+ts, y+ts))

		var pngBuf bytes.Buffer
		if err := png.Encode(&pngBuf, sub); err != nil {
			encErr = fmt.Errorf("failed to encode tile %s: %w", c, err)
			return
		}
		encErr = w.WriteTile(c, pngBuf.Bytes())
	})
	if encErr != nil {
		w.Close()
		return 0, encErr
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to move tileset into place: %w", err)
	}
	ok = true

	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat tileset: %w", err)
	}
	e.log().Info("Wrote tileset", "path", path, "zoom", rng.Z, "tiles", rng.Count(), "images", w.Images(), "size", humanize.Bytes(uint64(st.Size())))
	return st.Size(), nil
}
