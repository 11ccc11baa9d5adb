package export

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/dustin/go-humanize"
)

// Exporter writes rendered buffers to files.
type Exporter struct {
	Logger *slog.Logger
	// Mode converts float channels to bytes. The zero value clamps.
	Mode rgba.QuantizeMode
}

// WriteFile writes buf to path in format f and returns the file size.
// The data goes to a temporary file next to path first; path only appears
// once the encoder succeeded.
func (e *Exporter) WriteFile(path string, buf *raster.Buffer[rgba.Color], f Format) (int64, error) {
	if f == FormatMBTiles {
		return 0, fmt.Errorf("use WriteMBTiles for %s output", f)
	}
	return e.writeAtomic(path, func(w io.Writer) error {
		return Encode(w, buf, f, e.Mode)
	})
}

// WriteImage writes an already quantized image, e.g. a thumbnail.
func (e *Exporter) WriteImage(path string, img image.Image, f Format) (int64, error) {
	return e.writeAtomic(path, func(w io.Writer) error {
		return EncodeImage(w, img, f)
	})
}

// WriteBytes writes data atomically.
func (e *Exporter) WriteBytes(path string, data []byte) (int64, error) {
	return e.writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// fileMode is applied to temp files before they are renamed into place.
const fileMode = 0o644

func (e *Exporter) writeAtomic(path string, encode func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpPath) // nolint:errcheck // best effort cleanup
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := encode(bw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return 0, fmt.Errorf("failed to set file mode: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to move output into place: %w", err)
	}
	ok = true

	e.log().Info("Wrote file", "path", path, "size", humanize.Bytes(uint64(info.Size())))
	return info.Size(), nil
}

func (e *Exporter) log() *slog.Logger {
	if e != nil && e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
