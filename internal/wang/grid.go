package wang

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
)

// ErrEdgeMismatch is returned by Verify when two neighbors disagree.
var ErrEdgeMismatch = errors.New("edge mismatch")

// Grid is a dense, row-major array of tile identifiers.
// Grids returned by Generate are read-only.
type Grid struct {
	cells *raster.Buffer[TileID]
}

// NewGrid returns a zero-filled grid. Callers should prefer Generate.
func NewGrid(width, height int) *Grid {
	return &Grid{cells: raster.New[TileID](width, height, 0)}
}

// AtlasGrid returns the 4x4 reference grid holding every identifier once,
// with id = row*4 + column.
func AtlasGrid() *Grid {
	g := NewGrid(4, 4)
	g.cells.ForEachMut(func(x, y int, _ TileID) TileID {
		return TileID(y*4 + x)
	})
	return g
}

// Width returns the number of tile columns.
func (g *Grid) Width() int { return g.cells.Width() }

// Height returns the number of tile rows.
func (g *Grid) Height() int { return g.cells.Height() }

// At returns the identifier at column x, row y.
func (g *Grid) At(x, y int) TileID { return g.cells.At(x, y) }

// ForEach visits every identifier in row-major order.
func (g *Grid) ForEach(visit func(x, y int, id TileID)) {
	g.cells.ForEach(visit)
}

// Verify checks the edge-matching invariant for every interior adjacency and
// returns the first violation found in row-major order.
func (g *Grid) Verify() error {
	w, h := g.Width(), g.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := g.At(x, y)
			if x+1 < w && id.Has(Right) != g.At(x+1, y).Has(Left) {
				return fmt.Errorf("%w: right of (%d,%d)=%s vs left of (%d,%d)=%s",
					ErrEdgeMismatch, x, y, id.Mnemonic(), x+1, y, g.At(x+1, y).Mnemonic())
			}
			if y+1 < h && id.Has(Bottom) != g.At(x, y+1).Has(Top) {
				return fmt.Errorf("%w: bottom of (%d,%d)=%s vs top of (%d,%d)=%s",
					ErrEdgeMismatch, x, y, id.Mnemonic(), x, y+1, g.At(x, y+1).Mnemonic())
			}
		}
	}
	return nil
}

// Histogram counts how often each identifier occurs.
func (g *Grid) Histogram() [NumTileIDs]int {
	var hist [NumTileIDs]int
	g.cells.ForEach(func(_, _ int, id TileID) {
		hist[id&0x0F]++
	})
	return hist
}

// MarshalText encodes the grid as one hex digit per cell and one line per row.
func (g *Grid) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow((g.Width() + 1) * g.Height())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			buf.WriteString(g.At(x, y).String())
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ParseGrid decodes the MarshalText format. Blank lines and lines starting
// with '#' are ignored; every remaining row must have the same length.
// The edge-matching invariant is not checked; use Verify.
func ParseGrid(data []byte) (*Grid, error) {
	var rows []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grid: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: grid text has no rows", ErrInvalidDimension)
	}

	width := len(rows[0])
	g := NewGrid(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", y, len(row), width)
		}
		for x, ch := range row {
			v, err := strconv.ParseUint(string(ch), 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid tile id %q at (%d,%d)", ch, x, y)
			}
			g.cells.Set(x, y, TileID(v))
		}
	}
	return g, nil
}
