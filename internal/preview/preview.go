// Package preview draws a Wang grid in a terminal using box-drawing glyphs.
// Each active edge becomes a line running from the cell center to that edge,
// so matching neighbors join into continuous paths.
package preview

import (
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/gdamore/tcell/v2"
)

// glyphs is indexed by tile identifier.
var glyphs = [wang.NumTileIDs]rune{
	'·', '╷', '╶', '┌',
	'╵', '│', '└', '├',
	'╴', '┐', '─', '┬',
	'┘', '┤', '┴', '┼',
}

// Glyph returns the box-drawing rune for id. Invalid identifiers map to '?'.
func Glyph(id wang.TileID) rune {
	if !id.Valid() {
		return '?'
	}
	return glyphs[id]
}

// Lines renders grid as one string per row, top row first.
func Lines(grid *wang.Grid) []string {
	lines := make([]string, grid.Height())
	var sb strings.Builder
	for y := range grid.Height() {
		sb.Reset()
		for x := range grid.Width() {
			sb.WriteRune(Glyph(grid.At(x, y)))
		}
		lines[y] = sb.String()
	}
	return lines
}

// Styles returns the styles for empty cells and cells with active edges.
func Styles(p shader.Palette) (empty, active tcell.Style) {
	bg := toTcell(p.Background)
	empty = tcell.StyleDefault.Background(bg).Foreground(tcell.ColorGray)
	active = tcell.StyleDefault.Background(bg).Foreground(toTcell(p.Active))
	return empty, active
}

// Draw paints grid at the top-left corner of screen, clipped to its size.
// It does not call Show.
func Draw(screen tcell.Screen, grid *wang.Grid, p shader.Palette) {
	empty, active := Styles(p)
	sw, sh := screen.Size()

	grid.ForEach(func(x, y int, id wang.TileID) {
		if x >= sw || y >= sh {
			return
		}
		style := active
		if id == 0 {
			style = empty
		}
		screen.SetContent(x, y, Glyph(id), nil, style)
	})
}

// Run shows grid until a key is pressed.
func Run(screen tcell.Screen, grid *wang.Grid, p shader.Palette) {
	redraw := func() {
		screen.Clear()
		Draw(screen, grid, p)
		screen.Show()
	}
	redraw()

	for {
		switch screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			screen.Sync()
			redraw()
		case *tcell.EventKey:
			return
		}
	}
}

func toTcell(c rgba.Color) tcell.Color {
	r, g, b := c.Bytes(rgba.QuantizeClamp)
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
