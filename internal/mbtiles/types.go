// Package mbtiles stores rendered Wang grids as MBTiles databases, one PNG
// tile per grid cell.
package mbtiles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTileNotFound is returned by Reader.ReadTile for an empty slot.
var ErrTileNotFound = errors.New("tile not found")

// ErrNoGrid is returned by Reader.Grid when the metadata carries no grid.
var ErrNoGrid = errors.New("tileset has no grid")

// Grid metadata keys. They sit next to the standard MBTiles keys.
const (
	keyGridWidth  = "wang_grid_width"
	keyGridHeight = "wang_grid_height"
	keyTileSize   = "wang_tile_size"
	keySeed       = "wang_seed"
	keyShader     = "wang_shader"
	keyGrid       = "wang_grid"
)

// GridInfo describes the grid a tileset was rendered from.
type GridInfo struct {
	Shader   string
	Text     string // identifier grid, one hex digit per cell
	Width    int
	Height   int
	TileSize int
	Seed     int64
}

// Metadata contains MBTiles metadata fields.
type Metadata struct {
	Name        string
	Format      string // png
	Description string
	Type        string // baselayer or overlay
	Version     string
	Grid        GridInfo
	Bounds      [4]float64
	Center      [3]float64
	MinZoom     int
	MaxZoom     int
}

// ToMap converts Metadata to name/value rows for the metadata table.
func (m Metadata) ToMap() map[string]string {
	result := map[string]string{
		"minzoom": strconv.Itoa(m.MinZoom),
		"maxzoom": strconv.Itoa(m.MaxZoom),
	}

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.Center != [3]float64{} {
		result["center"] = fmt.Sprintf("%.6f,%.6f,%d",
			m.Center[0], m.Center[1], int(m.Center[2]))
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Type != "" {
		result["type"] = m.Type
	}
	if m.Version != "" {
		result["version"] = m.Version
	}

	g := m.Grid
	if g.Width > 0 && g.Height > 0 {
		result[keyGridWidth] = strconv.Itoa(g.Width)
		result[keyGridHeight] = strconv.Itoa(g.Height)
		result[keyTileSize] = strconv.Itoa(g.TileSize)
		result[keySeed] = strconv.FormatInt(g.Seed, 10)
	}
	if g.Shader != "" {
		result[keyShader] = g.Shader
	}
	if g.Text != "" {
		result[keyGrid] = g.Text
	}

	return result
}

// FromMap parses metadata rows. Unknown keys and malformed numbers are ignored.
func FromMap(rows map[string]string) Metadata {
	meta := Metadata{
		Name:        rows["name"],
		Format:      rows["format"],
		Description: rows["description"],
		Type:        rows["type"],
		Version:     rows["version"],
	}

	meta.MinZoom = atoi(rows["minzoom"])
	meta.MaxZoom = atoi(rows["maxzoom"])

	// "minLon,minLat,maxLon,maxLat"
	if parts := strings.Split(rows["bounds"], ","); len(parts) == 4 {
		for i, part := range parts {
			if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
				meta.Bounds[i] = f
			}
		}
	}
	// "lon,lat,zoom"
	if parts := strings.Split(rows["center"], ","); len(parts) == 3 {
		for i, part := range parts {
			if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
				meta.Center[i] = f
			}
		}
	}

	meta.Grid = GridInfo{
		Width:    atoi(rows[keyGridWidth]),
		Height:   atoi(rows[keyGridHeight]),
		TileSize: atoi(rows[keyTileSize]),
		Shader:   rows[keyShader],
		Text:     rows[keyGrid],
	}
	if v, err := strconv.ParseInt(rows[keySeed], 10, 64); err == nil {
		meta.Grid.Seed = v
	}

	return meta
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
