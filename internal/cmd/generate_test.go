package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/MeKo-Tech/wangtiles/internal/preview"
	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRenderSettings() renderSettings {
	return renderSettings{
		Shader:          "band",
		ActiveColor:     "#ff0000",
		BackgroundColor: "#ffffff",
		OutlineColor:    "#000000",
		Quantize:        "clamp",
		TileSize:        render.DefaultTileSize,
		Gamma:           true,
	}
}

func TestRenderSettingsOptions(t *testing.T) {
	s := defaultRenderSettings()
	s.Outline = true
	s.OutlineColor = "0f0"
	s.Quantize = "wrap"

	opts, mode, err := s.options()
	require.NoError(t, err)
	assert.Equal(t, rgba.QuantizeWrap, mode)
	assert.Equal(t, render.DefaultTileSize, opts.TileSize)
	assert.True(t, opts.Gamma)
	assert.True(t, opts.Outline)
	assert.Equal(t, rgba.Green, opts.OutlineColor)
	require.NotNil(t, opts.Shader)
	assert.Equal(t, rgba.Red, opts.Shader(wang.TileID(15), 0, 0))
	assert.Equal(t, rgba.White, opts.Shader(wang.TileID(0), 0, 0))
}

func TestRenderSettingsOptionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*renderSettings)
	}{
		{"bad active color", func(s *renderSettings) { s.ActiveColor = "#zzzzzz" }},
		{"bad background color", func(s *renderSettings) { s.BackgroundColor = "red-ish" }},
		{"bad outline color", func(s *renderSettings) { s.OutlineColor = "#12" }},
		{"bad quantize", func(s *renderSettings) { s.Quantize = "round" }},
		{"unknown shader", func(s *renderSettings) { s.Shader = "plasma" }},
		{"zero tile size", func(s *renderSettings) { s.TileSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultRenderSettings()
			tt.modify(&s)
			_, _, err := s.options()
			assert.Error(t, err)
		})
	}
}

func TestGeneratorConfig(t *testing.T) {
	s := generateSettings{
		Render:    defaultRenderSettings(),
		OutputDir: t.TempDir(),
		Format:    "png",
		Width:     5,
		Height:    3,
		Count:     1,
		Thumbnail: 16,
	}

	cfg, err := s.generatorConfig()
	require.NoError(t, err)
	assert.Equal(t, export.FormatPNG, cfg.Format)
	assert.Equal(t, "band", cfg.ShaderName)
	assert.Equal(t, 16, cfg.Thumbnail)
	assert.Nil(t, cfg.Grid)

	gen, err := pipeline.NewGenerator(cfg)
	require.NoError(t, err)
	res, err := gen.Generate(context.Background(), pipeline.Job{Seed: 3})
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
	assert.FileExists(t, res.ThumbnailPath)
}

func TestGeneratorConfigGridIn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.grid.txt")
	require.NoError(t, os.WriteFile(path, []byte("3a\n05\n"), 0o644))

	s := generateSettings{Render: defaultRenderSettings(), OutputDir: dir, Count: 1, GridIn: path}
	cfg, err := s.generatorConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Grid)
	assert.Equal(t, 2, cfg.Grid.Width())

	s.Count = 2
	_, err = s.generatorConfig()
	assert.Error(t, err)
}

func TestGeneratorConfigErrors(t *testing.T) {
	base := generateSettings{Render: defaultRenderSettings(), Width: 2, Height: 2, Count: 1}

	tests := []struct {
		name   string
		modify func(*generateSettings)
	}{
		{"unknown format", func(s *generateSettings) { s.Format = "gif" }},
		{"zero count", func(s *generateSettings) { s.Count = 0 }},
		{"negative thumbnail", func(s *generateSettings) { s.Thumbnail = -1 }},
		{"missing grid file", func(s *generateSettings) { s.GridIn = filepath.Join(t.TempDir(), "none.txt") }},
		{"bad render settings", func(s *generateSettings) { s.Render.Quantize = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.modify(&s)
			_, err := s.generatorConfig()
			assert.Error(t, err)
		})
	}
}

func TestInspectGrid(t *testing.T) {
	grid := wang.AtlasGrid()

	var out bytes.Buffer
	require.NoError(t, inspectGrid(&out, grid))

	text := out.String()
	assert.Contains(t, text, "grid: 4x4 (16 tiles)")
	assert.Contains(t, text, "edges: ok")
	assert.Contains(t, text, "B-T-")
	assert.Contains(t, text, string(preview.Glyph(15)))
}

func TestInspectGridMismatch(t *testing.T) {
	grid, err := wang.ParseGrid([]byte("20\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	err = inspectGrid(&out, grid)
	assert.True(t, errors.Is(err, wang.ErrEdgeMismatch))
	assert.Contains(t, out.String(), "MISMATCH")
}

func TestInspectTileset(t *testing.T) {
	grid, err := wang.GenerateSeeded(3, 2, 8)
	require.NoError(t, err)
	opts := render.DefaultOptions()
	opts.TileSize = 4
	buf, err := render.Render(grid, opts)
	require.NoError(t, err)
	text, err := grid.MarshalText()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grid.mbtiles")
	_, err = (&export.Exporter{}).WriteMBTiles(path, buf, export.TilesetInfo{
		Name:     "grid",
		TileSize: 4,
		Grid:     mbtiles.GridInfo{Shader: "band", Text: string(text), Seed: 8},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, inspectTileset(&out, path))
	assert.Contains(t, out.String(), "tileset: grid (png)")
	assert.Contains(t, out.String(), "tiles: 6")
	assert.Contains(t, out.String(), "edges: ok")
}

func TestPreviewPlain(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"preview", "--plain", "--atlas"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	want := strings.Join(preview.Lines(wang.AtlasGrid()), "\n") + "\n"
	assert.Equal(t, want, out.String())
}
