package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// DefaultName is the base file name of a single generated grid.
const DefaultName = "output"

// AtlasName is the base file name of the reference sheet.
const AtlasName = "tiles"

// Config configures a Generator.
type Config struct {
	Logger *slog.Logger
	// Grid replaces random generation with a fixed grid, e.g. one parsed
	// from a --grid-in file.
	Grid       *wang.Grid
	OutputDir  string
	Name       string
	ShaderName string
	Format     export.Format
	Render     render.Options
	Width      int
	Height     int
	// Thumbnail is the longest side of an extra PNG preview; 0 disables it.
	Thumbnail int
	Quantize  rgba.QuantizeMode
	// GridOut writes the identifier grid as text next to the image.
	GridOut bool
}

// Job is one grid to generate.
type Job struct {
	Name  string // base file name; Config.Name when empty
	Seed  int64
	Force bool
}

// Result describes the files written for a Job.
type Result struct {
	Grid          *wang.Grid
	Path          string
	ThumbnailPath string
	GridPath      string
	Bytes         int64
	Skipped       bool
}

// Generator wires grid generation, rendering and export into a single step.
type Generator struct {
	cfg      Config
	exporter *export.Exporter
}

// NewGenerator validates cfg and prepares a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Grid != nil {
		if err := cfg.Grid.Verify(); err != nil {
			return nil, fmt.Errorf("input grid is not edge-matched: %w", err)
		}
		cfg.Width, cfg.Height = cfg.Grid.Width(), cfg.Grid.Height()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", wang.ErrInvalidDimension, cfg.Width, cfg.Height)
	}
	if cfg.Render.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %d", wang.ErrInvalidDimension, cfg.Render.TileSize)
	}
	if cfg.Format == "" {
		cfg.Format = export.FormatPPM
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	return &Generator{
		cfg:      cfg,
		exporter: &export.Exporter{Logger: cfg.Logger, Mode: cfg.Quantize},
	}, nil
}

// OutputPath returns where a job named name is written.
func (g *Generator) OutputPath(name string) string {
	if name == "" {
		name = g.cfg.Name
	}
	return filepath.Join(g.cfg.OutputDir, name+"."+g.cfg.Format.Ext())
}

// Generate builds the grid for job.Seed, renders it and writes the output.
// An existing output is left untouched unless job.Force is set.
func (g *Generator) Generate(ctx context.Context, job Job) (Result, error) {
	path := g.OutputPath(job.Name)
	if !job.Force {
		if _, err := os.Stat(path); err == nil {
			g.log().Info("Output already exists; skipping", "path", path)
			return Result{Path: path, Skipped: true}, nil
		}
	}

	grid := g.cfg.Grid
	if grid == nil {
		g.log().Debug("Generating grid", "width", g.cfg.Width, "height", g.cfg.Height, "seed", job.Seed)
		var err error
		grid, err = wang.GenerateSeeded(g.cfg.Width, g.cfg.Height, job.Seed)
		if err != nil {
			return Result{}, fmt.Errorf("failed to generate grid: %w", err)
		}
	}

	return g.write(ctx, path, grid, job.Seed)
}

// GenerateAtlas renders the 4x4 sheet with every identifier once.
func (g *Generator) GenerateAtlas(ctx context.Context, force bool) (Result, error) {
	path := g.OutputPath(AtlasName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			g.log().Info("Atlas already exists; skipping", "path", path)
			return Result{Path: path, Skipped: true}, nil
		}
	}
	return g.write(ctx, path, wang.AtlasGrid(), 0)
}

func (g *Generator) write(ctx context.Context, path string, grid *wang.Grid, seed int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	g.log().Info("Rendering grid", "path", path, "grid", fmt.Sprintf("%dx%d", grid.Width(), grid.Height()), "tile_size", g.cfg.Render.TileSize)
	buf, err := render.Render(grid, g.cfg.Render)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render grid: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Grid: grid, Path: path}
	if g.cfg.Format == export.FormatMBTiles {
		res.Bytes, err = g.writeTileset(path, buf, grid, seed)
	} else {
		res.Bytes, err = g.exporter.WriteFile(path, buf, g.cfg.Format)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	if g.cfg.Thumbnail > 0 {
		res.ThumbnailPath = export.ThumbnailPath(path, export.FormatPNG)
		thumb := export.Thumbnail(export.ToImage(buf, g.cfg.Quantize), g.cfg.Thumbnail)
		if _, err := g.exporter.WriteImage(res.ThumbnailPath, thumb, export.FormatPNG); err != nil {
			return Result{}, fmt.Errorf("failed to write thumbnail: %w", err)
		}
	}

	if g.cfg.GridOut {
		text, err := grid.MarshalText()
		if err != nil {
			return Result{}, err
		}
		res.GridPath = GridPath(path)
		if _, err := g.exporter.WriteBytes(res.GridPath, text); err != nil {
			return Result{}, fmt.Errorf("failed to write grid text: %w", err)
		}
	}

	return res, nil
}

func (g *Generator) writeTileset(path string, buf *raster.Buffer[rgba.Color], grid *wang.Grid, seed int64) (int64, error) {
	text, err := grid.MarshalText()
	if err != nil {
		return 0, err
	}
	name := filepath.Base(path)
	return g.exporter.WriteMBTiles(path, buf, export.TilesetInfo{
		Name:     name[:len(name)-len(filepath.Ext(name))],
		TileSize: g.cfg.Render.TileSize,
		Grid: mbtiles.GridInfo{
			Seed:   seed,
			Shader: g.cfg.ShaderName,
			Text:   string(text),
		},
	})
}

// GridPath returns the text grid path stored next to an image.
func GridPath(imagePath string) string {
	return imagePath[:len(imagePath)-len(filepath.Ext(imagePath))] + ".grid.txt"
}

// LoadGrid reads a grid text file. Use Grid.Verify to check edge matching.
func LoadGrid(path string) (*wang.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid file: %w", err)
	}
	grid, err := wang.ParseGrid(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grid file %s: %w", path, err)
	}
	return grid, nil
}

func (g *Generator) log() *slog.Logger {
	if g.cfg.Logger != nil {
		return g.cfg.Logger
	}
	return slog.Default()
}
