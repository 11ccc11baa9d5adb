package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/MeKo-Tech/wangtiles/internal/worker"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate Wang tile grids and render them",
	Long: `Generate a random edge-matched grid of Wang tiles and render it to an image.

With --count greater than 1, a batch of grids is generated in parallel, one per
seed starting at --seed.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Int("width", 32, "Grid width in tiles")
	generateCmd.Flags().Int("height", 18, "Grid height in tiles")
	generateCmd.Flags().Int64("seed", 0, "Random seed for the edge labels")
	generateCmd.Flags().String("name", pipeline.DefaultName, "Base name of the output file")
	generateCmd.Flags().String("format", string(export.FormatPPM), "Output format: ppm, png, bmp, tiff or mbtiles")
	generateCmd.Flags().Int("thumbnail", 0, "Also write a PNG thumbnail with this longest side (0 disables)")
	generateCmd.Flags().Bool("grid-out", false, "Write the tile identifier grid as text next to the image")
	generateCmd.Flags().String("grid-in", "", "Render a saved identifier grid instead of generating one")
	generateCmd.Flags().Bool("force", false, "Overwrite existing outputs")

	// Batch generation flags
	generateCmd.Flags().Int("count", 1, "Number of grids to generate, one per seed")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	generateCmd.Flags().Bool("progress", true, "Show progress bar during batch generation")
	generateCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some grids fail")

	bindFlags(generateCmd, []flagBinding{
		{"generate.width", "width"},
		{"generate.height", "height"},
		{"generate.seed", "seed"},
		{"generate.name", "name"},
		{"generate.format", "format"},
		{"generate.thumbnail", "thumbnail"},
		{"generate.grid_out", "grid-out"},
		{"generate.grid_in", "grid-in"},
		{"generate.force", "force"},
		{"generate.count", "count"},
		{"generate.workers", "workers"},
		{"generate.progress", "progress"},
		{"generate.allow_failures", "allow-failures"},
	})
	addRenderFlags(generateCmd, "generate", false)
}

// generateSettings holds the generate flags after config and env resolution.
type generateSettings struct {
	Render        renderSettings
	OutputDir     string
	Name          string
	Format        string
	GridIn        string
	Seed          int64
	Width         int
	Height        int
	Thumbnail     int
	Count         int
	Workers       int
	GridOut       bool
	Force         bool
	Progress      bool
	AllowFailures bool
}

func readGenerateSettings() generateSettings {
	return generateSettings{
		Render:        readRenderSettings("generate"),
		OutputDir:     viper.GetString("output-dir"),
		Name:          viper.GetString("generate.name"),
		Format:        viper.GetString("generate.format"),
		GridIn:        viper.GetString("generate.grid_in"),
		Seed:          viper.GetInt64("generate.seed"),
		Width:         viper.GetInt("generate.width"),
		Height:        viper.GetInt("generate.height"),
		Thumbnail:     viper.GetInt("generate.thumbnail"),
		Count:         viper.GetInt("generate.count"),
		Workers:       viper.GetInt("generate.workers"),
		GridOut:       viper.GetBool("generate.grid_out"),
		Force:         viper.GetBool("generate.force"),
		Progress:      viper.GetBool("generate.progress"),
		AllowFailures: viper.GetBool("generate.allow_failures"),
	}
}

// generatorConfig validates s and converts it into a pipeline configuration.
func (s generateSettings) generatorConfig() (pipeline.Config, error) {
	format, err := export.ParseFormat(s.Format)
	if err != nil {
		return pipeline.Config{}, err
	}
	opts, mode, err := s.Render.options()
	if err != nil {
		return pipeline.Config{}, err
	}
	if s.Count < 1 {
		return pipeline.Config{}, fmt.Errorf("--count must be at least 1, got %d", s.Count)
	}
	if s.Thumbnail < 0 {
		return pipeline.Config{}, fmt.Errorf("--thumbnail must not be negative")
	}

	cfg := pipeline.Config{
		Logger:     logger,
		OutputDir:  s.OutputDir,
		Name:       s.Name,
		ShaderName: s.Render.Shader,
		Format:     format,
		Render:     opts,
		Width:      s.Width,
		Height:     s.Height,
		Thumbnail:  s.Thumbnail,
		Quantize:   mode,
		GridOut:    s.GridOut,
	}

	if s.GridIn != "" {
		if s.Count > 1 {
			return pipeline.Config{}, fmt.Errorf("--grid-in renders a single grid; it cannot be combined with --count")
		}
		grid, err := pipeline.LoadGrid(s.GridIn)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.Grid = grid
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	s := readGenerateSettings()
	cfg, err := s.generatorConfig()
	if err != nil {
		return err
	}

	gen, err := pipeline.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	if s.Count > 1 {
		return runBatchGenerate(gen, s)
	}
	return runSingleGenerate(gen, s)
}

func runSingleGenerate(gen *pipeline.Generator, s generateSettings) error {
	logger.Info("Starting grid generation",
		"grid", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"seed", s.Seed,
		"shader", s.Render.Shader,
		"tile_size", s.Render.TileSize,
		"format", s.Format,
		"grid_in", s.GridIn,
		"output_dir", s.OutputDir,
	)

	res, err := gen.Generate(context.Background(), pipeline.Job{Seed: s.Seed, Force: s.Force})
	if err != nil {
		return fmt.Errorf("failed to generate grid: %w", err)
	}
	if res.Skipped {
		return nil
	}

	logFields := []any{"path", res.Path, "size", humanize.Bytes(uint64(res.Bytes))}
	if res.ThumbnailPath != "" {
		logFields = append(logFields, "thumbnail", res.ThumbnailPath)
	}
	if res.GridPath != "" {
		logFields = append(logFields, "grid", res.GridPath)
	}
	logger.Info("Grid generated", logFields...)
	return nil
}

func runBatchGenerate(gen *pipeline.Generator, s generateSettings) error {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("Starting batch grid generation",
		"grid", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"seeds", fmt.Sprintf("%d-%d", s.Seed, s.Seed+int64(s.Count)-1),
		"workers", workers,
		"format", s.Format,
		"output_dir", s.OutputDir,
	)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	tasks := worker.SeedTasks(s.Name, s.Seed, s.Count, s.Force)
	progress := worker.NewProgress(len(tasks), s.Progress)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Grid generation failed", "name", r.Task.Job.Name, "seed", r.Task.Job.Seed, "error", r.Err)
			continue
		}
		progress.Record(r.Output)
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if s.AllowFailures {
			logger.Warn("Some grids failed to generate, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d grids failed to generate", failedCount)
	}
	return nil
}
