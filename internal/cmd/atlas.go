package cmd

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var atlasCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Render the reference sheet of all 16 tiles",
	Long: `Render a 4x4 sheet where the tile in row r, column c has identifier r*4+c.
Outlines are drawn by default so the tile boundaries are visible.`,
	RunE: runAtlas,
}

func init() {
	rootCmd.AddCommand(atlasCmd)

	atlasCmd.Flags().String("format", string(export.FormatPPM), "Output format: ppm, png, bmp or tiff")
	atlasCmd.Flags().Int("thumbnail", 0, "Also write a PNG thumbnail with this longest side (0 disables)")
	atlasCmd.Flags().Bool("force", false, "Overwrite an existing sheet")

	bindFlags(atlasCmd, []flagBinding{
		{"atlas.format", "format"},
		{"atlas.thumbnail", "thumbnail"},
		{"atlas.force", "force"},
	})
	addRenderFlags(atlasCmd, "atlas", true)
}

func runAtlas(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	rs := readRenderSettings("atlas")
	format, err := export.ParseFormat(viper.GetString("atlas.format"))
	if err != nil {
		return err
	}
	if format == export.FormatMBTiles {
		return fmt.Errorf("the atlas is a single image; use generate --format mbtiles for tilesets")
	}
	opts, mode, err := rs.options()
	if err != nil {
		return err
	}

	gen, err := pipeline.NewGenerator(pipeline.Config{
		Logger:     logger,
		OutputDir:  viper.GetString("output-dir"),
		ShaderName: rs.Shader,
		Format:     format,
		Render:     opts,
		Width:      4,
		Height:     4,
		Thumbnail:  viper.GetInt("atlas.thumbnail"),
		Quantize:   mode,
	})
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	res, err := gen.GenerateAtlas(context.Background(), viper.GetBool("atlas.force"))
	if err != nil {
		return fmt.Errorf("failed to render atlas: %w", err)
	}
	if !res.Skipped {
		logger.Info("Atlas rendered", "path", res.Path, "size", humanize.Bytes(uint64(res.Bytes)))
	}
	return nil
}
