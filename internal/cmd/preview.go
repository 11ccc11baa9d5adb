package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/MeKo-Tech/wangtiles/internal/preview"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show a grid in the terminal",
	Long: `Draw a grid with box-drawing characters, one character per tile.
The view stays open until a key is pressed. With --plain the grid is printed
to stdout instead.`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().Int("width", 32, "Grid width in tiles")
	previewCmd.Flags().Int("height", 18, "Grid height in tiles")
	previewCmd.Flags().Int64("seed", 0, "Random seed for the edge labels")
	previewCmd.Flags().String("grid-in", "", "Show a saved identifier grid instead of generating one")
	previewCmd.Flags().Bool("atlas", false, "Show the 4x4 reference sheet")
	previewCmd.Flags().Bool("plain", false, "Print the grid as text instead of opening a terminal view")
	previewCmd.Flags().String("active-color", rgba.Red.Hex(), "Color of active edges")
	previewCmd.Flags().String("background-color", rgba.Black.Hex(), "Background color")

	bindFlags(previewCmd, []flagBinding{
		{"preview.width", "width"},
		{"preview.height", "height"},
		{"preview.seed", "seed"},
		{"preview.grid_in", "grid-in"},
		{"preview.atlas", "atlas"},
		{"preview.plain", "plain"},
		{"preview.active_color", "active-color"},
		{"preview.background_color", "background-color"},
	})
}

func runPreview(cmd *cobra.Command, args []string) error {
	grid, err := previewGrid()
	if err != nil {
		return err
	}

	if viper.GetBool("preview.plain") {
		for _, line := range preview.Lines(grid) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	}

	p, err := renderSettings{
		ActiveColor:     viper.GetString("preview.active_color"),
		BackgroundColor: viper.GetString("preview.background_color"),
	}.palette()
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	preview.Run(screen, grid, p)
	return nil
}

func previewGrid() (*wang.Grid, error) {
	switch {
	case viper.GetBool("preview.atlas"):
		return wang.AtlasGrid(), nil
	case viper.GetString("preview.grid_in") != "":
		return pipeline.LoadGrid(viper.GetString("preview.grid_in"))
	default:
		return wang.GenerateSeeded(viper.GetInt("preview.width"), viper.GetInt("preview.height"), viper.GetInt64("preview.seed"))
	}
}

