package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT OUTPUT",
	Short: "Convert a rendered image between ppm, png, bmp and tiff",
	Long: `Convert an existing rendered image to another format. Formats are taken
from the file extensions. Use --thumbnail to shrink the image on the way.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().Int("thumbnail", 0, "Scale the image so its longest side is at most this many pixels (0 keeps the size)")

	bindFlags(convertCmd, []flagBinding{
		{"convert.thumbnail", "thumbnail"},
	})
}

func runConvert(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	input, output := args[0], args[1]
	format, err := export.FormatFromPath(output)
	if err != nil {
		return err
	}
	if format == export.FormatMBTiles {
		return fmt.Errorf("cannot convert an image to mbtiles; use generate --format mbtiles")
	}

	img, from, err := export.ReadImage(input)
	if err != nil {
		return err
	}
	img = export.Thumbnail(img, viper.GetInt("convert.thumbnail"))

	e := &export.Exporter{Logger: logger}
	size, err := e.WriteImage(output, img, format)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	logger.Info("Conversion complete", "input", input, "from", from, "output", output, "to", format,
		"size", humanize.Bytes(uint64(size)))
	return nil
}
