package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// renderSettings are the shading flags shared by generate, atlas and serve.
type renderSettings struct {
	Shader          string
	ActiveColor     string
	BackgroundColor string
	OutlineColor    string
	Quantize        string
	TileSize        int
	Gamma           bool
	Outline         bool
}

// addRenderFlags registers the shading flags on cmd and binds them under
// prefix in viper.
func addRenderFlags(cmd *cobra.Command, prefix string, outline bool) {
	cmd.Flags().String("shader", shader.Default, fmt.Sprintf("Shader (%s)", strings.Join(shader.Names(), ", ")))
	cmd.Flags().Int("tile-size", render.DefaultTileSize, "Tile size in pixels")
	cmd.Flags().Bool("gamma", true, "Apply gamma correction (1/2.2) to every pixel")
	cmd.Flags().Bool("outline", outline, "Draw a 1-pixel border around every tile")
	cmd.Flags().String("active-color", rgba.Red.Hex(), "Color of active edge bands")
	cmd.Flags().String("background-color", rgba.White.Hex(), "Background color")
	cmd.Flags().String("outline-color", rgba.Black.Hex(), "Tile outline color")
	cmd.Flags().String("quantize", rgba.QuantizeClamp.String(), "Channel quantization: clamp or wrap")

	bindFlags(cmd, []flagBinding{
		{prefix + ".shader", "shader"},
		{prefix + ".tile_size", "tile-size"},
		{prefix + ".gamma", "gamma"},
		{prefix + ".outline", "outline"},
		{prefix + ".active_color", "active-color"},
		{prefix + ".background_color", "background-color"},
		{prefix + ".outline_color", "outline-color"},
		{prefix + ".quantize", "quantize"},
	})
}

func readRenderSettings(prefix string) renderSettings {
	return renderSettings{
		Shader:          viper.GetString(prefix + ".shader"),
		TileSize:        viper.GetInt(prefix + ".tile_size"),
		Gamma:           viper.GetBool(prefix + ".gamma"),
		Outline:         viper.GetBool(prefix + ".outline"),
		ActiveColor:     viper.GetString(prefix + ".active_color"),
		BackgroundColor: viper.GetString(prefix + ".background_color"),
		OutlineColor:    viper.GetString(prefix + ".outline_color"),
		Quantize:        viper.GetString(prefix + ".quantize"),
	}
}

func (s renderSettings) palette() (shader.Palette, error) {
	active, err := rgba.ParseHex(s.ActiveColor)
	if err != nil {
		return shader.Palette{}, fmt.Errorf("--active-color: %w", err)
	}
	background, err := rgba.ParseHex(s.BackgroundColor)
	if err != nil {
		return shader.Palette{}, fmt.Errorf("--background-color: %w", err)
	}
	return shader.Palette{Active: active, Background: background}, nil
}

// options builds the render options and quantization mode from s.
func (s renderSettings) options() (render.Options, rgba.QuantizeMode, error) {
	mode, err := rgba.ParseQuantizeMode(s.Quantize)
	if err != nil {
		return render.Options{}, mode, err
	}
	if s.TileSize <= 0 {
		return render.Options{}, mode, fmt.Errorf("--tile-size must be positive, got %d", s.TileSize)
	}
	p, err := s.palette()
	if err != nil {
		return render.Options{}, mode, err
	}
	outline, err := rgba.ParseHex(s.OutlineColor)
	if err != nil {
		return render.Options{}, mode, fmt.Errorf("--outline-color: %w", err)
	}
	fn, err := shader.New(s.Shader, p)
	if err != nil {
		return render.Options{}, mode, err
	}

	return render.Options{
		Shader:       fn,
		OutlineColor: outline,
		TileSize:     s.TileSize,
		Gamma:        s.Gamma,
		Outline:      s.Outline,
	}, mode, nil
}

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(cmd *cobra.Command, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}
