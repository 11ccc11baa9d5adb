package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/MeKo-Tech/wangtiles/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Render grids over HTTP on demand (optionally serving an MBTiles tileset)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("cache-dir", "", "Cache rendered images in this directory (empty disables caching)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for rendered images")
	serveCmd.Flags().String("mbtiles", "", "Serve tiles from this MBTiles file under /tiles/")

	serveCmd.Flags().Int("width", 32, "Default grid width in tiles")
	serveCmd.Flags().Int("height", 18, "Default grid height in tiles")
	serveCmd.Flags().Int64("seed", 0, "Default random seed")
	serveCmd.Flags().Int("max-cells", 256*256, "Largest grid (width*height) a request may ask for")
	serveCmd.Flags().Int("max-pixels", 4096*4096, "Largest image (in pixels) a request may ask for")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent renders (default: number of CPUs)")
	serveCmd.Flags().Duration("render-timeout", 30*time.Second, "Timeout per render")

	bindFlags(serveCmd, []flagBinding{
		{"serve.addr", "addr"},
		{"serve.cache_dir", "cache-dir"},
		{"serve.cache_control", "cache-control"},
		{"serve.mbtiles", "mbtiles"},
		{"serve.width", "width"},
		{"serve.height", "height"},
		{"serve.seed", "seed"},
		{"serve.max_cells", "max-cells"},
		{"serve.max_pixels", "max-pixels"},
		{"serve.max_concurrent_renders", "max-concurrent-renders"},
		{"serve.render_timeout", "render-timeout"},
	})
	addRenderFlags(serveCmd, "serve", false)
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	rs := readRenderSettings("serve")
	// Shader, gamma and outline are chosen per request.
	opts, mode, err := rs.options()
	if err != nil {
		return err
	}
	p, err := rs.palette()
	if err != nil {
		return err
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent_renders")
	cacheDir := viper.GetString("serve.cache_dir")

	grids := server.NewOnDemandGrids(server.OnDemandGridsConfig{
		CacheDir:             cacheDir,
		CacheControl:         viper.GetString("serve.cache_control"),
		Palette:              p,
		OutlineColor:         opts.OutlineColor,
		Quantize:             mode,
		Width:                viper.GetInt("serve.width"),
		Height:               viper.GetInt("serve.height"),
		TileSize:             opts.TileSize,
		Seed:                 viper.GetInt64("serve.seed"),
		MaxCells:             viper.GetInt("serve.max_cells"),
		MaxPixels:            viper.GetInt("serve.max_pixels"),
		MaxConcurrentRenders: maxConc,
		RenderTimeout:        viper.GetDuration("serve.render_timeout"),
	}, logger)

	var tiles *server.MBTilesHandler
	if path := viper.GetString("serve.mbtiles"); path != "" {
		tiles, err = server.NewMBTilesHandler(server.MBTilesConfig{MBTilesPath: path}, logger)
		if err != nil {
			return fmt.Errorf("failed to open tileset: %w", err)
		}
		defer tiles.Close()
		meta := tiles.Metadata()
		logger.Info("serving tileset", "path", path, "name", meta.Name,
			"grid", fmt.Sprintf("%dx%d", meta.Grid.Width, meta.Grid.Height), "zoom", meta.MaxZoom)
	}

	logger.Info("grid server listening",
		"addr", addr,
		"cache_dir", cacheDir,
		"max_concurrent_renders", maxConc,
	)

	srv := &http.Server{Addr: addr, Handler: server.NewMux(grids, tiles), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}
