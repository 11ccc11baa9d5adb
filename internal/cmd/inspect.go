package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/MeKo-Tech/wangtiles/internal/preview"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Verify a saved grid or tileset and print tile statistics",
	Long: `Read a grid text file (as written by generate --grid-out) or an MBTiles
tileset, check that every pair of neighbors agrees on its shared edge and print
how often each tile identifier occurs.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	if strings.EqualFold(filepath.Ext(path), ".mbtiles") {
		return inspectTileset(out, path)
	}

	grid, err := pipeline.LoadGrid(path)
	if err != nil {
		return err
	}
	return inspectGrid(out, grid)
}

// inspectGrid prints the size and histogram of grid and returns the first
// edge mismatch, if any.
func inspectGrid(w io.Writer, grid *wang.Grid) error {
	fmt.Fprintf(w, "grid: %dx%d (%s tiles)\n", grid.Width(), grid.Height(), humanize.Comma(int64(grid.Width()*grid.Height())))

	verr := grid.Verify()
	if verr != nil {
		fmt.Fprintf(w, "edges: MISMATCH (%v)\n", verr)
	} else {
		fmt.Fprintln(w, "edges: ok")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "id\tedges\tglyph\tcount\t")
	for id, n := range grid.Histogram() {
		tid := wang.TileID(id)
		fmt.Fprintf(tw, "%s\t%s\t%c\t%d\t\n", tid, tid.Mnemonic(), preview.Glyph(tid), n)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return verr
}

func inspectTileset(w io.Writer, path string) error {
	r, err := mbtiles.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	count, err := r.Count()
	if err != nil {
		return err
	}
	images, err := r.Images()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "tileset: %s (%s)\n", meta.Name, meta.Format)
	fmt.Fprintf(w, "zoom: %d, tiles: %s, distinct images: %d\n", meta.MaxZoom, humanize.Comma(int64(count)), images)
	if meta.Grid.Shader != "" {
		fmt.Fprintf(w, "shader: %s, seed: %d, tile size: %d\n", meta.Grid.Shader, meta.Grid.Seed, meta.Grid.TileSize)
	}

	grid, err := r.Grid()
	if errors.Is(err, mbtiles.ErrNoGrid) {
		fmt.Fprintln(w, "no grid stored")
		return nil
	}
	if err != nil {
		return err
	}
	return inspectGrid(w, grid)
}
