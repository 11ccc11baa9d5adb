//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"syscall/js"

	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// RenderRequest is a grid render request from JS.
type RenderRequest struct {
	Shader   string `json:"shader"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	TileSize int    `json:"tile"`
	Seed     int64  `json:"seed"`
	Gamma    *bool  `json:"gamma"`
	Outline  bool   `json:"outline"`
	Atlas    bool   `json:"atlas"`
}

const (
	maxCells    = 256 * 256
	maxPixels   = 4096 * 4096
	maxTileSize = 4096
)

func (r RenderRequest) grid() (*wang.Grid, error) {
	if r.Atlas {
		return wang.AtlasGrid(), nil
	}
	if r.Width > 0 && r.Height > 0 && r.Width > maxCells/r.Height {
		return nil, fmt.Errorf("grid %dx%d exceeds %d cells", r.Width, r.Height, maxCells)
	}
	return wang.GenerateSeeded(r.Width, r.Height, r.Seed)
}

// renderGrid renders the requested grid and returns the PNG bytes as a
// Uint8Array.
func renderGrid(this js.Value, args []js.Value) interface{} {
	req, err := parseRequest(args)
	if err != nil {
		return errorResult(err)
	}

	if req.TileSize <= 0 || req.TileSize > maxTileSize {
		return errorResult(fmt.Errorf("tile size must be in 1..%d, got %d", maxTileSize, req.TileSize))
	}
	grid, err := req.grid()
	if err != nil {
		return errorResult(err)
	}
	if grid.Width()*grid.Height() > maxPixels/(req.TileSize*req.TileSize) {
		return errorResult(fmt.Errorf("image exceeds %d pixels", maxPixels))
	}

	name := req.Shader
	if name == "" {
		name = shader.Default
	}
	fn, err := shader.New(name, shader.DefaultPalette())
	if err != nil {
		return errorResult(err)
	}

	opts := render.DefaultOptions()
	opts.Shader = fn
	opts.TileSize = req.TileSize
	opts.Outline = req.Outline || req.Atlas
	if req.Gamma != nil {
		opts.Gamma = *req.Gamma
	}

	buf, err := render.Render(grid, opts)
	if err != nil {
		return errorResult(err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, buf.Width(), buf.Height()))
	buf.ForEach(func(x, y int, c rgba.Color) {
		img.SetNRGBA(x, y, c.NRGBA(rgba.QuantizeClamp))
	})

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return errorResult(err)
	}

	arr := js.Global().Get("Uint8Array").New(out.Len())
	js.CopyBytesToJS(arr, out.Bytes())
	return arr
}

// gridText returns the identifier grid of the request as text.
func gridText(this js.Value, args []js.Value) interface{} {
	req, err := parseRequest(args)
	if err != nil {
		return errorResult(err)
	}
	grid, err := req.grid()
	if err != nil {
		return errorResult(err)
	}
	text, err := grid.MarshalText()
	if err != nil {
		return errorResult(err)
	}
	return string(text)
}

func parseRequest(args []js.Value) (RenderRequest, error) {
	req := RenderRequest{Width: 32, Height: 18, TileSize: render.DefaultTileSize}
	if len(args) < 1 {
		return req, fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return req, fmt.Errorf("failed to parse request: %v", err)
	}
	return req, nil
}

func errorResult(err error) interface{} {
	return map[string]interface{}{"error": err.Error()}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("wangtilesRender", js.FuncOf(renderGrid))
	js.Global().Set("wangtilesGrid", js.FuncOf(gridText))

	fmt.Println("Wangtiles WASM module loaded")
	<-c
}
