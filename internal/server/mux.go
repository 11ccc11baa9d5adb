package server

import (
	"net/http"
)

// NewMux wires the HTTP routes. tiles may be nil when no tileset is served.
func NewMux(grids *OnDemandGrids, tiles *MBTilesHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", grids.StatusHandler())

	for _, ext := range []string{"png", "ppm", "bmp", "tiff"} {
		mux.Handle("/grid."+ext, WithCORS(grids.GridHandler()))
		mux.Handle("/atlas."+ext, WithCORS(grids.AtlasHandler()))
	}
	mux.Handle("/grid.txt", WithCORS(grids.GridTextHandler()))

	if tiles != nil {
		mux.Handle("/tiles/", WithCORS(tiles.Handler()))
		mux.Handle("/tileset/grid.txt", WithCORS(tiles.MetadataHandler()))
	}

	return mux
}

// WithCORS allows browser clients on other origins to fetch images.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
