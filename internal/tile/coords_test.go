package tile

import (
	"testing"
)

func TestCoordsString(t *testing.T) {
	tests := []struct {
		coords   Coords
		expected string
	}{
		{Coords{Z: 5, X: 31, Y: 17}, "z5_x31_y17"},
		{Coords{Z: 0, X: 0, Y: 0}, "z0_x0_y0"},
		{Coords{Z: 2, X: 3, Y: 1}, "z2_x3_y1"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.coords.String(); got != tt.expected {
				t.Errorf("String() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestCoordsPath(t *testing.T) {
	coords := Coords{Z: 5, X: 31, Y: 17}

	tests := []struct {
		ext      string
		expected string
	}{
		{"png", "z5_x31_y17.png"},
		{"ppm", "z5_x31_y17.ppm"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := coords.Path(tt.ext); got != tt.expected {
				t.Errorf("Path(%s) = %s, want %s", tt.ext, got, tt.expected)
			}
		})
	}
}

func TestParseCoords(t *testing.T) {
	c, err := ParseCoords("z5_x31_y17")
	if err != nil {
		t.Fatalf("ParseCoords failed: %v", err)
	}
	if c != NewCoords(5, 31, 17) {
		t.Errorf("ParseCoords = %+v", c)
	}

	for _, bad := range []string{"", "5/31/17", "z1_x2_y0", "z30_x0_y0"} {
		if _, err := ParseCoords(bad); err == nil {
			t.Errorf("ParseCoords(%q) succeeded, want error", bad)
		}
	}
}

func TestTMSY(t *testing.T) {
	if got := NewCoords(3, 0, 0).TMSY(); got != 7 {
		t.Errorf("TMSY = %d, want 7", got)
	}
	if got := NewCoords(0, 0, 0).TMSY(); got != 0 {
		t.Errorf("TMSY = %d, want 0", got)
	}
}

func TestZoomForGrid(t *testing.T) {
	tests := []struct {
		w, h int
		want uint32
	}{
		{1, 1, 0},
		{2, 1, 1},
		{4, 4, 2},
		{5, 3, 3},
		{32, 18, 5},
		{33, 2, 6},
	}
	for _, tt := range tests {
		got, err := ZoomForGrid(tt.w, tt.h)
		if err != nil {
			t.Fatalf("ZoomForGrid(%d,%d) failed: %v", tt.w, tt.h, err)
		}
		if got != tt.want {
			t.Errorf("ZoomForGrid(%d,%d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}

	if _, err := ZoomForGrid(0, 3); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestGridRange(t *testing.T) {
	r, err := NewGridRange(3, 2)
	if err != nil {
		t.Fatalf("NewGridRange failed: %v", err)
	}
	if r.Z != 2 || r.Count() != 6 {
		t.Fatalf("range = %+v", r)
	}

	var seen []Coords
	r.ForEach(func(c Coords) { seen = append(seen, c) })
	if len(seen) != 6 {
		t.Fatalf("ForEach visited %d tiles", len(seen))
	}
	if seen[0] != NewCoords(2, 0, 0) || seen[5] != NewCoords(2, 2, 1) {
		t.Errorf("unexpected order: %v", seen)
	}

	if x, y, ok := r.Cell(NewCoords(2, 1, 1)); !ok || x != 1 || y != 1 {
		t.Errorf("Cell = %d,%d,%v", x, y, ok)
	}
	if _, _, ok := r.Cell(NewCoords(2, 3, 0)); ok {
		t.Error("Cell outside the grid width should fail")
	}
	if r.Contains(NewCoords(3, 0, 0)) {
		t.Error("Contains must reject other zoom levels")
	}
}

func TestGridRangeBounds(t *testing.T) {
	r, err := NewGridRange(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	b := r.Bounds()
	if b[0] != -180 || b[2] != 180 {
		t.Errorf("zoom 0 bounds lon = %v..%v", b[0], b[2])
	}

	r, _ = NewGridRange(4, 2)
	b = r.Bounds()
	if b[0] >= b[2] || b[1] >= b[3] {
		t.Errorf("bounds not ordered: %v", b)
	}
	// Two of four rows: the northern half of the world.
	if b[1] < -0.0001 || b[1] > 0.0001 {
		t.Errorf("minLat = %v, want equator", b[1])
	}
	lon, lat := r.Center()
	if lon != 0 || lat <= 0 {
		t.Errorf("center = %v,%v", lon, lat)
	}
}
