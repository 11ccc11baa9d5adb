// Package shader turns a tile identifier and a local coordinate inside the
// tile into a color.
//
// Local coordinates (u, v) lie in [-1, 1] with the origin at the tile center,
// +u toward the right edge and +v toward the top edge.
package shader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// Func shades one point of a tile. Implementations must be pure.
type Func func(id wang.TileID, u, v float64) rgba.Color

// Palette holds the two colors a band shader selects between.
type Palette struct {
	Active     rgba.Color
	Background rgba.Color
}

// DefaultPalette paints active bands red on a white background.
func DefaultPalette() Palette {
	return Palette{Active: rgba.Red, Background: rgba.White}
}

// Band paints a triangular band reaching in from every active edge, using
// ClassifyInclusive for region ownership.
func Band(p Palette) Func {
	return band(ClassifyInclusive, p)
}

// BandStrict is Band with ClassifyStrict. Diagonal seams always show the
// background color.
func BandStrict(p Palette) Func {
	return band(ClassifyStrict, p)
}

func band(classify Classifier, p Palette) Func {
	return func(id wang.TileID, u, v float64) rgba.Color {
		active := 0.0
		if edge, ok := classify(u, v); ok && id.Has(edge) {
			active = 1
		}
		return rgba.Lerp(p.Active, p.Background, active)
	}
}

// Factory builds a shader for a palette.
type Factory func(Palette) Func

// Default is the shader used when none is configured.
const Default = "band"

var registry = map[string]Factory{
	"band":        Band,
	"band-strict": BandStrict,
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown shader %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// New looks up name and builds it with p.
func New(name string, p Palette) (Func, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f(p), nil
}

// Names lists the registered shaders in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
