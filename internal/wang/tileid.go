// Package wang generates grids of Wang tile identifiers whose shared edges
// always agree.
//
// A tile identifier is a 4-bit value with one bit per edge. Bit positions are
// fixed: Bottom = 0, Right = 1, Top = 2, Left = 3. A set bit marks the edge as
// active. Two horizontally adjacent tiles match when the Right bit of the
// left tile equals the Left bit of the right tile; two vertically adjacent
// tiles match when the Bottom bit of the upper tile equals the Top bit of the
// lower one.
package wang

import (
	"fmt"
	"strings"
)

// Edge names one side of a tile and doubles as its bit position.
type Edge uint8

const (
	Bottom Edge = 0
	Right  Edge = 1
	Top    Edge = 2
	Left   Edge = 3
)

// Edges lists every edge in bit order.
var Edges = [4]Edge{Bottom, Right, Top, Left}

// String returns the edge name.
func (e Edge) String() string {
	switch e {
	case Bottom:
		return "bottom"
	case Right:
		return "right"
	case Top:
		return "top"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("Edge(%d)", uint8(e))
	}
}

// Opposite returns the edge a neighbor across e must match against.
func (e Edge) Opposite() Edge {
	return (e + 2) % 4
}

// NumTileIDs is the number of distinct identifiers.
const NumTileIDs = 16

// MaxTileID has all four edges active.
const MaxTileID TileID = NumTileIDs - 1

// TileID is a 4-bit tile identifier.
type TileID uint8

// Has reports whether edge e is active.
func (id TileID) Has(e Edge) bool {
	return (id>>e)&1 == 1
}

// With returns id with the bit for edge e set to on.
func (id TileID) With(e Edge, on bool) TileID {
	if on {
		return id | 1<<e
	}
	return id &^ (1 << e)
}

// Valid reports whether id fits in four bits.
func (id TileID) Valid() bool {
	return id <= MaxTileID
}

// String returns the single upper-case hex digit of id.
func (id TileID) String() string {
	return fmt.Sprintf("%X", uint8(id))
}

// Mnemonic spells the active edges in bit order, e.g. "B-T-" for id 5.
func (id TileID) Mnemonic() string {
	var sb strings.Builder
	for _, e := range Edges {
		if id.Has(e) {
			sb.WriteByte(strings.ToUpper(e.String())[0])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
