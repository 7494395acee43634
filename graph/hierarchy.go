package graph

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// TileLevel describes one level of the tile hierarchy.
type TileLevel struct {
	Level   uint32
	SizeDeg float64
	Name    string
}

// Levels is the fixed three-level hierarchy. The last entry is the local
// level that carries the full road network and the transit additions.
var Levels = []TileLevel{
	{Level: 0, SizeDeg: 4.0, Name: "highway"},
	{Level: 1, SizeDeg: 1.0, Name: "arterial"},
	{Level: 2, SizeDeg: 0.25, Name: "local"},
}

// LocalLevel returns the level transit tiles are built against.
func LocalLevel() uint32 { return Levels[len(Levels)-1].Level }

// Columns returns the number of tile columns at a level.
func Columns(level uint32) uint32 {
	return uint32(360.0 / Levels[level].SizeDeg)
}

// Rows returns the number of tile rows at a level.
func Rows(level uint32) uint32 {
	return uint32(180.0 / Levels[level].SizeDeg)
}

// TileBounds returns the geographic bounding box of a tile.
func TileBounds(id GraphId) orb.Bound {
	size := Levels[id.Level()].SizeDeg
	cols := Columns(id.Level())
	row := id.TileID() / cols
	col := id.TileID() % cols
	minLon := -180.0 + float64(col)*size
	minLat := -90.0 + float64(row)*size
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{minLon + size, minLat + size},
	}
}

// suffixDigits is the zero-padded width of a tile id in a file suffix,
// rounded up to a multiple of three so the digits group cleanly.
func suffixDigits(level uint32) int {
	maxID := Columns(level) * Rows(level)
	digits := len(strconv.FormatUint(uint64(maxID), 10))
	if rem := digits % 3; rem != 0 {
		digits += 3 - rem
	}
	return digits
}

// FileSuffix renders the relative tile path for an id, e.g.
// "2/000/756/425.gph". The object index is ignored.
func FileSuffix(id GraphId) string {
	digits := suffixDigits(id.Level())
	padded := fmt.Sprintf("%0*d", digits, id.TileID())
	parts := make([]string, 0, digits/3+1)
	parts = append(parts, strconv.FormatUint(uint64(id.Level()), 10))
	for i := 0; i < len(padded); i += 3 {
		parts = append(parts, padded[i:i+3])
	}
	return strings.Join(parts, "/") + ".gph"
}

// TileIDFromSuffix parses a relative tile path (any extension) back into
// the tile-base graph id.
func TileIDFromSuffix(suffix string) (GraphId, error) {
	suffix = strings.TrimSuffix(suffix, filepath.Ext(suffix))
	parts := strings.Split(filepath.ToSlash(strings.Trim(suffix, "/")), "/")
	if len(parts) < 2 {
		return InvalidGraphId, fmt.Errorf("tile suffix %q has no level and id", suffix)
	}
	level, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || level >= uint64(len(Levels)) {
		return InvalidGraphId, fmt.Errorf("tile suffix %q has a bad level", suffix)
	}
	id, err := strconv.ParseUint(strings.Join(parts[1:], ""), 10, 32)
	if err != nil {
		return InvalidGraphId, fmt.Errorf("tile suffix %q has a bad tile id", suffix)
	}
	if id >= uint64(Columns(uint32(level)))*uint64(Rows(uint32(level))) {
		return InvalidGraphId, fmt.Errorf("tile suffix %q is out of range for level %d", suffix, level)
	}
	return NewGraphId(uint32(id), uint32(level), 0), nil
}
