package graph

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultCacheSize is the in-memory tile budget per reader.
const defaultCacheSize = 256 << 20

// GraphReader provides random-access lookup of tiles under a tile
// directory with an in-memory cache. It is not internally synchronized;
// callers that share the underlying tile store serialize access
// themselves.
type GraphReader struct {
	tileDir   string
	cache     map[GraphId]*Tile
	cacheSize int
	maxSize   int
}

// NewGraphReader creates a reader over a tile directory.
func NewGraphReader(tileDir string) *GraphReader {
	return &GraphReader{
		tileDir: tileDir,
		cache:   map[GraphId]*Tile{},
		maxSize: defaultCacheSize,
	}
}

// TileDir returns the root of the tile store.
func (r *GraphReader) TileDir() string { return r.tileDir }

// TilePath returns the on-disk path of a tile.
func (r *GraphReader) TilePath(id GraphId) string {
	return filepath.Join(r.tileDir, FileSuffix(id))
}

// DoesTileExist reports whether the tile file is present on disk.
func (r *GraphReader) DoesTileExist(id GraphId) bool {
	info, err := os.Stat(r.TilePath(id))
	return err == nil && !info.IsDir()
}

// GetGraphTile loads a tile, serving repeats from the cache.
func (r *GraphReader) GetGraphTile(id GraphId) (*Tile, error) {
	id = id.TileBase()
	if t, ok := r.cache[id]; ok {
		return t, nil
	}
	buf, err := os.ReadFile(r.TilePath(id))
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", id, err)
	}
	t, err := DecodeTile(buf)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", id, err)
	}
	r.cache[id] = t
	r.cacheSize += t.Size()
	return t, nil
}

// OverCommitted reports whether the cache has outgrown its byte budget.
func (r *GraphReader) OverCommitted() bool { return r.cacheSize > r.maxSize }

// Clear drops all cached tiles.
func (r *GraphReader) Clear() {
	r.cache = map[GraphId]*Tile{}
	r.cacheSize = 0
}
