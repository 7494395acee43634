// Package graph holds the routing-graph tile model: packed graph
// identifiers, the tile hierarchy and its file naming, the binary tile
// format with its read-only Tile and mutable TileBuilder, and a cached
// GraphReader over a tile directory.
package graph
