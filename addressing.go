package transitbuilder

import (
	"path/filepath"

	"mta/transit-builder/graph"
)

// TransitTileToGraphID maps a transit tile file path to its graph tile
// id: the path relative to the transit directory is the graph file
// suffix with a different extension.
func TransitTileToGraphID(transitDir, path string) (graph.GraphId, error) {
	rel, err := filepath.Rel(transitDir, path)
	if err != nil {
		return graph.InvalidGraphId, err
	}
	return graph.TileIDFromSuffix(rel)
}

// toGraphID converts a stop id from pbf space to graph space by adding
// the road tile's pre-existing node count. The result is invalid when the
// stop's tile has no road presence.
func toGraphID(id graph.GraphId, tileNodeCounts map[graph.GraphId]int) graph.GraphId {
	count, ok := tileNodeCounts[id.TileBase()]
	if !ok {
		return graph.InvalidGraphId
	}
	return graph.NewGraphId(id.TileID(), id.Level(), id.ID()+uint32(count))
}
