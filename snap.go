package transitbuilder

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// connectionEdge links a road node to a transit stop along the stop's
// declared way. The stop id stays in pbf space until the merge.
type connectionEdge struct {
	roadNode graph.GraphId
	stopNode graph.GraphId
	length   float64
	shape    orb.LineString
}

// sortConnections orders connection edges by road node tile, then node
// id, the order the merge consumes them in.
func sortConnections(conns []connectionEdge) {
	sort.Slice(conns, func(i, j int) bool {
		a, b := conns[i].roadNode, conns[j].roadNode
		if a.TileID() == b.TileID() {
			return a.ID() < b.ID()
		}
		return a.TileID() < b.TileID()
	})
}

// addRoadConnections scans the road tile for the edge on the stop's
// declared way closest to the stop and appends a connection for each
// edge endpoint that lives in the stop's tile.
func addRoadConnections(stop transit.Stop, tile *graph.Tile, conns *[]connectionEdge) {
	log := zap.S()
	stopLL := orb.Point{stop.Lon, stop.Lat}
	wayID := stop.OSMWayID

	minDist := math.MaxFloat64
	var edgeLength uint32
	startNode := graph.InvalidGraphId
	endNode := graph.InvalidGraphId
	var closestShape orb.LineString
	var closestPoint orb.Point
	closestIdx := -1

	header := tile.Header()
	for i := uint32(0); i < header.NodeCount; i++ {
		node := tile.Node(i)
		for j := uint32(0); j < node.EdgeCount; j++ {
			de := tile.DirectedEdge(node.EdgeIndex + j)
			ei, err := tile.EdgeInfo(de.EdgeInfoOffset)
			if err != nil {
				log.Errorf("Tile %d: edge info at %d: %v", header.GraphID.TileID(), de.EdgeInfoOffset, err)
				continue
			}
			if ei.WayID != wayID {
				continue
			}
			pt, dist, segIdx := closestPointOnShape(stopLL, ei.Shape)
			if dist >= minDist {
				continue
			}
			startNode = graph.NewGraphId(header.GraphID.TileID(), header.GraphID.Level(), i)
			endNode = de.EndNode
			minDist = dist
			closestPoint = pt
			closestIdx = segIdx
			closestShape = ei.Shape
			edgeLength = de.Length
			// Orient the shape to run from the start node; the matched
			// segment index flips with it.
			if !de.Forward {
				closestShape = reverseShape(ei.Shape)
				closestIdx = len(ei.Shape) - 2 - segIdx
			}
		}
	}

	if !startNode.IsValid() && !endNode.IsValid() {
		bounds := graph.TileBounds(header.GraphID)
		log.Errorf("No closest edge found for stop %s way id %d tile %.6f, %.6f, %.6f, %.6f",
			stop.Name, wayID, bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
		return
	}

	// Connection from the start node when the stop lives in its tile:
	// shape runs along the edge to the matched point, then to the stop.
	connCount := 0
	length := 0.0
	stopID := graph.GraphId(stop.GraphID)
	if stopID.TileBase() == startNode.TileBase() {
		shape := make(orb.LineString, 0, closestIdx+3)
		shape = append(shape, closestShape[:closestIdx+1]...)
		shape = append(shape, closestPoint, stopLL)
		length = math.Max(1, shapeLength(shape))
		*conns = append(*conns, connectionEdge{roadNode: startNode, stopNode: stopID, length: length, shape: shape})
		connCount++
	}

	// Second connection from the end node, only when both endpoints lie
	// in the stop's tile.
	length2 := 0.0
	if stopID.TileBase() == endNode.TileBase() && startNode.TileID() == endNode.TileID() {
		shape2 := make(orb.LineString, 0, len(closestShape)-closestIdx+1)
		for i := len(closestShape) - 1; i > closestIdx; i-- {
			shape2 = append(shape2, closestShape[i])
		}
		shape2 = append(shape2, closestPoint, stopLL)
		length2 = math.Max(1, shapeLength(shape2))
		*conns = append(*conns, connectionEdge{roadNode: endNode, stopNode: stopID, length: length2, shape: shape2})
		connCount++
	}

	if length != 0 && length2 != 0 && length+length2 < float64(edgeLength)-1 {
		log.Errorf("Edge length %d > connection lengths %.1f + %.1f when connecting to stop %s",
			edgeLength, length, length2, stop.Name)
	}
	if connCount == 0 {
		log.Errorf("Stop %s has no connections to the road network. Stop tile %d start node tile %d end node tile %d",
			stop.Name, stopID.TileID(), startNode.TileID(), endNode.TileID())
	}
}
