package transitbuilder

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// getShape returns the geometry connecting two stop locations. Shape
// database lookup by shape id is not wired; a straight segment stands in.
func getShape(stopLL, endLL orb.Point, shapeID uint32) orb.LineString {
	return orb.LineString{stopLL, endLL}
}

// addToGraph splices the transit additions into the tile builder: pass 1
// re-appends the existing nodes with their edges, inserting road-to-stop
// connection edges at their owning nodes and shifting sign and
// access-restriction edge indices; pass 2 appends one node per stop with
// its reverse connections and transit line edges.
func addToGraph(b *graph.TileBuilder, tileID graph.GraphId, transitDir string,
	tileData *transit.Transit, tileNodeCounts map[graph.GraphId]int,
	plans []stopEdgePlan, stopAccess map[graph.GraphId]bool,
	conns []connectionEdge, routeTypes map[uint32]uint32) {

	log := zap.S()
	start := time.Now()

	currentNodes := b.TakeNodes()
	nodeCount := len(currentNodes)
	currentEdges := b.TakeDirectedEdges()
	edgeCount := len(currentEdges)

	// Cursors into the sign and restriction tables; both are ordered by
	// edge index, so one forward sweep covers them.
	signs := b.Signs()
	signIdx := 0
	nextSignEdge := uint32(len(currentEdges) + 1)
	if len(signs) > 0 {
		nextSignEdge = signs[0].EdgeIndex
	}
	restrictions := b.AccessRestrictions()
	resIdx := 0
	nextResEdge := uint32(len(currentEdges) + 1)
	if len(restrictions) > 0 {
		nextResEdge = restrictions[0].EdgeIndex
	}

	addedConns := 0
	for i, nb := range currentNodes {
		edgeIndex := b.DirectedEdgeCount()
		for j := uint32(0); j < nb.EdgeCount; j++ {
			idx := nb.EdgeIndex + j
			e := currentEdges[idx]
			b.AppendDirectedEdge(e)

			// An edge keeps its identity; its absolute index shifts by the
			// number of connection edges inserted at earlier nodes.
			for signIdx < len(signs) && idx == nextSignEdge {
				if !e.HasSign {
					log.Errorf("Tile %d: signs for edge %d but directed edge says no sign",
						tileID.TileID(), idx)
				}
				signs[signIdx].EdgeIndex = b.DirectedEdgeCount() - 1
				signIdx++
				if signIdx < len(signs) {
					nextSignEdge = signs[signIdx].EdgeIndex
				}
			}
			for resIdx < len(restrictions) && idx == nextResEdge {
				if !e.HasRestriction {
					log.Errorf("Tile %d: access restrictions for edge %d but directed edge says none",
						tileID.TileID(), idx)
				}
				restrictions[resIdx].EdgeIndex = b.DirectedEdgeCount() - 1
				resIdx++
				if resIdx < len(restrictions) {
					nextResEdge = restrictions[resIdx].EdgeIndex
				}
			}
		}

		// Insert the connections owned by this node.
		for addedConns < len(conns) && conns[addedConns].roadNode.ID() == uint32(i) {
			conn := conns[addedConns]
			addedConns++
			endNode := toGraphID(conn.stopNode, tileNodeCounts)
			if !endNode.IsValid() {
				continue
			}
			de := graph.DirectedEdge{
				EndNode:        endNode,
				Length:         uint32(conn.length),
				Use:            graph.UseTransitConnection,
				Speed:          5,
				Class:          graph.ClassServiceOther,
				LocalEdgeIndex: b.DirectedEdgeCount() - edgeIndex,
				ForwardAccess:  graph.PedestrianAccess,
				ReverseAccess:  graph.PedestrianAccess,
			}
			de.EdgeInfoOffset, de.Forward = b.AddEdgeInfo(0, conn.roadNode, endNode, conn.shape)
			b.AppendDirectedEdge(de)
		}

		nb.EdgeIndex = edgeIndex
		nb.EdgeCount = b.DirectedEdgeCount() - edgeIndex
		b.AppendNode(nb)
	}
	if addedConns != len(conns) {
		log.Errorf("Tile %d: pass 1 consumed %d connection edges but there are %d",
			tileID.TileID(), addedConns, len(conns))
	}

	// Pass 2: one node per stop, reverse connections first, then transit
	// lines.
	reverseConns := 0
	for _, plan := range plans {
		stopID := plan.origin
		stopIndex := stopID.ID()
		stop := tileData.Stops[stopIndex]
		if graph.GraphId(stop.GraphID) != stopID {
			log.Errorf("Tile %d: stop key mismatch at index %d", tileID.TileID(), stopIndex)
		}
		originNode := toGraphID(stopID, tileNodeCounts)
		stopLL := orb.Point{stop.Lon, stop.Lat}

		// Pedestrian only: the bikes-allowed hint in stopAccess is not
		// promoted to the node mask until connector bicycle policy lands.
		node := graph.NodeInfo{
			Lon:        stop.Lon,
			Lat:        stop.Lat,
			Class:      graph.ClassServiceOther,
			Access:     graph.PedestrianAccess,
			Type:       graph.NodeMultiUseTransitStop,
			ModeChange: true,
			Timezone:   stop.Timezone,
			StopIndex:  stopIndex,
			EdgeIndex:  b.DirectedEdgeCount(),
		}

		for _, conn := range conns {
			if conn.stopNode != stopID {
				continue
			}
			de := graph.DirectedEdge{
				EndNode:        conn.roadNode,
				Length:         uint32(conn.length),
				Use:            graph.UseTransitConnection,
				Speed:          5,
				Class:          graph.ClassServiceOther,
				LocalEdgeIndex: b.DirectedEdgeCount() - node.EdgeIndex,
				ForwardAccess:  graph.PedestrianAccess,
				ReverseAccess:  graph.PedestrianAccess,
			}
			de.EdgeInfoOffset, de.Forward = b.AddEdgeInfo(0, originNode, conn.roadNode, conn.shape)
			b.AppendDirectedEdge(de)
			reverseConns++
		}

		for _, line := range plan.lines {
			// Skip lines whose destination tile has no road presence.
			endNode := toGraphID(line.dest, tileNodeCounts)
			if !endNode.IsValid() {
				continue
			}
			endLL, ok := endStopLocation(line.dest, tileID, tileData, transitDir, log)
			if !ok {
				continue
			}
			de := graph.DirectedEdge{
				EndNode:        endNode,
				Length:         uint32(geo.Distance(stopLL, endLL)),
				Use:            transitUse(routeTypes[line.routeIndex]),
				Speed:          5,
				Class:          graph.ClassServiceOther,
				LocalEdgeIndex: b.DirectedEdgeCount() - node.EdgeIndex,
				ForwardAccess:  graph.PedestrianAccess,
				ReverseAccess:  graph.PedestrianAccess,
				LineID:         line.lineID,
			}
			shape := getShape(stopLL, endLL, line.shapeID)
			de.EdgeInfoOffset, de.Forward = b.AddEdgeInfo(uint64(line.routeIndex), originNode, endNode, shape)
			b.AppendDirectedEdge(de)
		}

		stopEdges := b.DirectedEdgeCount() - node.EdgeIndex
		if stopEdges == 0 {
			log.Errorf("Tile %d: no directed edges from stop %s", tileID.TileID(), stop.Name)
		}
		node.EdgeCount = stopEdges
		b.AppendNode(node)
	}
	if reverseConns != len(conns) {
		log.Errorf("Tile %d: pass 2 added %d reverse connections but there are %d",
			tileID.TileID(), reverseConns, len(conns))
	}

	log.Infof("Tile %d: added %d edges and %d nodes. time = %s",
		tileID.TileID(), int(b.DirectedEdgeCount())-edgeCount,
		int(b.NodeCount())-nodeCount, time.Since(start).Round(time.Millisecond))
}

// endStopLocation resolves a destination stop's location, loading the
// neighboring transit tile when the stop lives outside the current one.
func endStopLocation(dest graph.GraphId, tileID graph.GraphId, tileData *transit.Transit,
	transitDir string, log *zap.SugaredLogger) (orb.Point, bool) {

	stops := tileData.Stops
	if dest.TileBase() != tileID {
		endTransit, err := transit.Read(transitDir, dest.TileBase())
		if err != nil {
			log.Errorf("Tile %d: destination stop tile: %v", tileID.TileID(), err)
			return orb.Point{}, false
		}
		stops = endTransit.Stops
	}
	if int(dest.ID()) >= len(stops) {
		log.Errorf("Tile %d: destination stop %d out of range", tileID.TileID(), dest.ID())
		return orb.Point{}, false
	}
	endStop := stops[dest.ID()]
	return orb.Point{endStop.Lon, endStop.Lat}, true
}
