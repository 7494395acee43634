package transitbuilder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"mta/transit-builder/config"
	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

const neighborTileIndex = testTileIndex + 1

func TestTransitTileToGraphID(t *testing.T) {
	transitDir := filepath.Join("/", "data", "transit")
	path := filepath.Join(transitDir, "2", "000", "753", "544.pbf")
	id, err := TransitTileToGraphID(transitDir, path)
	if err != nil {
		t.Fatal(err)
	}
	if id != graph.NewGraphId(753544, 2, 0) {
		t.Errorf("id = %v", id)
	}
}

func TestToGraphID(t *testing.T) {
	counts := map[graph.GraphId]int{graph.NewGraphId(testTileIndex, 2, 0): 3}
	got := toGraphID(graph.NewGraphId(testTileIndex, 2, 1), counts)
	if got != graph.NewGraphId(testTileIndex, 2, 4) {
		t.Errorf("toGraphID = %v", got)
	}
	if toGraphID(graph.NewGraphId(neighborTileIndex, 2, 0), counts).IsValid() {
		t.Error("missing tile produced a valid id")
	}
}

// writeRoadTile stores a minimal road tile with one node at the shape
// head and one directed edge on wayID. The edge terminates at endNode,
// which may live in another tile.
func writeRoadTile(t *testing.T, tileDir string, tileIndex uint32, wayID uint64,
	shape orb.LineString, endNode graph.GraphId) {
	t.Helper()
	id := graph.NewGraphId(tileIndex, 2, 0)
	b, err := graph.NewTileBuilder(tileDir, id)
	if err != nil {
		t.Fatal(err)
	}
	b.Header().DateCreated = DaysFromPivot(date(2020, time.January, 1))
	n0 := graph.NewGraphId(tileIndex, 2, 0)
	offset, forward := b.AddEdgeInfo(wayID, n0, endNode, shape)
	b.AppendDirectedEdge(graph.DirectedEdge{
		EndNode: endNode, Length: uint32(shapeLength(shape)), Use: graph.UseRoad,
		Speed: 50, Class: graph.ClassResidential,
		ForwardAccess: graph.AutoAccess | graph.PedestrianAccess,
		ReverseAccess: graph.AutoAccess | graph.PedestrianAccess,
		EdgeInfoOffset: offset, Forward: forward,
	})
	b.AppendNode(graph.NodeInfo{
		Lon: shape[0][0], Lat: shape[0][1], EdgeIndex: 0, EdgeCount: 1,
		Class: graph.ClassResidential, Access: graph.AutoAccess | graph.PedestrianAccess,
	})
	if err := b.StoreTileData(); err != nil {
		t.Fatal(err)
	}
}

func busPair(origin, dest graph.GraphId) transit.StopPair {
	return transit.StopPair{
		OriginGraphID:          uint64(origin),
		DestinationGraphID:     uint64(dest),
		RouteIndex:             0,
		TripKey:                17,
		OriginDepartureTime:    36000,
		DestinationArrivalTime: 36600,
		ServiceStartDate:       ToJulianDay(date(2020, time.January, 1)),
		ServiceEndDate:         ToJulianDay(date(2020, time.December, 31)),
		ServiceDaysOfWeek:      []bool{true, true, true, true, true, false, false},
		TripHeadsign:           "East Side",
	}
}

func buildConfig(tileDir, transitDir string) config.AppConfig {
	return config.AppConfig{Mjolnir: config.MjolnirConfig{
		Hierarchy:   config.HierarchyConfig{TileDir: tileDir},
		TransitDir:  transitDir,
		Concurrency: 1,
	}}
}

func TestBuildSingleStop(t *testing.T) {
	// One stop, one route, one pair whose destination tile has no road
	// presence: the stop connects to the road network but no transit
	// edge is emitted.
	tileDir := t.TempDir()
	transitDir := t.TempDir()
	tileID := graph.NewGraphId(testTileIndex, 2, 0)
	stopA := graph.NewGraphId(testTileIndex, 2, 0)
	stopB := graph.NewGraphId(neighborTileIndex, 2, 0)

	writeRoadTile(t, tileDir, testTileIndex, 42,
		orb.LineString{{-74, 40.75}, {-73.98, 40.75}}, stopB.TileBase())
	err := transit.Write(transitDir, tileID, &transit.Transit{
		Stops: []transit.Stop{{
			GraphID: uint64(stopA), OneStopID: "s-86", Name: "86th St",
			Lon: -73.99, Lat: 40.75, OSMWayID: 42, Timezone: 94,
		}},
		Routes:    []transit.Route{{OneStopID: "r-m86", Name: "M86", VehicleType: 3}},
		StopPairs: []transit.StopPair{busPair(stopA, stopB)},
	})
	if err != nil {
		t.Fatal(err)
	}

	Build(buildConfig(tileDir, transitDir))

	tile, err := graph.NewGraphReader(tileDir).GetGraphTile(tileID)
	if err != nil {
		t.Fatal(err)
	}
	h := tile.Header()
	if h.NodeCount != 2 {
		t.Fatalf("node count = %d, want road node + stop", h.NodeCount)
	}
	road := tile.Node(0)
	if road.EdgeCount != 2 {
		t.Fatalf("road node edge count = %d, want old edge + connection", road.EdgeCount)
	}
	conn := tile.DirectedEdge(road.EdgeIndex + 1)
	if conn.Use != graph.UseTransitConnection {
		t.Errorf("connection use = %v", conn.Use)
	}
	if conn.EndNode != graph.NewGraphId(testTileIndex, 2, 1) {
		t.Errorf("connection end node = %v", conn.EndNode)
	}
	if conn.Length < 800 || conn.Length > 900 {
		t.Errorf("connection length = %d, want ~850", conn.Length)
	}

	stop := tile.Node(1)
	if stop.Type != graph.NodeMultiUseTransitStop || stop.StopIndex != 0 {
		t.Errorf("stop node = %+v", stop)
	}
	// The destination's graph id is invalid, so the only edge is the
	// reverse connection.
	if stop.EdgeCount != 1 {
		t.Fatalf("stop edge count = %d, want 1", stop.EdgeCount)
	}
	rev := tile.DirectedEdge(stop.EdgeIndex)
	if rev.Use != graph.UseTransitConnection || rev.EndNode != graph.NewGraphId(testTileIndex, 2, 0) {
		t.Errorf("reverse connection = %+v", rev)
	}
	if h.TransitStopCount != 1 || h.TransitRouteCount != 1 || h.TransitDepartureCount != 1 {
		t.Errorf("transit tables = %d stops %d routes %d departures",
			h.TransitStopCount, h.TransitRouteCount, h.TransitDepartureCount)
	}
	dep := tile.TransitDeparture(0)
	if dep.LineID != 1 || dep.DepartureTime != 36000 || dep.ElapsedTime != 600 {
		t.Errorf("departure = %+v", dep)
	}
}

func TestBuildCrossTileLine(t *testing.T) {
	// The destination stop lives in the neighboring transit tile whose
	// road tile exists: the merge resolves its location from the
	// neighbor blob and emits a transit edge into that tile.
	tileDir := t.TempDir()
	transitDir := t.TempDir()
	tileA := graph.NewGraphId(testTileIndex, 2, 0)
	tileB := graph.NewGraphId(neighborTileIndex, 2, 0)
	stopA := graph.NewGraphId(testTileIndex, 2, 0)
	stopB := graph.NewGraphId(neighborTileIndex, 2, 0)

	writeRoadTile(t, tileDir, testTileIndex, 42,
		orb.LineString{{-74, 40.75}, {-73.98, 40.75}}, stopB.TileBase())
	writeRoadTile(t, tileDir, neighborTileIndex, 43,
		orb.LineString{{-73.74, 40.75}, {-73.72, 40.75}}, graph.NewGraphId(neighborTileIndex+1, 2, 0))

	err := transit.Write(transitDir, tileA, &transit.Transit{
		Stops: []transit.Stop{{
			GraphID: uint64(stopA), Name: "86th St",
			Lon: -73.99, Lat: 40.75, OSMWayID: 42, Timezone: 94,
		}},
		Routes:    []transit.Route{{Name: "M86", VehicleType: 3}},
		StopPairs: []transit.StopPair{busPair(stopA, stopB)},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = transit.Write(transitDir, tileB, &transit.Transit{
		Stops: []transit.Stop{{
			GraphID: uint64(stopB), Name: "Queens Blvd",
			Lon: -73.73, Lat: 40.75, OSMWayID: 43, Timezone: 94,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	Build(buildConfig(tileDir, transitDir))

	tile, err := graph.NewGraphReader(tileDir).GetGraphTile(tileA)
	if err != nil {
		t.Fatal(err)
	}
	stop := tile.Node(1)
	if stop.EdgeCount != 2 {
		t.Fatalf("stop edge count = %d, want reverse connection + line", stop.EdgeCount)
	}
	line := tile.DirectedEdge(stop.EdgeIndex + 1)
	if line.Use != graph.UseBus || line.LineID != 1 {
		t.Errorf("line edge = %+v", line)
	}
	// Neighbor road tile has one pre-existing node, so stop B's graph id
	// is its pbf index offset by one.
	if want := graph.NewGraphId(neighborTileIndex, 2, 1); line.EndNode != want {
		t.Errorf("line end node = %v, want %v", line.EndNode, want)
	}
	// Straight-line length between the two stops, about 22km.
	if line.Length < 21000 || line.Length > 23000 {
		t.Errorf("line length = %d", line.Length)
	}

	// The neighbor tile got its own stop spliced in as well.
	tileN, err := graph.NewGraphReader(tileDir).GetGraphTile(tileB)
	if err != nil {
		t.Fatal(err)
	}
	if tileN.Header().NodeCount != 2 {
		t.Errorf("neighbor node count = %d, want 2", tileN.Header().NodeCount)
	}
}
