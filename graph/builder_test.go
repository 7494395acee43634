package graph

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func testTileID() GraphId { return NewGraphId(523*1440+424, 2, 0) }

func TestAddNameInterns(t *testing.T) {
	b, err := NewTileBuilder(t.TempDir(), testTileID())
	if err != nil {
		t.Fatal(err)
	}
	if got := b.AddName(""); got != 0 {
		t.Errorf("empty string offset = %d, want 0", got)
	}
	first := b.AddName("86th St")
	if first == 0 {
		t.Error("non-empty string interned at offset 0")
	}
	if again := b.AddName("86th St"); again != first {
		t.Errorf("repeat AddName = %d, want %d", again, first)
	}
	if other := b.AddName("96th St"); other == first {
		t.Error("distinct strings share an offset")
	}
}

func TestAddEdgeInfoDedup(t *testing.T) {
	b, err := NewTileBuilder(t.TempDir(), testTileID())
	if err != nil {
		t.Fatal(err)
	}
	a := NewGraphId(753544, 2, 0)
	c := NewGraphId(753544, 2, 1)
	shape := orb.LineString{{-74, 40.75}, {-73.98, 40.75}}

	offset, forward := b.AddEdgeInfo(42, a, c, shape)
	if !forward {
		t.Error("first insertion is not canonical")
	}
	offset2, forward2 := b.AddEdgeInfo(42, c, a, reverse(shape))
	if offset2 != offset {
		t.Errorf("opposite direction got offset %d, want %d", offset2, offset)
	}
	if forward2 {
		t.Error("opposite direction reports forward")
	}
	// Same pair on another way is distinct storage.
	offset3, _ := b.AddEdgeInfo(43, a, c, shape)
	if offset3 == offset {
		t.Error("different way id shares an offset")
	}

	ei, err := b.EdgeInfo(offset)
	if err != nil {
		t.Fatal(err)
	}
	if ei.WayID != 42 || len(ei.Shape) != 2 || ei.Shape[0] != shape[0] {
		t.Errorf("EdgeInfo = %+v", ei)
	}
}

func reverse(s orb.LineString) orb.LineString {
	out := make(orb.LineString, len(s))
	for i, p := range s {
		out[len(s)-1-i] = p
	}
	return out
}

func TestStoreAndReload(t *testing.T) {
	dir := t.TempDir()
	id := testTileID()

	b, err := NewTileBuilder(dir, id)
	if err != nil {
		t.Fatal(err)
	}
	b.Header().DateCreated = 2000
	n0 := NewGraphId(id.TileID(), id.Level(), 0)
	n1 := NewGraphId(id.TileID(), id.Level(), 1)
	shape := orb.LineString{{-74, 40.75}, {-73.98, 40.75}}
	offset, forward := b.AddEdgeInfo(42, n0, n1, shape)
	b.AppendDirectedEdge(DirectedEdge{
		EndNode: n1, Length: 1687, Use: UseRoad, Speed: 50,
		Class: ClassResidential, ForwardAccess: AutoAccess | PedestrianAccess,
		ReverseAccess: AutoAccess | PedestrianAccess,
		EdgeInfoOffset: offset, Forward: forward, HasSign: true,
	})
	b.AppendNode(NodeInfo{Lon: -74, Lat: 40.75, EdgeIndex: 0, EdgeCount: 1})
	b.AppendNode(NodeInfo{Lon: -73.98, Lat: 40.75, EdgeIndex: 1, EdgeCount: 0})
	b.AddSign(Sign{EdgeIndex: 0, TextOffset: b.AddName("exit 4")})
	b.AddAccessRestriction(AccessRestriction{EdgeIndex: 0, Modes: TruckAccess, Value: 4})
	b.AddTransitStop(TransitStop{OneStopOffset: b.AddName("s-abc"), NameOffset: b.AddName("86th St")})
	b.AddTransitRoute(TransitRoute{RouteIndex: 0, NameOffset: b.AddName("M86")})
	b.AddTransitDeparture(TransitDeparture{LineID: 1, DepartureTime: 36000, ElapsedTime: 600, Days: 0x1f})
	if err := b.StoreTileData(); err != nil {
		t.Fatal(err)
	}

	reader := NewGraphReader(dir)
	if !reader.DoesTileExist(id) {
		t.Fatalf("stored tile missing at %s", filepath.Join(dir, FileSuffix(id)))
	}
	tile, err := reader.GetGraphTile(id)
	if err != nil {
		t.Fatal(err)
	}
	h := tile.Header()
	if h.GraphID != id.TileBase() || h.DateCreated != 2000 {
		t.Errorf("header = %+v", h)
	}
	if h.NodeCount != 2 || h.DirectedEdgeCount != 1 || h.SignCount != 1 ||
		h.AccessRestrictionCount != 1 || h.TransitStopCount != 1 ||
		h.TransitRouteCount != 1 || h.TransitDepartureCount != 1 {
		t.Errorf("header counts = %+v", h)
	}
	if tile.Node(1).Lon != -73.98 {
		t.Errorf("node 1 = %+v", tile.Node(1))
	}
	de := tile.DirectedEdge(0)
	if de.EndNode != n1 || de.Length != 1687 || !de.HasSign {
		t.Errorf("edge 0 = %+v", de)
	}
	ei, err := tile.EdgeInfo(de.EdgeInfoOffset)
	if err != nil {
		t.Fatal(err)
	}
	if ei.WayID != 42 || len(ei.Shape) != 2 {
		t.Errorf("edge info = %+v", ei)
	}
	if got := tile.Name(tile.Sign(0).TextOffset); got != "exit 4" {
		t.Errorf("sign text = %q", got)
	}
	if got := tile.Name(tile.TransitStop(0).NameOffset); got != "86th St" {
		t.Errorf("stop name = %q", got)
	}

	// A builder over the stored tile keeps interning and deduplication
	// consistent with the first pass.
	b2, err := NewTileBuilder(dir, id)
	if err != nil {
		t.Fatal(err)
	}
	if got := b2.AddName("86th St"); got != tile.TransitStop(0).NameOffset {
		t.Errorf("reloaded AddName = %d, want %d", got, tile.TransitStop(0).NameOffset)
	}
	offset2, forward2 := b2.AddEdgeInfo(42, n0, n1, shape)
	if offset2 != offset || forward2 != forward {
		t.Errorf("reloaded AddEdgeInfo = (%d, %v), want (%d, %v)", offset2, forward2, offset, forward)
	}
}
