package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

const (
	tileMagic   uint32 = 0x54504847 // "GHPT"
	tileVersion uint32 = 1
)

// TileHeader is the fixed-size header at the start of every tile file.
// DateCreated is the tile reference date in days since the pivot date.
type TileHeader struct {
	Magic                  uint32
	Version                uint32
	GraphID                GraphId
	DateCreated            uint32
	NodeCount              uint32
	DirectedEdgeCount      uint32
	SignCount              uint32
	AccessRestrictionCount uint32
	TransitStopCount       uint32
	TransitRouteCount      uint32
	TransitDepartureCount  uint32
	EdgeInfoSize           uint32
	TextSize               uint32
}

// EdgeInfo is the decoded shared geometry and way metadata one or more
// directed edges reference by offset.
type EdgeInfo struct {
	WayID       uint64
	NodeA       GraphId
	NodeB       GraphId
	NameOffsets []uint32
	Shape       orb.LineString
}

// Tile is a read-only parsed graph tile.
type Tile struct {
	header       TileHeader
	nodes        []NodeInfo
	edges        []DirectedEdge
	signs        []Sign
	restrictions []AccessRestriction
	stops        []TransitStop
	routes       []TransitRoute
	departures   []TransitDeparture
	edgeInfo     []byte
	text         []byte
	size         int
}

// DecodeTile parses a serialized tile.
func DecodeTile(buf []byte) (*Tile, error) {
	r := bytes.NewReader(buf)
	t := &Tile{size: len(buf)}
	if err := binary.Read(r, binary.LittleEndian, &t.header); err != nil {
		return nil, fmt.Errorf("tile header: %w", err)
	}
	if t.header.Magic != tileMagic {
		return nil, fmt.Errorf("bad tile magic %#x", t.header.Magic)
	}
	if t.header.Version != tileVersion {
		return nil, fmt.Errorf("unsupported tile version %d", t.header.Version)
	}
	total := uint64(t.header.NodeCount) + uint64(t.header.DirectedEdgeCount) +
		uint64(t.header.SignCount) + uint64(t.header.AccessRestrictionCount) +
		uint64(t.header.TransitStopCount) + uint64(t.header.TransitRouteCount) +
		uint64(t.header.TransitDepartureCount) +
		uint64(t.header.EdgeInfoSize) + uint64(t.header.TextSize)
	if total > uint64(len(buf)) {
		return nil, fmt.Errorf("tile section counts exceed file size")
	}

	t.nodes = make([]NodeInfo, t.header.NodeCount)
	t.edges = make([]DirectedEdge, t.header.DirectedEdgeCount)
	t.signs = make([]Sign, t.header.SignCount)
	t.restrictions = make([]AccessRestriction, t.header.AccessRestrictionCount)
	t.stops = make([]TransitStop, t.header.TransitStopCount)
	t.routes = make([]TransitRoute, t.header.TransitRouteCount)
	t.departures = make([]TransitDeparture, t.header.TransitDepartureCount)
	for _, section := range []any{
		t.nodes, t.edges, t.signs, t.restrictions, t.stops, t.routes, t.departures,
	} {
		if err := binary.Read(r, binary.LittleEndian, section); err != nil {
			return nil, fmt.Errorf("tile section: %w", err)
		}
	}
	t.edgeInfo = make([]byte, t.header.EdgeInfoSize)
	if _, err := io.ReadFull(r, t.edgeInfo); err != nil {
		return nil, fmt.Errorf("tile edge info: %w", err)
	}
	t.text = make([]byte, t.header.TextSize)
	if _, err := io.ReadFull(r, t.text); err != nil {
		return nil, fmt.Errorf("tile text: %w", err)
	}
	return t, nil
}

// Header returns the tile header.
func (t *Tile) Header() TileHeader { return t.header }

// Size returns the serialized byte size of the tile.
func (t *Tile) Size() int { return t.size }

// Node returns the i-th node record.
func (t *Tile) Node(i uint32) NodeInfo { return t.nodes[i] }

// DirectedEdge returns the i-th directed edge record.
func (t *Tile) DirectedEdge(i uint32) DirectedEdge { return t.edges[i] }

// Nodes returns the node vector.
func (t *Tile) Nodes() []NodeInfo { return t.nodes }

// DirectedEdges returns the directed-edge vector.
func (t *Tile) DirectedEdges() []DirectedEdge { return t.edges }

// Sign returns the i-th sign record.
func (t *Tile) Sign(i uint32) Sign { return t.signs[i] }

// AccessRestriction returns the i-th access restriction record.
func (t *Tile) AccessRestriction(i uint32) AccessRestriction { return t.restrictions[i] }

// TransitStop returns the i-th transit stop record.
func (t *Tile) TransitStop(i uint32) TransitStop { return t.stops[i] }

// TransitRoute returns the i-th transit route record.
func (t *Tile) TransitRoute(i uint32) TransitRoute { return t.routes[i] }

// TransitDeparture returns the i-th transit departure record.
func (t *Tile) TransitDeparture(i uint32) TransitDeparture { return t.departures[i] }

// TransitDepartures returns the departure table.
func (t *Tile) TransitDepartures() []TransitDeparture { return t.departures }

// EdgeInfo decodes the edge-info record at a byte offset.
func (t *Tile) EdgeInfo(offset uint32) (EdgeInfo, error) {
	return decodeEdgeInfo(t.edgeInfo, offset)
}

// Name returns the interned string at a text-blob offset.
func (t *Tile) Name(offset uint32) string {
	s, _ := decodeName(t.text, offset)
	return s
}

func decodeEdgeInfo(blob []byte, offset uint32) (EdgeInfo, error) {
	var ei EdgeInfo
	r := bytes.NewReader(blob)
	if _, err := r.Seek(int64(offset), 0); err != nil {
		return ei, fmt.Errorf("edge info offset %d: %w", offset, err)
	}
	var fixed struct {
		WayID      uint64
		NodeA      GraphId
		NodeB      GraphId
		NameCount  uint32
		ShapeCount uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return ei, fmt.Errorf("edge info offset %d: %w", offset, err)
	}
	ei.WayID = fixed.WayID
	ei.NodeA = fixed.NodeA
	ei.NodeB = fixed.NodeB
	ei.NameOffsets = make([]uint32, fixed.NameCount)
	if err := binary.Read(r, binary.LittleEndian, ei.NameOffsets); err != nil {
		return ei, fmt.Errorf("edge info names at %d: %w", offset, err)
	}
	coords := make([]float64, 2*fixed.ShapeCount)
	if err := binary.Read(r, binary.LittleEndian, coords); err != nil {
		return ei, fmt.Errorf("edge info shape at %d: %w", offset, err)
	}
	ei.Shape = make(orb.LineString, fixed.ShapeCount)
	for i := range ei.Shape {
		ei.Shape[i] = orb.Point{coords[2*i], coords[2*i+1]}
	}
	return ei, nil
}

// edgeInfoByteSize is the serialized size of an edge-info record.
func edgeInfoByteSize(nameCount, shapeCount int) int {
	return 8 + 8 + 8 + 4 + 4 + 4*nameCount + 16*shapeCount
}

func decodeName(blob []byte, offset uint32) (string, error) {
	if int(offset)+4 > len(blob) {
		return "", fmt.Errorf("name offset %d out of range", offset)
	}
	n := binary.LittleEndian.Uint32(blob[offset:])
	start := int(offset) + 4
	if start+int(n) > len(blob) {
		return "", fmt.Errorf("name at offset %d truncated", offset)
	}
	return string(blob[start : start+int(n)]), nil
}

// appendName serializes one text-blob entry.
func appendName(blob []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	blob = append(blob, lenBuf[:]...)
	return append(blob, s...)
}
