package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
)

// edgeInfoKey identifies one shared edge-info record: the unordered node
// pair plus the way id.
type edgeInfoKey struct {
	a, b  GraphId
	wayID uint64
}

type edgeInfoEntry struct {
	offset uint32
	// first is the node the stored shape starts from; a caller adding the
	// pair in the opposite direction gets forward=false back.
	first GraphId
}

// TileBuilder deserializes an existing tile into mutable buffers, supports
// appending nodes, edges, edge info, names and transit records, and
// re-serializes the result in place.
type TileBuilder struct {
	tileDir string

	header       TileHeader
	nodes        []NodeInfo
	edges        []DirectedEdge
	signs        []Sign
	restrictions []AccessRestriction
	stops        []TransitStop
	routes       []TransitRoute
	departures   []TransitDeparture

	edgeInfo      []byte
	edgeInfoIndex map[edgeInfoKey]edgeInfoEntry
	text          []byte
	textIndex     map[string]uint32
}

// NewTileBuilder opens the tile for id under tileDir and deserializes it.
// A missing file yields an empty builder for the id, used when seeding a
// tile set from scratch.
func NewTileBuilder(tileDir string, id GraphId) (*TileBuilder, error) {
	b := &TileBuilder{
		tileDir:       tileDir,
		edgeInfoIndex: map[edgeInfoKey]edgeInfoEntry{},
		textIndex:     map[string]uint32{},
	}
	buf, err := os.ReadFile(filepath.Join(tileDir, FileSuffix(id)))
	if os.IsNotExist(err) {
		b.header = TileHeader{Magic: tileMagic, Version: tileVersion, GraphID: id.TileBase()}
		// offset 0 always holds the empty string
		b.text = appendName(nil, "")
		b.textIndex[""] = 0
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := DecodeTile(buf)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", id, err)
	}
	b.header = t.header
	b.nodes = t.nodes
	b.edges = t.edges
	b.signs = t.signs
	b.restrictions = t.restrictions
	b.stops = t.stops
	b.routes = t.routes
	b.departures = t.departures
	b.edgeInfo = t.edgeInfo
	b.text = t.text
	if err := b.reindex(); err != nil {
		return nil, fmt.Errorf("tile %s: %w", id, err)
	}
	return b, nil
}

// reindex rebuilds the dedup maps from the deserialized blobs.
func (b *TileBuilder) reindex() error {
	for offset := uint32(0); int(offset) < len(b.text); {
		s, err := decodeName(b.text, offset)
		if err != nil {
			return err
		}
		if _, ok := b.textIndex[s]; !ok {
			b.textIndex[s] = offset
		}
		offset += 4 + uint32(len(s))
	}
	for offset := uint32(0); int(offset) < len(b.edgeInfo); {
		ei, err := decodeEdgeInfo(b.edgeInfo, offset)
		if err != nil {
			return err
		}
		key := canonicalEdgeInfoKey(ei.NodeA, ei.NodeB, ei.WayID)
		b.edgeInfoIndex[key] = edgeInfoEntry{offset: offset, first: ei.NodeA}
		offset += uint32(edgeInfoByteSize(len(ei.NameOffsets), len(ei.Shape)))
	}
	return nil
}

func canonicalEdgeInfoKey(a, b GraphId, wayID uint64) edgeInfoKey {
	if b < a {
		a, b = b, a
	}
	return edgeInfoKey{a: a, b: b, wayID: wayID}
}

// Header returns a mutable pointer to the tile header.
func (b *TileBuilder) Header() *TileHeader { return &b.header }

// Nodes returns the node buffer.
func (b *TileBuilder) Nodes() []NodeInfo { return b.nodes }

// DirectedEdges returns the directed-edge buffer.
func (b *TileBuilder) DirectedEdges() []DirectedEdge { return b.edges }

// TakeNodes moves the node buffer out of the builder, leaving it empty.
func (b *TileBuilder) TakeNodes() []NodeInfo {
	nodes := b.nodes
	b.nodes = make([]NodeInfo, 0, len(nodes))
	return nodes
}

// TakeDirectedEdges moves the directed-edge buffer out of the builder,
// leaving it empty.
func (b *TileBuilder) TakeDirectedEdges() []DirectedEdge {
	edges := b.edges
	b.edges = make([]DirectedEdge, 0, len(edges))
	return edges
}

// AppendNode appends a node record.
func (b *TileBuilder) AppendNode(n NodeInfo) { b.nodes = append(b.nodes, n) }

// AppendDirectedEdge appends a directed edge record.
func (b *TileBuilder) AppendDirectedEdge(e DirectedEdge) { b.edges = append(b.edges, e) }

// DirectedEdgeCount returns the current length of the directed-edge buffer.
func (b *TileBuilder) DirectedEdgeCount() uint32 { return uint32(len(b.edges)) }

// NodeCount returns the current length of the node buffer.
func (b *TileBuilder) NodeCount() uint32 { return uint32(len(b.nodes)) }

// Signs returns the sign buffer; entries may be mutated in place.
func (b *TileBuilder) Signs() []Sign { return b.signs }

// AccessRestrictions returns the restriction buffer; entries may be
// mutated in place.
func (b *TileBuilder) AccessRestrictions() []AccessRestriction { return b.restrictions }

// AddSign appends a sign record. No sorting is done: the table is ordered
// by edge index only when signs are added in that order.
func (b *TileBuilder) AddSign(s Sign) { b.signs = append(b.signs, s) }

// AddAccessRestriction appends an access restriction record. No sorting
// is done: the table is ordered by edge index only when restrictions are
// added in that order.
func (b *TileBuilder) AddAccessRestriction(r AccessRestriction) {
	b.restrictions = append(b.restrictions, r)
}

// AddName interns a string into the text blob and returns its offset.
func (b *TileBuilder) AddName(s string) uint32 {
	if offset, ok := b.textIndex[s]; ok {
		return offset
	}
	offset := uint32(len(b.text))
	b.text = appendName(b.text, s)
	b.textIndex[s] = offset
	return offset
}

// AddEdgeInfo stores shared geometry for the edge between nodes a and b on
// the given way, deduplicated on the unordered node pair. It returns the
// blob offset and whether the caller's direction matches the stored
// (canonical) orientation of the shape.
func (b *TileBuilder) AddEdgeInfo(wayID uint64, a, bNode GraphId, shape orb.LineString) (uint32, bool) {
	key := canonicalEdgeInfoKey(a, bNode, wayID)
	if entry, ok := b.edgeInfoIndex[key]; ok {
		return entry.offset, entry.first == a
	}
	offset := uint32(len(b.edgeInfo))
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, wayID)
	binary.Write(&buf, binary.LittleEndian, a)
	binary.Write(&buf, binary.LittleEndian, bNode)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // name count
	binary.Write(&buf, binary.LittleEndian, uint32(len(shape)))
	for _, p := range shape {
		binary.Write(&buf, binary.LittleEndian, p[0])
		binary.Write(&buf, binary.LittleEndian, p[1])
	}
	b.edgeInfo = append(b.edgeInfo, buf.Bytes()...)
	b.edgeInfoIndex[key] = edgeInfoEntry{offset: offset, first: a}
	return offset, true
}

// EdgeInfo decodes the edge-info record at a byte offset.
func (b *TileBuilder) EdgeInfo(offset uint32) (EdgeInfo, error) {
	return decodeEdgeInfo(b.edgeInfo, offset)
}

// AddTransitStop appends a transit stop record.
func (b *TileBuilder) AddTransitStop(s TransitStop) { b.stops = append(b.stops, s) }

// AddTransitRoute appends a transit route record.
func (b *TileBuilder) AddTransitRoute(r TransitRoute) { b.routes = append(b.routes, r) }

// AddTransitDeparture appends a transit departure record.
func (b *TileBuilder) AddTransitDeparture(d TransitDeparture) {
	b.departures = append(b.departures, d)
}

// TransitDepartures returns the departure buffer.
func (b *TileBuilder) TransitDepartures() []TransitDeparture { return b.departures }

// Serialize renders the tile to its binary form.
func (b *TileBuilder) Serialize() ([]byte, error) {
	h := b.header
	h.Magic = tileMagic
	h.Version = tileVersion
	h.NodeCount = uint32(len(b.nodes))
	h.DirectedEdgeCount = uint32(len(b.edges))
	h.SignCount = uint32(len(b.signs))
	h.AccessRestrictionCount = uint32(len(b.restrictions))
	h.TransitStopCount = uint32(len(b.stops))
	h.TransitRouteCount = uint32(len(b.routes))
	h.TransitDepartureCount = uint32(len(b.departures))
	h.EdgeInfoSize = uint32(len(b.edgeInfo))
	h.TextSize = uint32(len(b.text))

	var buf bytes.Buffer
	for _, section := range []any{
		h, b.nodes, b.edges, b.signs, b.restrictions, b.stops, b.routes, b.departures,
	} {
		if err := binary.Write(&buf, binary.LittleEndian, section); err != nil {
			return nil, fmt.Errorf("serialize tile %s: %w", b.header.GraphID, err)
		}
	}
	buf.Write(b.edgeInfo)
	buf.Write(b.text)
	return buf.Bytes(), nil
}

// StoreTileData re-serializes the tile and writes it back to the tile
// directory.
func (b *TileBuilder) StoreTileData() error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}
	path := filepath.Join(b.tileDir, FileSuffix(b.header.GraphID))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
