package graph

// Access bit masks for nodes and directed edges.
const (
	AutoAccess       uint16 = 1 << 0
	PedestrianAccess uint16 = 1 << 1
	BicycleAccess    uint16 = 1 << 2
	TruckAccess      uint16 = 1 << 3
	BusAccess        uint16 = 1 << 4
)

// RoadClass is the importance classification of an edge or node.
type RoadClass uint8

const (
	ClassMotorway RoadClass = iota
	ClassTrunk
	ClassPrimary
	ClassSecondary
	ClassTertiary
	ClassUnclassified
	ClassResidential
	ClassServiceOther
)

// Use describes what a directed edge is used for.
type Use uint8

const (
	UseRoad Use = iota
	UseRamp
	UseTurnChannel
	UseTrack
	UseDriveway
	UseAlley
	UseParkingAisle
	UseCuldesac
	UseFootway
	UseRail
	UseBus
	UseTransitConnection
)

// NodeType distinguishes plain intersections from transit stops.
type NodeType uint8

const (
	NodeStreetIntersection NodeType = iota
	NodeMultiUseTransitStop
)

// NodeInfo is one node record in a tile. EdgeIndex and EdgeCount delimit
// the node's outbound range in the directed-edge vector.
type NodeInfo struct {
	Lon        float64
	Lat        float64
	EdgeIndex  uint32
	EdgeCount  uint32
	Class      RoadClass
	Access     uint16
	Type       NodeType
	ModeChange bool
	Timezone   uint32
	StopIndex  uint32
}

// DirectedEdge is one directed edge record in a tile.
type DirectedEdge struct {
	EndNode        GraphId
	Length         uint32
	Use            Use
	Speed          uint8
	Class          RoadClass
	LocalEdgeIndex uint32
	ForwardAccess  uint16
	ReverseAccess  uint16
	LineID         uint32
	EdgeInfoOffset uint32
	Forward        bool
	HasSign        bool
	HasRestriction bool
}

// Sign is guide signage attached to a directed edge by index.
type Sign struct {
	EdgeIndex  uint32
	Type       uint8
	TextOffset uint32
}

// AccessRestriction is a conditional restriction attached to a directed
// edge by index.
type AccessRestriction struct {
	EdgeIndex uint32
	Type      uint8
	Modes     uint16
	Value     uint64
}

// TransitStop is the per-stop name record stored in a tile.
type TransitStop struct {
	OneStopOffset uint32
	NameOffset    uint32
}

// TransitRoute is one transit route record. All strings are text-blob
// offsets interned through TileBuilder.AddName.
type TransitRoute struct {
	RouteIndex            uint32
	OneStopOffset         uint32
	OperatorOneStopOffset uint32
	OperatorNameOffset    uint32
	OperatorWebsiteOffset uint32
	Color                 uint32
	TextColor             uint32
	NameOffset            uint32
	LongNameOffset        uint32
	DescriptionOffset     uint32
}

// TransitDeparture is one scheduled departure on a line.
type TransitDeparture struct {
	LineID         uint32
	TripID         uint32
	RouteIndex     uint32
	BlockID        uint32
	HeadsignOffset uint32
	DepartureTime  uint32
	ElapsedTime    uint32
	EndDay         uint32
	DaysOfWeek     uint32
	Days           uint64
}
