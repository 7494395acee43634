package transitbuilder

import (
	"go.uber.org/zap"

	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// addRoutes registers every route of a transit tile with the builder in
// positional order and returns a map from route index to vehicle type.
func addRoutes(t *transit.Transit, b *graph.TileBuilder, tileID graph.GraphId) map[uint32]uint32 {
	routeTypes := map[uint32]uint32{}
	for i, r := range t.Routes {
		b.AddTransitRoute(graph.TransitRoute{
			RouteIndex:            uint32(i),
			OneStopOffset:         b.AddName(r.OneStopID),
			OperatorOneStopOffset: b.AddName(r.OperatedByOneStopID),
			OperatorNameOffset:    b.AddName(r.OperatedByName),
			OperatorWebsiteOffset: b.AddName(r.OperatedByWebsite),
			Color:                 r.RouteColor,
			TextColor:             r.RouteTextColor,
			NameOffset:            b.AddName(r.Name),
			LongNameOffset:        b.AddName(r.RouteLongName),
			DescriptionOffset:     b.AddName(r.RouteDesc),
		})
		routeTypes[uint32(i)] = r.VehicleType
	}
	zap.S().Infof("Tile %d: added %d routes", tileID.TileID(), len(routeTypes))
	return routeTypes
}

// transitUse maps a route vehicle type to a directed-edge use.
func transitUse(vehicleType uint32) graph.Use {
	switch vehicleType {
	case 3: // bus
		return graph.UseBus
	case 4: // ferry
		// TODO: distinct ferry use once the router classifies it
		return graph.UseRail
	default: // tram, subway, rail, cable car, gondola, funicular
		return graph.UseRail
	}
}
