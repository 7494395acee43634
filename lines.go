package transitbuilder

import (
	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// transitLine is one unique (route, destination) edge out of an origin
// stop, identified by a dense tile-local line id.
type transitLine struct {
	lineID     uint32
	routeIndex uint32
	dest       graph.GraphId
	shapeID    uint32
}

// stopEdgePlan lists the edges to add for one origin stop. The
// intra-station list is reserved for the station hierarchy.
type stopEdgePlan struct {
	origin       graph.GraphId
	intraStation []graph.GraphId
	lines        []transitLine
}

type lineKey struct {
	route uint32
	dest  graph.GraphId
}

// buildStopEdgePlans collapses the grouped departures of each origin stop
// into unique (route, destination) lines, numbering line ids densely from
// 1 across the tile, and registers every departure with the builder under
// its line id. Plans come back in stop order, which is sorted pbf-id
// order.
func buildStopEdgePlans(t *transit.Transit, departures map[graph.GraphId][]departure, b *graph.TileBuilder) []stopEdgePlan {
	plans := make([]stopEdgePlan, 0, len(t.Stops))
	uniqueLineID := uint32(1)
	for _, stop := range t.Stops {
		stopID := graph.GraphId(stop.GraphID)
		plan := stopEdgePlan{origin: stopID}
		uniqueEdges := map[lineKey]uint32{}
		for _, dep := range departures[stopID] {
			key := lineKey{route: dep.route, dest: dep.dest}
			lineID, ok := uniqueEdges[key]
			if !ok {
				lineID = uniqueLineID
				uniqueEdges[key] = lineID
				uniqueLineID++
				plan.lines = append(plan.lines, transitLine{
					lineID:     lineID,
					routeIndex: dep.route,
					dest:       dep.dest,
					shapeID:    dep.shapeID,
				})
			}
			b.AddTransitDeparture(graph.TransitDeparture{
				LineID:         lineID,
				TripID:         dep.trip,
				RouteIndex:     dep.route,
				BlockID:        dep.blockID,
				HeadsignOffset: b.AddName(dep.headsign),
				DepartureTime:  dep.depTime,
				ElapsedTime:    dep.arrTime - dep.depTime,
				EndDay:         dep.endDay,
				DaysOfWeek:     dep.dow,
				Days:           dep.days,
			})
		}
		plans = append(plans, plan)
	}
	return plans
}
