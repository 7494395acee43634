package transitbuilder

import (
	"go.uber.org/zap"

	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// departure is one scheduled stop pair carried through line
// identification. Stop ids stay in pbf space until the merge.
type departure struct {
	days         uint64
	orig         graph.GraphId
	dest         graph.GraphId
	trip         uint32
	route        uint32
	blockID      uint32
	shapeID      uint32
	depTime      uint32
	arrTime      uint32
	endDay       uint32
	dow          uint32
	bikesAllowed bool
	headsign     string
}

// processStopPairs walks the scheduled stop pairs of a transit tile and
// groups departure records by origin stop. Records whose active-days
// bitmask ends up empty are dropped; the count of drops is returned.
// stopAccess collects the bikes-allowed hint per endpoint stop, last
// write wins.
func processStopPairs(t *transit.Transit, tileDate uint32, stopAccess map[graph.GraphId]bool, tileID graph.GraphId) (map[graph.GraphId][]departure, uint32) {
	log := zap.S()
	departures := map[graph.GraphId][]departure{}
	if len(t.StopPairs) == 0 {
		if len(t.Stops) > 0 {
			log.Errorf("Tile %d has 0 schedule stop pairs but has %d stops",
				tileID.TileID(), len(t.Stops))
		}
		return departures, 0
	}

	var rejected uint32
	total := 0
	for _, sp := range t.StopPairs {
		dep := departure{
			orig:         graph.GraphId(sp.OriginGraphID),
			dest:         graph.GraphId(sp.DestinationGraphID),
			trip:         sp.TripKey,
			route:        sp.RouteIndex,
			blockID:      sp.BlockID,
			depTime:      sp.OriginDepartureTime,
			arrTime:      sp.DestinationArrivalTime,
			bikesAllowed: sp.BikesAllowed,
			headsign:     sp.TripHeadsign,
		}

		var dowMask uint32
		for x, set := range sp.ServiceDaysOfWeek {
			if set && x < 7 {
				dowMask |= 1 << x
			}
		}
		dep.dow = dowMask

		start := FromJulianDay(sp.ServiceStartDate)
		end := FromJulianDay(sp.ServiceEndDate)
		dep.days = ServiceDays(start, end, tileDate, dowMask)
		for _, jdn := range sp.ServiceExceptDates {
			dep.days = RemoveServiceDay(dep.days, start, end, tileDate, FromJulianDay(jdn))
		}
		for _, jdn := range sp.ServiceAddedDates {
			dep.days = AddServiceDay(dep.days, start, end, tileDate, FromJulianDay(jdn))
		}
		if dep.days == 0 {
			log.Warnf("Tile %d: rejected stop pair, no active days before end date %s",
				tileID.TileID(), end.Format("2006-01-02"))
			rejected++
			continue
		}
		dep.endDay = EndDayOffset(start, end)

		stopAccess[dep.orig] = sp.BikesAllowed
		stopAccess[dep.dest] = sp.BikesAllowed

		departures[dep.orig] = append(departures[dep.orig], dep)
		total++
	}
	log.Infof("Tile %d: added %d departures", tileID.TileID(), total)
	return departures, rejected
}
