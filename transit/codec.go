package transit

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Sentinel errors for the two failure modes a caller distinguishes.
var (
	ErrNotFound  = errors.New("transit tile not found")
	ErrMalformed = errors.New("malformed transit tile")
)

// Field numbers of the Transit message and its nested records.
const (
	fieldStops     = 1
	fieldRoutes    = 2
	fieldStopPairs = 3

	stopGraphID   = 1
	stopOneStopID = 2
	stopName      = 3
	stopLon       = 4
	stopLat       = 5
	stopOSMWayID  = 6
	stopTimezone  = 7

	routeOneStopID           = 1
	routeOperatedByOneStopID = 2
	routeOperatedByName      = 3
	routeOperatedByWebsite   = 4
	routeColor               = 5
	routeTextColor           = 6
	routeName                = 7
	routeLongName            = 8
	routeDesc                = 9
	routeVehicleType         = 10

	pairOriginGraphID      = 1
	pairDestinationGraphID = 2
	pairRouteIndex         = 3
	pairTripKey            = 4
	pairBlockID            = 5
	pairDepartureTime      = 6
	pairArrivalTime        = 7
	pairServiceStartDate   = 8
	pairServiceEndDate     = 9
	pairServiceDaysOfWeek  = 10
	pairServiceAddedDates  = 11
	pairServiceExceptDates = 12
	pairTripHeadsign       = 13
	pairBikesAllowed       = 14
)

// decoder carries the remaining decode byte budget across nested
// messages. The budget is twice the input size, so messages whose encoded
// size approaches the stream's own size still decode.
type decoder struct{ budget int }

func (d *decoder) spend(n int) error {
	d.budget -= n
	if d.budget < 0 {
		return fmt.Errorf("%w: decode budget exhausted", ErrMalformed)
	}
	return nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

// Decode parses a serialized transit tile.
func Decode(buf []byte) (*Transit, error) {
	d := &decoder{budget: 2 * len(buf)}
	if err := d.spend(len(buf)); err != nil {
		return nil, err
	}
	t := &Transit{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, malformed(n)
		}
		buf = buf[n:]
		if typ != protowire.BytesType {
			if n = protowire.ConsumeFieldValue(num, typ, buf); n < 0 {
				return nil, malformed(n)
			}
			buf = buf[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return nil, malformed(n)
		}
		buf = buf[n:]
		if err := d.spend(len(v)); err != nil {
			return nil, err
		}
		switch num {
		case fieldStops:
			s, err := d.decodeStop(v)
			if err != nil {
				return nil, err
			}
			t.Stops = append(t.Stops, s)
		case fieldRoutes:
			r, err := d.decodeRoute(v)
			if err != nil {
				return nil, err
			}
			t.Routes = append(t.Routes, r)
		case fieldStopPairs:
			sp, err := d.decodeStopPair(v)
			if err != nil {
				return nil, err
			}
			t.StopPairs = append(t.StopPairs, sp)
		}
	}
	return t, nil
}

func (d *decoder) decodeStop(buf []byte) (Stop, error) {
	var s Stop
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v value) error {
		switch num {
		case stopGraphID:
			s.GraphID = v.varint
		case stopOneStopID:
			s.OneStopID = string(v.bytes)
		case stopName:
			s.Name = string(v.bytes)
		case stopLon:
			s.Lon = math.Float64frombits(v.fixed64)
		case stopLat:
			s.Lat = math.Float64frombits(v.fixed64)
		case stopOSMWayID:
			s.OSMWayID = v.varint
		case stopTimezone:
			s.Timezone = uint32(v.varint)
		}
		return nil
	})
	return s, err
}

func (d *decoder) decodeRoute(buf []byte) (Route, error) {
	var r Route
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v value) error {
		switch num {
		case routeOneStopID:
			r.OneStopID = string(v.bytes)
		case routeOperatedByOneStopID:
			r.OperatedByOneStopID = string(v.bytes)
		case routeOperatedByName:
			r.OperatedByName = string(v.bytes)
		case routeOperatedByWebsite:
			r.OperatedByWebsite = string(v.bytes)
		case routeColor:
			r.RouteColor = uint32(v.varint)
		case routeTextColor:
			r.RouteTextColor = uint32(v.varint)
		case routeName:
			r.Name = string(v.bytes)
		case routeLongName:
			r.RouteLongName = string(v.bytes)
		case routeDesc:
			r.RouteDesc = string(v.bytes)
		case routeVehicleType:
			r.VehicleType = uint32(v.varint)
		}
		return nil
	})
	return r, err
}

func (d *decoder) decodeStopPair(buf []byte) (StopPair, error) {
	var sp StopPair
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v value) error {
		switch num {
		case pairOriginGraphID:
			sp.OriginGraphID = v.varint
		case pairDestinationGraphID:
			sp.DestinationGraphID = v.varint
		case pairRouteIndex:
			sp.RouteIndex = uint32(v.varint)
		case pairTripKey:
			sp.TripKey = uint32(v.varint)
		case pairBlockID:
			sp.BlockID = uint32(v.varint)
		case pairDepartureTime:
			sp.OriginDepartureTime = uint32(v.varint)
		case pairArrivalTime:
			sp.DestinationArrivalTime = uint32(v.varint)
		case pairServiceStartDate:
			sp.ServiceStartDate = uint32(v.varint)
		case pairServiceEndDate:
			sp.ServiceEndDate = uint32(v.varint)
		case pairServiceDaysOfWeek:
			if typ == protowire.BytesType {
				vals, err := unpackVarints(v.bytes)
				if err != nil {
					return err
				}
				for _, u := range vals {
					sp.ServiceDaysOfWeek = append(sp.ServiceDaysOfWeek, u != 0)
				}
			} else {
				sp.ServiceDaysOfWeek = append(sp.ServiceDaysOfWeek, v.varint != 0)
			}
		case pairServiceAddedDates:
			if typ == protowire.BytesType {
				vals, err := unpackVarints(v.bytes)
				if err != nil {
					return err
				}
				for _, u := range vals {
					sp.ServiceAddedDates = append(sp.ServiceAddedDates, uint32(u))
				}
			} else {
				sp.ServiceAddedDates = append(sp.ServiceAddedDates, uint32(v.varint))
			}
		case pairServiceExceptDates:
			if typ == protowire.BytesType {
				vals, err := unpackVarints(v.bytes)
				if err != nil {
					return err
				}
				for _, u := range vals {
					sp.ServiceExceptDates = append(sp.ServiceExceptDates, uint32(u))
				}
			} else {
				sp.ServiceExceptDates = append(sp.ServiceExceptDates, uint32(v.varint))
			}
		case pairTripHeadsign:
			sp.TripHeadsign = string(v.bytes)
		case pairBikesAllowed:
			sp.BikesAllowed = v.varint != 0
		}
		return nil
	})
	return sp, err
}

// value carries the decoded payload of one wire field; only the member
// matching the wire type is set.
type value struct {
	varint  uint64
	fixed64 uint64
	bytes   []byte
}

// walkFields iterates the fields of one message, handing each decoded
// value to fn. Unknown wire types are skipped.
func walkFields(buf []byte, fn func(protowire.Number, protowire.Type, value) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return malformed(n)
		}
		buf = buf[n:]
		var v value
		switch typ {
		case protowire.VarintType:
			v.varint, n = protowire.ConsumeVarint(buf)
		case protowire.Fixed64Type:
			v.fixed64, n = protowire.ConsumeFixed64(buf)
		case protowire.Fixed32Type:
			var u32 uint32
			u32, n = protowire.ConsumeFixed32(buf)
			v.fixed64 = uint64(u32)
		case protowire.BytesType:
			v.bytes, n = protowire.ConsumeBytes(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return malformed(n)
			}
			buf = buf[n:]
			continue
		}
		if n < 0 {
			return malformed(n)
		}
		buf = buf[n:]
		if err := fn(num, typ, v); err != nil {
			return err
		}
	}
	return nil
}

func unpackVarints(buf []byte) ([]uint64, error) {
	var vals []uint64
	for len(buf) > 0 {
		u, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return nil, malformed(n)
		}
		vals = append(vals, u)
		buf = buf[n:]
	}
	return vals, nil
}

// Encode renders a transit tile into its wire form.
func Encode(t *Transit) []byte {
	var buf []byte
	for _, s := range t.Stops {
		buf = protowire.AppendTag(buf, fieldStops, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeStop(s))
	}
	for _, r := range t.Routes {
		buf = protowire.AppendTag(buf, fieldRoutes, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeRoute(r))
	}
	for _, sp := range t.StopPairs {
		buf = protowire.AppendTag(buf, fieldStopPairs, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeStopPair(sp))
	}
	return buf
}

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendStringField(buf []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

func appendDoubleField(buf []byte, num protowire.Number, f float64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(buf, math.Float64bits(f))
}

func appendPackedVarints(buf []byte, num protowire.Number, vals []uint64) []byte {
	if len(vals) == 0 {
		return buf
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendVarint(packed, v)
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, packed)
}

func encodeStop(s Stop) []byte {
	var buf []byte
	buf = appendVarintField(buf, stopGraphID, s.GraphID)
	buf = appendStringField(buf, stopOneStopID, s.OneStopID)
	buf = appendStringField(buf, stopName, s.Name)
	buf = appendDoubleField(buf, stopLon, s.Lon)
	buf = appendDoubleField(buf, stopLat, s.Lat)
	buf = appendVarintField(buf, stopOSMWayID, s.OSMWayID)
	buf = appendVarintField(buf, stopTimezone, uint64(s.Timezone))
	return buf
}

func encodeRoute(r Route) []byte {
	var buf []byte
	buf = appendStringField(buf, routeOneStopID, r.OneStopID)
	buf = appendStringField(buf, routeOperatedByOneStopID, r.OperatedByOneStopID)
	buf = appendStringField(buf, routeOperatedByName, r.OperatedByName)
	buf = appendStringField(buf, routeOperatedByWebsite, r.OperatedByWebsite)
	buf = appendVarintField(buf, routeColor, uint64(r.RouteColor))
	buf = appendVarintField(buf, routeTextColor, uint64(r.RouteTextColor))
	buf = appendStringField(buf, routeName, r.Name)
	buf = appendStringField(buf, routeLongName, r.RouteLongName)
	buf = appendStringField(buf, routeDesc, r.RouteDesc)
	buf = appendVarintField(buf, routeVehicleType, uint64(r.VehicleType))
	return buf
}

func encodeStopPair(sp StopPair) []byte {
	var buf []byte
	buf = appendVarintField(buf, pairOriginGraphID, sp.OriginGraphID)
	buf = appendVarintField(buf, pairDestinationGraphID, sp.DestinationGraphID)
	buf = appendVarintField(buf, pairRouteIndex, uint64(sp.RouteIndex))
	buf = appendVarintField(buf, pairTripKey, uint64(sp.TripKey))
	buf = appendVarintField(buf, pairBlockID, uint64(sp.BlockID))
	buf = appendVarintField(buf, pairDepartureTime, uint64(sp.OriginDepartureTime))
	buf = appendVarintField(buf, pairArrivalTime, uint64(sp.DestinationArrivalTime))
	buf = appendVarintField(buf, pairServiceStartDate, uint64(sp.ServiceStartDate))
	buf = appendVarintField(buf, pairServiceEndDate, uint64(sp.ServiceEndDate))
	dow := make([]uint64, len(sp.ServiceDaysOfWeek))
	for i, b := range sp.ServiceDaysOfWeek {
		if b {
			dow[i] = 1
		}
	}
	buf = appendPackedVarints(buf, pairServiceDaysOfWeek, dow)
	added := make([]uint64, len(sp.ServiceAddedDates))
	for i, v := range sp.ServiceAddedDates {
		added[i] = uint64(v)
	}
	buf = appendPackedVarints(buf, pairServiceAddedDates, added)
	except := make([]uint64, len(sp.ServiceExceptDates))
	for i, v := range sp.ServiceExceptDates {
		except[i] = uint64(v)
	}
	buf = appendPackedVarints(buf, pairServiceExceptDates, except)
	buf = appendStringField(buf, pairTripHeadsign, sp.TripHeadsign)
	if sp.BikesAllowed {
		buf = appendVarintField(buf, pairBikesAllowed, 1)
	}
	return buf
}
