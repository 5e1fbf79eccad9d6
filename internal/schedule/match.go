package schedule

import (
	"sort"

	"gtfs-lateness/internal/gtfs"
)

// Window bounds the origin departure time, inclusive on both ends, in
// seconds since midnight.
type Window struct {
	StartSec int
	EndSec   int
}

func (w Window) Contains(sec int) bool { return sec >= w.StartSec && sec <= w.EndSec }

// MatchTrips scans every trip in the timetable for a usable origin to
// destination run and returns one sample per qualifying trip, ordered by
// origin departure.
//
// Geometry first: the first visit (lowest sequence) at an origin stop,
// then the first destination visit strictly after it. A trip serving the
// stops in the wrong order, or only one of them, yields nothing. The line
// filter runs last, so a trip on a foreign line is dropped only after
// passing the geometry and window checks.
func MatchTrips(tt *Timetable, w Window) []gtfs.MatchedTrip {
	var out []gtfs.MatchedTrip
	for _, trip := range tt.Trips {
		m, ok := matchTrip(trip, tt, w)
		if !ok {
			continue
		}
		if _, onLine := tt.LineTrips[trip.TripID]; !onLine {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OriginDepartureSec != out[j].OriginDepartureSec {
			return out[i].OriginDepartureSec < out[j].OriginDepartureSec
		}
		return out[i].TripID < out[j].TripID
	})
	return out
}

func matchTrip(trip gtfs.Trip, tt *Timetable, w Window) (gtfs.MatchedTrip, bool) {
	origin := -1
	for i, v := range trip.Visits {
		if _, ok := tt.OriginStops[v.StopID]; ok {
			origin = i
			break
		}
	}
	if origin < 0 {
		return gtfs.MatchedTrip{}, false
	}
	dest := -1
	for i := origin + 1; i < len(trip.Visits); i++ {
		if _, ok := tt.DestinationStops[trip.Visits[i].StopID]; ok {
			dest = i
			break
		}
	}
	if dest < 0 {
		return gtfs.MatchedTrip{}, false
	}
	o, d := trip.Visits[origin], trip.Visits[dest]
	if !w.Contains(o.DepartureSec) {
		return gtfs.MatchedTrip{}, false
	}
	return gtfs.MatchedTrip{
		TripID:                trip.TripID,
		OriginStopID:          o.StopID,
		OriginDepartureSec:    o.DepartureSec,
		DestinationStopID:     d.StopID,
		DestinationArrivalSec: d.ArrivalSec,
		TravelSec:             d.ArrivalSec - o.DepartureSec,
		// Sequence numbers need not be dense; gaps count as stops.
		IntermediateStops: d.Sequence - o.Sequence - 1,
	}, true
}
