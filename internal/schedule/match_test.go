package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtfs-lateness/internal/gtfs"
)

func visit(stopID string, seq, arrSec, depSec int) gtfs.StopVisit {
	return gtfs.StopVisit{StopID: stopID, Sequence: seq, ArrivalSec: arrSec, DepartureSec: depSec}
}

func testTimetable(trips ...gtfs.Trip) *Timetable {
	tt := newTimetable()
	tt.OriginStops["o"] = struct{}{}
	tt.OriginStops["o2"] = struct{}{}
	tt.DestinationStops["d"] = struct{}{}
	tt.DestinationStops["d2"] = struct{}{}
	for _, tr := range trips {
		tt.LineTrips[tr.TripID] = struct{}{}
		tt.Trips[tr.TripID] = tr
	}
	return tt
}

// window 08:00:00..09:05:00
var testWindow = Window{StartSec: 28800, EndSec: 32700}

func TestMatchTripsBasic(t *testing.T) {
	tt := testTimetable(gtfs.Trip{TripID: "t1", Visits: []gtfs.StopVisit{
		visit("x", 1, 28700, 28740),
		visit("o", 2, 28800, 28860),
		visit("x2", 3, 29000, 29000),
		visit("d", 4, 29400, 29460),
	}})

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, "t1", m.TripID)
	assert.Equal(t, "o", m.OriginStopID)
	assert.Equal(t, 28860, m.OriginDepartureSec)
	assert.Equal(t, "d", m.DestinationStopID)
	assert.Equal(t, 29400, m.DestinationArrivalSec)
	assert.Equal(t, 540, m.TravelSec)
	assert.Equal(t, 1, m.IntermediateStops)
}

func TestMatchTripsWindowInclusive(t *testing.T) {
	mk := func(id string, depSec int) gtfs.Trip {
		return gtfs.Trip{TripID: id, Visits: []gtfs.StopVisit{
			visit("o", 1, depSec, depSec),
			visit("d", 2, depSec+600, depSec+600),
		}}
	}
	tt := testTimetable(
		mk("atStart", testWindow.StartSec),
		mk("atEnd", testWindow.EndSec),
		mk("before", testWindow.StartSec-1),
		mk("after", testWindow.EndSec+1),
	)

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 2)
	assert.Equal(t, "atStart", got[0].TripID)
	assert.Equal(t, "atEnd", got[1].TripID)
}

func TestMatchTripsDirection(t *testing.T) {
	// destination precedes origin: no usable run in this direction
	tt := testTimetable(gtfs.Trip{TripID: "reverse", Visits: []gtfs.StopVisit{
		visit("d", 1, 28800, 28800),
		visit("o", 2, 29000, 29000),
	}})

	assert.Empty(t, MatchTrips(tt, testWindow))
}

func TestMatchTripsLoopRoute(t *testing.T) {
	// origin and destination both visited twice: only the first origin and
	// the first destination after it count
	tt := testTimetable(gtfs.Trip{TripID: "loop", Visits: []gtfs.StopVisit{
		visit("o", 1, 28800, 28800),
		visit("x", 2, 28900, 28900),
		visit("d", 3, 29100, 29100),
		visit("o2", 4, 29300, 29300),
		visit("d2", 5, 29500, 29500),
	}})

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 1)
	assert.Equal(t, "o", got[0].OriginStopID)
	assert.Equal(t, "d", got[0].DestinationStopID)
	assert.Equal(t, 29100, got[0].DestinationArrivalSec)
}

func TestMatchTripsLineFilterLast(t *testing.T) {
	tt := testTimetable(gtfs.Trip{TripID: "t1", Visits: []gtfs.StopVisit{
		visit("o", 1, 28800, 28800),
		visit("d", 2, 29400, 29400),
	}})
	// foreign trip passes geometry and window but serves another line
	tt.Trips["other"] = gtfs.Trip{TripID: "other", Visits: []gtfs.StopVisit{
		visit("o", 1, 28800, 28800),
		visit("d", 2, 29400, 29400),
	}}

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].TripID)
}

func TestMatchTripsPartialService(t *testing.T) {
	tt := testTimetable(
		gtfs.Trip{TripID: "originOnly", Visits: []gtfs.StopVisit{
			visit("o", 1, 28800, 28800),
			visit("x", 2, 29000, 29000),
		}},
		gtfs.Trip{TripID: "destOnly", Visits: []gtfs.StopVisit{
			visit("x", 1, 28800, 28800),
			visit("d", 2, 29000, 29000),
		}},
	)

	assert.Empty(t, MatchTrips(tt, testWindow))
}

func TestMatchTripsNegativeTravelKept(t *testing.T) {
	// inconsistent feed: arrival before departure
	tt := testTimetable(gtfs.Trip{TripID: "odd", Visits: []gtfs.StopVisit{
		visit("o", 1, 29000, 29000),
		visit("d", 2, 28900, 28900),
	}})

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 1)
	assert.Equal(t, -100, got[0].TravelSec)
}

func TestMatchTripsSparseSequences(t *testing.T) {
	tt := testTimetable(gtfs.Trip{TripID: "sparse", Visits: []gtfs.StopVisit{
		visit("o", 10, 28800, 28800),
		visit("d", 30, 29400, 29400),
	}})

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 1)
	// sequence gaps count as stops
	assert.Equal(t, 19, got[0].IntermediateStops)
}

func TestMatchTripsOrderedByDeparture(t *testing.T) {
	mk := func(id string, depSec int) gtfs.Trip {
		return gtfs.Trip{TripID: id, Visits: []gtfs.StopVisit{
			visit("o", 1, depSec, depSec),
			visit("d", 2, depSec+300, depSec+300),
		}}
	}
	tt := testTimetable(mk("late", 30000), mk("early", 29000), mk("mid", 29500))

	got := MatchTrips(tt, testWindow)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"early", "mid", "late"}, []string{got[0].TripID, got[1].TripID, got[2].TripID})
}
