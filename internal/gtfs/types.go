package gtfs

// StopVisit is one scheduled call of a trip at a stop.
type StopVisit struct {
	StopID       string
	Sequence     int
	ArrivalSec   int // seconds since midnight (can exceed 24h)
	DepartureSec int // seconds since midnight (can exceed 24h)
}

// Trip is a vehicle run with its stop visits in sequence order.
type Trip struct {
	TripID string
	Visits []StopVisit
}

// MatchedTrip is one usable origin-to-destination run found in a snapshot.
type MatchedTrip struct {
	TripID                string
	OriginStopID          string
	OriginDepartureSec    int
	DestinationStopID     string
	DestinationArrivalSec int
	TravelSec             int // negative when the feed is inconsistent; kept as-is
	IntermediateStops     int
}
