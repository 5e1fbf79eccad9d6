package schedule

import (
	"context"
	"errors"

	"gtfs-lateness/internal/gtfs"
)

// Selection names one line and one ordered stop pair. All three strings are
// matched byte for byte against the feed; "Zoo " is not "Zoo".
type Selection struct {
	LineName        string
	OriginStop      string
	DestinationStop string
}

// Timetable is one snapshot reduced to what the matcher needs: which trips
// serve the selected line, which stop IDs carry the selected names, and
// every trip's visits in stop_sequence order.
type Timetable struct {
	LineTrips        map[string]struct{}
	OriginStops      map[string]struct{}
	DestinationStops map[string]struct{}
	Trips            map[string]gtfs.Trip
}

func newTimetable() *Timetable {
	return &Timetable{
		LineTrips:        make(map[string]struct{}),
		OriginStops:      make(map[string]struct{}),
		DestinationStops: make(map[string]struct{}),
		Trips:            make(map[string]gtfs.Trip),
	}
}

// Source loads the timetable of one schedule snapshot.
type Source interface {
	Load(ctx context.Context, sel Selection) (*Timetable, error)
}

var (
	// ErrSourceNotFound reports a missing schedule table or snapshot database.
	ErrSourceNotFound = errors.New("schedule source not found")

	// ErrMalformedRow reports a row the loader could not interpret.
	ErrMalformedRow = errors.New("malformed schedule row")
)
