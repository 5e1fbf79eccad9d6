package schedule

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gtfs-lateness/internal/gtfs"
)

// DirSource reads one snapshot directory holding trips.txt, stops.txt and
// stop_times.txt as laid down by the daily feed download.
type DirSource struct {
	Dir string
}

func (s DirSource) Load(ctx context.Context, sel Selection) (*Timetable, error) {
	tt := newTimetable()

	err := s.readTable(ctx, "trips.txt", []string{"trip_id", "trip_long_name"},
		func(get func(string) string, line int) error {
			if get("trip_long_name") == sel.LineName {
				tt.LineTrips[get("trip_id")] = struct{}{}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = s.readTable(ctx, "stops.txt", []string{"stop_id", "stop_name"},
		func(get func(string) string, line int) error {
			name := get("stop_name")
			if name == sel.OriginStop {
				tt.OriginStops[get("stop_id")] = struct{}{}
			}
			if name == sel.DestinationStop {
				tt.DestinationStops[get("stop_id")] = struct{}{}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	cols := []string{"trip_id", "stop_id", "arrival_time", "departure_time", "stop_sequence"}
	err = s.readTable(ctx, "stop_times.txt", cols,
		func(get func(string) string, line int) error {
			seq, err := strconv.Atoi(strings.TrimSpace(get("stop_sequence")))
			if err != nil {
				return fmt.Errorf("%w: stop_times.txt line %d: stop_sequence %q", ErrMalformedRow, line, get("stop_sequence"))
			}
			arr, err := gtfs.ParseClock(get("arrival_time"))
			if err != nil {
				return fmt.Errorf("%w: stop_times.txt line %d: %w", ErrMalformedRow, line, err)
			}
			dep, err := gtfs.ParseClock(get("departure_time"))
			if err != nil {
				return fmt.Errorf("%w: stop_times.txt line %d: %w", ErrMalformedRow, line, err)
			}
			tripID := get("trip_id")
			tr := tt.Trips[tripID]
			tr.TripID = tripID
			tr.Visits = append(tr.Visits, gtfs.StopVisit{
				StopID:       get("stop_id"),
				Sequence:     seq,
				ArrivalSec:   arr,
				DepartureSec: dep,
			})
			tt.Trips[tripID] = tr
			return nil
		})
	if err != nil {
		return nil, err
	}

	// The feed usually writes stop_times in sequence order, but the matcher
	// depends on it, so order explicitly.
	for _, tr := range tt.Trips {
		sort.Slice(tr.Visits, func(i, j int) bool { return tr.Visits[i].Sequence < tr.Visits[j].Sequence })
	}
	return tt, nil
}

// readTable streams one CSV table, handing each record to row via a
// column-name accessor. The first header cell may carry a UTF-8 BOM; the
// source feed writes one on stop_times.txt.
func (s DirSource) readTable(ctx context.Context, name string, required []string, row func(get func(string) string, line int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.Dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: unreadable header: %v", ErrMalformedRow, name, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return fmt.Errorf("%w: %s: missing column %q", ErrMalformedRow, name, c)
		}
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", ErrMalformedRow, name, line, err)
		}
		get := func(col string) string { return rec[idx[col]] }
		if err := row(get, line); err != nil {
			return err
		}
	}
}
