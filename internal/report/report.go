// Package report renders a run's results: console summary, distribution
// statistics, curve charts and a parquet export of the sample pool.
package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"gtfs-lateness/internal/corpus"
	"gtfs-lateness/internal/gtfs"
	"gtfs-lateness/internal/lateness"
)

// Stats summarizes a travel-time distribution in minutes.
type Stats struct {
	Count     int
	MeanMin   float64
	MedianMin float64
	P90Min    float64
}

// TravelStats computes distribution statistics over the samples' travel
// times. Zero value for an empty pool.
func TravelStats(samples []gtfs.MatchedTrip) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	mins := make([]float64, len(samples))
	for i, s := range samples {
		mins[i] = float64(s.TravelSec) / 60
	}
	sort.Float64s(mins)
	return Stats{
		Count:     len(mins),
		MeanMin:   stat.Mean(mins, nil),
		MedianMin: stat.Quantile(0.5, stat.Empirical, mins, nil),
		P90Min:    stat.Quantile(0.9, stat.Empirical, mins, nil),
	}
}

// PositiveTravel drops samples whose travel time is not positive. The
// matcher keeps them as a data-quality signal; estimation and statistics
// exclude them unless the run asks otherwise.
func PositiveTravel(samples []gtfs.MatchedTrip) []gtfs.MatchedTrip {
	kept := make([]gtfs.MatchedTrip, 0, len(samples))
	for _, s := range samples {
		if s.TravelSec > 0 {
			kept = append(kept, s)
		}
	}
	return kept
}

// Summary is everything the console report needs for one run.
type Summary struct {
	RunID       string
	Line        string
	Origin      string
	Destination string
	Corpus      *corpus.Corpus
	Stats       Stats
	Dropped     int // samples excluded from estimation
	Model       lateness.Model
	Curve       lateness.Curve
}

// Write renders the run summary: snapshot breakdown, skipped days with
// reasons, travel-time statistics and the lateness curve.
func Write(w io.Writer, s Summary) {
	fmt.Fprintf(w, "run %s  line %q  %s -> %s\n", s.RunID, s.Line, s.Origin, s.Destination)
	fmt.Fprintf(w, "snapshots: %d processed, %d skipped\n", len(s.Corpus.Days), len(s.Corpus.Skipped))
	for _, d := range s.Corpus.Days {
		fmt.Fprintf(w, "  %s: %d matched trips\n", d.ID, len(d.Matches))
	}
	for _, sk := range s.Corpus.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", sk.ID, sk.Reason)
	}
	if s.Dropped > 0 {
		fmt.Fprintf(w, "samples: %d used, %d dropped (non-positive travel time)\n", s.Stats.Count, s.Dropped)
	} else {
		fmt.Fprintf(w, "samples: %d used\n", s.Stats.Count)
	}
	if s.Stats.Count > 0 {
		fmt.Fprintf(w, "travel time: mean %.2f min, median %.2f min, p90 %.2f min\n",
			s.Stats.MeanMin, s.Stats.MedianMin, s.Stats.P90Min)
		walks := float64(s.Model.WalkToStopSec+s.Model.WalkFromStopSec) / 60
		fmt.Fprintf(w, "door to door on the mean ride: %.2f min\n", walks+s.Stats.MeanMin)
	}
	if len(s.Curve) > 0 {
		fmt.Fprintf(w, "lateness by departure (meeting %s):\n", gtfs.FormatClock(s.Model.DeadlineSec))
		for _, pt := range s.Curve {
			fmt.Fprintf(w, "  %s  p=%.2f\n", gtfs.FormatClock(pt.DepartureSec), pt.Probability)
		}
	}
}

// WriteTrips lists every matched trip, fastest ride first. Snapshot IDs
// qualify the trips because trip IDs repeat across snapshots.
func WriteTrips(w io.Writer, c *corpus.Corpus) {
	type row struct {
		day string
		m   gtfs.MatchedTrip
	}
	var rows []row
	for _, d := range c.Days {
		for _, m := range d.Matches {
			rows = append(rows, row{day: d.ID, m: m})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].m.TravelSec < rows[j].m.TravelSec })
	for _, r := range rows {
		fmt.Fprintf(w, "%s  trip %s  %s %s -> %s %s  %.1f min, %d stops between\n",
			r.day, r.m.TripID,
			gtfs.FormatClock(r.m.OriginDepartureSec), r.m.OriginStopID,
			gtfs.FormatClock(r.m.DestinationArrivalSec), r.m.DestinationStopID,
			float64(r.m.TravelSec)/60, r.m.IntermediateStops)
	}
}
