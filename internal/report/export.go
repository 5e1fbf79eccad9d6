package report

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"gtfs-lateness/internal/corpus"
	"gtfs-lateness/internal/gtfs"
)

// ParquetSample is the export schema: one row per matched trip, qualified
// by its snapshot so downstream analysis can key on snapshot+trip.
type ParquetSample struct {
	Snapshot           string  `parquet:"snapshot"`
	TripID             string  `parquet:"trip_id"`
	OriginStopID       string  `parquet:"origin_stop_id"`
	OriginDeparture    string  `parquet:"origin_departure"`
	OriginDepartureSec int32   `parquet:"origin_departure_sec"`
	DestStopID         string  `parquet:"dest_stop_id"`
	DestArrival        string  `parquet:"dest_arrival"`
	DestArrivalSec     int32   `parquet:"dest_arrival_sec"`
	TravelMin          float64 `parquet:"travel_min"`
	IntermediateStops  int32   `parquet:"intermediate_stops"`
}

// WriteParquet exports the corpus as a flat parquet file for notebook use.
func WriteParquet(path string, c *corpus.Corpus) error {
	var rows []ParquetSample
	for _, d := range c.Days {
		for _, m := range d.Matches {
			rows = append(rows, ParquetSample{
				Snapshot:           d.ID,
				TripID:             m.TripID,
				OriginStopID:       m.OriginStopID,
				OriginDeparture:    gtfs.FormatClock(m.OriginDepartureSec),
				OriginDepartureSec: int32(m.OriginDepartureSec),
				DestStopID:         m.DestinationStopID,
				DestArrival:        gtfs.FormatClock(m.DestinationArrivalSec),
				DestArrivalSec:     int32(m.DestinationArrivalSec),
				TravelMin:          float64(m.TravelSec) / 60,
				IntermediateStops:  int32(m.IntermediateStops),
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[ParquetSample](f)
	if _, err := writer.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}
