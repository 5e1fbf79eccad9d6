package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gtfs-lateness/internal/gtfs"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// WithDBName returns a DSN identical to the input but with the database path
// replaced. Supports postgres:// and postgresql:// schemes.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		// allow missing scheme by prefixing postgres://
		if !strings.Contains(dsn, "://") {
			dsn = "postgres://" + dsn
			u, err = url.Parse(dsn)
			if err != nil {
				return "", err
			}
		}
	}
	if !strings.HasPrefix(database, "/") {
		u.Path = "/" + database
	} else {
		u.Path = database
	}
	return u.String(), nil
}

// Import is one dated schedule import in the cluster, as recorded by the
// importer in public.latest_successful_imports.
type Import struct {
	DBName     string
	ImportedAt time.Time
}

// ListImports returns every import whose db_name matches the city, oldest
// first. The caller must be connected to the cluster's meta database
// (usually 'postgres').
func ListImports(ctx context.Context, meta *sql.DB, city string) ([]Import, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("city is required")
	}
	q := `
SELECT db_name, imported_at
FROM public.latest_successful_imports
WHERE db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at ASC`
	rows, err := meta.QueryContext(ctx, q, city)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()
	var imports []Import
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.DBName, &imp.ImportedAt); err != nil {
			return nil, err
		}
		if imp.DBName == "" {
			continue
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(imports) == 0 {
		return nil, fmt.Errorf("no imports found for city like %q", city)
	}
	return imports, nil
}

// DBSource loads the timetable from one imported snapshot database. The
// connection is opened per load and closed with it; a corpus touches each
// snapshot exactly once.
type DBSource struct {
	DSN string
}

func (s DBSource) Load(ctx context.Context, sel Selection) (*Timetable, error) {
	db, err := Open(s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	defer db.Close()
	if err := Ping(ctx, db); err != nil {
		// A dropped import database is a missing snapshot, not a fatal fault.
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}

	tt := newTimetable()

	rows, err := db.QueryContext(ctx, `SELECT trip_id FROM trips WHERE trip_long_name = $1`, sel.LineName)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		tt.LineTrips[id] = struct{}{}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT stop_id, stop_name FROM stops WHERE stop_name IN ($1, $2)`,
		sel.OriginStop, sel.DestinationStop)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, err
		}
		if name == sel.OriginStop {
			tt.OriginStops[id] = struct{}{}
		}
		if name == sel.DestinationStop {
			tt.DestinationStops[id] = struct{}{}
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	// arrival_time and departure_time may be stored as text or interval;
	// cast to text and parse the same way as the file loader.
	q := `
SELECT trip_id, stop_id,
       COALESCE(arrival_time::text, ''),
       COALESCE(departure_time::text, ''),
       stop_sequence
FROM stop_times
ORDER BY trip_id, stop_sequence`
	rows, err = db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stop_times: %w", err)
	}
	for rows.Next() {
		var tripID, stopID, arrS, depS string
		var seq int
		if err := rows.Scan(&tripID, &stopID, &arrS, &depS, &seq); err != nil {
			rows.Close()
			return nil, err
		}
		arr, err := gtfs.ParseClock(arrS)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: stop_times trip %s seq %d: %w", ErrMalformedRow, tripID, seq, err)
		}
		dep, err := gtfs.ParseClock(depS)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: stop_times trip %s seq %d: %w", ErrMalformedRow, tripID, seq, err)
		}
		tr := tt.Trips[tripID]
		tr.TripID = tripID
		tr.Visits = append(tr.Visits, gtfs.StopVisit{
			StopID:       stopID,
			Sequence:     seq,
			ArrivalSec:   arr,
			DepartureSec: dep,
		})
		tt.Trips[tripID] = tr
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return tt, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	return err
}
