// Package corpus pools matched trips across every schedule snapshot the
// tool can reach, one snapshot per captured day.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gtfs-lateness/internal/gtfs"
	"gtfs-lateness/internal/schedule"
)

// Snapshot is one dated schedule capture and the source that loads it.
type Snapshot struct {
	ID     string
	Source schedule.Source
}

// Day is one snapshot's slice of the corpus.
type Day struct {
	ID      string
	Matches []gtfs.MatchedTrip
}

// Skipped records a snapshot that failed to load and why. Class is a coarse
// bucket (missing or malformed) suitable for a metrics label.
type Skipped struct {
	ID     string
	Reason string
	Class  string
}

// Corpus is the pooled result of matching every readable snapshot.
type Corpus struct {
	Days    []Day
	All     []gtfs.MatchedTrip
	Skipped []Skipped
}

// DirSnapshots enumerates the dated subdirectories of root. ReadDir returns
// entries sorted by name, which is chronological for YYYY-MM-DD layouts.
// Plain files at the top level are ignored.
func DirSnapshots(root string) ([]Snapshot, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}
	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snaps = append(snaps, Snapshot{
			ID:     e.Name(),
			Source: schedule.DirSource{Dir: filepath.Join(root, e.Name())},
		})
	}
	return snaps, nil
}

// ImportSnapshots enumerates the Postgres schedule imports recorded for the
// city, one snapshot per imported database, oldest import first.
func ImportSnapshots(ctx context.Context, baseDSN, city string) ([]Snapshot, error) {
	rootDSN, err := schedule.WithDBName(baseDSN, "postgres")
	if err != nil {
		return nil, fmt.Errorf("invalid base DSN: %w", err)
	}
	meta, err := schedule.Open(rootDSN)
	if err != nil {
		return nil, fmt.Errorf("open meta db: %w", err)
	}
	defer meta.Close()
	if err := schedule.Ping(ctx, meta); err != nil {
		return nil, fmt.Errorf("ping meta db: %w", err)
	}
	imports, err := schedule.ListImports(ctx, meta, city)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(imports))
	for _, imp := range imports {
		dsn, err := schedule.WithDBName(baseDSN, imp.DBName)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, Snapshot{ID: imp.DBName, Source: schedule.DBSource{DSN: dsn}})
	}
	return snaps, nil
}

// Build loads and matches every snapshot in order. A snapshot failing with
// a recoverable load fault (missing table, malformed row or time) is
// reported and skipped; the run aborts on context cancellation or an
// unclassified error. A snapshot with zero matches is a valid empty day.
func Build(ctx context.Context, snaps []Snapshot, sel schedule.Selection, w schedule.Window) (*Corpus, error) {
	c := &Corpus{}
	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tt, err := snap.Source.Load(ctx, sel)
		if err != nil {
			if class := skipClass(err); class != "" {
				log.Printf("skipping snapshot %s: %v", snap.ID, err)
				c.Skipped = append(c.Skipped, Skipped{ID: snap.ID, Reason: err.Error(), Class: class})
				continue
			}
			return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
		}
		matches := schedule.MatchTrips(tt, w)
		c.Days = append(c.Days, Day{ID: snap.ID, Matches: matches})
		c.All = append(c.All, matches...)
	}
	return c, nil
}

// skipClass maps a recoverable load fault to its skip bucket. Anything
// unclassified returns "" and aborts the build.
func skipClass(err error) string {
	switch {
	case errors.Is(err, schedule.ErrSourceNotFound):
		return "missing"
	case errors.Is(err, schedule.ErrMalformedRow), errors.Is(err, gtfs.ErrMalformedTime):
		return "malformed"
	}
	return ""
}
