// Package fetch downloads the published schedule archive and lays it down
// as one dated snapshot directory for the corpus walk.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// tables are the archive members a snapshot needs; everything else in the
// feed zip (routes, calendars, shapes) stays behind.
var tables = []string{"trips.txt", "stops.txt", "stop_times.txt"}

type Options struct {
	FeedURL  string
	DataRoot string
	Day      string // snapshot directory name, normally YYYY-MM-DD
}

// Fetch downloads the feed archive and extracts the schedule tables into
// DataRoot/Day, returning the snapshot directory. A complete snapshot is
// left untouched so a daily re-run is safe; a partial one is rebuilt.
func Fetch(ctx context.Context, client *http.Client, o Options) (string, error) {
	dir := filepath.Join(o.DataRoot, o.Day)
	if complete(dir) {
		log.Printf("snapshot %s already complete, skipping fetch", o.Day)
		return dir, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.FeedURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "gtfs-lateness/1.0")

	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed HTTP %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read feed: %w", err)
	}

	if err := extract(body, dir); err != nil {
		return "", err
	}
	log.Printf("snapshot %s fetched (%d bytes)", o.Day, len(body))
	return dir, nil
}

func complete(dir string) bool {
	for _, name := range tables {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

func extract(archive []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open feed archive: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	for _, name := range tables {
		f, err := zr.Open(name)
		if err != nil {
			return fmt.Errorf("feed archive missing %s: %w", name, err)
		}
		err = writeFile(filepath.Join(dir, name), f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
