package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func feedZip(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"trips.txt":      "trip_id,trip_long_name\nt1,Zoo - Toompark\n",
		"stops.txt":      "stop_id,stop_name\ns1,Zoo\n",
		"stop_times.txt": "trip_id,stop_id,arrival_time,departure_time,stop_sequence\nt1,s1,08:00:00,08:00:00,1\n",
		"routes.txt":     "route_id\nr1\n",
	})
}

func TestFetchExtractsTables(t *testing.T) {
	archive := feedZip(t)
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	dir, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: root,
		Day:      "2025-05-12",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2025-05-12"), dir)
	assert.Contains(t, gotAgent, "gtfs-lateness")

	for _, name := range tables {
		body, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, body)
	}
	_, err = os.Stat(filepath.Join(dir, "routes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchSkipsCompleteSnapshot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2025-05-12")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("kept"), 0o644))
	}

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	got, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: root,
		Day:      "2025-05-12",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.Zero(t, hits)

	body, err := os.ReadFile(filepath.Join(dir, "trips.txt"))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(body))
}

func TestFetchRebuildsPartialSnapshot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2025-05-12")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trips.txt"), []byte("stale"), 0o644))

	archive := feedZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: root,
		Day:      "2025-05-12",
	})
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(dir, "trips.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "Zoo - Toompark")
	_, err = os.Stat(filepath.Join(dir, "stop_times.txt"))
	assert.NoError(t, err)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: t.TempDir(),
		Day:      "2025-05-12",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchArchiveMissingTable(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"trips.txt": "trip_id,trip_long_name\n",
		"stops.txt": "stop_id,stop_name\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: t.TempDir(),
		Day:      "2025-05-12",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_times.txt")
}

func TestFetchNotAZip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not a feed</html>"))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), Options{
		FeedURL:  srv.URL,
		DataRoot: t.TempDir(),
		Day:      "2025-05-12",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive")
}
