package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gtfs-lateness/internal/gtfs"
)

type Config struct {
	LineName        string
	OriginStop      string
	DestinationStop string

	WindowStartSec int
	WindowEndSec   int

	WalkToStop   time.Duration
	WalkFromStop time.Duration
	MeetingSec   int

	DepartFromSec int
	DepartToSec   int
	DepartStep    time.Duration

	ScheduleSource string
	DataRoot       string
	DatabaseURL    string
	City           string

	FeedURL       string
	FetchInterval time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	MetricsAddr string

	ChartHTML  string
	ChartPNG   string
	ParquetOut string

	IncludeNegative bool
	ListTrips       bool

	Location *time.Location
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Journey selection: exact line name plus origin and destination stop names
	cfg.LineName = strings.TrimSpace(os.Getenv("LINE_NAME"))
	cfg.OriginStop = strings.TrimSpace(os.Getenv("ORIGIN_STOP"))
	cfg.DestinationStop = strings.TrimSpace(os.Getenv("DESTINATION_STOP"))
	if cfg.LineName == "" || cfg.OriginStop == "" || cfg.DestinationStop == "" {
		return nil, errors.New("LINE_NAME, ORIGIN_STOP and DESTINATION_STOP must be set")
	}

	// Departure window on the origin stop; deliberately has no default
	var err error
	if cfg.WindowStartSec, err = dayTimeEnv("WINDOW_START"); err != nil {
		return nil, err
	}
	if cfg.WindowEndSec, err = dayTimeEnv("WINDOW_END"); err != nil {
		return nil, err
	}
	if cfg.WindowStartSec > cfg.WindowEndSec {
		return nil, errors.New("WINDOW_START is after WINDOW_END")
	}

	// Walking legs on both ends of the ride
	if cfg.WalkToStop, err = durationDefault("WALK_TO_STOP", "5m"); err != nil {
		return nil, err
	}
	if cfg.WalkFromStop, err = durationDefault("WALK_FROM_STOP", "4m"); err != nil {
		return nil, err
	}
	if cfg.WalkToStop < 0 || cfg.WalkFromStop < 0 {
		return nil, errors.New("walking durations cannot be negative")
	}

	// Deadline and the departure grid the curve is evaluated on
	if cfg.MeetingSec, err = dayTimeDefault("MEETING_TIME", "09:05:00"); err != nil {
		return nil, err
	}
	if cfg.DepartFromSec, err = dayTimeDefault("DEPART_FROM", "07:30:00"); err != nil {
		return nil, err
	}
	if cfg.DepartToSec, err = dayTimeDefault("DEPART_TO", "08:30:00"); err != nil {
		return nil, err
	}
	if cfg.DepartFromSec > cfg.DepartToSec {
		return nil, errors.New("DEPART_FROM is after DEPART_TO")
	}
	if cfg.DepartStep, err = durationDefault("DEPART_STEP", "5m"); err != nil {
		return nil, err
	}
	if cfg.DepartStep <= 0 {
		return nil, errors.New("DEPART_STEP must be positive")
	}

	// Snapshot source: dated directories under DATA_ROOT, or Postgres imports
	cfg.DataRoot = getenvDefault("DATA_ROOT", "./data")
	cfg.ScheduleSource = strings.ToLower(getenvDefault("SCHEDULE_SOURCE", "dir"))
	switch cfg.ScheduleSource {
	case "dir":
	case "postgres":
		// Cluster DSN: prefer DATABASE_URL / PG_DSN, else build from PG* vars
		dsn := firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("PG_DSN"),
		)
		if dsn == "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			db := getenvDefault("PGDATABASE", "postgres")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		} else {
			cfg.DatabaseURL = dsn
		}
		// City name selects which recorded imports to walk
		cfg.City = firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME"))
		if cfg.City == "" {
			return nil, errors.New("CITY must be set when SCHEDULE_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid SCHEDULE_SOURCE: %q (want dir or postgres)", cfg.ScheduleSource)
	}

	// Feed archive download (fetch and watch commands)
	cfg.FeedURL = getenvDefault("FEED_URL", "https://transport.tallinn.ee/data/gtfs.zip")
	if cfg.FetchInterval, err = durationDefault("FETCH_INTERVAL", "24h"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval <= 0 {
		return nil, errors.New("FETCH_INTERVAL must be positive")
	}

	// NATS publishing. Empty NATS_URL disables it.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "lateness")
	cfg.LogNATSSubjects = truthy(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Optional report artifacts; each empty path disables that output
	cfg.ChartHTML = os.Getenv("CHART_HTML")
	cfg.ChartPNG = os.Getenv("CHART_PNG")
	cfg.ParquetOut = os.Getenv("PARQUET_OUT")

	cfg.IncludeNegative = truthy(os.Getenv("INCLUDE_NEGATIVE_SAMPLES"))
	cfg.ListTrips = truthy(os.Getenv("LIST_TRIPS"))

	// Time zone, used to date fetched snapshots
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// parseDayTime reads a wall-clock value as seconds since midnight. A value
// containing ':' is an HH:MM:SS clock (hours past 24 allowed), anything
// else is a whole number of minutes.
func parseDayTime(v string) (int, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ":") {
		return gtfs.ParseClock(v)
	}
	min, err := strconv.Atoi(v)
	if err != nil || min < 0 {
		return 0, fmt.Errorf("not a clock or minute value: %q", v)
	}
	return min * 60, nil
}

func dayTimeEnv(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s must be set (HH:MM:SS or whole minutes)", key)
	}
	sec, err := parseDayTime(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return sec, nil
}

func dayTimeDefault(key, def string) (int, error) {
	v := getenvDefault(key, def)
	sec, err := parseDayTime(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return sec, nil
}

func durationDefault(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
