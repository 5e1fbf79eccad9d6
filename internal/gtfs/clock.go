package gtfs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTime reports a schedule time that is not HH:MM:SS.
var ErrMalformedTime = errors.New("malformed time")

// ParseClock converts a GTFS HH:MM:SS string to seconds since midnight.
// Hours may exceed 23: feeds encode service past midnight as 24:xx, 25:xx
// on the previous service day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return h*3600 + m*60 + sec, nil
}

// FormatClock renders seconds since midnight as zero-padded HH:MM, minute
// precision, hours running past 23 when the input does. Seconds truncate.
// Negative input panics.
func FormatClock(sec int) string {
	if sec < 0 {
		panic(fmt.Sprintf("gtfs: negative seconds since midnight: %d", sec))
	}
	return fmt.Sprintf("%02d:%02d", sec/3600, (sec%3600)/60)
}
