package gtfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		sec, err := ParseClock("08:15:30")
		require.NoError(t, err)
		assert.Equal(t, 8*3600+15*60+30, sec)
	})

	t.Run("midnight", func(t *testing.T) {
		sec, err := ParseClock("00:00:00")
		require.NoError(t, err)
		assert.Equal(t, 0, sec)
	})

	t.Run("hours past midnight", func(t *testing.T) {
		sec, err := ParseClock("25:10:00")
		require.NoError(t, err)
		assert.Equal(t, 90600, sec)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, s := range []string{"", "08:00", "08:00:00:00", "8h15m", "aa:bb:cc", "08:xx:00", "08:00:"} {
			_, err := ParseClock(s)
			require.Error(t, err, "input %q", s)
			assert.ErrorIs(t, err, ErrMalformedTime, "input %q", s)
		}
	})
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "09:05", FormatClock(9*3600+5*60))
	assert.Equal(t, "25:10", FormatClock(90600))
	// seconds truncate into the containing minute
	assert.Equal(t, "07:59", FormatClock(8*3600-1))
}

func TestFormatClockGrid(t *testing.T) {
	for h := 0; h <= 47; h++ {
		for m := 0; m < 60; m++ {
			want := fmt.Sprintf("%02d:%02d", h, m)
			assert.Equal(t, want, FormatClock(h*3600+m*60))
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00:00", "07:30:00", "09:05:00", "23:59:00", "24:00:00", "27:45:00"} {
		sec, err := ParseClock(s)
		require.NoError(t, err)
		assert.Equal(t, s[:5], FormatClock(sec))
	}
}

func TestFormatClockNegativePanics(t *testing.T) {
	assert.Panics(t, func() { FormatClock(-1) })
}
