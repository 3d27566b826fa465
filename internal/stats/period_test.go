package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, name := range []string{"24h", "7d", "30d", "90d"} {
		p, err := ParsePeriod(name)
		require.NoError(t, err)
		require.Equal(t, name, p.Name())
	}
}

func TestParsePeriodFailsClosed(t *testing.T) {
	for _, bad := range []string{"", "1h", "365d", "all", "24H", "7d; DROP TABLE events"} {
		_, err := ParsePeriod(bad)
		require.ErrorIs(t, err, ErrInvalidPeriod, "period %q", bad)
	}
}

func TestPeriodSinceAndBuckets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	day, err := ParsePeriod("24h")
	require.NoError(t, err)
	require.Equal(t, now.Add(-24*time.Hour), day.Since(now))
	require.True(t, day.Hourly())

	week, err := ParsePeriod("7d")
	require.NoError(t, err)
	require.Equal(t, now.Add(-7*24*time.Hour), week.Since(now))
	require.False(t, week.Hourly())
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, clampLimit(0))
	require.Equal(t, DefaultLimit, clampLimit(-5))
	require.Equal(t, 40, clampLimit(40))
	require.Equal(t, 100, clampLimit(250))
}
