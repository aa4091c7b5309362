package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readings(values ...float64) []Reading {
	out := make([]Reading, len(values))
	for i, v := range values {
		out[i] = Reading{Value: v}
	}
	return out
}

func TestSummarizeEmptyBucket(t *testing.T) {
	s := Summarize(&DailyBucket{Date: "2026-10-19"})

	assert.Equal(t, "0 high, 0 low", s.Tides)
	assert.Nil(t, s.PeakWindKmh)
	assert.Nil(t, s.PeakSwellM)
	assert.Nil(t, s.AirTempMinC)
	assert.Nil(t, s.AirTempMaxC)
	assert.Nil(t, s.AirTempAvgC)
	assert.Nil(t, s.WaterTempAvgC)
	assert.Nil(t, s.CloudCoverAvgPct)
	assert.Nil(t, s.Sunrise)
	assert.Nil(t, s.Sunset)
}

func TestSummarizeStatistics(t *testing.T) {
	sunrise := "2026-10-19 06:39 NZDT"
	b := &DailyBucket{
		Date:      "2026-10-19",
		HighTides: []TideEvent{{HeightM: 2.35}, {HeightM: 2.1}},
		LowTides:  []TideEvent{{HeightM: 0.4}},
		Wind: []WindReading{
			{SpeedKmh: 18.0}, {SpeedKmh: 32.4}, {SpeedKmh: 25.2},
		},
		Swell:            readings(1.2, 1.8, 1.5),
		AirTemperature:   readings(12.0, 15.5, 14.0),
		WaterTemperature: readings(16.0),
		CloudCover:       readings(20, 40, 35),
		Sunrise:          &sunrise,
	}

	s := Summarize(b)

	assert.Equal(t, "2 high, 1 low", s.Tides)
	require.NotNil(t, s.PeakWindKmh)
	assert.Equal(t, 32.4, *s.PeakWindKmh)
	require.NotNil(t, s.PeakSwellM)
	assert.Equal(t, 1.8, *s.PeakSwellM)

	assert.Equal(t, 12.0, *s.AirTempMinC)
	assert.Equal(t, 15.5, *s.AirTempMaxC)
	assert.Equal(t, 13.8, *s.AirTempAvgC)

	assert.Equal(t, 16.0, *s.WaterTempMinC)
	assert.Equal(t, 16.0, *s.WaterTempMaxC)
	assert.Equal(t, 16.0, *s.WaterTempAvgC)

	assert.Equal(t, 31.7, *s.CloudCoverAvgPct)

	assert.Equal(t, &sunrise, s.Sunrise)
	assert.Nil(t, s.Sunset)
}

func TestSummarizeDoesNotMutateBucket(t *testing.T) {
	b := &DailyBucket{Date: "2026-10-19", Swell: readings(3, 1, 2)}

	Summarize(b)

	assert.Equal(t, readings(3, 1, 2), b.Swell)
}
