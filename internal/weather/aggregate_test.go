package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aucklandWindow(days int) (*Aggregator, ForecastWindow) {
	clock := newTestClock("Pacific/Auckland", utc("2026-10-19T00:00:00Z"))
	return NewAggregator(clock), clock.WindowFor(auckland, days)
}

func TestAggregateCreatesEveryBucket(t *testing.T) {
	for _, days := range []int{0, 1, 3, 7, 9} {
		agg, w := aucklandWindow(days)
		buckets := agg.Aggregate(w, nil)

		want := ClampDays(days)
		require.Len(t, buckets, want)
		for i, b := range buckets {
			assert.Equal(t, w.Dates[i], b.Date)
			assert.False(t, b.HasData())
		}
	}
}

func TestAggregateDiscardsOutOfRangeObservations(t *testing.T) {
	agg, w := aucklandWindow(1)

	obs := []RawObservation{
		// 10:59Z on the 18th is 23:59 local on the 18th.
		{Kind: MetricAirTemperature, Time: utc("2026-10-18T10:59:00Z"), Value: f64(11)},
		// 11:00Z on the 18th is local midnight of the 19th.
		{Kind: MetricAirTemperature, Time: utc("2026-10-18T11:00:00Z"), Value: f64(12)},
		// 10:59Z on the 19th is 23:59 local on the 19th.
		{Kind: MetricAirTemperature, Time: utc("2026-10-19T10:59:00Z"), Value: f64(13)},
		// 12:00Z on the 19th is already the 20th locally, though the UTC date is the 19th.
		{Kind: MetricAirTemperature, Time: utc("2026-10-19T12:00:00Z"), Value: f64(14)},
	}

	buckets := agg.Aggregate(w, obs)
	require.Len(t, buckets, 1)

	var got []float64
	for _, r := range buckets[0].AirTemperature {
		got = append(got, r.Value)
	}
	assert.Equal(t, []float64{12, 13}, got)
}

func TestAggregateWindConversion(t *testing.T) {
	agg, w := aucklandWindow(1)

	speed1, speed2 := 5.0, 5.05
	obs := []RawObservation{
		{Kind: MetricWind, Time: utc("2026-10-19T01:00:00Z"), Value: &speed1, Direction: f64(270)},
		{Kind: MetricWind, Time: utc("2026-10-19T02:00:00Z"), Value: &speed2, Direction: f64(280)},
		// Partial readings are dropped.
		{Kind: MetricWind, Time: utc("2026-10-19T03:00:00Z"), Value: f64(4)},
		{Kind: MetricWind, Time: utc("2026-10-19T04:00:00Z"), Direction: f64(90)},
	}

	b := agg.Aggregate(w, obs)[0]
	require.Len(t, b.Wind, 2)
	assert.Equal(t, 18.0, b.Wind[0].SpeedKmh)
	assert.Equal(t, 270.0, b.Wind[0].DirectionDeg)
	assert.Equal(t, 18.18, b.Wind[1].SpeedKmh)
}

func TestAggregateRoundingPerKind(t *testing.T) {
	agg, w := aucklandWindow(1)
	ts := utc("2026-10-19T01:00:00Z")

	obs := []RawObservation{
		{Kind: MetricSwellHeight, Time: ts, Value: f64(1.23456)},
		{Kind: MetricAirTemperature, Time: ts, Value: f64(15.26)},
		{Kind: MetricWaterTemperature, Time: ts, Value: f64(16.04)},
		{Kind: MetricCloudCover, Time: ts, Value: f64(87.56)},
		{Kind: MetricPrecipitation, Time: ts, Value: f64(0.126)},
		{Kind: MetricPrecipitation, Time: ts}, // missing value is omitted
	}

	b := agg.Aggregate(w, obs)[0]
	assert.Equal(t, 1.23, b.Swell[0].Value)
	assert.Equal(t, 15.3, b.AirTemperature[0].Value)
	assert.Equal(t, 16.0, b.WaterTemperature[0].Value)
	assert.Equal(t, 87.6, b.CloudCover[0].Value)
	require.Len(t, b.Precipitation, 1)
	assert.Equal(t, 0.13, b.Precipitation[0].Value)
}

func TestAggregateTideClassification(t *testing.T) {
	agg, w := aucklandWindow(1)

	obs := []RawObservation{
		{Kind: MetricTide, Time: utc("2026-10-19T02:15:00Z"), Value: f64(0.4049), Tag: "low"},
		{Kind: MetricTide, Time: utc("2026-10-18T20:15:00Z"), Value: f64(2.3456), Tag: "high"},
		{Kind: MetricTide, Time: utc("2026-10-19T04:00:00Z"), Value: f64(1.1), Tag: "slack"},
		{Kind: MetricTide, Time: utc("2026-10-19T05:00:00Z"), Tag: "high"},
	}

	b := agg.Aggregate(w, obs)[0]
	require.Len(t, b.HighTides, 1)
	require.Len(t, b.LowTides, 1)

	assert.Equal(t, 2.35, b.HighTides[0].HeightM)
	assert.Equal(t, "2026-10-19 09:15 NZDT", b.HighTides[0].Time)
	assert.Equal(t, utc("2026-10-18T20:15:00Z"), b.HighTides[0].TimeUTC)
	assert.Equal(t, 0.4, b.LowTides[0].HeightM)
	assert.Equal(t, "2026-10-19 15:15 NZDT", b.LowTides[0].Time)
}

func TestAggregateAstronomyLastWriteWins(t *testing.T) {
	agg, w := aucklandWindow(1)

	obs := []RawObservation{
		{Kind: MetricSunrise, Time: utc("2026-10-18T17:40:00Z")},
		{Kind: MetricSunrise, Time: utc("2026-10-18T17:39:00Z")},
		{Kind: MetricSunset, Time: utc("2026-10-19T06:45:00Z")},
		{Kind: MetricMoonPhase, Time: utc("2026-10-18T23:00:00Z"), Text: "Waxing crescent"},
		{Kind: MetricMoonPhase, Time: utc("2026-10-18T23:00:00Z")},
	}

	b := agg.Aggregate(w, obs)[0]
	require.NotNil(t, b.Sunrise)
	assert.Equal(t, "2026-10-19 06:39 NZDT", *b.Sunrise)
	require.NotNil(t, b.Sunset)
	assert.Equal(t, "2026-10-19 19:45 NZDT", *b.Sunset)
	require.NotNil(t, b.MoonPhase)
	assert.Equal(t, "Waxing crescent", *b.MoonPhase)
	assert.Nil(t, b.Moonrise)
}

func TestAggregateExtrasInFirstSeenOrder(t *testing.T) {
	agg, w := aucklandWindow(1)

	obs := []RawObservation{
		{Kind: "pressure", Time: utc("2026-10-19T01:00:00Z"), Value: f64(1013.25), Unit: "hPa"},
		{Kind: "humidity", Time: utc("2026-10-19T01:00:00Z"), Value: f64(71), Unit: "%"},
		{Kind: "pressure", Time: utc("2026-10-19T02:00:00Z"), Value: f64(1012.5), Unit: "hPa"},
	}

	b := agg.Aggregate(w, obs)[0]
	require.Len(t, b.Extras, 2)
	assert.Equal(t, "pressure", b.Extras[0].Name)
	assert.Equal(t, "hPa", b.Extras[0].Unit)
	assert.Len(t, b.Extras[0].Readings, 2)
	assert.Equal(t, "humidity", b.Extras[1].Name)
}

func TestAggregateAcrossSpringForward(t *testing.T) {
	clock := newTestClock("America/New_York", utc("2026-03-07T17:00:00Z"))
	agg := NewAggregator(clock)
	w := clock.WindowFor(newYork, 2)

	obs := []RawObservation{
		{Kind: MetricCloudCover, Time: utc("2026-03-07T04:59:00Z"), Value: f64(1)}, // 03-06 23:59 EST
		{Kind: MetricCloudCover, Time: utc("2026-03-07T05:00:00Z"), Value: f64(2)}, // 03-07 00:00 EST
		{Kind: MetricCloudCover, Time: utc("2026-03-08T04:59:00Z"), Value: f64(3)}, // 03-07 23:59 EST
		{Kind: MetricCloudCover, Time: utc("2026-03-08T05:00:00Z"), Value: f64(4)}, // 03-08 00:00 EST
		{Kind: MetricCloudCover, Time: utc("2026-03-08T07:00:00Z"), Value: f64(5)}, // 03-08 03:00 EDT
		{Kind: MetricCloudCover, Time: utc("2026-03-09T03:59:00Z"), Value: f64(6)}, // 03-08 23:59 EDT
		{Kind: MetricCloudCover, Time: utc("2026-03-09T04:00:00Z"), Value: f64(7)}, // 03-09 00:00 EDT
	}

	buckets := agg.Aggregate(w, obs)
	require.Len(t, buckets, 2)

	values := func(b *DailyBucket) []float64 {
		var out []float64
		for _, r := range b.CloudCover {
			out = append(out, r.Value)
		}
		return out
	}
	assert.Equal(t, "2026-03-07", buckets[0].Date)
	assert.Equal(t, []float64{2, 3}, values(buckets[0]))
	assert.Equal(t, "2026-03-08", buckets[1].Date)
	assert.Equal(t, []float64{4, 5, 6}, values(buckets[1]))
	assert.Equal(t, "2026-03-08 03:00 EDT", buckets[1].CloudCover[1].Time)
}

func TestAggregateSortsByInstant(t *testing.T) {
	agg, w := aucklandWindow(1)

	obs := []RawObservation{
		{Kind: MetricSwellHeight, Time: utc("2026-10-19T03:00:00Z"), Value: f64(3)},
		{Kind: MetricSwellHeight, Time: utc("2026-10-19T01:00:00Z"), Value: f64(1)},
		{Kind: MetricSwellHeight, Time: utc("2026-10-19T02:00:00Z"), Value: f64(2)},
	}

	b := agg.Aggregate(w, obs)[0]
	assert.Equal(t, 1.0, b.Swell[0].Value)
	assert.Equal(t, 2.0, b.Swell[1].Value)
	assert.Equal(t, 3.0, b.Swell[2].Value)
}
