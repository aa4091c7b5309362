package weather

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/marine-conditions/internal/common"
)

const msToKmh = 3.6

// Aggregator routes raw observations into local-date buckets.
type Aggregator struct {
	clock *LocalClock
}

// NewAggregator creates an Aggregator converting timestamps with clock.
func NewAggregator(clock *LocalClock) *Aggregator {
	return &Aggregator{clock: clock}
}

// Aggregate creates one bucket per window date, in date order, and routes every
// observation into the bucket of its local date. Observations whose local date is
// outside the window, and readings missing a required value, are dropped.
// The returned buckets must not be mutated once handed to Summarize.
func (a *Aggregator) Aggregate(window ForecastWindow, observations []RawObservation) []*DailyBucket {
	buckets := make([]*DailyBucket, 0, len(window.Dates))
	byDate := make(map[string]*DailyBucket, len(window.Dates))
	for _, d := range window.Dates {
		b := &DailyBucket{Date: d}
		buckets = append(buckets, b)
		byDate[d] = b
	}

	var discarded int
	for _, obs := range observations {
		lt := a.clock.ToLocal(obs.Time, window.Coordinates)
		b, ok := byDate[lt.Date]
		if !ok {
			discarded++
			continue
		}
		route(b, obs, lt)
	}

	if discarded > 0 {
		log.WithFields(log.Fields{
			"lat":       window.Coordinates.Lat,
			"lng":       window.Coordinates.Lng,
			"discarded": discarded,
		}).Debug("observations outside the local date window")
	}

	for _, b := range buckets {
		sortBucket(b)
	}
	return buckets
}

func route(b *DailyBucket, obs RawObservation, lt LocalTime) {
	ts := obs.Time.UTC()

	switch obs.Kind {
	case MetricTide:
		if obs.Value == nil {
			return
		}
		ev := TideEvent{Time: lt.Display, TimeUTC: ts, HeightM: common.Round(*obs.Value, 2)}
		switch obs.Tag {
		case "high":
			b.HighTides = append(b.HighTides, ev)
		case "low":
			b.LowTides = append(b.LowTides, ev)
		}

	case MetricWind:
		if obs.Value == nil || obs.Direction == nil {
			return
		}
		b.Wind = append(b.Wind, WindReading{
			Time:         lt.Display,
			TimeUTC:      ts,
			SpeedKmh:     common.Round(*obs.Value*msToKmh, 2),
			DirectionDeg: *obs.Direction,
		})

	case MetricSwellHeight:
		appendReading(&b.Swell, obs, lt, 2)
	case MetricAirTemperature:
		appendReading(&b.AirTemperature, obs, lt, 1)
	case MetricWaterTemperature:
		appendReading(&b.WaterTemperature, obs, lt, 1)
	case MetricCloudCover:
		appendReading(&b.CloudCover, obs, lt, 1)
	case MetricPrecipitation:
		appendReading(&b.Precipitation, obs, lt, 2)

	case MetricSunrise:
		b.Sunrise = displayOf(lt)
	case MetricSunset:
		b.Sunset = displayOf(lt)
	case MetricMoonrise:
		b.Moonrise = displayOf(lt)
	case MetricMoonset:
		b.Moonset = displayOf(lt)
	case MetricMoonPhase:
		if obs.Text == "" {
			return
		}
		phase := obs.Text
		b.MoonPhase = &phase

	default:
		routeExtra(b, obs, lt)
	}
}

func appendReading(dst *[]Reading, obs RawObservation, lt LocalTime, places int) {
	if obs.Value == nil {
		return
	}
	*dst = append(*dst, Reading{
		Time:    lt.Display,
		TimeUTC: obs.Time.UTC(),
		Value:   common.Round(*obs.Value, places),
	})
}

// routeExtra keeps metrics without a dedicated field, one series per kind in first-seen order.
func routeExtra(b *DailyBucket, obs RawObservation, lt LocalTime) {
	if obs.Kind == "" || obs.Value == nil {
		return
	}
	for i := range b.Extras {
		if b.Extras[i].Name == string(obs.Kind) {
			appendReading(&b.Extras[i].Readings, obs, lt, 2)
			return
		}
	}
	series := ExtraSeries{Name: string(obs.Kind), Unit: obs.Unit}
	appendReading(&series.Readings, obs, lt, 2)
	b.Extras = append(b.Extras, series)
}

func displayOf(lt LocalTime) *string {
	s := lt.Display
	return &s
}

// sortBucket orders every series by instant; upstream order is not guaranteed.
func sortBucket(b *DailyBucket) {
	sortTides(b.HighTides)
	sortTides(b.LowTides)
	sort.SliceStable(b.Wind, func(i, j int) bool { return b.Wind[i].TimeUTC.Before(b.Wind[j].TimeUTC) })
	sortReadings(b.Swell)
	sortReadings(b.AirTemperature)
	sortReadings(b.WaterTemperature)
	sortReadings(b.CloudCover)
	sortReadings(b.Precipitation)
	for i := range b.Extras {
		sortReadings(b.Extras[i].Readings)
	}
}

func sortTides(events []TideEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].TimeUTC.Before(events[j].TimeUTC) })
}

func sortReadings(rs []Reading) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].TimeUTC.Before(rs[j].TimeUTC) })
}
