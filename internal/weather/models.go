package weather

import (
	"fmt"
	"math"
	"time"
)

const (
	// MinDays and MaxDays bound the number of local calendar days a request may cover.
	MinDays = 1
	MaxDays = 7

	// DateLayout is the canonical local-date bucket key.
	DateLayout = "2006-01-02"
	// DisplayLayout renders a local wall-clock instant with its zone abbreviation.
	DisplayLayout = "2006-01-02 15:04 MST"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rounded returns the coordinates rounded to the given number of decimals.
// It is used for cache keys and time zone memoization.
func (c Coordinates) Rounded(places int) Coordinates {
	p := math.Pow(10, float64(places))
	return Coordinates{
		Lat: math.Round(c.Lat*p) / p,
		Lng: math.Round(c.Lng*p) / p,
	}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lng)
}

// Place is a resolved location.
type Place struct {
	Coordinates Coordinates
	DisplayName string
}

// ForecastRequest is the inbound query.
type ForecastRequest struct {
	LocationQuery string
	Days          int
}

// ForecastWindow is the single source of truth for the dates and UTC bounds of one request.
// UTCStart is local midnight of the first day, UTCEnd local midnight of the day after the last.
type ForecastWindow struct {
	Coordinates           Coordinates
	ZoneName              string
	Location              *time.Location
	Days                  int
	LocalStartDate        string
	LocalEndDateExclusive string
	UTCStart              time.Time
	UTCEnd                time.Time

	// Dates lists every local date in [LocalStartDate, LocalEndDateExclusive).
	Dates []string
}

// Contains reports whether date is one of the window's local dates.
func (w ForecastWindow) Contains(date string) bool {
	for _, d := range w.Dates {
		if d == date {
			return true
		}
	}
	return false
}

// MetricKind identifies the kind of an upstream record.
type MetricKind string

const (
	MetricTide             MetricKind = "tide"
	MetricWind             MetricKind = "wind"
	MetricSwellHeight      MetricKind = "swellHeight"
	MetricAirTemperature   MetricKind = "airTemperature"
	MetricWaterTemperature MetricKind = "waterTemperature"
	MetricCloudCover       MetricKind = "cloudCover"
	MetricPrecipitation    MetricKind = "precipitation"
	MetricSunrise          MetricKind = "sunrise"
	MetricSunset           MetricKind = "sunset"
	MetricMoonrise         MetricKind = "moonrise"
	MetricMoonset          MetricKind = "moonset"
	MetricMoonPhase        MetricKind = "moonPhase"
)

// RawObservation is the uniform shape of every upstream record before bucketing.
// Value is nil when the provider omitted the reading. Direction is only set for wind,
// Tag carries the tide extreme type and Text the moon phase name.
type RawObservation struct {
	Kind      MetricKind
	Time      time.Time
	Value     *float64
	Unit      string
	Direction *float64
	Tag       string
	Text      string
}

// TideEvent is a single high or low water.
type TideEvent struct {
	Time    string    `json:"time"`
	TimeUTC time.Time `json:"time_utc"`
	HeightM float64   `json:"height_m"`
}

// WindReading is an hourly wind speed and direction.
type WindReading struct {
	Time         string    `json:"time"`
	TimeUTC      time.Time `json:"time_utc"`
	SpeedKmh     float64   `json:"speed_kmh"`
	DirectionDeg float64   `json:"direction_deg"`
}

// Reading is an hourly scalar value.
type Reading struct {
	Time    string    `json:"time"`
	TimeUTC time.Time `json:"time_utc"`
	Value   float64   `json:"value"`
}

// ExtraSeries holds readings of a metric that has no dedicated bucket field.
type ExtraSeries struct {
	Name     string
	Unit     string
	Readings []Reading
}

// DailyBucket collects every observation of one local calendar date.
type DailyBucket struct {
	Date string

	HighTides        []TideEvent
	LowTides         []TideEvent
	Wind             []WindReading
	Swell            []Reading
	AirTemperature   []Reading
	WaterTemperature []Reading
	CloudCover       []Reading
	Precipitation    []Reading

	Sunrise   *string
	Sunset    *string
	Moonrise  *string
	Moonset   *string
	MoonPhase *string

	Extras []ExtraSeries
}

// HasData reports whether any list or singleton of the bucket is populated.
func (b *DailyBucket) HasData() bool {
	if len(b.HighTides) > 0 || len(b.LowTides) > 0 || len(b.Wind) > 0 || len(b.Swell) > 0 ||
		len(b.AirTemperature) > 0 || len(b.WaterTemperature) > 0 || len(b.CloudCover) > 0 ||
		len(b.Precipitation) > 0 {
		return true
	}
	if b.Sunrise != nil || b.Sunset != nil || b.Moonrise != nil || b.Moonset != nil || b.MoonPhase != nil {
		return true
	}
	for _, e := range b.Extras {
		if len(e.Readings) > 0 {
			return true
		}
	}
	return false
}

// DailySummary is the read-only statistical view of a populated bucket.
// Statistics without contributing readings are nil and render as JSON null.
type DailySummary struct {
	Tides            string   `json:"tides"`
	PeakWindKmh      *float64 `json:"peak_wind_kmh"`
	PeakSwellM       *float64 `json:"peak_swell_m"`
	AirTempMinC      *float64 `json:"air_temp_min_c"`
	AirTempMaxC      *float64 `json:"air_temp_max_c"`
	AirTempAvgC      *float64 `json:"air_temp_avg_c"`
	WaterTempMinC    *float64 `json:"water_temp_min_c"`
	WaterTempMaxC    *float64 `json:"water_temp_max_c"`
	WaterTempAvgC    *float64 `json:"water_temp_avg_c"`
	CloudCoverAvgPct *float64 `json:"cloud_cover_avg_pct"`
	Sunrise          *string  `json:"sunrise"`
	Sunset           *string  `json:"sunset"`
}

// DayRecord is one date of an assembled result.
type DayRecord struct {
	Date    string
	Summary DailySummary
	Bucket  DailyBucket
}

// Metadata describes how a result was produced.
type Metadata struct {
	Timezone             string    `json:"timezone"`
	UTCOffset            string    `json:"utc_offset"`
	UTCOffsetApproximate bool      `json:"utc_offset_approximate"`
	DaysRequested        int       `json:"days_requested"`
	LocalStartDate       string    `json:"local_start_date"`
	LocalEndDate         string    `json:"local_end_date"`
	DataSource           string    `json:"data_source"`
	Complete             bool      `json:"complete"`
	FailedCalls          []string  `json:"failed_calls"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// UnitsLegend names the unit of every numeric field.
type UnitsLegend struct {
	TideHeight    string `json:"tide_height"`
	WindSpeed     string `json:"wind_speed"`
	WindDirection string `json:"wind_direction"`
	SwellHeight   string `json:"swell_height"`
	Temperature   string `json:"temperature"`
	CloudCover    string `json:"cloud_cover"`
	Precipitation string `json:"precipitation"`
}

// DefaultUnits is the legend attached to every result.
var DefaultUnits = UnitsLegend{
	TideHeight:    "m",
	WindSpeed:     "km/h",
	WindDirection: "deg",
	SwellHeight:   "m",
	Temperature:   "°C",
	CloudCover:    "%",
	Precipitation: "mm/h",
}

// ForecastResult is the immutable assembled response. It is shared read-only
// between the cache and the HTTP layer.
type ForecastResult struct {
	Coordinates Coordinates
	DisplayName string
	Days        []DayRecord
	Metadata    Metadata
	Units       UnitsLegend
}

// CacheKey identifies a result: rounded location plus the UTC fetch window.
type CacheKey struct {
	Lat      float64
	Lng      float64
	UTCStart time.Time
	UTCEnd   time.Time
}

// NewCacheKey derives the cache key of a window.
func NewCacheKey(w ForecastWindow) CacheKey {
	r := w.Coordinates.Rounded(4)
	return CacheKey{Lat: r.Lat, Lng: r.Lng, UTCStart: w.UTCStart.UTC(), UTCEnd: w.UTCEnd.UTC()}
}

// String renders the key; identical keys render identically.
func (k CacheKey) String() string {
	return fmt.Sprintf("%.4f:%.4f:%d:%d", k.Lat, k.Lng, k.UTCStart.Unix(), k.UTCEnd.Unix())
}
