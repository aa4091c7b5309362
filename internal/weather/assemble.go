package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AssembleMeta carries the pipeline facts the assembler records in Metadata.
type AssembleMeta struct {
	DataSource  string
	FailedCalls []string
	GeneratedAt time.Time
}

// Assemble builds the immutable result from summarized buckets. buckets and summaries
// are parallel slices in window date order.
func Assemble(window ForecastWindow, place Place, buckets []*DailyBucket, summaries []DailySummary, meta AssembleMeta) (*ForecastResult, error) {
	if len(buckets) != len(summaries) {
		return nil, fmt.Errorf("assemble: %d buckets but %d summaries", len(buckets), len(summaries))
	}

	days := make([]DayRecord, 0, len(buckets))
	complete := len(meta.FailedCalls) == 0
	for i, b := range buckets {
		if !b.HasData() {
			complete = false
		}
		days = append(days, DayRecord{Date: b.Date, Summary: summaries[i], Bucket: *b})
	}

	offset, approx := OffsetAt(window.ZoneName, window.UTCStart)

	failed := make([]string, len(meta.FailedCalls))
	copy(failed, meta.FailedCalls)

	lastDate := window.LocalStartDate
	if n := len(window.Dates); n > 0 {
		lastDate = window.Dates[n-1]
	}

	return &ForecastResult{
		Coordinates: window.Coordinates,
		DisplayName: place.DisplayName,
		Days:        days,
		Metadata: Metadata{
			Timezone:             window.ZoneName,
			UTCOffset:            FormatOffset(offset),
			UTCOffsetApproximate: approx,
			DaysRequested:        window.Days,
			LocalStartDate:       window.LocalStartDate,
			LocalEndDate:         lastDate,
			DataSource:           meta.DataSource,
			Complete:             complete,
			FailedCalls:          failed,
			GeneratedAt:          meta.GeneratedAt.UTC(),
		},
		Units: DefaultUnits,
	}, nil
}

type locationJSON struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// MarshalJSON renders the result with dates in window order.
func (r *ForecastResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	meta := r.Metadata
	if meta.FailedCalls == nil {
		meta.FailedCalls = []string{}
	}

	w := objectWriter{buf: &buf}
	w.field("location", locationJSON{DisplayName: r.DisplayName, Lat: r.Coordinates.Lat, Lng: r.Coordinates.Lng})
	w.field("metadata", meta)
	w.field("units", r.Units)

	w.key("forecast")
	buf.WriteByte('{')
	days := objectWriter{buf: &buf}
	for _, d := range r.Days {
		days.field(d.Date, d)
	}
	if days.err != nil {
		return nil, days.err
	}
	buf.WriteByte('}')

	buf.WriteByte('}')
	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

// dayKeys are the fixed keys of a day object. Extra metrics never overwrite them.
var dayKeys = map[string]bool{
	"summary": true, "high_tide": true, "low_tide": true, "sunrise": true, "sunset": true,
	"moon": true, "moon_phase": true, "wind": true, "swell": true, "air_temperature": true,
	"water_temperature": true, "precipitation": true, "cloud_cover": true,
}

type moonJSON struct {
	Moonrise *string `json:"moonrise"`
	Moonset  *string `json:"moonset"`
}

type extraJSON struct {
	Unit     string    `json:"unit"`
	Readings []Reading `json:"readings"`
}

// MarshalJSON writes the fixed field order consumers rely on: summary, tides, sun,
// moon, then the hourly series, then extra metrics in first-seen order.
func (d DayRecord) MarshalJSON() ([]byte, error) {
	b := d.Bucket
	var buf bytes.Buffer
	buf.WriteByte('{')

	w := objectWriter{buf: &buf}
	w.field("summary", d.Summary)
	w.field("high_tide", nonNil(b.HighTides))
	w.field("low_tide", nonNil(b.LowTides))
	w.field("sunrise", b.Sunrise)
	w.field("sunset", b.Sunset)
	w.field("moon", moonJSON{Moonrise: b.Moonrise, Moonset: b.Moonset})
	w.field("moon_phase", b.MoonPhase)
	w.field("wind", nonNil(b.Wind))
	w.field("swell", nonNil(b.Swell))
	w.field("air_temperature", nonNil(b.AirTemperature))
	w.field("water_temperature", nonNil(b.WaterTemperature))
	w.field("precipitation", nonNil(b.Precipitation))
	w.field("cloud_cover", nonNil(b.CloudCover))
	for _, e := range b.Extras {
		if dayKeys[e.Name] {
			continue
		}
		w.field(e.Name, extraJSON{Unit: e.Unit, Readings: nonNil(e.Readings)})
	}

	buf.WriteByte('}')
	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// objectWriter appends "key":value pairs to an open JSON object, keeping the first error.
type objectWriter struct {
	buf *bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) key(k string) {
	if w.err != nil {
		return
	}
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	kb, err := json.Marshal(k)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(kb)
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v any) {
	w.key(k)
	if w.err != nil {
		return
	}
	vb, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(vb)
}
