package weather

import (
	"time"

	"github.com/i474232898/marine-conditions/internal/common"
)

// LocalTime is an instant expressed in a location's own calendar.
type LocalTime struct {
	Date    string
	Display string
}

// LocalClock converts UTC instants into local dates for a coordinate.
type LocalClock struct {
	zones *TimeZoneResolver
	now   func() time.Time
}

// NewLocalClock creates a LocalClock. A nil now defaults to time.Now.
func NewLocalClock(zones *TimeZoneResolver, now func() time.Time) *LocalClock {
	if now == nil {
		now = time.Now
	}
	return &LocalClock{zones: zones, now: now}
}

// ToLocal converts ts into the local date and display string at c.
func (c *LocalClock) ToLocal(ts time.Time, coords Coordinates) LocalTime {
	return toLocal(ts, c.zones.Location(coords))
}

func toLocal(ts time.Time, loc *time.Location) LocalTime {
	lt := ts.In(loc)
	return LocalTime{
		Date:    lt.Format(DateLayout),
		Display: lt.Format(DisplayLayout),
	}
}

// WindowFor computes the request window: "today" in the resolved zone plus days-1
// following local dates. days is clamped to [MinDays, MaxDays].
func (c *LocalClock) WindowFor(coords Coordinates, days int) ForecastWindow {
	days = ClampDays(days)
	zone := c.zones.Resolve(coords)
	loc := c.zones.Location(coords)

	today := c.now().In(loc)
	y, m, d := today.Date()

	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, time.Date(y, m, d+i, 0, 0, 0, 0, loc).Format(DateLayout))
	}

	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+days, 0, 0, 0, 0, loc)

	return ForecastWindow{
		Coordinates:           coords,
		ZoneName:              zone,
		Location:              loc,
		Days:                  days,
		LocalStartDate:        dates[0],
		LocalEndDateExclusive: end.Format(DateLayout),
		UTCStart:              start.UTC(),
		UTCEnd:                end.UTC(),
		Dates:                 dates,
	}
}

// Midnight returns local midnight of date in the window's zone.
func (w ForecastWindow) Midnight(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, w.Location)
}

// ClampDays limits a requested day count to [MinDays, MaxDays].
func ClampDays(days int) int {
	return common.Clamp(days, MinDays, MaxDays)
}
