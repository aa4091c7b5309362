package weather

import (
	"sync"
	"time"
)

var (
	auckland = Coordinates{Lat: -36.691489, Lng: 174.973523}
	newYork  = Coordinates{Lat: 40.7128, Lng: -74.0060}
)

// fixedFinder answers every lookup with zone and counts calls.
type fixedFinder struct {
	mu    sync.Mutex
	zone  string
	calls int
}

func (f *fixedFinder) GetTimezoneName(_, _ float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.zone
}

func newTestClock(zone string, now time.Time) *LocalClock {
	return NewLocalClock(NewTimeZoneResolver(&fixedFinder{zone: zone}, "UTC"), func() time.Time { return now })
}

func f64(v float64) *float64 { return &v }

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}
