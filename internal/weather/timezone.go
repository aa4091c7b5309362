package weather

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/ringsaturn/tzf"
	log "github.com/sirupsen/logrus"
)

// ZoneFinder maps a point to an IANA zone name; "" means no zone was found.
// tzf.F satisfies it.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// TimeZoneResolver resolves coordinates to time zones, memoized per rounded coordinate.
type TimeZoneResolver struct {
	finder      ZoneFinder
	defaultZone string

	mu    sync.RWMutex
	cache map[Coordinates]string
}

// NewTimeZoneResolver creates a resolver. defaultZone is used whenever lookup fails.
func NewTimeZoneResolver(finder ZoneFinder, defaultZone string) *TimeZoneResolver {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &TimeZoneResolver{
		finder:      finder,
		defaultZone: defaultZone,
		cache:       make(map[Coordinates]string),
	}
}

// NewDefaultTimeZoneResolver uses the embedded tzf boundary data set.
func NewDefaultTimeZoneResolver(defaultZone string) (*TimeZoneResolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone finder: %w", err)
	}
	return NewTimeZoneResolver(finder, defaultZone), nil
}

// Resolve returns the IANA zone name of c, or the default zone when none is found
// or the found zone is unknown to the local tz database.
func (r *TimeZoneResolver) Resolve(c Coordinates) string {
	key := c.Rounded(3)

	r.mu.RLock()
	name, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return name
	}

	name = r.lookup(c)

	r.mu.Lock()
	r.cache[key] = name
	r.mu.Unlock()
	return name
}

func (r *TimeZoneResolver) lookup(c Coordinates) string {
	if r.finder == nil {
		return r.defaultZone
	}
	name := r.finder.GetTimezoneName(c.Lng, c.Lat)
	if name == "" {
		log.WithFields(log.Fields{"lat": c.Lat, "lng": c.Lng}).
			Warnf("timezone lookup found no zone; using %s", r.defaultZone)
		return r.defaultZone
	}
	if _, err := time.LoadLocation(name); err != nil {
		log.WithFields(log.Fields{"lat": c.Lat, "lng": c.Lng, "zone": name}).
			Warnf("timezone %s not loadable: %v; using %s", name, err, r.defaultZone)
		return r.defaultZone
	}
	return name
}

// Location resolves c and loads the zone.
func (r *TimeZoneResolver) Location(c Coordinates) *time.Location {
	loc, err := time.LoadLocation(r.Resolve(c))
	if err != nil {
		// Only reachable when the configured default zone itself is invalid.
		return time.UTC
	}
	return loc
}

// OffsetAt returns the whole-hour UTC offset of zoneName at instant, truncated toward zero.
// approximate is true for zones whose offset is not a whole number of hours
// (e.g. Asia/Kolkata, +5:30, reports 5).
func OffsetAt(zoneName string, instant time.Time) (hours int, approximate bool) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return 0, false
	}
	_, secs := instant.In(loc).Zone()
	return secs / 3600, secs%3600 != 0
}

// FormatOffset renders a whole-hour offset as "UTC+13" / "UTC-5" / "UTC+0".
func FormatOffset(hours int) string {
	if hours < 0 {
		return fmt.Sprintf("UTC%d", hours)
	}
	return fmt.Sprintf("UTC+%d", hours)
}
