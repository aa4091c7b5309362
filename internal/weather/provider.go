package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLocationNotFound is returned when a location query cannot be geocoded.
	ErrLocationNotFound = errors.New("location not found")
	// ErrNoGateway is returned when the service has no upstream gateway configured.
	ErrNoGateway = errors.New("no upstream gateway configured")
)

// Gateway abstracts the upstream marine-data provider (e.g. Stormglass).
// Every call returns the records of one query or an error; callers treat an
// error as "zero records" for that call.
type Gateway interface {
	Name() string
	TideExtremes(ctx context.Context, c Coordinates, start, end time.Time) ([]RawObservation, error)
	WeatherHourly(ctx context.Context, c Coordinates, metrics []string, source string, start, end time.Time) ([]RawObservation, error)
	SwellHourly(ctx context.Context, c Coordinates, start, end time.Time) ([]RawObservation, error)
	// AstronomyDaily returns sun and moon events for the local date starting at day
	// (local midnight in the location's zone).
	AstronomyDaily(ctx context.Context, c Coordinates, day time.Time) ([]RawObservation, error)
}

// LocationResolver turns free text into at most one place. It returns
// ErrLocationNotFound when nothing matches.
type LocationResolver interface {
	Resolve(ctx context.Context, query string) (Place, error)
}

// ComputeFunc builds a result on a cache miss.
type ComputeFunc func(ctx context.Context) (*ForecastResult, error)

// ResultCache is the read-through cache in front of the pipeline.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key CacheKey, compute ComputeFunc) (*ForecastResult, error)
}
