package weather

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig tunes the upstream fan-out.
type ServiceConfig struct {
	// WeatherSource and SwellSource are passed through to the gateway.
	WeatherSource string
	SwellSource   string
	// ExtraMetrics are additional hourly parameters requested with the weather call.
	ExtraMetrics []string
	// Concurrency bounds the number of in-flight upstream calls per request.
	Concurrency int
	// CallTimeout bounds every single upstream call.
	CallTimeout time.Duration
	// ComputeTimeout bounds a whole cache-miss computation.
	ComputeTimeout time.Duration
}

// CoreWeatherMetrics are always requested from the hourly weather call.
var CoreWeatherMetrics = []string{
	"windSpeed", "windDirection", "airTemperature", "waterTemperature", "cloudCover", "precipitation",
}

// routedKinds have a dedicated bucket field and cannot be requested as extras.
var routedKinds = []MetricKind{
	MetricTide, MetricWind, MetricSwellHeight, MetricAirTemperature, MetricWaterTemperature,
	MetricCloudCover, MetricPrecipitation, MetricSunrise, MetricSunset, MetricMoonrise,
	MetricMoonset, MetricMoonPhase,
}

// extraMetrics drops blank, duplicate and reserved names from the configured extras.
func extraMetrics(names []string) []string {
	reserved := make(map[string]bool, len(CoreWeatherMetrics)+len(routedKinds)+len(dayKeys))
	for _, m := range CoreWeatherMetrics {
		reserved[m] = true
	}
	for _, k := range routedKinds {
		reserved[string(k)] = true
	}
	for k := range dayKeys {
		reserved[k] = true
	}

	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if reserved[n] {
			log.WithField("metric", n).Warn("ignoring extra metric with a reserved name")
			continue
		}
		out = append(out, n)
	}
	return out
}

// CallFailure records an upstream call that returned no data.
type CallFailure struct {
	Call string
	Err  error
}

// Service orchestrates location lookup, windowing, caching and the fetch pipeline.
type Service struct {
	locations  LocationResolver
	gateway    Gateway
	cache      ResultCache
	clock      *LocalClock
	aggregator *Aggregator
	cfg        ServiceConfig
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(locations LocationResolver, gateway Gateway, cache ResultCache, clock *LocalClock, cfg ServiceConfig) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = 45 * time.Second
	}
	cfg.ExtraMetrics = extraMetrics(cfg.ExtraMetrics)
	return &Service{
		locations:  locations,
		gateway:    gateway,
		cache:      cache,
		clock:      clock,
		aggregator: NewAggregator(clock),
		cfg:        cfg,
		now:        clock.now,
	}
}

// GetForecast answers a request: resolve the place, compute the window once, then
// serve from cache or run the pipeline.
func (s *Service) GetForecast(ctx context.Context, req ForecastRequest) (*ForecastResult, error) {
	query := strings.TrimSpace(req.LocationQuery)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrLocationNotFound)
	}

	place, err := s.locations.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	window := s.clock.WindowFor(place.Coordinates, req.Days)
	key := NewCacheKey(window)

	log.WithFields(log.Fields{
		"query": query,
		"zone":  window.ZoneName,
		"start": window.LocalStartDate,
		"days":  window.Days,
		"key":   key.String(),
	}).Debug("forecast requested")

	compute := func(ctx context.Context) (*ForecastResult, error) {
		return s.Build(ctx, place, window)
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.GetOrCompute(ctx, key, compute)
}

// Build runs the pipeline for one window: fan out, bucket, summarize, assemble.
// Ingestion completes before any summary is computed.
func (s *Service) Build(ctx context.Context, place Place, window ForecastWindow) (*ForecastResult, error) {
	if s.gateway == nil {
		return nil, ErrNoGateway
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()

	observations, failures := s.fanOut(ctx, window)

	buckets := s.aggregator.Aggregate(window, observations)

	summaries := make([]DailySummary, len(buckets))
	for i, b := range buckets {
		summaries[i] = Summarize(b)
	}

	failed := make([]string, 0, len(failures))
	for _, f := range failures {
		failed = append(failed, f.Call)
	}

	return Assemble(window, place, buckets, summaries, AssembleMeta{
		DataSource:  s.dataSource(),
		FailedCalls: failed,
		GeneratedAt: s.now(),
	})
}

func (s *Service) dataSource() string {
	return fmt.Sprintf("%s (weather: %s, swell: %s)", s.gateway.Name(), s.cfg.WeatherSource, s.cfg.SwellSource)
}

type upstreamCall struct {
	name string
	run  func(ctx context.Context) ([]RawObservation, error)
}

// calls lists every upstream query of a window; all derive their bounds from window.
func (s *Service) calls(window ForecastWindow) []upstreamCall {
	c := window.Coordinates
	metrics := append(append([]string{}, CoreWeatherMetrics...), s.cfg.ExtraMetrics...)

	calls := []upstreamCall{
		{name: "tide-extremes", run: func(ctx context.Context) ([]RawObservation, error) {
			return s.gateway.TideExtremes(ctx, c, window.UTCStart, window.UTCEnd)
		}},
		{name: "weather-hourly", run: func(ctx context.Context) ([]RawObservation, error) {
			return s.gateway.WeatherHourly(ctx, c, metrics, s.cfg.WeatherSource, window.UTCStart, window.UTCEnd)
		}},
		{name: "swell-hourly", run: func(ctx context.Context) ([]RawObservation, error) {
			return s.gateway.SwellHourly(ctx, c, window.UTCStart, window.UTCEnd)
		}},
	}

	for _, date := range window.Dates {
		day, err := window.Midnight(date)
		if err != nil {
			continue
		}
		calls = append(calls, upstreamCall{
			name: "astronomy-" + date,
			run: func(ctx context.Context) ([]RawObservation, error) {
				return s.gateway.AstronomyDaily(ctx, c, day)
			},
		})
	}
	return calls
}

// fanOut issues every call concurrently under the configured limit. A failed call
// never cancels its siblings; results are concatenated in call order so bucketing
// is deterministic.
func (s *Service) fanOut(ctx context.Context, window ForecastWindow) ([]RawObservation, []CallFailure) {
	calls := s.calls(window)
	results := make([][]RawObservation, len(calls))

	var (
		mu       sync.Mutex
		failures []CallFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()

			obs, err := call.run(callCtx)
			if err != nil {
				log.WithFields(log.Fields{
					"call":  call.name,
					"lat":   window.Coordinates.Lat,
					"lng":   window.Coordinates.Lng,
					"error": err,
				}).Warn("upstream call failed; continuing with partial data")

				mu.Lock()
				failures = append(failures, CallFailure{Call: call.name, Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	// Restore call order for the failure list as well.
	order := make(map[string]int, len(calls))
	for i, c := range calls {
		order[c.name] = i
	}
	sort.SliceStable(failures, func(i, j int) bool {
		return order[failures[i].Call] < order[failures[j].Call]
	})

	var all []RawObservation
	for _, r := range results {
		all = append(all, r...)
	}
	return all, failures
}
