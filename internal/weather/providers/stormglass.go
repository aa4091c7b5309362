package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/marine-conditions/internal/weather"
)

// StormglassConfig configures the Stormglass gateway.
type StormglassConfig struct {
	APIKey      string
	BaseURL     string
	Datum       string
	SwellSource string
	RPS         float64
	Burst       int
}

// StormglassGateway implements weather.Gateway for the Stormglass v2 API.
type StormglassGateway struct {
	name    string
	apiKey  string
	baseURL string
	datum   string
	swell   string
	httpCfg HTTPClientConfig

	// one breaker per query kind so a failing endpoint does not trip the others
	tideCircuit    *gobreaker.CircuitBreaker
	weatherCircuit *gobreaker.CircuitBreaker
	swellCircuit   *gobreaker.CircuitBreaker
	astroCircuit   *gobreaker.CircuitBreaker
}

// NewStormglassGateway creates the gateway. All calls share one rate limiter.
func NewStormglassGateway(client *http.Client, cfg StormglassConfig) *StormglassGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stormglass.io/v2"
	}
	if cfg.Datum == "" {
		cfg.Datum = "MLLW"
	}
	if cfg.SwellSource == "" {
		cfg.SwellSource = "sg"
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &StormglassGateway{
		name:    "Stormglass.io",
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		datum:   cfg.Datum,
		swell:   cfg.SwellSource,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
			Limiter: limiter,
		},
		tideCircuit:    newBreaker("stormglass-tide"),
		weatherCircuit: newBreaker("stormglass-weather"),
		swellCircuit:   newBreaker("stormglass-swell"),
		astroCircuit:   newBreaker("stormglass-astronomy"),
	}
}

func (g *StormglassGateway) Name() string {
	return g.name
}

func (g *StormglassGateway) get(ctx context.Context, cb *gobreaker.CircuitBreaker, path string, values url.Values, out interface{}) error {
	if g.apiKey == "" {
		return fmt.Errorf("stormglass api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", g.baseURL, path, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", g.apiKey)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, cb, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func pointValues(c weather.Coordinates, start, end time.Time) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("lng", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	values.Set("start", strconv.FormatInt(start.Unix(), 10))
	values.Set("end", strconv.FormatInt(end.Unix(), 10))
	return values
}

// TideExtremes returns high/low water events between start and end.
func (g *StormglassGateway) TideExtremes(ctx context.Context, c weather.Coordinates, start, end time.Time) ([]weather.RawObservation, error) {
	values := pointValues(c, start, end)
	values.Set("datum", g.datum)

	var payload struct {
		Data []struct {
			Height *float64 `json:"height"`
			Time   string   `json:"time"`
			Type   string   `json:"type"`
		} `json:"data"`
	}
	if err := g.get(ctx, g.tideCircuit, "/tide/extremes/point", values, &payload); err != nil {
		return nil, err
	}

	obs := make([]weather.RawObservation, 0, len(payload.Data))
	for _, e := range payload.Data {
		ts, err := parseTime(e.Time)
		if err != nil {
			continue
		}
		obs = append(obs, weather.RawObservation{
			Kind:  weather.MetricTide,
			Time:  ts,
			Value: e.Height,
			Unit:  "m",
			Tag:   strings.ToLower(e.Type),
		})
	}
	return obs, nil
}

// WeatherHourly returns hourly readings of metrics from source.
func (g *StormglassGateway) WeatherHourly(ctx context.Context, c weather.Coordinates, metrics []string, source string, start, end time.Time) ([]weather.RawObservation, error) {
	return g.hourly(ctx, g.weatherCircuit, c, metrics, source, start, end)
}

// SwellHourly returns hourly swell heights from the configured swell source.
func (g *StormglassGateway) SwellHourly(ctx context.Context, c weather.Coordinates, start, end time.Time) ([]weather.RawObservation, error) {
	return g.hourly(ctx, g.swellCircuit, c, []string{string(weather.MetricSwellHeight)}, g.swell, start, end)
}

type hourlyPayload struct {
	Hours []map[string]json.RawMessage `json:"hours"`
}

func (g *StormglassGateway) hourly(ctx context.Context, cb *gobreaker.CircuitBreaker, c weather.Coordinates, metrics []string, source string, start, end time.Time) ([]weather.RawObservation, error) {
	values := pointValues(c, start, end)
	values.Set("params", strings.Join(metrics, ","))
	if source != "" {
		values.Set("source", source)
	}

	var payload hourlyPayload
	if err := g.get(ctx, cb, "/weather/point", values, &payload); err != nil {
		return nil, err
	}
	return decodeHours(payload, metrics, source), nil
}

// decodeHours flattens Stormglass hour records. windSpeed and windDirection are
// paired into one wind observation; either may be missing.
func decodeHours(payload hourlyPayload, metrics []string, source string) []weather.RawObservation {
	var obs []weather.RawObservation
	for _, hour := range payload.Hours {
		var rawTime string
		if err := json.Unmarshal(hour["time"], &rawTime); err != nil {
			continue
		}
		ts, err := parseTime(rawTime)
		if err != nil {
			continue
		}

		wantWind := false
		for _, m := range metrics {
			switch m {
			case "windSpeed", "windDirection":
				wantWind = true
			default:
				obs = append(obs, weather.RawObservation{
					Kind:  weather.MetricKind(m),
					Time:  ts,
					Value: sourceValue(hour[m], source),
					Unit:  unitOf(m),
				})
			}
		}
		if wantWind {
			obs = append(obs, weather.RawObservation{
				Kind:      weather.MetricWind,
				Time:      ts,
				Value:     sourceValue(hour["windSpeed"], source),
				Direction: sourceValue(hour["windDirection"], source),
				Unit:      "m/s",
			})
		}
	}
	return obs
}

// sourceValue picks the value of source from {"noaa": 1.2, "sg": 1.3}. Without a
// source the first value by name is used so the choice is stable.
func sourceValue(raw json.RawMessage, source string) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var bySource map[string]*float64
	if err := json.Unmarshal(raw, &bySource); err != nil {
		return nil
	}
	if source != "" {
		return bySource[source]
	}
	var (
		best    string
		bestVal *float64
	)
	for name, v := range bySource {
		if v != nil && (best == "" || name < best) {
			best, bestVal = name, v
		}
	}
	return bestVal
}

var metricUnits = map[string]string{
	"airTemperature":   "°C",
	"waterTemperature": "°C",
	"cloudCover":       "%",
	"precipitation":    "mm/h",
	"swellHeight":      "m",
	"waveHeight":       "m",
	"humidity":         "%",
	"pressure":         "hPa",
	"gust":             "m/s",
	"currentSpeed":     "m/s",
	"visibility":       "km",
	"swellPeriod":      "s",
	"wavePeriod":       "s",
}

func unitOf(metric string) string {
	return metricUnits[metric]
}

// AstronomyDaily returns sun and moon events of the local date starting at day.
// The moon phase is stamped at local noon so it lands on that date.
func (g *StormglassGateway) AstronomyDaily(ctx context.Context, c weather.Coordinates, day time.Time) ([]weather.RawObservation, error) {
	next := day.AddDate(0, 0, 1)
	values := pointValues(c, day, next)

	var payload struct {
		Data []struct {
			Time      string `json:"time"`
			Sunrise   string `json:"sunrise"`
			Sunset    string `json:"sunset"`
			Moonrise  string `json:"moonrise"`
			Moonset   string `json:"moonset"`
			MoonPhase struct {
				Current struct {
					Text string `json:"text"`
				} `json:"current"`
			} `json:"moonPhase"`
		} `json:"data"`
	}
	if err := g.get(ctx, g.astroCircuit, "/astronomy/point", values, &payload); err != nil {
		return nil, err
	}

	var obs []weather.RawObservation
	for _, d := range payload.Data {
		for kind, raw := range map[weather.MetricKind]string{
			weather.MetricSunrise:  d.Sunrise,
			weather.MetricSunset:   d.Sunset,
			weather.MetricMoonrise: d.Moonrise,
			weather.MetricMoonset:  d.Moonset,
		} {
			if raw == "" {
				continue
			}
			ts, err := parseTime(raw)
			if err != nil {
				continue
			}
			obs = append(obs, weather.RawObservation{Kind: kind, Time: ts})
		}
	}
	sortAstronomy(obs)

	want := day.Format(weather.DateLayout)
	for _, d := range payload.Data {
		ts, err := parseTime(d.Time)
		if err != nil || d.MoonPhase.Current.Text == "" || entryDate(ts, day.Location()) != want {
			continue
		}
		noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location())
		obs = append(obs, weather.RawObservation{
			Kind: weather.MetricMoonPhase,
			Time: noon.UTC(),
			Text: d.MoonPhase.Current.Text,
		})
		break
	}
	return obs, nil
}

// entryDate is the calendar date an astronomy entry describes. Entries stamped at
// local midnight belong to that local date, others to the date of their UTC stamp.
func entryDate(ts time.Time, loc *time.Location) string {
	if lt := ts.In(loc); lt.Hour() == 0 && lt.Minute() == 0 {
		return lt.Format(weather.DateLayout)
	}
	return ts.UTC().Format(weather.DateLayout)
}

// sortAstronomy orders events by instant so later upstream days win deterministically.
func sortAstronomy(obs []weather.RawObservation) {
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].Time.Equal(obs[j].Time) {
			return obs[i].Time.Before(obs[j].Time)
		}
		return obs[i].Kind < obs[j].Kind
	})
}

// parseTime accepts the RFC3339 variants Stormglass emits.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

var _ weather.Gateway = (*StormglassGateway)(nil)
