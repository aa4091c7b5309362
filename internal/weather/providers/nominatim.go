package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/marine-conditions/internal/weather"
)

const (
	nominatimURL = "https://nominatim.openstreetmap.org/search"
	userAgent    = "marine-conditions/1.0" // Required by Nominatim ToS
)

// NominatimResolver geocodes free text with OpenStreetMap Nominatim.
type NominatimResolver struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNominatimResolver creates a resolver. Nominatim allows at most 1 req/s.
func NewNominatimResolver(client *http.Client, baseURL string) *NominatimResolver {
	if baseURL == "" {
		baseURL = nominatimURL
	}
	return &NominatimResolver{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
			Limiter: rate.NewLimiter(rate.Limit(1), 1),
		},
		circuit: newBreaker("nominatim"),
	}
}

// nominatimResponse represents the Nominatim API response
type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve returns the first Nominatim candidate for query.
func (r *NominatimResolver) Resolve(ctx context.Context, query string) (weather.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Place{}, fmt.Errorf("%w: query cannot be empty", weather.ErrLocationNotFound)
	}

	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("format", "json")
		params.Set("limit", "1")
		params.Set("q", query)

		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", r.baseURL, params.Encode()), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, r.httpCfg, r.circuit, buildRequest)
	if err != nil {
		return weather.Place{}, fmt.Errorf("geocoding %q: %w", query, err)
	}
	defer resp.Body.Close()

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return weather.Place{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return weather.Place{}, fmt.Errorf("%w: no results for %q", weather.ErrLocationNotFound, query)
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return weather.Place{}, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return weather.Place{}, fmt.Errorf("parsing longitude: %w", err)
	}

	return weather.Place{
		Coordinates: weather.Coordinates{Lat: lat, Lng: lon},
		DisplayName: result.DisplayName,
	}, nil
}

var _ weather.LocationResolver = (*NominatimResolver)(nil)
