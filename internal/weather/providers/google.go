package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/marine-conditions/internal/weather"
)

// GoogleResolver geocodes free text with the Google Geocoding API.
type GoogleResolver struct {
	// geocoder keeps its key in a package variable; serialize access to it.
	mu     sync.Mutex
	apiKey string

	geocode func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleResolver creates a resolver using apiKey.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	return &GoogleResolver{
		apiKey:  apiKey,
		geocode: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

// Resolve geocodes query and names the place from the reverse lookup when available.
func (r *GoogleResolver) Resolve(ctx context.Context, query string) (weather.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Place{}, fmt.Errorf("%w: query cannot be empty", weather.ErrLocationNotFound)
	}
	if err := ctx.Err(); err != nil {
		return weather.Place{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	geocoder.ApiKey = r.apiKey

	// The free text is passed whole; Google parses it.
	loc, err := r.geocode(geocoder.Address{City: query})
	if err != nil {
		if isZeroResults(err) {
			return weather.Place{}, fmt.Errorf("%w: %q: %v", weather.ErrLocationNotFound, query, err)
		}
		return weather.Place{}, fmt.Errorf("geocoding %q: %w", query, err)
	}

	name := query
	if addrs, err := r.reverse(loc); err == nil && len(addrs) > 0 {
		if formatted := addrs[0].FormatAddress(); formatted != "" {
			name = formatted
		}
	}

	return weather.Place{
		Coordinates: weather.Coordinates{Lat: loc.Latitude, Lng: loc.Longitude},
		DisplayName: name,
	}, nil
}

// isZeroResults reports whether Google answered but matched nothing.
func isZeroResults(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "zero_results") || strings.Contains(msg, "no results")
}

var _ weather.LocationResolver = (*GoogleResolver)(nil)
