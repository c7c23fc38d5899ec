package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DefaultGeocoderURL is the public Nominatim reverse-geocoding endpoint.
const DefaultGeocoderURL = "https://nominatim.openstreetmap.org/reverse"

// Geocoder turns coordinates into address parts with Nominatim.
// Nominatim's usage policy requires an identifying User-Agent.
type Geocoder struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewGeocoder(baseURL, userAgent string, httpClient *http.Client) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	return &Geocoder{baseURL: baseURL, userAgent: userAgent, http: httpClient}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse returns the comma-separated parts of the display name at (lat, lon),
// most specific first, each trimmed.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) ([]string, error) {
	q := NewQuery(GeocoderParams)
	err := q.SetAll(map[string]string{
		"lat":             strconv.FormatFloat(lat, 'f', -1, 64),
		"lon":             strconv.FormatFloat(lon, 'f', -1, 64),
		"format":          "json",
		"accept-language": "fr",
		"zoom":            "18",
	})
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}

	target, err := q.URL(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}

	var resp reverseResponse
	if err := GetJSON(ctx, g.http, target, g.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}
	if strings.TrimSpace(resp.DisplayName) == "" {
		return nil, fmt.Errorf("geocoder: (%v, %v) %s: %w", lat, lon, resp.Error, ErrNotFound)
	}

	parts := strings.Split(resp.DisplayName, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}
