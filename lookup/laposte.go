package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"concierge-pipeline/utils"
)

// DefaultPostalURL is the La Poste postal code dataset on data-fair.
const DefaultPostalURL = "https://datanova.laposte.fr/data-fair/api/v1/datasets/laposte-hexasmal/lines"

const (
	postalSelect = "code_postal,nom_de_la_commune"
	fieldZip     = "code_postal"
	fieldCommune = "nom_de_la_commune"
)

// PostalClient resolves French cities and postal codes through the La Poste
// open-data API. Every call is a single request; nothing is retried.
type PostalClient struct {
	baseURL string
	http    *http.Client
	logger  *utils.Logger
}

func NewPostalClient(baseURL string, httpClient *http.Client, logger *utils.Logger) *PostalClient {
	if baseURL == "" {
		baseURL = DefaultPostalURL
	}
	return &PostalClient{baseURL: baseURL, http: httpClient, logger: logger}
}

type postalResponse struct {
	Results []postalRow `json:"results"`
}

type postalRow struct {
	CodePostal postalCode `json:"code_postal"`
	Commune    string     `json:"nom_de_la_commune"`
}

// postalCode accepts the code either as a JSON string or a JSON number.
type postalCode string

func (p *postalCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = postalCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("code_postal: %w", err)
	}
	*p = postalCode(n.String())
	return nil
}

// CityByZip returns the commune name registered for zip.
func (c *PostalClient) CityByZip(ctx context.Context, zip string) (string, error) {
	row, err := c.first(ctx, fieldZip, zip)
	if err != nil {
		return "", err
	}
	city := strings.TrimSpace(row.Commune)
	if city == "" {
		return "", fmt.Errorf("postal: city for %q: %w", zip, ErrNotFound)
	}
	return city, nil
}

// ZipByCity returns the first postal code registered for city.
func (c *PostalClient) ZipByCity(ctx context.Context, city string) (int, error) {
	row, err := c.first(ctx, fieldCommune, city)
	if err != nil {
		return 0, err
	}
	zip, err := strconv.Atoi(string(row.CodePostal))
	if err != nil {
		return 0, fmt.Errorf("postal: zip for %q: %w", city, ErrNotFound)
	}
	return zip, nil
}

func (c *PostalClient) first(ctx context.Context, field, value string) (postalRow, error) {
	q := NewQuery(PostalParams)
	err := q.SetAll(map[string]string{
		"size":     "1",
		"select":   postalSelect,
		"q":        value,
		"q_fields": field,
	})
	if err != nil {
		return postalRow{}, fmt.Errorf("postal: %w", err)
	}

	target, err := q.URL(c.baseURL)
	if err != nil {
		return postalRow{}, fmt.Errorf("postal: %w", err)
	}

	var resp postalResponse
	if err := GetJSON(ctx, c.http, target, "", &resp); err != nil {
		c.logger.Debug("[postal] Lookup %s=%q failed: %v", field, value, err)
		return postalRow{}, fmt.Errorf("postal: %w", err)
	}
	if len(resp.Results) == 0 {
		return postalRow{}, fmt.Errorf("postal: %s=%q: %w", field, value, ErrNotFound)
	}
	return resp.Results[0], nil
}
