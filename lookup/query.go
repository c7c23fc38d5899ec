package lookup

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrUnknownParam is returned when a query names a parameter the target API
// does not accept.
var ErrUnknownParam = errors.New("unknown query parameter")

// Parameter sets accepted by each upstream API.
var (
	PostalParams   = []string{"size", "select", "q", "q_fields"}
	GeocoderParams = []string{"lat", "lon", "format", "accept-language", "zoom"}
	ListingParams  = []string{"limit", "offset", "refine", "where", "select", "order_by", "exclude", "lang", "timezone"}
)

// Query builds a query string from an explicit allow-list of parameter names.
type Query struct {
	allowed map[string]bool
	values  url.Values
}

// NewQuery creates an empty Query accepting only the given names.
func NewQuery(allowed []string) *Query {
	q := &Query{allowed: make(map[string]bool, len(allowed)), values: url.Values{}}
	for _, name := range allowed {
		q.allowed[name] = true
	}
	return q
}

// Set assigns a parameter. Unknown names and blank values are rejected.
func (q *Query) Set(name, value string) error {
	if !q.allowed[name] {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("query parameter %q: empty value", name)
	}
	q.values.Set(name, value)
	return nil
}

// SetAll assigns every entry of params, stopping at the first invalid one.
// Names are applied in sorted order so errors are deterministic.
func (q *Query) SetAll(params map[string]string) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := q.Set(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the URL-encoded query string.
func (q *Query) Encode() string {
	return q.values.Encode()
}

// URL appends the query string to base.
func (q *Query) URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	existing := u.Query()
	for name, vals := range q.values {
		existing[name] = vals
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
