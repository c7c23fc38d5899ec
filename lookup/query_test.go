package lookup

import (
	"errors"
	"net/url"
	"testing"
)

func TestQuerySetRejectsUnknownParam(t *testing.T) {
	q := NewQuery(PostalParams)
	err := q.Set("offset", "10")
	if !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("Set(offset) error = %v; want ErrUnknownParam", err)
	}
	if q.Encode() != "" {
		t.Errorf("Encode() = %q; want empty after rejected Set", q.Encode())
	}
}

func TestQuerySetRejectsBlankValue(t *testing.T) {
	q := NewQuery(PostalParams)
	if err := q.Set("q", "  "); err == nil {
		t.Fatal("Set(q, blank) returned nil error")
	}
}

func TestQuerySetAllStopsAtFirstInvalid(t *testing.T) {
	q := NewQuery(ListingParams)
	err := q.SetAll(map[string]string{"limit": "100", "bogus": "1", "offset": "0"})
	if !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("SetAll error = %v; want ErrUnknownParam", err)
	}
}

func TestQueryURLKeepsExistingParams(t *testing.T) {
	q := NewQuery(ListingParams)
	if err := q.SetAll(map[string]string{"limit": "100", "refine": "column_19:France"}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}

	got, err := q.URL("https://example.org/records?apikey=abc")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}

	want := map[string]string{"apikey": "abc", "limit": "100", "refine": "column_19:France"}
	for k, v := range want {
		if u.Query().Get(k) != v {
			t.Errorf("query %s = %q; want %q", k, u.Query().Get(k), v)
		}
	}
}
