package ingest

import (
	"context"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		city, zip  string
		wantCity   *string
		wantZip    *int
		wantFailed bool
		cityCalls  int
		zipCalls   int
	}{
		{"both given", "Paris", "75001", strPtr("Paris"), intPtr(75001), false, 0, 0},
		{"implausible zip trusted", "Paris", "999999", strPtr("Paris"), intPtr(999999), false, 0, 0},
		{"city from zip", "", "75001", strPtr("Paris"), intPtr(75001), false, 1, 0},
		{"city lookup fails", "", "12345", nil, intPtr(12345), true, 1, 0},
		{"zip from city", "Paris", "abc", strPtr("Paris"), intPtr(75001), false, 0, 1},
		{"zip lookup fails", "Atlantis", "", strPtr("Atlantis"), nil, true, 0, 1},
		{"nothing usable", "", "abc", nil, nil, false, 0, 0},
		{"both empty", "", "", nil, nil, false, 0, 0},
	}

	for _, tt := range tests {
		lookup := newFakeLookup()
		r := NewResolver(lookup, newTestLogger())

		got := r.Resolve(context.Background(), tt.city, tt.zip)

		if !equalStrPtr(got.City, tt.wantCity) {
			t.Errorf("%s: city = %v; want %v", tt.name, deref(got.City), deref(tt.wantCity))
		}
		if !equalIntPtr(got.Zip, tt.wantZip) {
			t.Errorf("%s: zip = %v; want %v", tt.name, derefInt(got.Zip), derefInt(tt.wantZip))
		}
		if got.LookupFailed != tt.wantFailed {
			t.Errorf("%s: LookupFailed = %v; want %v", tt.name, got.LookupFailed, tt.wantFailed)
		}
		if lookup.cityCalls != tt.cityCalls || lookup.zipCalls != tt.zipCalls {
			t.Errorf("%s: lookups (city=%d, zip=%d); want (city=%d, zip=%d)",
				tt.name, lookup.cityCalls, lookup.zipCalls, tt.cityCalls, tt.zipCalls)
		}
	}
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
