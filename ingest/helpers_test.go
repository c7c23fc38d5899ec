package ingest

import (
	"context"
	"errors"
	"io"
	"sync"

	"concierge-pipeline/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerWithOptions(io.Discard, "error", false) }

var errNoMatch = errors.New("no match")

// fakeLookup answers from fixed tables and counts calls.
type fakeLookup struct {
	mu        sync.Mutex
	cities    map[string]string
	zips      map[string]int
	cityCalls int
	zipCalls  int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		cities: map[string]string{"75001": "Paris", "69001": "Lyon"},
		zips:   map[string]int{"Paris": 75001, "Marseille": 13001},
	}
}

func (f *fakeLookup) CityByZip(_ context.Context, zip string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cityCalls++
	if c, ok := f.cities[zip]; ok {
		return c, nil
	}
	return "", errNoMatch
}

func (f *fakeLookup) ZipByCity(_ context.Context, city string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zipCalls++
	if z, ok := f.zips[city]; ok {
		return z, nil
	}
	return 0, errNoMatch
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
