package ingest

import (
	"context"
	"strconv"
	"strings"

	"concierge-pipeline/utils"
)

// PostalLookup resolves one half of a city/zip pair from the other.
// Implementations return an error when nothing is found.
type PostalLookup interface {
	CityByZip(ctx context.Context, zip string) (string, error)
	ZipByCity(ctx context.Context, city string) (int, error)
}

// Location is a resolved city/zip pair; nil means unset.
type Location struct {
	City *string
	Zip  *int
	// LookupFailed is true when a lookup was needed and yielded nothing.
	LookupFailed bool
}

// Resolver fills in whichever of city and zip is missing.
type Resolver struct {
	lookup PostalLookup
	logger *utils.Logger
}

func NewResolver(lookup PostalLookup, logger *utils.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve applies the resolution table:
//
//	zip is an integer, city given   -> keep both
//	zip is an integer, city empty   -> city looked up by zip
//	zip not an integer, city given  -> zip looked up by city
//	zip not an integer, city empty  -> both unset
//
// A successful integer parse wins even for implausible zips. Each lookup is
// attempted once.
func (r *Resolver) Resolve(ctx context.Context, city, zip string) Location {
	city = strings.TrimSpace(city)
	zip = strings.TrimSpace(zip)

	if n, err := strconv.Atoi(zip); err == nil {
		loc := Location{Zip: &n}
		if city != "" {
			loc.City = &city
			return loc
		}
		found, err := r.lookup.CityByZip(ctx, zip)
		if err != nil || strings.TrimSpace(found) == "" {
			r.logger.Debug("[resolver] No city for zip %q: %v", zip, err)
			loc.LookupFailed = true
			return loc
		}
		found = strings.TrimSpace(found)
		loc.City = &found
		return loc
	}

	if city == "" {
		return Location{}
	}

	loc := Location{City: &city}
	found, err := r.lookup.ZipByCity(ctx, city)
	if err != nil {
		r.logger.Debug("[resolver] No zip for city %q: %v", city, err)
		loc.LookupFailed = true
		return loc
	}
	loc.Zip = &found
	return loc
}
