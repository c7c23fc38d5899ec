package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mmcloughlin/geohash"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

// geohashPrecision of 9 characters is roughly a 5m cell.
const geohashPrecision = 9

// Geocoder resolves coordinates into comma-separated address parts,
// most specific first.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) ([]string, error)
}

// CleanStats counts what happened while cleaning one batch of listings.
type CleanStats struct {
	Input           int
	Cleaned         int
	Dropped         int
	Geocoded        int
	GeocodeFailures int
}

// Cleaner transforms RawListings into ListingRecords ready for storage.
type Cleaner struct {
	logger   *utils.Logger
	geocoder Geocoder
	pool     *utils.WorkerPool
	now      func() time.Time
}

// NewCleaner creates a Cleaner. A nil geocoder leaves address lines empty.
func NewCleaner(geocoder Geocoder, pool *utils.WorkerPool, logger *utils.Logger) *Cleaner {
	if pool == nil {
		pool = utils.NewWorkerPool(1, 0)
	}
	return &Cleaner{logger: logger, geocoder: geocoder, pool: pool, now: time.Now}
}

// Clean converts raw listings, drops those without an id and duplicates, and
// fills the address lines by reverse geocoding each listing's coordinates.
func (c *Cleaner) Clean(ctx context.Context, raw []models.RawListing) ([]models.ListingRecord, CleanStats) {
	stats := CleanStats{Input: len(raw)}
	seen := make(map[string]struct{})
	result := make([]models.ListingRecord, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.ID.String())
		if id == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty id: %s", r.Name)
			continue
		}
		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate listing skipped: %s", id)
			continue
		}
		seen[id] = struct{}{}

		result = append(result, c.convert(id, r))
	}

	stats.Cleaned = len(result)
	stats.Dropped = stats.Input - stats.Cleaned

	if c.geocoder != nil {
		stats.Geocoded, stats.GeocodeFailures = c.geocodeAll(ctx, result)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d, geocoded %d, geocode failures %d)",
		stats.Input, stats.Cleaned, stats.Dropped, stats.Geocoded, stats.GeocodeFailures)
	return result, stats
}

func (c *Cleaner) convert(id string, r models.RawListing) models.ListingRecord {
	rec := models.ListingRecord{
		ID:                          id,
		Name:                        normaliseText(r.Name),
		HostID:                      strings.TrimSpace(r.HostID.String()),
		Neighbourhood:               normaliseText(r.Neighbourhood),
		City:                        normaliseText(r.City),
		Country:                     normaliseText(r.Country),
		RoomType:                    normaliseText(r.RoomType),
		RoomPrice:                   r.Price,
		MinimumNights:               r.MinimumNights,
		NumberOfReviews:             r.NumberOfReviews,
		LastReview:                  strings.TrimSpace(r.LastReview),
		ReviewsPerMonth:             r.ReviewsPerMonth,
		CalculatedHostListingsCount: r.CalculatedHostListingsCount,
		Availability365:             r.Availability365,
		UpdatedDate:                 strings.TrimSpace(r.UpdatedDate),
		CleanedAt:                   c.now(),
	}

	if r.Coordinates != nil {
		lat, lon := r.Coordinates.Lat, r.Coordinates.Lon
		rec.Latitude = &lat
		rec.Longitude = &lon
		rec.Geohash = geohash.EncodeWithPrecision(lat, lon, geohashPrecision)
	}
	return rec
}

// geocodeAll fills AddressLine1/2 in place through the rate-limited pool.
func (c *Cleaner) geocodeAll(ctx context.Context, listings []models.ListingRecord) (ok, failed int) {
	var mu sync.Mutex

	for i := range listings {
		if listings[i].Latitude == nil || listings[i].Longitude == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		rec := &listings[i]
		c.pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			parts, err := c.geocoder.Reverse(ctx, *rec.Latitude, *rec.Longitude)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				c.logger.Warn("[cleaner] Reverse geocoding listing %s failed: %v", rec.ID, err)
				return
			}
			rec.AddressLine1, rec.AddressLine2 = addressLines(parts)
			ok++
		})
	}

	c.pool.Wait()
	return ok, failed
}

// addressLines joins the first two display-name parts (house number and
// street) into line 1 and uses the third as line 2. Fewer than two parts
// leave both lines empty.
func addressLines(parts []string) (line1, line2 string) {
	if len(parts) < 2 {
		return "", ""
	}
	line1 = normaliseText(parts[0] + " " + parts[1])
	if len(parts) > 2 {
		line2 = normaliseText(parts[2])
	}
	return line1, line2
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
