package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

// Reconciliation is the outcome of joining customers against listings.
type Reconciliation struct {
	Aggregates   []models.AggregateCount
	MatchedPairs int
}

// Reconciler joins customer records to listings by fuzzy address and city
// and counts, per listing city, matched customers and listed accommodations.
type Reconciler struct {
	logger *utils.Logger
	fold   cases.Caser
}

func NewReconciler(logger *utils.Logger) *Reconciler {
	return &Reconciler{logger: logger, fold: cases.Fold()}
}

type joinKey struct {
	address string
	city    string
}

func (r *Reconciler) key(address, city string) joinKey {
	return joinKey{
		address: r.fold.String(strings.TrimSpace(address)),
		city:    r.fold.String(strings.TrimSpace(city)),
	}
}

// Matches reports whether a customer and a listing refer to the same place:
// one address contains the other and one city is a prefix of the other.
// Empty addresses or cities never match.
func (r *Reconciler) Matches(c models.CustomerRecord, l models.ListingRecord) bool {
	return keysMatch(r.key(c.Address, c.CityName()), r.key(l.AddressLine1, l.City))
}

func keysMatch(c, l joinKey) bool {
	if c.address == "" || l.address == "" || c.city == "" || l.city == "" {
		return false
	}
	addressOK := strings.Contains(l.address, c.address) || strings.Contains(c.address, l.address)
	if !addressOK {
		return false
	}
	return strings.HasPrefix(l.city, c.city) || strings.HasPrefix(c.city, l.city)
}

// Reconcile computes per-city aggregates. Every matching (customer, listing)
// pair adds one customer to the listing's city, so a customer matching several
// listings is counted several times. Every listing with a city adds one
// accommodation to it, matched or not. Cities group case-insensitively and
// keep the first spelling seen; output is ordered by city.
func (r *Reconciler) Reconcile(customers []models.CustomerRecord, listings []models.ListingRecord) Reconciliation {
	customerKeys := make([]joinKey, len(customers))
	for i, c := range customers {
		customerKeys[i] = r.key(c.Address, c.CityName())
	}

	byCity := make(map[string]*models.AggregateCount)
	var order []string
	var result Reconciliation
	skipped := 0

	for _, l := range listings {
		lk := r.key(l.AddressLine1, l.City)
		if lk.city == "" {
			skipped++
			continue
		}

		agg, ok := byCity[lk.city]
		if !ok {
			agg = &models.AggregateCount{City: strings.TrimSpace(l.City)}
			byCity[lk.city] = agg
			order = append(order, lk.city)
		}
		agg.ListingCount++

		for _, ck := range customerKeys {
			if keysMatch(ck, lk) {
				agg.CustomerCount++
				result.MatchedPairs++
			}
		}
	}

	sort.Strings(order)
	result.Aggregates = make([]models.AggregateCount, 0, len(order))
	for _, city := range order {
		result.Aggregates = append(result.Aggregates, *byCity[city])
	}

	if skipped > 0 {
		r.logger.Debug("[reconcile] %d listings without a city left out of aggregates", skipped)
	}
	r.logger.Info("[reconcile] %d customers × %d listings → %d matched pairs across %d cities",
		len(customers), len(listings), result.MatchedPairs, len(result.Aggregates))
	return result
}
