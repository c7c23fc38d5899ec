package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

const maxDiagnosticsShown = 10

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// WithOutput redirects the printed report, mostly for tests.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

// TopCities returns at most n aggregates ordered by matched customers, then
// by listings, then by name.
func TopCities(aggs []models.AggregateCount, n int) []models.AggregateCount {
	sorted := make([]models.AggregateCount, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CustomerCount != sorted[j].CustomerCount {
			return sorted[i].CustomerCount > sorted[j].CustomerCount
		}
		if sorted[i].ListingCount != sorted[j].ListingCount {
			return sorted[i].ListingCount > sorted[j].ListingCount
		}
		return sorted[i].City < sorted[j].City
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (s *InsightService) Print(r *models.RunReport) {
	w := s.out
	s.logger.Debug("[insights] Printing report for run %s: %d cities, %d diagnostics",
		r.RunID, len(r.Aggregates), len(r.Customers.Diagnostics))
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 CONCIERGE PIPELINE RUN %s\033[0m\n", r.RunID)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Customers\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	c := r.Customers
	fmt.Fprintf(w, "  Sources read / skipped : \033[1m%d / %d\033[0m\n", c.Sources, c.SkippedSources)
	fmt.Fprintf(w, "  Records (malformed)    : \033[1m%d (%d)\033[0m\n", c.Records, c.Malformed)
	fmt.Fprintf(w, "  Postal lookup failures : \033[1m%d\033[0m\n", c.LookupFailures)
	fmt.Fprintf(w, "  Persisted / failed     : \033[1m%d / %d\033[0m\n", c.Persisted, c.PersistFailures)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Fetched   : \033[1m%d\033[0m\n", r.ListingsFetched)
	fmt.Fprintf(w, "  Geocoded  : \033[1m%d\033[0m\n", r.ListingsGeocoded)
	fmt.Fprintf(w, "  Stored    : \033[1m%d\033[0m\n", r.ListingsStored)
	fmt.Fprintf(w, "  Failures  : \033[1m%d\033[0m\n", r.ListingFailures)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Customers by City (%d matched pairs)\033[0m\n", r.TotalMatchedPairs)
	fmt.Fprintf(w, "  %s\n", thin)
	top := TopCities(r.Aggregates, 10)
	if len(top) == 0 {
		fmt.Fprintf(w, "  No city aggregates\n")
	} else {
		for i, a := range top {
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-28s %5d customers  %5d listings  \033[1;32m%.2f\033[0m\n",
				i+1, truncate(a.City, 28), a.CustomerCount, a.ListingCount, round2(a.Ratio()))
		}
	}
	fmt.Fprintln(w)

	if len(c.Diagnostics) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Diagnostics (%d)\033[0m\n", len(c.Diagnostics))
		fmt.Fprintf(w, "  %s\n", thin)
		for i, d := range c.Diagnostics {
			if i == maxDiagnosticsShown {
				fmt.Fprintf(w, "  ... %d more\n", len(c.Diagnostics)-maxDiagnosticsShown)
				break
			}
			fmt.Fprintf(w, "  \033[1;31m%s\033[0m %s: %s\n", d.Source, d.Reason, truncate(d.Raw, 40))
		}
		fmt.Fprintln(w)
	}

	if r.ExportKey != "" {
		fmt.Fprintf(w, "  Export : %s\n", r.ExportKey)
	}
	fmt.Fprintf(w, "  Took   : %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
