package models

import "time"

// AggregateCount is the per-city result of one reconciliation pass.
type AggregateCount struct {
	City          string
	CustomerCount int
	ListingCount  int
}

// Ratio returns matched customers per listed accommodation in the city.
func (a AggregateCount) Ratio() float64 {
	if a.ListingCount == 0 {
		return 0
	}
	return float64(a.CustomerCount) / float64(a.ListingCount)
}

// Diagnostic records why a source or a record was not ingested cleanly.
type Diagnostic struct {
	Source string
	Raw    string
	Reason string
}

// BatchSummary counts what happened to every source and record in a run.
type BatchSummary struct {
	Sources         int
	SkippedSources  int
	Records         int
	Malformed       int
	LookupFailures  int
	Persisted       int
	PersistFailures int
	Diagnostics     []Diagnostic
}

// Add records a diagnostic entry.
func (s *BatchSummary) Add(source, raw, reason string) {
	s.Diagnostics = append(s.Diagnostics, Diagnostic{Source: source, Raw: raw, Reason: reason})
}

// RunReport holds everything the insight service prints at the end of a run.
type RunReport struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        time.Time
	Customers         BatchSummary
	ListingsFetched   int
	ListingsStored    int
	ListingsGeocoded  int
	ListingFailures   int
	Aggregates        []AggregateCount
	ExportKey         string
	TotalMatchedPairs int
}
