package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"concierge-pipeline/ingest"
	"concierge-pipeline/models"
	"concierge-pipeline/services"
	"concierge-pipeline/storage"
	"concierge-pipeline/utils"
)

const csvContentType = "text/csv"

// ListingSource yields raw listings for one run. On error it may still return
// the listings fetched before the failure.
type ListingSource interface {
	FetchAll(ctx context.Context) ([]models.RawListing, error)
}

// Options names where a run reads from and publishes to.
type Options struct {
	CustomerBucket string
	ExportBucket   string
	// ExportDir, when set, also receives a local copy of the aggregate export.
	ExportDir string
}

// Pipeline wires ingestion, listing enrichment, reconciliation and export
// into a single batch run.
type Pipeline struct {
	opts       Options
	store      storage.ObjectStore
	writer     storage.RecordWriter
	ingester   *ingest.Ingester
	listings   ListingSource
	cleaner    *services.Cleaner
	reconciler *services.Reconciler
	logger     *utils.Logger

	now      func() time.Time
	newRunID func() string
}

func New(
	opts Options,
	store storage.ObjectStore,
	writer storage.RecordWriter,
	ingester *ingest.Ingester,
	listings ListingSource,
	cleaner *services.Cleaner,
	reconciler *services.Reconciler,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		opts:       opts,
		store:      store,
		writer:     writer,
		ingester:   ingester,
		listings:   listings,
		cleaner:    cleaner,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// Run executes one full batch. Only an unreadable customer bucket or a
// cancelled context aborts the run; every other failure is logged and
// counted in the report.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{RunID: p.newRunID(), StartedAt: p.now()}
	p.logger.Info("[pipeline] Run %s started", report.RunID)

	customers, err := p.ingestCustomers(ctx, report)
	if err != nil {
		return report, err
	}

	listings, err := p.collectListings(ctx, report)
	if err != nil {
		return report, err
	}

	rec := p.reconciler.Reconcile(customers, listings)
	report.TotalMatchedPairs = rec.MatchedPairs
	report.Aggregates = p.persistAggregates(ctx, rec.Aggregates)

	report.ExportKey = p.export(ctx, report.Aggregates)
	report.FinishedAt = p.now()

	p.logger.Info("[pipeline] Run %s finished in %s", report.RunID, report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (p *Pipeline) ingestCustomers(ctx context.Context, report *models.RunReport) ([]models.CustomerRecord, error) {
	keys, err := p.store.List(ctx, p.opts.CustomerBucket)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list customer exports: %w", err)
	}

	var blobs []ingest.Blob
	var unreadable models.BatchSummary
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if !isCustomerExport(key) {
			p.logger.Debug("[pipeline] Ignoring object %s", key)
			continue
		}

		data, err := p.store.Fetch(ctx, p.opts.CustomerBucket, key)
		if err != nil {
			p.logger.Warn("[pipeline] Skipping %s: %v", key, err)
			unreadable.Sources++
			unreadable.SkippedSources++
			unreadable.Add(key, "", err.Error())
			continue
		}
		blobs = append(blobs, ingest.Blob{Source: key, Data: data})
	}

	results, summary, err := p.ingester.Ingest(ctx, blobs)
	summary.Sources += unreadable.Sources
	summary.SkippedSources += unreadable.SkippedSources
	summary.Diagnostics = append(unreadable.Diagnostics, summary.Diagnostics...)
	report.Customers = summary
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	customers := make([]models.CustomerRecord, 0, len(results))
	for _, r := range results {
		customers = append(customers, r.Record)
	}

	res, err := p.writer.WriteCustomers(ctx, customers)
	report.Customers.Persisted = res.Persisted
	report.Customers.PersistFailures = res.Failed
	if err != nil {
		return nil, fmt.Errorf("pipeline: write customers: %w", err)
	}
	return customers, nil
}

func (p *Pipeline) collectListings(ctx context.Context, report *models.RunReport) ([]models.ListingRecord, error) {
	raw, err := p.listings.FetchAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pipeline: fetch listings: %w", err)
		}
		p.logger.Error("[pipeline] Listing fetch stopped early, continuing with %d listings: %v", len(raw), err)
	}
	report.ListingsFetched = len(raw)

	cleaned, stats := p.cleaner.Clean(ctx, raw)
	report.ListingsGeocoded = stats.Geocoded

	res, err := p.writer.WriteListings(ctx, cleaned)
	report.ListingsStored = res.Persisted
	report.ListingFailures = res.Failed + stats.Dropped
	if err != nil {
		return nil, fmt.Errorf("pipeline: write listings: %w", err)
	}
	return cleaned, nil
}

// persistAggregates rebuilds the aggregate table and returns what it now
// holds, falling back to the in-memory result when the database disagrees.
func (p *Pipeline) persistAggregates(ctx context.Context, aggs []models.AggregateCount) []models.AggregateCount {
	if err := p.writer.WriteAggregates(ctx, aggs); err != nil {
		p.logger.Error("[pipeline] Aggregate rebuild failed: %v", err)
		return aggs
	}

	stored, err := p.writer.FetchAggregates(ctx)
	if err != nil {
		p.logger.Error("[pipeline] Failed to read aggregates back, exporting in-memory result: %v", err)
		return aggs
	}
	return stored
}

// export uploads the aggregate CSV and returns its object key, or "" when
// nothing was uploaded.
func (p *Pipeline) export(ctx context.Context, aggs []models.AggregateCount) string {
	key := storage.ExportName(p.now())

	body, err := storage.EncodeAggregates(aggs)
	if err != nil {
		p.logger.Error("[pipeline] Encoding export failed: %v", err)
		return ""
	}

	if p.opts.ExportDir != "" {
		p.writeLocal(filepath.Join(p.opts.ExportDir, key), aggs)
	}

	if err := p.store.Put(ctx, p.opts.ExportBucket, key, body, csvContentType); err != nil {
		p.logger.Error("[pipeline] Export upload failed: %v", err)
		return ""
	}
	return key
}

func (p *Pipeline) writeLocal(path string, aggs []models.AggregateCount) {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		p.logger.Error("[pipeline] Local export failed: %v", err)
		return
	}
	defer w.Close()

	if err := w.WriteAggregates(aggs); err != nil {
		p.logger.Error("[pipeline] Local export failed: %v", err)
		return
	}
	p.logger.Info("[pipeline] Aggregates saved to %s", path)
}

// isCustomerExport keeps .csv objects that are not one of our own exports.
func isCustomerExport(key string) bool {
	base := filepath.Base(key)
	if strings.HasPrefix(base, storage.ExportPrefix) {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".csv")
}
