package storage

import (
	"context"

	"concierge-pipeline/models"
)

// WriteResult counts rows committed and rows rolled back by a per-record writer.
type WriteResult struct {
	Persisted int
	Failed    int
}

// RecordWriter is the interface any relational storage backend must satisfy.
// Customer and listing rows are committed one transaction each; a failed row
// does not affect the others. Aggregates are replaced wholesale.
type RecordWriter interface {
	WriteCustomers(ctx context.Context, customers []models.CustomerRecord) (WriteResult, error)
	WriteListings(ctx context.Context, listings []models.ListingRecord) (WriteResult, error)
	WriteAggregates(ctx context.Context, aggs []models.AggregateCount) error
	FetchAggregates(ctx context.Context) ([]models.AggregateCount, error)
	Close() error
}

// ObjectStore is the bucket API used to read customer exports and publish
// aggregate reports.
type ObjectStore interface {
	List(ctx context.Context, bucket string) ([]string, error)
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}
