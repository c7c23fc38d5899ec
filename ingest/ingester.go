package ingest

import (
	"context"
	"fmt"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

// Blob is one raw customer export as fetched from object storage.
type Blob struct {
	Source string
	Data   []byte
}

// Ingester drives decoding, segmentation and normalization over a batch of
// blobs. Failures are absorbed into the BatchSummary.
type Ingester struct {
	decoder    *TextDecoder
	normalizer *Normalizer
	logger     *utils.Logger
}

func NewIngester(decoder *TextDecoder, normalizer *Normalizer, logger *utils.Logger) *Ingester {
	return &Ingester{decoder: decoder, normalizer: normalizer, logger: logger}
}

// Ingest processes every blob in order. Only context cancellation stops the
// batch early; the records built so far are returned with the error.
func (in *Ingester) Ingest(ctx context.Context, blobs []Blob) ([]models.RecordResult, models.BatchSummary, error) {
	var summary models.BatchSummary
	var results []models.RecordResult

	for _, blob := range blobs {
		if err := ctx.Err(); err != nil {
			return results, summary, fmt.Errorf("ingest: %w", err)
		}
		results = append(results, in.IngestBlob(ctx, blob, &summary)...)
	}

	in.logger.Info("[ingest] %d sources (%d skipped) -> %d records, %d malformed, %d lookup failures",
		summary.Sources, summary.SkippedSources, summary.Records, summary.Malformed, summary.LookupFailures)
	return results, summary, nil
}

// IngestBlob decodes and normalizes a single blob, updating summary.
func (in *Ingester) IngestBlob(ctx context.Context, blob Blob, summary *models.BatchSummary) []models.RecordResult {
	summary.Sources++

	decoded, err := in.decoder.Decode(blob.Data)
	if err != nil {
		in.logger.Warn("[ingest] Skipping %s: %v", blob.Source, err)
		summary.SkippedSources++
		summary.Add(blob.Source, "", err.Error())
		return nil
	}
	in.logger.Debug("[ingest] %s decoded as %s (confidence %d)", blob.Source, decoded.Encoding, decoded.Confidence)

	var results []models.RecordResult
	defer func() {
		if len(results) == 0 {
			in.logger.Warn("[ingest] %s yielded no records", blob.Source)
			summary.Add(blob.Source, "", "no records found")
		}
	}()

	seg := NewSegmenter(StripHeader(decoded.Text))
	for seg.Scan() {
		res := in.normalizer.Normalize(ctx, blob.Source, seg.Text())
		summary.Records++
		if res.Status == models.StatusMalformed {
			summary.Malformed++
			summary.Add(blob.Source, res.Raw, "malformed record")
		}
		if res.LookupFailed {
			summary.LookupFailures++
		}
		results = append(results, res)
	}
	return results
}
