package ingest

import (
	"context"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

// Normalizer turns one logical record into a CustomerRecord.
type Normalizer struct {
	resolver *Resolver
	logger   *utils.Logger
}

func NewNormalizer(resolver *Resolver, logger *utils.Logger) *Normalizer {
	return &Normalizer{resolver: resolver, logger: logger}
}

// Normalize splits raw into fields, resolves the location and repairs the
// address. A record without exactly five fields yields a partial record
// (id, address, created_at only) with StatusMalformed; it never fails.
func (n *Normalizer) Normalize(ctx context.Context, source, raw string) models.RecordResult {
	fields := SplitFields(raw)
	result := models.RecordResult{Source: source, Raw: raw}

	if len(fields) != FieldCount {
		n.logger.Warn("[normalizer] Malformed record in %s (%d fields): %s", source, len(fields), raw)
		result.Status = models.StatusMalformed
		result.Record = partialRecord(fields)
		return result
	}

	loc := n.resolver.Resolve(ctx, fields[fieldCity], fields[fieldZip])
	result.Status = models.StatusOK
	result.LookupFailed = loc.LookupFailed
	result.Record = models.CustomerRecord{
		ID:        fields[fieldID],
		Address:   RepairAddress(fields[fieldAddress]),
		City:      loc.City,
		Zip:       loc.Zip,
		CreatedAt: fields[fieldCreatedAt],
	}
	return result
}

func partialRecord(fields []string) models.CustomerRecord {
	rec := models.CustomerRecord{ID: fields[0], CreatedAt: fields[len(fields)-1]}
	if len(fields) > 1 {
		rec.Address = RepairAddress(fields[1])
	}
	return rec
}
