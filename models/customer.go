package models

// CustomerRecord is one canonical customer row recovered from a CSV export.
// City and Zip are nil when they could not be read or resolved.
type CustomerRecord struct {
	ID        string
	Address   string
	City      *string
	Zip       *int
	CreatedAt string
}

// CityName returns the city or "" when unset.
func (c CustomerRecord) CityName() string {
	if c.City == nil {
		return ""
	}
	return *c.City
}

// RecordStatus classifies how a logical record was turned into a CustomerRecord.
type RecordStatus int

const (
	StatusOK RecordStatus = iota
	StatusMalformed
)

func (s RecordStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// RecordResult is the outcome of normalizing one logical record.
type RecordResult struct {
	Record CustomerRecord
	Status RecordStatus
	Source string
	// Raw is the logical record string, kept for diagnostics.
	Raw string
	// LookupFailed is set when a postal lookup was attempted and returned nothing.
	LookupFailed bool
}
