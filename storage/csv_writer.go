package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"concierge-pipeline/models"
)

// ExportPrefix starts every aggregate export object name.
const ExportPrefix = "customers_accommodation_by_city_"

var aggregateHeader = []string{"city", "number_of_customers", "total_accommodations"}

// ExportName returns the object name of the aggregate export taken at t.
func ExportName(t time.Time) string {
	return ExportPrefix + t.Format("20060102150405") + ".csv"
}

// CSVWriter writes city aggregates as CSV.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	c, err := newCSVWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func newCSVWriter(w io.Writer, closer io.Closer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(aggregateHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()
	return &CSVWriter{closer: closer, writer: cw}, nil
}

// WriteAggregates appends one row per city.
func (c *CSVWriter) WriteAggregates(aggs []models.AggregateCount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range aggs {
		row := []string{
			a.City,
			strconv.Itoa(a.CustomerCount),
			strconv.Itoa(a.ListingCount),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

// EncodeAggregates renders aggregates as a complete CSV document.
func EncodeAggregates(aggs []models.AggregateCount) ([]byte, error) {
	var buf bytes.Buffer
	c, err := newCSVWriter(&buf, nil)
	if err != nil {
		return nil, err
	}
	if err := c.WriteAggregates(aggs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
