package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

const (
	insertCustomerSQL = `
		INSERT INTO customer (uuid, id, address, city, zip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertListingSQL = `
		INSERT INTO airbnb_listings (
			uuid, id, name, host_id, address_line_1, address_line_2, neighbourhood,
			city, country, room_type, room_price, minimum_nights, number_of_reviews,
			last_review, reviews_per_month, calculated_host_listings_count,
			availability_365, updated_date, latitude, longitude, geohash, cleaned_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22
		)`

	insertAggregateSQL = `
		INSERT INTO city_aggregates (city, number_of_customers, total_accommodations)
		VALUES ($1, $2, $3)`
)

// PostgresWriter persists customers, listings and city aggregates to PostgreSQL.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
	newID  func() string
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it with
// retry, runs schema migrations and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := NewPostgresWriterFromDB(db, logger)
	if err := pw.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

// NewPostgresWriterFromDB wraps an already open handle without pinging or migrating.
func NewPostgresWriterFromDB(db *sql.DB, logger *utils.Logger) *PostgresWriter {
	return &PostgresWriter{db: db, logger: logger, newID: uuid.NewString}
}

// Migrate creates the tables if they do not exist.
func (pw *PostgresWriter) Migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS customer (
			uuid       UUID PRIMARY KEY,
			id         TEXT NOT NULL,
			address    TEXT NOT NULL DEFAULT '',
			city       TEXT,
			zip        INTEGER,
			created_at TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS airbnb_listings (
			uuid                           UUID PRIMARY KEY,
			id                             TEXT NOT NULL,
			name                           TEXT NOT NULL DEFAULT '',
			host_id                        TEXT NOT NULL DEFAULT '',
			address_line_1                 TEXT NOT NULL DEFAULT '',
			address_line_2                 TEXT NOT NULL DEFAULT '',
			neighbourhood                  TEXT NOT NULL DEFAULT '',
			city                           TEXT NOT NULL DEFAULT '',
			country                        TEXT NOT NULL DEFAULT '',
			room_type                      TEXT NOT NULL DEFAULT '',
			room_price                     NUMERIC(10,2),
			minimum_nights                 INTEGER,
			number_of_reviews              INTEGER,
			last_review                    TEXT NOT NULL DEFAULT '',
			reviews_per_month              NUMERIC(8,2),
			calculated_host_listings_count INTEGER,
			availability_365               INTEGER,
			updated_date                   TEXT NOT NULL DEFAULT '',
			latitude                       DOUBLE PRECISION,
			longitude                      DOUBLE PRECISION,
			geohash                        VARCHAR(12) NOT NULL DEFAULT '',
			cleaned_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS city_aggregates (
			city                 TEXT PRIMARY KEY,
			number_of_customers  INTEGER NOT NULL DEFAULT 0,
			total_accommodations INTEGER NOT NULL DEFAULT 0,
			refreshed_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_customer_city  ON customer(city);
		CREATE INDEX IF NOT EXISTS idx_listings_city  ON airbnb_listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_geohash ON airbnb_listings(geohash);
	`)
	return err
}

// Reset empties every table so a run starts from a clean slate.
func (pw *PostgresWriter) Reset(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, "TRUNCATE customer, airbnb_listings, city_aggregates")
	if err != nil {
		return fmt.Errorf("postgres: reset: %w", err)
	}
	return nil
}

// WriteCustomers inserts each customer in its own transaction.
func (pw *PostgresWriter) WriteCustomers(ctx context.Context, customers []models.CustomerRecord) (WriteResult, error) {
	var res WriteResult
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := pw.insertOne(ctx, insertCustomerSQL,
			pw.newID(), c.ID, c.Address, c.City, c.Zip, c.CreatedAt)
		if err != nil {
			res.Failed++
			pw.logger.Error("[postgres] Customer %q rolled back: %v", c.ID, err)
			continue
		}
		res.Persisted++
	}
	pw.logger.Info("[postgres] Customers: %d persisted, %d failed", res.Persisted, res.Failed)
	return res, nil
}

// WriteListings inserts each listing in its own transaction.
func (pw *PostgresWriter) WriteListings(ctx context.Context, listings []models.ListingRecord) (WriteResult, error) {
	var res WriteResult
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := pw.insertOne(ctx, insertListingSQL,
			pw.newID(), l.ID, l.Name, l.HostID, l.AddressLine1, l.AddressLine2, l.Neighbourhood,
			l.City, l.Country, l.RoomType, l.RoomPrice, l.MinimumNights, l.NumberOfReviews,
			l.LastReview, l.ReviewsPerMonth, l.CalculatedHostListingsCount,
			l.Availability365, l.UpdatedDate, l.Latitude, l.Longitude, l.Geohash, l.CleanedAt)
		if err != nil {
			res.Failed++
			pw.logger.Error("[postgres] Listing %q rolled back: %v", l.ID, err)
			continue
		}
		res.Persisted++
	}
	pw.logger.Info("[postgres] Listings: %d persisted, %d failed", res.Persisted, res.Failed)
	return res, nil
}

func (pw *PostgresWriter) insertOne(ctx context.Context, query string, args ...any) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WriteAggregates replaces the aggregate table in a single transaction.
func (pw *PostgresWriter) WriteAggregates(ctx context.Context, aggs []models.AggregateCount) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: aggregates: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM city_aggregates"); err != nil {
		return fmt.Errorf("postgres: aggregates: clear: %w", err)
	}

	for _, a := range aggs {
		if _, err := tx.ExecContext(ctx, insertAggregateSQL, a.City, a.CustomerCount, a.ListingCount); err != nil {
			return fmt.Errorf("postgres: aggregates: insert %q: %w", a.City, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: aggregates: commit: %w", err)
	}
	pw.logger.Info("[postgres] City aggregates rebuilt: %d cities", len(aggs))
	return nil
}

// FetchAggregates reads back the aggregate table, ordered by city.
func (pw *PostgresWriter) FetchAggregates(ctx context.Context) ([]models.AggregateCount, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT city, number_of_customers, total_accommodations
		FROM city_aggregates
		ORDER BY city
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []models.AggregateCount
	for rows.Next() {
		var a models.AggregateCount
		if err := rows.Scan(&a.City, &a.CustomerCount, &a.ListingCount); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
